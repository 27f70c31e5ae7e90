// Package timeline folds the inbound message stream into an ordered log of
// renderable segments. The reducer is pure: it never mutates its input and
// performs no I/O, so callers may hold the log anywhere a single goroutine
// applies events in delivery order.
package timeline

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/M3kH/gigi-sub006/internal/domain"
)

// Apply returns the log that results from folding one server message into
// log. Messages that do not produce or modify a segment (lifecycle notices,
// pongs, unknown kinds) return log unchanged. Ordering invariant: a segment
// never moves once created; only trailing-text coalescing and in-place
// completion by identifier modify existing entries.
func Apply(log []domain.Segment, msg domain.ServerMessage, now time.Time) []domain.Segment {
	switch m := msg.(type) {
	case domain.TextDelta:
		return applyDelta(log, m.Text)

	case domain.ToolInvoked:
		return appendSegment(log, domain.ToolSegment{
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
			ToolInput:  m.ToolInput,
			Status:     domain.ToolRunning,
			StartedAt:  now,
		})

	case domain.ToolCompleted:
		return completeTool(log, m.ToolCallID, m.Result)

	case domain.QuestionAsked:
		return appendSegment(log, domain.QuestionSegment{
			QuestionID: m.QuestionID,
			Question:   m.Question,
			Options:    m.Options,
		})

	case domain.RepoEvent:
		return appendSegment(log, domain.NoticeSegment{
			Text:   noticeText(m),
			Kind:   m.Kind,
			Action: m.Action,
			Repo:   m.Repo,
		})

	default:
		return log
	}
}

// ApplyAnswer records the user's answer on the first question segment whose
// id matches. An unknown id is a silent no-op: late delivery after teardown
// is a benign race, not an error.
func ApplyAnswer(log []domain.Segment, questionID, answer string, now time.Time) []domain.Segment {
	for i, seg := range log {
		q, ok := seg.(domain.QuestionSegment)
		if !ok || q.QuestionID != questionID {
			continue
		}
		q.Answer = answer
		q.AnsweredAt = now
		return replaceAt(log, i, q)
	}
	return log
}

// applyDelta coalesces into a trailing text segment, or starts a new one when
// the log is empty or ends with a different segment kind. Coalescing only at
// the tail keeps a tool call issued mid-sentence between the two text halves.
func applyDelta(log []domain.Segment, text string) []domain.Segment {
	if n := len(log); n > 0 {
		if last, ok := log[n-1].(domain.TextSegment); ok {
			return replaceAt(log, n-1, domain.TextSegment{Content: last.Content + text})
		}
	}
	return appendSegment(log, domain.TextSegment{Content: text})
}

// completeTool fills in the first matching tool segment in place. Uniqueness
// of ToolCallID is the transport protocol's guarantee, not enforced here.
func completeTool(log []domain.Segment, toolCallID, result string) []domain.Segment {
	for i, seg := range log {
		tool, ok := seg.(domain.ToolSegment)
		if !ok || tool.ToolCallID != toolCallID {
			continue
		}
		tool.Result = result
		tool.Status = domain.ToolDone
		return replaceAt(log, i, tool)
	}
	return log
}

// appendSegment appends without aliasing the caller's backing array.
func appendSegment(log []domain.Segment, seg domain.Segment) []domain.Segment {
	return append(log[:len(log):len(log)], seg)
}

// replaceAt returns a copy of log with index i swapped for seg.
func replaceAt(log []domain.Segment, i int, seg domain.Segment) []domain.Segment {
	next := make([]domain.Segment, len(log))
	copy(next, log)
	next[i] = seg
	return next
}

// noticeText renders a repo event as "<Kind>[: action][ — repo]", with the
// kind capitalized (e.g. "Issues: opened — org/app").
func noticeText(ev domain.RepoEvent) string {
	var b strings.Builder
	b.WriteString(capitalize(ev.Kind))
	if ev.Action != "" {
		b.WriteString(": ")
		b.WriteString(ev.Action)
	}
	if ev.Repo != "" {
		b.WriteString(" — ")
		b.WriteString(ev.Repo)
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
