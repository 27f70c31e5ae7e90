package domain

import (
	"encoding/json"
	"time"
)

// ToolStatus tracks the lifecycle of a tool segment.
type ToolStatus string

const (
	ToolRunning ToolStatus = "running"
	ToolDone    ToolStatus = "done"
)

// Segment is one renderable unit in the ordered conversation timeline.
// Variants are value types so a copied log shares nothing mutable with the
// original.
type Segment interface {
	isSegment()
}

// TextSegment accumulates consecutive streamed text deltas.
type TextSegment struct {
	Content string
}

// ToolSegment records a tool invocation and, once completed, its result.
// Its position in the log is fixed at invocation time.
type ToolSegment struct {
	ToolCallID string
	ToolName   string
	ToolInput  json.RawMessage
	Result     string
	Status     ToolStatus
	StartedAt  time.Time
}

// QuestionSegment records a server question awaiting a user answer.
// A zero AnsweredAt means unanswered.
type QuestionSegment struct {
	QuestionID string
	Question   string
	Options    []string
	Answer     string
	AnsweredAt time.Time
}

// Answered reports whether the question has been answered.
func (q QuestionSegment) Answered() bool { return !q.AnsweredAt.IsZero() }

// NoticeSegment is a system notice derived from an upstream repository event.
type NoticeSegment struct {
	Text   string
	Kind   string
	Action string
	Repo   string
}

func (TextSegment) isSegment()     {}
func (ToolSegment) isSegment()     {}
func (QuestionSegment) isSegment() {}
func (NoticeSegment) isSegment()   {}
