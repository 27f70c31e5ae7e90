package timeline

import (
	"testing"
	"time"

	"github.com/M3kH/gigi-sub006/internal/domain"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fold(t *testing.T, msgs ...domain.ServerMessage) []domain.Segment {
	t.Helper()
	var log []domain.Segment
	for _, m := range msgs {
		log = Apply(log, m, now)
	}
	return log
}

func TestDeltasCoalesceIntoOneSegment(t *testing.T) {
	log := fold(t,
		domain.TextDelta{Text: "Hel"},
		domain.TextDelta{Text: "lo "},
		domain.TextDelta{Text: "world"},
	)
	if len(log) != 1 {
		t.Fatalf("len = %d, want 1", len(log))
	}
	text, ok := log[0].(domain.TextSegment)
	if !ok {
		t.Fatalf("segment type = %T, want TextSegment", log[0])
	}
	if text.Content != "Hello world" {
		t.Fatalf("content = %q", text.Content)
	}
}

func TestToolSegmentKeepsItsPosition(t *testing.T) {
	log := fold(t,
		domain.TextDelta{Text: "Hello "},
		domain.ToolInvoked{ToolCallID: "1", ToolName: "Bash", ToolInput: []byte(`"ls"`)},
		domain.TextDelta{Text: "done"},
		domain.ToolCompleted{ToolCallID: "1", Result: "file.txt\n"},
	)

	if len(log) != 3 {
		t.Fatalf("len = %d, want 3", len(log))
	}
	if text, ok := log[0].(domain.TextSegment); !ok || text.Content != "Hello " {
		t.Fatalf("log[0] = %#v", log[0])
	}
	tool, ok := log[1].(domain.ToolSegment)
	if !ok {
		t.Fatalf("log[1] type = %T, want ToolSegment", log[1])
	}
	if tool.Status != domain.ToolDone || tool.Result != "file.txt\n" {
		t.Fatalf("tool = %#v", tool)
	}
	if tool.StartedAt != now {
		t.Fatalf("startedAt = %v", tool.StartedAt)
	}
	// The delta after the tool call started a fresh text segment.
	if text, ok := log[2].(domain.TextSegment); !ok || text.Content != "done" {
		t.Fatalf("log[2] = %#v", log[2])
	}
}

func TestToolCompletedForUnknownIDIsNoOp(t *testing.T) {
	log := fold(t, domain.ToolInvoked{ToolCallID: "1", ToolName: "Bash"})
	next := Apply(log, domain.ToolCompleted{ToolCallID: "nope", Result: "x"}, now)
	if len(next) != len(log) {
		t.Fatalf("length changed: %d -> %d", len(log), len(next))
	}
	if tool := next[0].(domain.ToolSegment); tool.Status != domain.ToolRunning {
		t.Fatalf("tool was mutated: %#v", tool)
	}
}

func TestToolCompletedUpdatesFirstMatch(t *testing.T) {
	log := fold(t,
		domain.ToolInvoked{ToolCallID: "1", ToolName: "Bash"},
		domain.ToolInvoked{ToolCallID: "1", ToolName: "Bash"},
		domain.ToolCompleted{ToolCallID: "1", Result: "out"},
	)
	first := log[0].(domain.ToolSegment)
	second := log[1].(domain.ToolSegment)
	if first.Status != domain.ToolDone || first.Result != "out" {
		t.Fatalf("first = %#v", first)
	}
	if second.Status != domain.ToolRunning {
		t.Fatalf("second = %#v", second)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	log := fold(t, domain.TextDelta{Text: "a"}, domain.ToolInvoked{ToolCallID: "1", ToolName: "Bash"})

	_ = Apply(log, domain.TextDelta{Text: "b"}, now)
	_ = Apply(log, domain.ToolCompleted{ToolCallID: "1", Result: "r"}, now)

	if text := log[0].(domain.TextSegment); text.Content != "a" {
		t.Fatalf("input text mutated: %q", text.Content)
	}
	if tool := log[1].(domain.ToolSegment); tool.Status != domain.ToolRunning {
		t.Fatalf("input tool mutated: %#v", tool)
	}
}

func TestQuestionLifecycle(t *testing.T) {
	log := fold(t, domain.QuestionAsked{
		QuestionID: "q1",
		Question:   "Delete branch?",
		Options:    []string{"yes", "no"},
	})

	answered := ApplyAnswer(log, "q1", "yes", now)
	if len(answered) != 1 {
		t.Fatalf("len = %d, want 1", len(answered))
	}
	q := answered[0].(domain.QuestionSegment)
	if q.Answer != "yes" || q.AnsweredAt != now || !q.Answered() {
		t.Fatalf("question = %#v", q)
	}

	// Input untouched.
	if orig := log[0].(domain.QuestionSegment); orig.Answered() {
		t.Fatalf("input question mutated: %#v", orig)
	}
}

func TestApplyAnswerUnknownIDIsNoOp(t *testing.T) {
	log := fold(t, domain.QuestionAsked{QuestionID: "q1", Question: "x"})
	next := ApplyAnswer(log, "q2", "yes", now)
	if len(next) != 1 {
		t.Fatalf("len = %d", len(next))
	}
	if next[0].(domain.QuestionSegment).Answered() {
		t.Fatalf("wrong question answered")
	}
}

func TestNoticeFormatting(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.RepoEvent
		want string
	}{
		{"kind action repo", domain.RepoEvent{Kind: "issues", Action: "opened", Repo: "org/app"}, "Issues: opened — org/app"},
		{"kind only", domain.RepoEvent{Kind: "push"}, "Push"},
		{"kind and repo", domain.RepoEvent{Kind: "repository", Repo: "org/app"}, "Repository — org/app"},
		{"kind and action", domain.RepoEvent{Kind: "pull_request", Action: "closed"}, "Pull_request: closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := Apply(nil, tt.ev, now)
			notice := log[0].(domain.NoticeSegment)
			if notice.Text != tt.want {
				t.Fatalf("text = %q, want %q", notice.Text, tt.want)
			}
		})
	}
}

func TestLifecycleMessagesLeaveLogUnchanged(t *testing.T) {
	log := fold(t, domain.TextDelta{Text: "hi"})
	for _, msg := range []domain.ServerMessage{
		domain.GenerationStarted{ConversationID: "c1"},
		domain.GenerationFinished{Turns: 2},
		domain.GenerationStopped{ConversationID: "c1"},
		domain.TitleChanged{ConversationID: "c1", Title: "t"},
		domain.HeartbeatPong{},
		domain.ThreadStatusChanged{ConversationID: "c1", Status: "open"},
		domain.ConversationTouched{ConversationID: "c1"},
	} {
		next := Apply(log, msg, now)
		if len(next) != len(log) {
			t.Fatalf("%T changed log length", msg)
		}
	}
}

func TestEndToEndSequence(t *testing.T) {
	log := fold(t,
		domain.TextDelta{Text: "Hello "},
		domain.ToolInvoked{ToolCallID: "1", ToolName: "Bash", ToolInput: []byte(`"ls"`)},
		domain.TextDelta{Text: "done"},
		domain.ToolCompleted{ToolCallID: "1", Result: "file.txt\n"},
	)
	want := []domain.Segment{
		domain.TextSegment{Content: "Hello "},
		domain.ToolSegment{ToolCallID: "1", ToolName: "Bash", ToolInput: []byte(`"ls"`), Result: "file.txt\n", Status: domain.ToolDone, StartedAt: now},
		domain.TextSegment{Content: "done"},
	}
	if len(log) != len(want) {
		t.Fatalf("len = %d, want %d", len(log), len(want))
	}
	for i := range want {
		gotText, okG := log[i].(domain.TextSegment)
		wantText, okW := want[i].(domain.TextSegment)
		if okG && okW {
			if gotText != wantText {
				t.Fatalf("log[%d] = %#v, want %#v", i, gotText, wantText)
			}
			continue
		}
		gotTool := log[i].(domain.ToolSegment)
		wantTool := want[i].(domain.ToolSegment)
		if gotTool.ToolCallID != wantTool.ToolCallID ||
			gotTool.Status != wantTool.Status ||
			gotTool.Result != wantTool.Result ||
			string(gotTool.ToolInput) != string(wantTool.ToolInput) {
			t.Fatalf("log[%d] = %#v, want %#v", i, gotTool, wantTool)
		}
	}
}
