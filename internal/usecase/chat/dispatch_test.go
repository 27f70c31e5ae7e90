package chat

import (
	"log/slog"
	"testing"

	"github.com/M3kH/gigi-sub006/internal/domain"
)

type captureSender struct {
	sent []domain.ClientMessage
}

func (s *captureSender) Send(msg domain.ClientMessage) {
	s.sent = append(s.sent, msg)
}

func newTestDispatcher() (*Dispatcher, *captureSender) {
	sender := &captureSender{}
	return NewDispatcher(sender, slog.Default()), sender
}

func TestSendMessageRejectsBlankInput(t *testing.T) {
	d, sender := newTestDispatcher()

	for _, text := range []string{"", "   ", "\n\t "} {
		if d.SendMessage(text, "c1", nil) {
			t.Fatalf("SendMessage(%q) = true, want false", text)
		}
	}
	if len(sender.sent) != 0 {
		t.Fatalf("transmitted %d messages, want 0", len(sender.sent))
	}
}

func TestSendMessageTrimsAndForwards(t *testing.T) {
	d, sender := newTestDispatcher()

	if !d.SendMessage("  hi  ", "c1", nil) {
		t.Fatal("SendMessage = false, want true")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("transmitted %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0].(domain.SendChat)
	if msg.Text != "hi" || msg.ConversationID != "c1" {
		t.Fatalf("msg = %#v", msg)
	}
}

func TestSendMessageWithoutConversation(t *testing.T) {
	d, sender := newTestDispatcher()

	if !d.SendMessage("hi", "", nil) {
		t.Fatal("SendMessage = false, want true")
	}
	if msg := sender.sent[0].(domain.SendChat); msg.ConversationID != "" {
		t.Fatalf("conversationId = %q, want empty", msg.ConversationID)
	}
}

func TestValidatedBuilders(t *testing.T) {
	d, sender := newTestDispatcher()

	tests := []struct {
		name string
		call func() bool
		want domain.ClientMessage
	}{
		{"stop", func() bool { return d.StopGeneration("c1") }, domain.StopGeneration{ConversationID: "c1"}},
		{"answer", func() bool { return d.AnswerQuestion("q1", "yes") }, domain.AnswerQuestion{QuestionID: "q1", Answer: "yes"}},
		{"select", func() bool { return d.SelectConversation("c2") }, domain.SelectConversation{ConversationID: "c2"}},
		{"title", func() bool { return d.UpdateTitle("c1", " Plan ") }, domain.UpdateTitle{ConversationID: "c1", Title: "Plan"}},
		{"navigate", func() bool { return d.Navigate("/issues") }, domain.Navigate{Path: "/issues"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(sender.sent)
			if !tt.call() {
				t.Fatal("call returned false")
			}
			if got := sender.sent[before]; got != tt.want {
				t.Fatalf("sent %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBuildersRejectMissingIdentifiers(t *testing.T) {
	d, sender := newTestDispatcher()

	calls := []func() bool{
		func() bool { return d.StopGeneration("") },
		func() bool { return d.AnswerQuestion("", "yes") },
		func() bool { return d.AnswerQuestion("q1", "") },
		func() bool { return d.SelectConversation("") },
		func() bool { return d.UpdateTitle("", "t") },
		func() bool { return d.UpdateTitle("c1", "  ") },
		func() bool { return d.Navigate("") },
	}
	for i, call := range calls {
		if call() {
			t.Fatalf("call %d returned true, want false", i)
		}
	}
	if len(sender.sent) != 0 {
		t.Fatalf("transmitted %d messages, want 0", len(sender.sent))
	}
}
