// Package chat validates user actions and turns them into outbound protocol
// messages. It owns no connection state: delivery semantics are whatever the
// underlying Sender provides (fire-and-forget, no retries).
package chat

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/M3kH/gigi-sub006/internal/domain"
)

// Sender is the transmit surface the dispatcher needs. *realtime.Conn
// satisfies it.
type Sender interface {
	Send(msg domain.ClientMessage)
}

// Dispatcher builds and forwards outbound messages.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given sender.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// SendMessage trims and submits a chat message. It reports whether anything
// was forwarded: empty-after-trim input is rejected without transmission.
// ConversationID is included only when non-empty; context rides along as an
// opaque payload.
func (d *Dispatcher) SendMessage(text, conversationID string, context json.RawMessage) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		d.logger.Debug("dropped empty chat message")
		return false
	}
	d.sender.Send(domain.SendChat{
		Text:           text,
		ConversationID: conversationID,
		Context:        context,
	})
	return true
}

// StopGeneration requests the backend abort the conversation's in-flight turn.
func (d *Dispatcher) StopGeneration(conversationID string) bool {
	if conversationID == "" {
		return false
	}
	d.sender.Send(domain.StopGeneration{ConversationID: conversationID})
	return true
}

// AnswerQuestion replies to a pending server question.
func (d *Dispatcher) AnswerQuestion(questionID, answer string) bool {
	if questionID == "" || answer == "" {
		return false
	}
	d.sender.Send(domain.AnswerQuestion{QuestionID: questionID, Answer: answer})
	return true
}

// SelectConversation switches the backend's active conversation.
func (d *Dispatcher) SelectConversation(conversationID string) bool {
	if conversationID == "" {
		return false
	}
	d.sender.Send(domain.SelectConversation{ConversationID: conversationID})
	return true
}

// UpdateTitle renames a conversation. The title is trimmed; an empty result
// is rejected.
func (d *Dispatcher) UpdateTitle(conversationID, title string) bool {
	title = strings.TrimSpace(title)
	if conversationID == "" || title == "" {
		return false
	}
	d.sender.Send(domain.UpdateTitle{ConversationID: conversationID, Title: title})
	return true
}

// Navigate reports a client route change.
func (d *Dispatcher) Navigate(path string) bool {
	if path == "" {
		return false
	}
	d.sender.Send(domain.Navigate{Path: path})
	return true
}
