package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType is the discriminant carried in the "type" field of every frame.
type MessageType string

// Outbound (client → server) message types.
const (
	TypeChat               MessageType = "chat"
	TypeStop               MessageType = "stop"
	TypeNavigate           MessageType = "navigate"
	TypeSelectConversation MessageType = "select_conversation"
	TypeUpdateTitle        MessageType = "update_title"
	TypePing               MessageType = "ping"
	TypeAnswer             MessageType = "answer"
)

// Inbound (server → client) message types.
const (
	TypeGenerationStarted   MessageType = "generation_started"
	TypeDelta               MessageType = "delta"
	TypeToolUse             MessageType = "tool_use"
	TypeToolResult          MessageType = "tool_result"
	TypeGenerationFinished  MessageType = "generation_finished"
	TypeGenerationStopped   MessageType = "generation_stopped"
	TypeTitleChanged        MessageType = "title_changed"
	TypePong                MessageType = "pong"
	TypeRepoEvent           MessageType = "gitea_event"
	TypeQuestion            MessageType = "question"
	TypeThreadStatus        MessageType = "thread_status"
	TypeConversationTouched MessageType = "conversation_touched"
)

// ClientMessage is one member of the outbound message union.
type ClientMessage interface {
	clientType() MessageType
}

// SendChat submits a user message. ConversationID is empty when the server
// should open a fresh conversation. Context is an opaque payload (page
// metadata, selection) owned by the presentation layer.
type SendChat struct {
	Text           string          `json:"text"`
	ConversationID string          `json:"conversationId,omitempty"`
	Context        json.RawMessage `json:"context,omitempty"`
}

// StopGeneration aborts the in-flight generation of a conversation.
type StopGeneration struct {
	ConversationID string `json:"conversationId"`
}

// Navigate reports a client-side route change to the backend.
type Navigate struct {
	Path string `json:"path"`
}

// SelectConversation switches the active conversation on the backend.
type SelectConversation struct {
	ConversationID string `json:"conversationId"`
}

// UpdateTitle renames a conversation.
type UpdateTitle struct {
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
}

// HeartbeatPing is the periodic liveness probe.
type HeartbeatPing struct{}

// AnswerQuestion replies to a server-initiated question.
type AnswerQuestion struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

func (SendChat) clientType() MessageType           { return TypeChat }
func (StopGeneration) clientType() MessageType     { return TypeStop }
func (Navigate) clientType() MessageType           { return TypeNavigate }
func (SelectConversation) clientType() MessageType { return TypeSelectConversation }
func (UpdateTitle) clientType() MessageType        { return TypeUpdateTitle }
func (HeartbeatPing) clientType() MessageType      { return TypePing }
func (AnswerQuestion) clientType() MessageType     { return TypeAnswer }

// EncodeClientMessage serializes m into the wire envelope {"type": ..., fields}.
func EncodeClientMessage(m ClientMessage) ([]byte, error) {
	switch v := m.(type) {
	case SendChat:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			SendChat
		}{TypeChat, v})
	case StopGeneration:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			StopGeneration
		}{TypeStop, v})
	case Navigate:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			Navigate
		}{TypeNavigate, v})
	case SelectConversation:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			SelectConversation
		}{TypeSelectConversation, v})
	case UpdateTitle:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			UpdateTitle
		}{TypeUpdateTitle, v})
	case HeartbeatPing:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
		}{TypePing})
	case AnswerQuestion:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			AnswerQuestion
		}{TypeAnswer, v})
	default:
		return nil, fmt.Errorf("encode client message: %w: %T", ErrUnknownMessageType, m)
	}
}

// ServerMessage is one member of the inbound message union.
type ServerMessage interface {
	serverType() MessageType
}

// GenerationStarted marks the beginning of an agent turn.
type GenerationStarted struct {
	ConversationID string `json:"conversationId"`
	Channel        string `json:"channel,omitempty"`
}

// TextDelta carries one streamed chunk of assistant text.
type TextDelta struct {
	ConversationID string `json:"conversationId,omitempty"`
	Channel        string `json:"channel,omitempty"`
	Text           string `json:"text"`
}

// ToolInvoked announces that the agent started a tool call. ToolInput is
// opaque: the tool vocabulary is owned by the backend.
type ToolInvoked struct {
	ConversationID string          `json:"conversationId,omitempty"`
	Channel        string          `json:"channel,omitempty"`
	ToolCallID     string          `json:"toolCallId"`
	ToolName       string          `json:"toolName"`
	ToolInput      json.RawMessage `json:"toolInput,omitempty"`
}

// ToolCompleted carries the result of an earlier ToolInvoked, correlated by
// ToolCallID.
type ToolCompleted struct {
	ConversationID string `json:"conversationId,omitempty"`
	Channel        string `json:"channel,omitempty"`
	ToolCallID     string `json:"toolCallId"`
	Result         string `json:"result"`
}

// GenerationFinished closes an agent turn with its accounting. Usage is an
// opaque provider-specific object.
type GenerationFinished struct {
	ConversationID string          `json:"conversationId,omitempty"`
	Channel        string          `json:"channel,omitempty"`
	Cost           float64         `json:"cost"`
	DurationMS     int64           `json:"durationMs"`
	Turns          int             `json:"turns"`
	IsError        bool            `json:"isError"`
	Usage          json.RawMessage `json:"usage,omitempty"`
}

// GenerationStopped acknowledges a StopGeneration request.
type GenerationStopped struct {
	ConversationID string `json:"conversationId"`
	Channel        string `json:"channel,omitempty"`
}

// TitleChanged reports a server-side conversation rename.
type TitleChanged struct {
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
}

// HeartbeatPong answers a HeartbeatPing.
type HeartbeatPong struct{}

// RepoEvent relays an upstream Gitea webhook notification. Kind and Action
// use the upstream vocabulary and are deliberately plain strings: that
// vocabulary is not closed.
type RepoEvent struct {
	Kind   string `json:"eventKind"`
	Action string `json:"action,omitempty"`
	Repo   string `json:"repo,omitempty"`
}

// QuestionAsked requests a user decision mid-generation.
type QuestionAsked struct {
	ConversationID string   `json:"conversationId,omitempty"`
	QuestionID     string   `json:"questionId"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
}

// ThreadStatusChanged reports a conversation lifecycle status.
type ThreadStatusChanged struct {
	ConversationID string `json:"conversationId"`
	Status         string `json:"status"`
}

// ConversationTouched signals that a conversation's metadata changed and
// listings should refresh.
type ConversationTouched struct {
	ConversationID string `json:"conversationId"`
	Reason         string `json:"reason,omitempty"`
}

func (GenerationStarted) serverType() MessageType   { return TypeGenerationStarted }
func (TextDelta) serverType() MessageType           { return TypeDelta }
func (ToolInvoked) serverType() MessageType         { return TypeToolUse }
func (ToolCompleted) serverType() MessageType       { return TypeToolResult }
func (GenerationFinished) serverType() MessageType  { return TypeGenerationFinished }
func (GenerationStopped) serverType() MessageType   { return TypeGenerationStopped }
func (TitleChanged) serverType() MessageType        { return TypeTitleChanged }
func (HeartbeatPong) serverType() MessageType       { return TypePong }
func (RepoEvent) serverType() MessageType           { return TypeRepoEvent }
func (QuestionAsked) serverType() MessageType       { return TypeQuestion }
func (ThreadStatusChanged) serverType() MessageType { return TypeThreadStatus }
func (ConversationTouched) serverType() MessageType { return TypeConversationTouched }

// DecodeServerMessage parses one inbound frame. Unknown "type" values yield
// ErrUnknownMessageType; known types with missing required fields yield an
// error wrapping ErrMalformedMessage. The function is total: it never panics
// on arbitrary input.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch envelope.Type {
	case TypeGenerationStarted:
		var m GenerationStarted
		return decodeInto(data, &m, func() error { return requireField("conversationId", m.ConversationID) })
	case TypeDelta:
		var m TextDelta
		return decodeInto(data, &m, func() error { return requirePresent(data, "text") })
	case TypeToolUse:
		var m ToolInvoked
		return decodeInto(data, &m, func() error {
			if err := requireField("toolCallId", m.ToolCallID); err != nil {
				return err
			}
			return requireField("toolName", m.ToolName)
		})
	case TypeToolResult:
		var m ToolCompleted
		return decodeInto(data, &m, func() error {
			if err := requireField("toolCallId", m.ToolCallID); err != nil {
				return err
			}
			return requirePresent(data, "result")
		})
	case TypeGenerationFinished:
		var m GenerationFinished
		return decodeInto(data, &m, nil)
	case TypeGenerationStopped:
		var m GenerationStopped
		return decodeInto(data, &m, func() error { return requireField("conversationId", m.ConversationID) })
	case TypeTitleChanged:
		var m TitleChanged
		return decodeInto(data, &m, func() error { return requireField("conversationId", m.ConversationID) })
	case TypePong:
		return HeartbeatPong{}, nil
	case TypeRepoEvent:
		var m RepoEvent
		return decodeInto(data, &m, func() error { return requireField("eventKind", m.Kind) })
	case TypeQuestion:
		var m QuestionAsked
		return decodeInto(data, &m, func() error {
			if err := requireField("questionId", m.QuestionID); err != nil {
				return err
			}
			if err := requireField("question", m.Question); err != nil {
				return err
			}
			return requirePresent(data, "options")
		})
	case TypeThreadStatus:
		var m ThreadStatusChanged
		return decodeInto(data, &m, func() error { return requireField("conversationId", m.ConversationID) })
	case TypeConversationTouched:
		var m ConversationTouched
		return decodeInto(data, &m, func() error { return requireField("conversationId", m.ConversationID) })
	case "":
		return nil, fmt.Errorf("%w: missing type discriminant", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, envelope.Type)
	}
}

// decodeInto unmarshals data into m, then runs the optional field check.
// m must be a pointer whose element implements ServerMessage.
func decodeInto[T ServerMessage](data []byte, m *T, check func() error) (ServerMessage, error) {
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if check != nil {
		if err := check(); err != nil {
			return nil, err
		}
	}
	return *m, nil
}

func requireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: missing %s", ErrMalformedMessage, name)
	}
	return nil
}

// requirePresent rejects a frame whose named field is absent entirely, while
// still accepting an explicit empty value ("" or []). Used for fields whose
// zero value is legitimate on the wire.
func requirePresent(data []byte, name string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if _, ok := fields[name]; !ok {
		return fmt.Errorf("%w: missing %s", ErrMalformedMessage, name)
	}
	return nil
}
