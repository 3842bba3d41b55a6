package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientMessage MessageType = "client_message"
	TypeClientControl MessageType = "client_control"
	TypeBotReply      MessageType = "bot_reply"
	TypeSessionEvent  MessageType = "session_event"
	TypeErrorEvent    MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	UserID    string      `json:"user_id"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

type BotReply struct {
	Type            MessageType `json:"type"`
	SessionID       string      `json:"session_id"`
	Text            string      `json:"text"`
	Intent          string      `json:"intent"`
	Confidence      float64     `json:"confidence"`
	NeedsEscalation bool        `json:"needs_escalation"`
	Suggestions     []string    `json:"suggestions,omitempty"`
}

type SessionEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound websocket frame.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientMessage:
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UserID == "" || msg.Text == "" {
			return nil, errors.New("invalid client_message")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}

func NewBotReply(sessionID, text, intent string, confidence float64, needsEscalation bool, suggestions []string) BotReply {
	return BotReply{
		Type:            TypeBotReply,
		SessionID:       sessionID,
		Text:            text,
		Intent:          intent,
		Confidence:      confidence,
		NeedsEscalation: needsEscalation,
		Suggestions:     suggestions,
	}
}

func NewSessionEvent(sessionID, code, detail string) SessionEvent {
	return SessionEvent{Type: TypeSessionEvent, SessionID: sessionID, Code: code, Detail: detail}
}

func NewErrorEvent(sessionID, code, detail string, retryable bool) ErrorEvent {
	return ErrorEvent{Type: TypeErrorEvent, SessionID: sessionID, Code: code, Detail: detail, Retryable: retryable}
}
