package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message exchanged between user and assistant.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var (
	ErrNoTurns     = errors.New("messages must not be empty")
	ErrInvalidRole = errors.New("invalid message role")
	ErrEmptyTurn   = errors.New("message content must not be empty")
)

// ValidateTurns checks an inbound conversation before it is forwarded.
func ValidateTurns(turns []Turn) error {
	if len(turns) == 0 {
		return ErrNoTurns
	}
	for i, t := range turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			return fmt.Errorf("messages[%d]: %w %q", i, ErrInvalidRole, t.Role)
		}
		if strings.TrimSpace(t.Content) == "" {
			return fmt.Errorf("messages[%d]: %w", i, ErrEmptyTurn)
		}
	}
	return nil
}

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage      MessageType = "user_message"
	TypeAssistantMessage MessageType = "assistant_message"
	TypeStatistics       MessageType = "statistics"
	TypeErrorEvent       MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage is sent by the chat client over the session websocket.
type UserMessage struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// AssistantMessage carries one assistant turn. FollowUp marks messages
// appended after a store side effect (e.g. query results).
type AssistantMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Content   string      `json:"content"`
	FollowUp  bool        `json:"follow_up,omitempty"`
}

// StatisticsEvent is pushed after a request is saved.
type StatisticsEvent struct {
	Type          MessageType `json:"type"`
	SessionID     string      `json:"session_id"`
	TotalRequests int         `json:"totalRequests"`
	LeaveRequests int         `json:"leaveRequests"`
	SickLeave     int         `json:"sickLeave"`
	LateArrivals  int         `json:"lateArrivals"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Content) == "" {
			return nil, errors.New("invalid user_message")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
