package session

import "time"

// CreateRequest defines payload for creating a new session.
type CreateRequest struct {
	Label string `json:"label"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string    `json:"session_id"`
	Label           string    `json:"label"`
	Status          Status    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
	MaxTurns        int       `json:"max_turns"`
}

// TurnRequest is one user utterance posted to a session.
type TurnRequest struct {
	Content string `json:"content"`
}
