// Package session keeps per-conversation turn history in memory. Sessions
// are never persisted.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/hrdesk/internal/protocol"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrEnded          = errors.New("session ended")
	ErrTurnInProgress = errors.New("a turn is already in progress")
	ErrTurnMismatch   = errors.New("turn is not the active turn")
)

type Session struct {
	ID             string          `json:"session_id"`
	Label          string          `json:"label"`
	Status         Status          `json:"status"`
	ActiveTurnID   string          `json:"active_turn_id,omitempty"`
	TurnCount      int             `json:"turn_count"`
	Turns          []protocol.Turn `json:"turns"`
	StartedAt      time.Time       `json:"started_at"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	maxTurns          int
	defaultLabel      string
	onExpire          func(*Session)
}

// NewManager creates a manager. maxTurns <= 0 keeps the full history.
func NewManager(inactivityTimeout time.Duration, maxTurns int, defaultLabel string) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
		maxTurns:          maxTurns,
		defaultLabel:      strings.TrimSpace(defaultLabel),
	}
}

func (m *Manager) InactivityTimeout() time.Duration { return m.inactivityTimeout }

func (m *Manager) MaxTurns() int { return m.maxTurns }

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(label string) *Session {
	label = strings.TrimSpace(label)
	if label == "" {
		label = m.defaultLabel
	}
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		Label:          label,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// History returns a copy of the retained turns.
func (m *Manager) History(sessionID string) ([]protocol.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTurns(s.Turns), nil
}

// Append adds turns to an active session, dropping the oldest beyond the
// configured bound.
func (m *Manager) Append(sessionID string, turns ...protocol.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.Status != StatusActive {
		return ErrEnded
	}
	m.appendLocked(s, turns)
	return nil
}

// StartTurn records the user turn and marks a turn in progress. It returns
// the turn id and the history to send to the model, user turn included.
// Only one turn per session runs at a time.
func (m *Manager) StartTurn(sessionID string, user protocol.Turn) (string, []protocol.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return "", nil, ErrNotFound
	}
	if s.Status != StatusActive {
		return "", nil, ErrEnded
	}
	if s.ActiveTurnID != "" {
		return "", nil, ErrTurnInProgress
	}
	s.ActiveTurnID = uuid.NewString()
	m.appendLocked(s, []protocol.Turn{user})
	return s.ActiveTurnID, copyTurns(s.Turns), nil
}

// FinishTurn appends the assistant turns of turnID and clears it.
func (m *Manager) FinishTurn(sessionID, turnID string, replies ...protocol.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.ActiveTurnID == "" || s.ActiveTurnID != turnID {
		return ErrTurnMismatch
	}
	s.ActiveTurnID = ""
	if s.Status == StatusActive {
		m.appendLocked(s, replies)
	}
	return nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.ActiveTurnID = ""
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) appendLocked(s *Session, turns []protocol.Turn) {
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		s.Turns = append(s.Turns, t)
		s.TurnCount++
	}
	s.LastActivityAt = time.Now().UTC()
	if m.maxTurns <= 0 || len(s.Turns) <= m.maxTurns {
		return
	}
	drop := len(s.Turns) - m.maxTurns
	// The model expects the conversation to open with a user turn.
	for drop < len(s.Turns) && s.Turns[drop].Role != protocol.RoleUser {
		drop++
	}
	s.Turns = append([]protocol.Turn(nil), s.Turns[drop:]...)
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Status != StatusActive {
			// Ended sessions stay readable for one more timeout window.
			if now.Sub(s.LastActivityAt) >= m.inactivityTimeout {
				delete(m.sessions, id)
			}
			continue
		}
		if s.ActiveTurnID != "" {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	c.Turns = copyTurns(s.Turns)
	return &c
}

func copyTurns(turns []protocol.Turn) []protocol.Turn {
	if turns == nil {
		return []protocol.Turn{}
	}
	out := make([]protocol.Turn, len(turns))
	copy(out, turns)
	return out
}
