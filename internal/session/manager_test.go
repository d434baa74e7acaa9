package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ent0n29/hrdesk/internal/protocol"
)

func user(text string) protocol.Turn {
	return protocol.Turn{Role: protocol.RoleUser, Content: text}
}

func assistantTurn(text string) protocol.Turn {
	return protocol.Turn{Role: protocol.RoleAssistant, Content: text}
}

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute, 0, "andreszapataq")
	s := m.Create("")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Label != "andreszapataq" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if err := m.Append(s.ID, user("hola")); !errors.Is(err, ErrEnded) {
		t.Fatalf("Append() after End error = %v, want ErrEnded", err)
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestManagerTurnLifecycle(t *testing.T) {
	m := NewManager(time.Minute, 0, "")
	s := m.Create("ana")

	turnID, history, err := m.StartTurn(s.ID, user("necesito un permiso"))
	if err != nil {
		t.Fatalf("StartTurn() error = %v", err)
	}
	if len(history) != 1 || history[0].Content != "necesito un permiso" {
		t.Fatalf("history = %+v", history)
	}
	if _, _, err := m.StartTurn(s.ID, user("otra")); !errors.Is(err, ErrTurnInProgress) {
		t.Fatalf("second StartTurn() error = %v, want ErrTurnInProgress", err)
	}
	if err := m.FinishTurn(s.ID, "other", assistantTurn("x")); !errors.Is(err, ErrTurnMismatch) {
		t.Fatalf("FinishTurn(other) error = %v, want ErrTurnMismatch", err)
	}
	if err := m.FinishTurn(s.ID, turnID, assistantTurn("¿Para qué fecha?")); err != nil {
		t.Fatalf("FinishTurn() error = %v", err)
	}

	got, _ := m.History(s.ID)
	if len(got) != 2 || got[1].Role != protocol.RoleAssistant {
		t.Fatalf("History() = %+v", got)
	}
	history[0].Content = "mutated"
	if again, _ := m.History(s.ID); again[0].Content != "necesito un permiso" {
		t.Fatalf("history copy aliased session state")
	}
}

func TestManagerBoundsHistory(t *testing.T) {
	m := NewManager(time.Minute, 3, "")
	s := m.Create("")
	for i := 0; i < 3; i++ {
		if err := m.Append(s.ID, user(fmt.Sprintf("u%d", i)), assistantTurn(fmt.Sprintf("a%d", i))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, _ := m.History(s.ID)
	if len(got) > 3 {
		t.Fatalf("len(History) = %d, want <= 3", len(got))
	}
	if got[0].Role != protocol.RoleUser || got[0].Content != "u2" {
		t.Fatalf("History()[0] = %+v, want oldest retained user turn u2", got[0])
	}
	sess, _ := m.Get(s.ID)
	if sess.TurnCount != 6 {
		t.Fatalf("TurnCount = %d, want 6", sess.TurnCount)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30*time.Millisecond, 0, "")
	s := m.Create("")
	expired := make(chan string, 1)
	m.SetExpireHook(func(s *Session) { expired <- s.ID })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired %q, want %q", id, s.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("session was not expired")
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
}
