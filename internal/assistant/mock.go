package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/hrdesk/internal/protocol"
)

// MockAdapter provides deterministic local replies when no model is configured.
// It never appends a JSON payload, so nothing is persisted in mock mode.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Complete(ctx context.Context, turns []protocol.Turn) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return buildMockReply(turns), nil
}

func buildMockReply(turns []protocol.Turn) string {
	var last string
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == protocol.RoleUser {
			last = strings.TrimSpace(turns[i].Content)
			break
		}
	}
	if last == "" {
		return "Hola, soy tu asistente de RRHH. ¿En qué puedo ayudarte?"
	}
	return fmt.Sprintf("Recibí tu mensaje: %s", last)
}
