// Package assistant forwards conversations to the hosted language model
// together with the HR system instruction.
package assistant

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ent0n29/hrdesk/internal/protocol"
)

// Adapter sends a conversation to the model and returns its raw text reply.
// Failures are returned as *reliability.Error.
type Adapter interface {
	Complete(ctx context.Context, turns []protocol.Turn) (string, error)
}

// Config controls adapter construction.
type Config struct {
	Mode       string
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	PromptFile string
}

// NewAdapter builds the adapter for cfg.Mode. In auto mode the Anthropic
// adapter is used when an API key is configured, otherwise the mock.
func NewAdapter(cfg Config) (Adapter, error) {
	prompt, err := loadPrompt(cfg.PromptFile)
	if err != nil {
		return nil, err
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return NewMockAdapter(), nil
		}
		return NewAnthropicAdapter(cfg, prompt)
	case "anthropic":
		return NewAnthropicAdapter(cfg, prompt)
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported assistant mode %q", cfg.Mode)
	}
}

// ModeOf reports which backend an adapter talks to.
func ModeOf(a Adapter) string {
	switch a.(type) {
	case *AnthropicAdapter:
		return "anthropic"
	case *MockAdapter:
		return "mock"
	default:
		return "custom"
	}
}

func loadPrompt(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return SystemPrompt, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(b))
	if prompt == "" {
		return "", fmt.Errorf("system prompt file %q is empty", path)
	}
	return prompt, nil
}
