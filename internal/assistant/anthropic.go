package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/ent0n29/hrdesk/internal/protocol"
	"github.com/ent0n29/hrdesk/internal/reliability"
)

const (
	defaultModel     = "claude-3-7-sonnet-20250219"
	defaultMaxTokens = 1024
)

// AnthropicAdapter calls the Anthropic Messages API.
type AnthropicAdapter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	system    string
	log       logrus.FieldLogger
}

func NewAnthropicAdapter(cfg Config, systemPrompt string) (*AnthropicAdapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic API key is required")
	}

	// Retries are the caller's decision; overloads are classified and returned.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if systemPrompt == "" {
		systemPrompt = SystemPrompt
	}

	return &AnthropicAdapter{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		system:    systemPrompt,
		log:       logrus.WithField("component", "assistant.anthropic"),
	}, nil
}

// WithLogger replaces the adapter logger.
func (a *AnthropicAdapter) WithLogger(log logrus.FieldLogger) *AnthropicAdapter {
	if log != nil {
		a.log = log.WithField("component", "assistant.anthropic")
	}
	return a
}

func (a *AnthropicAdapter) Complete(ctx context.Context, turns []protocol.Turn) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  convertTurns(turns),
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: a.system},
		},
	}

	start := time.Now()
	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyProviderError(err)
	}

	a.log.WithFields(logrus.Fields{
		"model":         a.model,
		"duration_ms":   time.Since(start).Milliseconds(),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"stop_reason":   resp.StopReason,
	}).Debug("assistant reply received")

	if len(resp.Content) == 0 {
		return "", reliability.New(reliability.KindProcessing, "empty response from model")
	}
	first := resp.Content[0]
	if first.Type != "text" {
		return "", reliability.New(reliability.KindProcessing, fmt.Sprintf("unexpected content block %q", first.Type))
	}
	return first.Text, nil
}

func convertTurns(turns []protocol.Turn) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		switch t.Role {
		case protocol.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

type providerErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// classifyProviderError maps an SDK failure onto the caller-visible taxonomy.
func classifyProviderError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return reliability.Wrap(reliability.KindUpstream, "model request interrupted", err)
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return reliability.Wrap(reliability.KindUpstream, "model request failed", err)
	}

	var body providerErrorBody
	_ = json.Unmarshal([]byte(apiErr.RawJSON()), &body)
	message := strings.TrimSpace(body.Error.Message)
	if message == "" {
		message = fmt.Sprintf("model provider returned status %d", apiErr.StatusCode)
	}

	out := &reliability.Error{
		Kind:    reliability.KindUpstream,
		Message: message,
		Status:  apiErr.StatusCode,
		Err:     err,
	}
	if reliability.IsOverloadStatus(apiErr.StatusCode) || reliability.IsOverloadErrorType(body.Error.Type) {
		out.Kind = reliability.KindOverloaded
		out.Retryable = true
		if apiErr.Response != nil {
			out.RetryAfter = apiErr.Response.Header.Get("Retry-After")
		}
	}
	return out
}
