package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the HR intake service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	ReadTimeout              time.Duration
	SessionInactivityTimeout time.Duration
	SessionMaxTurns          int
	MetricsNamespace         string

	AllowedOrigins []string
	AllowAnyOrigin bool

	LogLevel  string
	LogFormat string

	AssistantMode       string
	AnthropicAPIKey     string
	AnthropicBaseURL    string
	AnthropicModel      string
	AssistantMaxTokens  int
	AssistantPromptFile string

	DatabaseURL string
	RedisURL    string
	StatsTTL    time.Duration

	// P95 latency budgets reported by /v1/perf/latency; zero hides a budget.
	AssistantP95Target time.Duration
	StoreP95Target     time.Duration
	TurnP95Target      time.Duration

	// SessionLabel is shown for sessions created without an explicit label.
	SessionLabel string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "hrdesk"),
		AllowedOrigins:   splitList(stringsTrimSpace("APP_ALLOWED_ORIGINS")),
		AllowAnyOrigin:   false,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "text"),
		AssistantMode:    envOrDefault("ASSISTANT_MODE", "auto"),
		AnthropicAPIKey:  stringsTrimSpace("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: stringsTrimSpace("ANTHROPIC_BASE_URL"),
		AnthropicModel:   envOrDefault("ANTHROPIC_MODEL", "claude-3-7-sonnet-20250219"),
		// Matches the token cap the original chat route used.
		AssistantMaxTokens:       1024,
		AssistantPromptFile:      stringsTrimSpace("ASSISTANT_PROMPT_FILE"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		RedisURL:                 stringsTrimSpace("REDIS_URL"),
		StatsTTL:                 5 * time.Minute,
		SessionLabel:             envOrDefault("APP_SESSION_LABEL", "andreszapataq"),
		SessionMaxTurns:          200,
		ShutdownTimeout:          15 * time.Second,
		ReadTimeout:              30 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		AssistantP95Target:       8 * time.Second,
		StoreP95Target:           100 * time.Millisecond,
		TurnP95Target:            9 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReadTimeout, err = durationFromEnv("APP_READ_TIMEOUT", cfg.ReadTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionMaxTurns, err = intFromEnv("APP_SESSION_MAX_TURNS", cfg.SessionMaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.AssistantMaxTokens, err = intFromEnv("ASSISTANT_MAX_TOKENS", cfg.AssistantMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.StatsTTL, err = durationFromEnv("STATS_CACHE_TTL", cfg.StatsTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.AssistantP95Target, err = durationFromEnv("PERF_ASSISTANT_P95_TARGET", cfg.AssistantP95Target)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreP95Target, err = durationFromEnv("PERF_STORE_P95_TARGET", cfg.StoreP95Target)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnP95Target, err = durationFromEnv("PERF_TURN_P95_TARGET", cfg.TurnP95Target)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.SessionMaxTurns <= 0 {
		return Config{}, fmt.Errorf("APP_SESSION_MAX_TURNS must be positive")
	}
	if cfg.AssistantMaxTokens <= 0 {
		return Config{}, fmt.Errorf("ASSISTANT_MAX_TOKENS must be positive")
	}
	if cfg.StatsTTL < 0 {
		return Config{}, fmt.Errorf("STATS_CACHE_TTL must be >= 0 (0 disables the cache)")
	}
	if cfg.AssistantP95Target < 0 || cfg.StoreP95Target < 0 || cfg.TurnP95Target < 0 {
		return Config{}, fmt.Errorf("PERF_*_P95_TARGET must be >= 0")
	}
	switch strings.ToLower(cfg.AssistantMode) {
	case "auto", "anthropic", "mock":
	default:
		return Config{}, fmt.Errorf("invalid ASSISTANT_MODE: %q (expected auto|anthropic|mock)", cfg.AssistantMode)
	}
	if strings.EqualFold(cfg.AssistantMode, "anthropic") && cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("ASSISTANT_MODE=anthropic but ANTHROPIC_API_KEY is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
