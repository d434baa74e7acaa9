package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ent0n29/hrdesk/internal/assistant"
	"github.com/ent0n29/hrdesk/internal/bridge"
	"github.com/ent0n29/hrdesk/internal/config"
	"github.com/ent0n29/hrdesk/internal/httpapi"
	"github.com/ent0n29/hrdesk/internal/intake"
	"github.com/ent0n29/hrdesk/internal/observability"
	"github.com/ent0n29/hrdesk/internal/session"
	"github.com/ent0n29/hrdesk/internal/store"
)

type BuildResult struct {
	Config        config.Config
	API           *httpapi.Server
	Sessions      *session.Manager
	Store         store.Store
	Bridge        *bridge.Service
	Intake        *intake.Service
	Metrics       *observability.Metrics
	AssistantMode string
	CacheMode     string

	// Cleanup should be called on shutdown to release external resources (DB, Redis).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*BuildResult, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace, nil)

	st, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}

	adapter, err := assistant.NewAdapter(assistant.Config{
		Mode:       cfg.AssistantMode,
		APIKey:     cfg.AnthropicAPIKey,
		BaseURL:    cfg.AnthropicBaseURL,
		Model:      cfg.AnthropicModel,
		MaxTokens:  cfg.AssistantMaxTokens,
		PromptFile: cfg.AssistantPromptFile,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("assistant adapter init failed: %w", err)
	}
	if a, ok := adapter.(*assistant.AnthropicAdapter); ok {
		a.WithLogger(log)
	}

	var (
		cache       bridge.StatsCache
		cacheMode   = "memory"
		redisCache  *bridge.RedisStatsCache
		readyChecks = map[string]func(context.Context) error{}
	)
	switch {
	case cfg.StatsTTL <= 0:
		// STATS_CACHE_TTL=0 disables caching; every read hits the store.
		cacheMode = "off"
	case strings.TrimSpace(cfg.RedisURL) != "":
		redisCache, err = bridge.NewRedisStatsCache(ctx, cfg.RedisURL, cfg.StatsTTL, log)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("statistics cache init failed: %w", err)
		}
		cache = redisCache
		cacheMode = "redis"
		readyChecks["cache"] = redisCache.Ping
	default:
		cache = bridge.NewMemoryStatsCache(cfg.StatsTTL)
	}

	metrics.SetLatencyTargets(observability.LatencyTargets{
		observability.OpAssistantReply: cfg.AssistantP95Target,
		observability.OpStoreInsert:    cfg.StoreP95Target,
		observability.OpStoreQuery:     cfg.StoreP95Target,
		observability.OpTurn:           cfg.TurnP95Target,
	})

	b := bridge.NewService(st, cache, metrics, log)
	svc := intake.NewService(adapter, b, metrics, log)

	sessions := session.NewManager(cfg.SessionInactivityTimeout, cfg.SessionMaxTurns, cfg.SessionLabel)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	mode := assistant.ModeOf(adapter)
	api := httpapi.New(cfg, httpapi.Deps{
		Sessions:      sessions,
		Intake:        svc,
		Bridge:        b,
		Store:         st,
		Metrics:       metrics,
		Log:           log,
		AssistantMode: mode,
		CacheMode:     cacheMode,
		ReadyChecks:   readyChecks,
	})

	cleanup := func() error {
		var errs []string
		if redisCache != nil {
			if err := redisCache.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if err := st.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:        cfg,
		API:           api,
		Sessions:      sessions,
		Store:         st,
		Bridge:        b,
		Intake:        svc,
		Metrics:       metrics,
		AssistantMode: mode,
		CacheMode:     cacheMode,
		Cleanup:       cleanup,
	}, nil
}
