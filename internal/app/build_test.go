package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ent0n29/hrdesk/internal/bridge"
	"github.com/ent0n29/hrdesk/internal/config"
	"github.com/ent0n29/hrdesk/internal/hr"
	"github.com/ent0n29/hrdesk/internal/observability"
)

var namespaceSeq atomic.Int64

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		// Build registers on the default registry; each test needs its own namespace.
		MetricsNamespace:         fmt.Sprintf("hrdesk_app_test_%d", namespaceSeq.Add(1)),
		AssistantMode:            "mock",
		SessionInactivityTimeout: time.Minute,
		SessionMaxTurns:          10,
		SessionLabel:             "andreszapataq",
		StatsTTL:                 time.Minute,
		DatabaseURL:              "sqlite:" + filepath.Join(t.TempDir(), "hr.db"),
	}
}

func TestBuildWiresMockAssistantAndSQLite(t *testing.T) {
	log := observability.NewLogger("error", "text", nil)
	res, err := Build(context.Background(), testConfig(t), log)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
	}()

	if res.AssistantMode != "mock" || res.Store.Mode() != "sqlite" || res.CacheMode != "memory" {
		t.Fatalf("modes assistant=%s store=%s cache=%s", res.AssistantMode, res.Store.Mode(), res.CacheMode)
	}

	ts := httptest.NewServer(res.API.Router())
	defer ts.Close()
	ready, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	defer ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", ready.StatusCode)
	}
}

func TestBuildZeroStatsTTLDisablesCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.StatsTTL = 0
	// A cache that stayed enabled would try to reach this address.
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	res, err := Build(context.Background(), cfg, observability.NewLogger("error", "text", nil))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer func() { _ = res.Cleanup() }()
	if res.CacheMode != "off" {
		t.Fatalf("CacheMode = %q, want off", res.CacheMode)
	}

	ctx := context.Background()
	before, err := res.Bridge.Statistics(ctx, bridge.StatsFilter{})
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if _, err := res.Store.Insert(ctx, hr.Request{Name: "Ana", Type: hr.TypeLeave, Date: "2025-02-03"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	// The insert bypasses the bridge, so only an uncached read can see it.
	after, err := res.Bridge.Statistics(ctx, bridge.StatsFilter{})
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if after.TotalRequests != before.TotalRequests+1 {
		t.Fatalf("Statistics() before=%+v after=%+v, want an uncached read", before, after)
	}
}

func TestBuildRejectsUnsupportedDatabaseURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "mysql://localhost/hr"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatalf("Build() expected error for unsupported database url")
	}
}
