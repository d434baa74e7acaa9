package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("debug", "json", &buf)
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s, want debug", log.GetLevel())
	}
	log.WithField("component", "test").Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "hello" || entry["component"] != "test" {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestNewLoggerInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("loud", "text", &buf)
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s, want info", log.GetLevel())
	}
	if !strings.Contains(buf.String(), "invalid log level") {
		t.Fatalf("expected warning, got %q", buf.String())
	}
}

func TestMetricsObserveUpstreamAndStore(t *testing.T) {
	m := NewMetrics("hrdesk_test", prometheus.NewRegistry())

	m.ObserveUpstream(120*time.Millisecond, "")
	m.ObserveUpstream(90*time.Millisecond, "overloaded_error")
	m.ObserveStore("insert", 3*time.Millisecond, nil)
	m.ObserveStore("query", 4*time.Millisecond, errors.New("boom"))

	if got := counterValue(t, m.ChatRequests.WithLabelValues("ok")); got != 1 {
		t.Fatalf("chat ok = %v, want 1", got)
	}
	if got := counterValue(t, m.ProviderErrors.WithLabelValues("overloaded_error")); got != 1 {
		t.Fatalf("provider overloaded = %v, want 1", got)
	}
	if got := counterValue(t, m.StoreOps.WithLabelValues("query", "error")); got != 1 {
		t.Fatalf("store query error = %v, want 1", got)
	}

	report := m.LatencyReport()
	if len(report.Ops) != 3 {
		t.Fatalf("ops = %+v, want assistant_reply, store_insert, store_query", report.Ops)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream(time.Second, "upstream_error")
	m.ObserveStore("insert", time.Millisecond, nil)
	m.ObserveSaved("leave")
	m.ObserveTurn(time.Second, OutcomeConversation)
	m.SetLatencyTargets(DefaultLatencyTargets())
	if report := m.LatencyReport(); len(report.Ops) != 0 {
		t.Fatalf("nil metrics report = %+v", report)
	}
}
