package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ChatRequests   *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	StoreOps       *prometheus.CounterVec
	RecordsSaved   *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec

	latency *latencyTracker
}

// NewMetrics registers the instruments on reg. A nil reg uses the default
// registerer, which is what /metrics serves.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ChatRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Conversation proxy calls by outcome.",
		}, []string{"outcome"}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Model provider errors by kind.",
		}, []string{"kind"}),
		StoreOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Structured store operations by op and outcome.",
		}, []string{"op", "outcome"}),
		RecordsSaved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_saved_total",
			Help:      "HR request records persisted by type.",
		}, []string{"type"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open conversation sessions.",
		}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		latency: newLatencyTracker(
			f.NewSummaryVec(latencySummaryOpts(namespace), []string{"op"}),
			f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_outcomes_total",
				Help:      "Intake step outcomes by op.",
			}, []string{"op", "outcome"}),
		),
	}
}

// SetLatencyTargets replaces the p95 budgets shown in the latency report.
func (m *Metrics) SetLatencyTargets(targets LatencyTargets) {
	if m == nil || targets == nil {
		return
	}
	m.latency.targets = targets
}

// ObserveUpstream records one provider call. An empty errKind is a success.
func (m *Metrics) ObserveUpstream(d time.Duration, errKind string) {
	if m == nil {
		return
	}
	if errKind == "" {
		m.ChatRequests.WithLabelValues("ok").Inc()
		m.latency.observe(OpAssistantReply, d, OutcomeOK)
		return
	}
	m.ChatRequests.WithLabelValues("error").Inc()
	m.ProviderErrors.WithLabelValues(errKind).Inc()
	m.latency.observe(OpAssistantReply, d, errKind)
}

// ObserveStore records one store call under op ("insert", "query").
func (m *Metrics) ObserveStore(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = "store_error"
	}
	m.StoreOps.WithLabelValues(op, outcome).Inc()
	m.latency.observe(Op("store_"+op), d, outcome)
}

func (m *Metrics) ObserveSaved(recordType string) {
	if m == nil {
		return
	}
	m.RecordsSaved.WithLabelValues(recordType).Inc()
}

// ObserveTurn records a whole intake cycle and how it ended.
func (m *Metrics) ObserveTurn(d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.latency.observe(OpTurn, d, outcome)
}

// LatencyReport returns recent percentiles and outcome totals per op.
func (m *Metrics) LatencyReport() LatencyReport {
	if m == nil {
		return LatencyReport{GeneratedAt: time.Now().UTC(), WindowSeconds: latencyWindow.Seconds(), Ops: []OpLatency{}}
	}
	return m.latency.report()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
