package observability

import (
	"math"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Op names a timed step of the intake cycle.
type Op string

const (
	OpAssistantReply Op = "assistant_reply"
	OpStoreInsert    Op = "store_insert"
	OpStoreQuery     Op = "store_query"
	OpTurn           Op = "turn"
)

// Turn outcomes recorded against OpTurn. Failed turns use the
// reliability kind as their outcome.
const (
	OutcomeOK             = "ok"
	OutcomeConversation   = "conversation"
	OutcomeRecordSaved    = "record_saved"
	OutcomeRecordRejected = "record_rejected"
	OutcomeQueryAnswered  = "query_answered"
)

// latencyWindow bounds how far back the reported quantiles look.
const latencyWindow = 10 * time.Minute

// LatencyTargets are p95 budgets per op. A zero budget is not reported.
type LatencyTargets map[Op]time.Duration

func DefaultLatencyTargets() LatencyTargets {
	return LatencyTargets{
		OpAssistantReply: 8 * time.Second,
		OpStoreInsert:    100 * time.Millisecond,
		OpStoreQuery:     100 * time.Millisecond,
		OpTurn:           9 * time.Second,
	}
}

// OpLatency summarizes one op. Quantiles cover the recent window; Count
// and Outcomes are totals since start.
type OpLatency struct {
	Op          Op                `json:"op"`
	Count       uint64            `json:"count"`
	MeanMS      float64           `json:"mean_ms"`
	P50MS       float64           `json:"p50_ms"`
	P95MS       float64           `json:"p95_ms"`
	P99MS       float64           `json:"p99_ms"`
	TargetP95MS float64           `json:"target_p95_ms,omitempty"`
	OverTarget  bool              `json:"over_target"`
	Outcomes    map[string]uint64 `json:"outcomes,omitempty"`
}

type LatencyReport struct {
	GeneratedAt   time.Time   `json:"generated_at"`
	WindowSeconds float64     `json:"window_seconds"`
	Ops           []OpLatency `json:"ops"`
}

// latencyTracker records op durations in a prometheus summary, so the same
// samples back /metrics and the JSON report.
type latencyTracker struct {
	durations *prometheus.SummaryVec
	outcomes  *prometheus.CounterVec
	targets   LatencyTargets
}

func newLatencyTracker(durations *prometheus.SummaryVec, outcomes *prometheus.CounterVec) *latencyTracker {
	return &latencyTracker{durations: durations, outcomes: outcomes, targets: DefaultLatencyTargets()}
}

func latencySummaryOpts(namespace string) prometheus.SummaryOpts {
	return prometheus.SummaryOpts{
		Namespace:  namespace,
		Name:       "operation_latency_ms",
		Help:       "Latency of intake steps in milliseconds.",
		Objectives: map[float64]float64{0.5: 0.05, 0.95: 0.01, 0.99: 0.001},
		MaxAge:     latencyWindow,
		AgeBuckets: 5,
	}
}

func (l *latencyTracker) observe(op Op, d time.Duration, outcome string) {
	if d < 0 {
		return
	}
	l.durations.WithLabelValues(string(op)).Observe(float64(d) / float64(time.Millisecond))
	if outcome != "" {
		l.outcomes.WithLabelValues(string(op), outcome).Inc()
	}
}

func (l *latencyTracker) report() LatencyReport {
	byOp := map[Op]*OpLatency{}
	entry := func(op Op) *OpLatency {
		e, ok := byOp[op]
		if !ok {
			e = &OpLatency{Op: op}
			byOp[op] = e
		}
		return e
	}

	for _, m := range collect(l.durations) {
		s := m.GetSummary()
		if s.GetSampleCount() == 0 {
			continue
		}
		e := entry(Op(labelValue(m, "op")))
		e.Count = s.GetSampleCount()
		e.MeanMS = round2(s.GetSampleSum() / float64(s.GetSampleCount()))
		for _, q := range s.GetQuantile() {
			v := q.GetValue()
			if math.IsNaN(v) {
				v = 0
			}
			switch q.GetQuantile() {
			case 0.5:
				e.P50MS = round2(v)
			case 0.95:
				e.P95MS = round2(v)
			case 0.99:
				e.P99MS = round2(v)
			}
		}
	}
	for _, m := range collect(l.outcomes) {
		e := entry(Op(labelValue(m, "op")))
		if e.Outcomes == nil {
			e.Outcomes = map[string]uint64{}
		}
		e.Outcomes[labelValue(m, "outcome")] = uint64(m.GetCounter().GetValue())
	}

	ops := make([]OpLatency, 0, len(byOp))
	for op, e := range byOp {
		if target := l.targets[op]; target > 0 {
			e.TargetP95MS = float64(target.Milliseconds())
			e.OverTarget = e.Count > 0 && e.P95MS > e.TargetP95MS
		}
		ops = append(ops, *e)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Op < ops[j].Op })

	return LatencyReport{
		GeneratedAt:   time.Now().UTC(),
		WindowSeconds: latencyWindow.Seconds(),
		Ops:           ops,
	}
}

// collect reads the current values of every child of c.
func collect(c prometheus.Collector) []*dto.Metric {
	ch := make(chan prometheus.Metric)
	go func() {
		c.Collect(ch)
		close(ch)
	}()
	var out []*dto.Metric
	for metric := range ch {
		var m dto.Metric
		if err := metric.Write(&m); err == nil {
			out = append(out, &m)
		}
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
