package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func opByName(t *testing.T, report LatencyReport, op Op) OpLatency {
	t.Helper()
	for _, o := range report.Ops {
		if o.Op == op {
			return o
		}
	}
	t.Fatalf("op %s missing from %+v", op, report.Ops)
	return OpLatency{}
}

func TestLatencyReportPercentilesAndOutcomes(t *testing.T) {
	m := NewMetrics("hrdesk_latency_test", prometheus.NewRegistry())
	for _, ms := range []int{100, 200, 300, 400, 500} {
		m.ObserveUpstream(time.Duration(ms)*time.Millisecond, "")
	}
	m.ObserveUpstream(50*time.Millisecond, "overloaded_error")
	m.ObserveTurn(900*time.Millisecond, OutcomeRecordSaved)
	m.ObserveTurn(700*time.Millisecond, "store_error")

	report := m.LatencyReport()
	if report.WindowSeconds != latencyWindow.Seconds() {
		t.Fatalf("WindowSeconds = %v", report.WindowSeconds)
	}
	if len(report.Ops) != 2 || report.Ops[0].Op != OpAssistantReply || report.Ops[1].Op != OpTurn {
		t.Fatalf("ops = %+v, want assistant_reply then turn", report.Ops)
	}

	a := opByName(t, report, OpAssistantReply)
	if a.Count != 6 {
		t.Fatalf("Count = %d, want 6", a.Count)
	}
	if a.MeanMS != 258.33 {
		t.Fatalf("MeanMS = %v, want 258.33", a.MeanMS)
	}
	if a.P50MS < 200 || a.P50MS > 300 {
		t.Fatalf("P50MS = %v, want within [200,300]", a.P50MS)
	}
	if a.P95MS < 400 || a.P95MS > 500 {
		t.Fatalf("P95MS = %v, want within [400,500]", a.P95MS)
	}
	if a.Outcomes[OutcomeOK] != 5 || a.Outcomes["overloaded_error"] != 1 {
		t.Fatalf("Outcomes = %+v", a.Outcomes)
	}
	if a.TargetP95MS != 8000 || a.OverTarget {
		t.Fatalf("target=%v over=%v, want 8000 and within budget", a.TargetP95MS, a.OverTarget)
	}

	turn := opByName(t, report, OpTurn)
	if turn.Outcomes[OutcomeRecordSaved] != 1 || turn.Outcomes["store_error"] != 1 {
		t.Fatalf("turn outcomes = %+v", turn.Outcomes)
	}
}

func TestLatencyReportUsesConfiguredTargets(t *testing.T) {
	m := NewMetrics("hrdesk_latency_target_test", prometheus.NewRegistry())
	m.SetLatencyTargets(LatencyTargets{OpStoreQuery: 10 * time.Millisecond})
	m.ObserveStore("query", 40*time.Millisecond, nil)
	m.ObserveStore("insert", 40*time.Millisecond, nil)

	report := m.LatencyReport()
	q := opByName(t, report, OpStoreQuery)
	if q.TargetP95MS != 10 || !q.OverTarget {
		t.Fatalf("store_query target=%v over=%v, want 10ms exceeded", q.TargetP95MS, q.OverTarget)
	}
	ins := opByName(t, report, OpStoreInsert)
	if ins.TargetP95MS != 0 || ins.OverTarget {
		t.Fatalf("store_insert target=%v over=%v, want no budget", ins.TargetP95MS, ins.OverTarget)
	}
}

func TestLatencyTrackerIgnoresNegativeDurations(t *testing.T) {
	m := NewMetrics("hrdesk_latency_neg_test", prometheus.NewRegistry())
	m.ObserveTurn(-time.Second, OutcomeConversation)
	if report := m.LatencyReport(); len(report.Ops) != 0 {
		t.Fatalf("report = %+v, want empty", report)
	}
}
