package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordSignalAccepted("tradingview")
	r.RecordSignalAccepted("tradingview")
	r.RecordSignalRejected("manual", "validation")
	r.SetSubscribers(3)

	if got := testutil.ToFloat64(r.signalsAccepted.WithLabelValues("tradingview")); got != 2 {
		t.Fatalf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.signalsRejected.WithLabelValues("manual", "validation")); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.subscribers); got != 3 {
		t.Fatalf("subscribers = %v, want 3", got)
	}
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	NewWithRegistry(prometheus.NewRegistry())
	NewWithRegistry(prometheus.NewRegistry())
}
