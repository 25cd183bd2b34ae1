package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("users", "get", "ok", time.Millisecond)
	m.DanglingReference("Idea")
	m.AbsorbedFailure("manager", "index")
}

func TestMetricsCount(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("users", "get", "ok", time.Millisecond)
	m.ObserveOperation("users", "get", "not_found", time.Millisecond)
	m.ObserveOperation("users", "get", "ok", time.Millisecond)
	m.DanglingReference("Idea")
	m.AbsorbedFailure("messaging", "deliver")
	m.AbsorbedFailure("messaging", "deliver")

	if got := testutil.ToFloat64(m.Operations().WithLabelValues("users", "get", "ok")); got != 2 {
		t.Errorf("expected 2 ok gets, got %v", got)
	}
	if got := testutil.ToFloat64(m.DanglingReferences().WithLabelValues("Idea")); got != 1 {
		t.Errorf("expected 1 dangling reference, got %v", got)
	}
	if got := testutil.ToFloat64(m.AbsorbedFailures().WithLabelValues("messaging", "deliver")); got != 2 {
		t.Errorf("expected 2 absorbed failures, got %v", got)
	}
}

func TestNewWithSeparateRegistries(t *testing.T) {
	// Registering twice against one registry panics; separate registries must not.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
