// Package telemetry exposes Prometheus metrics for the data access layer.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors used across components. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	operations         *prometheus.CounterVec
	operationLatency   *prometheus.HistogramVec
	danglingReferences *prometheus.CounterVec
	absorbedFailures   *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectideas_store_operations_total",
				Help: "Total document store operations by outcome.",
			},
			[]string{"container", "operation", "outcome"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "projectideas_store_operation_seconds",
				Help:    "Document store operation latency in seconds.",
				Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"container", "operation"},
		),
		danglingReferences: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectideas_dangling_references_total",
				Help: "Weak references dropped because the target document was missing.",
			},
			[]string{"kind"},
		),
		absorbedFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectideas_absorbed_failures_total",
				Help: "Secondary update failures that were logged and not propagated.",
			},
			[]string{"component", "operation"},
		),
	}
}

// ObserveOperation records one store call.
func (m *Metrics) ObserveOperation(container, operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(container, operation, outcome).Inc()
	m.operationLatency.WithLabelValues(container, operation).Observe(d.Seconds())
}

// DanglingReference records a weak reference dropped during hydration.
func (m *Metrics) DanglingReference(kind string) {
	if m == nil {
		return
	}
	m.danglingReferences.WithLabelValues(kind).Inc()
}

// AbsorbedFailure records a secondary failure that was logged and swallowed.
func (m *Metrics) AbsorbedFailure(component, operation string) {
	if m == nil {
		return
	}
	m.absorbedFailures.WithLabelValues(component, operation).Inc()
}

// DanglingReferences returns the counter vector, for tests.
func (m *Metrics) DanglingReferences() *prometheus.CounterVec { return m.danglingReferences }

// AbsorbedFailures returns the counter vector, for tests.
func (m *Metrics) AbsorbedFailures() *prometheus.CounterVec { return m.absorbedFailures }

// Operations returns the counter vector, for tests.
func (m *Metrics) Operations() *prometheus.CounterVec { return m.operations }
