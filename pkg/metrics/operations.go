package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// OperationMetrics counts and times the operations of one POS component
// (cart, slot, register). A nil or unregistered value records nothing.
type OperationMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewOperationMetrics registers pos_<component>_operations_total and
// pos_<component>_operation_duration_seconds on reg.
func NewOperationMetrics(reg prometheus.Registerer, component string) *OperationMetrics {
	if reg == nil {
		return &OperationMetrics{}
	}
	component = normalizeLabel(component)
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: component,
		Name:      "operations_total",
		Help:      "POS " + component + " operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pos",
		Subsystem: component,
		Name:      "operation_duration_seconds",
		Help:      "Duration of POS " + component + " operations in seconds.",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation"})
	reg.MustRegister(total, duration)
	return &OperationMetrics{total: total, duration: duration}
}

// Observe records one finished operation.
func (m *OperationMetrics) Observe(operation, outcome string, elapsed time.Duration) {
	if m == nil || m.total == nil {
		return
	}
	operation = normalizeLabel(operation)
	m.total.WithLabelValues(operation, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Outcome classifies an operation result for the outcome label.
func Outcome(rejected bool, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case rejected:
		return OutcomeRejected
	default:
		return OutcomeOK
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
