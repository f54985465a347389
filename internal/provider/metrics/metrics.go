package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for provider invocations.
// Tracks call outcomes and end-to-end call latency.
type Metrics struct {
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration prometheus.Histogram
}

// New creates a new Metrics instance with all provider metrics registered.
func New() *Metrics {
	return &Metrics{
		InvocationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "realname_provider_invocations_total",
			Help: "Total number of provider verification calls by outcome",
		}, []string{"outcome"}),
		InvocationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "realname_provider_invocation_duration_seconds",
			Help:    "Duration of provider verification calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObserveInvocation records one completed provider call.
// Call with time.Now() from the start of the call.
func (m *Metrics) ObserveInvocation(start time.Time, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.InvocationsTotal.WithLabelValues(outcome).Inc()
	m.InvocationDuration.Observe(time.Since(start).Seconds())
}
