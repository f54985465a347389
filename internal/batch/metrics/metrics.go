package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the batch pipeline.
type Metrics struct {
	BatchesCreated   prometheus.Counter
	RecordsProcessed *prometheus.CounterVec
	ProcessDuration  prometheus.Histogram
}

// New creates a new Metrics instance with all batch pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		BatchesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "realname_batches_created_total",
			Help: "Total number of import batches created",
		}),
		RecordsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "realname_batch_records_processed_total",
			Help: "Total number of batch records processed by outcome",
		}, []string{"outcome"}),
		ProcessDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "realname_batch_process_duration_seconds",
			Help:    "Duration of full batch processing runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
	}
}

// IncrementBatchCreated records one created batch.
func (m *Metrics) IncrementBatchCreated() {
	m.BatchesCreated.Inc()
}

// ObserveRecord records one processed record by terminal outcome.
func (m *Metrics) ObserveRecord(outcome string) {
	m.RecordsProcessed.WithLabelValues(outcome).Inc()
}

// ObserveProcessBatch records the duration of one full processing run.
// Call with time.Now() from the start of the run.
func (m *Metrics) ObserveProcessBatch(start time.Time) {
	m.ProcessDuration.Observe(time.Since(start).Seconds())
}
