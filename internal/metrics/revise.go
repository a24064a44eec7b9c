package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_revise_requests_total",
			Help: "Total result revise requests by result",
		},
		[]string{"result"},
	)

	reviseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "result_revise_duration_ms",
			Help:    "Result revise duration in milliseconds, including reversal drain",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		},
		[]string{"result"},
	)

	reverseParked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reverse_tasks_parked",
			Help: "Reversal tasks parked waiting for manual intervention",
		},
	)
)

// RecordRevise records business metrics for a revise run.
// result: "success", "parked" or "fail".
func RecordRevise(result string, started time.Time) {
	reviseTotal.WithLabelValues(result).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	reviseDuration.WithLabelValues(result).Observe(durMs)
}

// SetReverseParked updates the parked reversal task gauge.
func SetReverseParked(n int) {
	reverseParked.Set(float64(n))
}
