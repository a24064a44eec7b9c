package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_settle_requests_total",
			Help: "Total draw settlement requests by result",
		},
		[]string{"result"},
	)

	settleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draw_settle_duration_ms",
			Help:    "Draw settlement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		},
		[]string{"result"},
	)

	creditDeferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settle_credit_deferred_total",
			Help: "Winning lines whose wallet credit was deferred to the retry list",
		},
	)
)

// RecordSettle records business metrics for a settlement run.
// result: "success", "success_idempotent" or "fail".
func RecordSettle(result string, started time.Time) {
	settleTotal.WithLabelValues(result).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	settleDuration.WithLabelValues(result).Observe(durMs)
}

// RecordCreditDeferred counts payouts pushed to the compensation list.
func RecordCreditDeferred(n int) {
	if n > 0 {
		creditDeferred.Add(float64(n))
	}
}
