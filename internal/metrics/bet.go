package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	placeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poy_place_requests_total",
			Help: "Total poy place requests by result",
		},
		[]string{"result"},
	)

	placeLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poy_place_lines_total",
			Help: "Total bet lines placed by result",
		},
		[]string{"result"},
	)

	placeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poy_place_duration_ms",
			Help:    "Poy place request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordPlace records business metrics for a place call.
// result should be "success" or "fail".
func RecordPlace(result string, lines int, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	placeTotal.WithLabelValues(res).Inc()
	placeLines.WithLabelValues(res).Add(float64(lines))
	durMs := float64(time.Since(started).Milliseconds())
	placeDuration.WithLabelValues(res).Observe(durMs)
}
