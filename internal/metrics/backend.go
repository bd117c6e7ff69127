package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esquery",
			Name:      "backend_requests_total",
			Help:      "Total number of search backend requests",
		},
		[]string{"op", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "esquery",
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	DocCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esquery",
			Name:      "doc_cache_total",
			Help:      "Document cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)
)

var backendMetricsRegistered bool

// RegisterBackendMetrics registers Prometheus backend metrics. Must be called once from main.
func RegisterBackendMetrics() {
	if backendMetricsRegistered {
		return
	}
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(DocCacheTotal)
	backendMetricsRegistered = true
}

// ObserveBackend records one backend round trip.
// status is the HTTP status code as text, or "error" when no response arrived.
func ObserveBackend(op, status string, started time.Time) {
	BackendRequestsTotal.WithLabelValues(op, status).Inc()
	BackendRequestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
