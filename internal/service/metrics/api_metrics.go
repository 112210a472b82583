package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics tracks latency and errors of the read API endpoints.
type APIMetrics struct {
	Latency     *prometheus.HistogramVec
	Errors      *prometheus.CounterVec
	RateLimited *prometheus.CounterVec
}

func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	f := promauto.With(reg)
	return &APIMetrics{
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentinel",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of read API endpoints",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by read API endpoint",
		}, []string{"endpoint"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limit",
		}, []string{"route"}),
	}
}

// Observe records one call. A nil receiver records nothing.
func (m *APIMetrics) Observe(endpoint string, seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.Latency.WithLabelValues(endpoint).Observe(seconds)
	if failed {
		m.Errors.WithLabelValues(endpoint).Inc()
	}
}

func (m *APIMetrics) Limited(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}
