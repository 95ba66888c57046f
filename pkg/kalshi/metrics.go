package kalshi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks REST API responses by bucket and status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_api_requests_total",
			Help: "Total number of REST API requests",
		},
		[]string{"bucket", "status"},
	)

	// RequestErrorsTotal tracks failed requests by failure class.
	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_api_request_errors_total",
			Help: "Total number of failed REST API requests",
		},
		[]string{"type"},
	)

	// RequestRetriesTotal tracks retried request attempts.
	RequestRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_api_request_retries_total",
		Help: "Total number of retried REST API request attempts",
	})

	// RequestDurationSeconds tracks end-to-end request latency including
	// rate limiting and retries.
	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kalshi_arb_api_request_duration_seconds",
			Help:    "Duration of REST API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"bucket"},
	)

	// RateLimitWaitSeconds tracks time spent waiting on the local rate
	// limiter before a request is sent.
	RateLimitWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kalshi_arb_api_rate_limit_wait_seconds",
			Help:    "Time spent waiting for a rate limit token",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"bucket"},
	)
)
