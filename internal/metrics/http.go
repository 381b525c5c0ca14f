package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by method and status class
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "API requests by method and status class",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "API request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// RateLimitTotal counts rate limit decisions by scope and result
	RateLimitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Rate limit decisions by scope and result",
		},
		[]string{"scope", "result"},
	)

	RateLimitRedisErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_redis_errors_total",
			Help: "Rate limit checks that could not reach Redis",
		},
	)
)

func RecordHTTPRequest(method string, status int) {
	HTTPRequestsTotal.WithLabelValues(method, statusClass(status)).Inc()
}

func RecordHTTPDuration(route string, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

func RecordRateLimit(scope, result string) {
	RateLimitTotal.WithLabelValues(scope, result).Inc()
}

func RecordRateLimitRedisError() {
	RateLimitRedisErrors.Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
