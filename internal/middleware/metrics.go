package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	authLoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login exchanges with the backend",
		},
		[]string{"status"}, // status: success/failure/blocked/error
	)

	authLoginDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_login_duration_seconds",
			Help:    "Login exchange duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	guardRedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_redirects_total",
			Help: "Total number of access-guard redirects",
		},
		[]string{"reason"}, // reason: unauthenticated/role_mismatch
	)
)

// Metrics creates a Prometheus metrics middleware.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// FullPath keeps the route pattern so path parameters don't
		// explode the label cardinality.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// RecordLoginAttempt records the outcome of a login exchange.
func RecordLoginAttempt(status string, duration time.Duration) {
	authLoginAttemptsTotal.WithLabelValues(status).Inc()
	authLoginDuration.Observe(duration.Seconds())
}

// RecordGuardRedirect records an access-guard redirect.
func RecordGuardRedirect(reason string) {
	guardRedirectsTotal.WithLabelValues(reason).Inc()
}
