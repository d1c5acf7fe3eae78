// Package metrics provides Prometheus instrumentation for the dashboard.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudlens",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fraudlens",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BackendRequestsTotal counts outbound calls to the fraud-detection API.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudlens",
			Name:      "backend_requests_total",
			Help:      "Total fraud API requests by endpoint and status bucket.",
		},
		[]string{"endpoint", "status"},
	)

	// BackendRequestDuration observes fraud API latency by endpoint.
	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fraudlens",
			Name:      "backend_request_duration_seconds",
			Help:      "Fraud API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// WorkflowStagesTotal counts workflow stage outcomes.
	WorkflowStagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudlens",
			Name:      "workflow_stages_total",
			Help:      "Total generate/score/risk/explain stage runs by result.",
		},
		[]string{"stage", "result"},
	)

	// WorkflowRunsCancelled counts runs superseded before completion.
	WorkflowRunsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fraudlens",
			Name:      "workflow_runs_cancelled_total",
			Help:      "Total workflow runs cancelled by a newer run.",
		},
	)

	// CSVExportsTotal counts CSV downloads by entity.
	CSVExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudlens",
			Name:      "csv_exports_total",
			Help:      "Total CSV exports served by entity.",
		},
		[]string{"entity"},
	)

	// ViewRefreshesTotal counts view-model refreshes by result.
	ViewRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudlens",
			Name:      "view_refreshes_total",
			Help:      "Total view-model refresh cycles by result.",
		},
		[]string{"result"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fraudlens",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		BackendRequestsTotal,
		BackendRequestDuration,
		WorkflowStagesTotal,
		WorkflowRunsCancelled,
		CSVExportsTotal,
		ViewRefreshesTotal,
		ActiveWebSocketClients,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ObserveBackend records one outbound fraud API call.
func ObserveBackend(endpoint string, status int, seconds float64) {
	BackendRequestsTotal.WithLabelValues(endpoint, statusBucket(status)).Inc()
	BackendRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code <= 0:
		return "error" // transport failure, no HTTP status
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
