// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Pool API metrics
	PoolRequestsTotal   *prometheus.CounterVec
	PoolRequestDuration *prometheus.HistogramVec

	// Proxy metrics
	ProxyRequestsTotal *prometheus.CounterVec

	// Dashboard metrics
	DashboardBuildsTotal   *prometheus.CounterVec
	DashboardBuildDuration prometheus.Histogram
	DashboardWarningsTotal *prometheus.CounterVec
	SubaccountResolutions  *prometheus.CounterVec
	StreamClients          prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "miner_hosting"
	}

	return &Metrics{
		// Pool API metrics
		PoolRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "requests_total",
			Help:      "Total number of pool API requests by endpoint and status code",
		}, []string{"endpoint", "status"}),
		PoolRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "request_duration_seconds",
			Help:      "Pool API request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),

		// Proxy metrics
		ProxyRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Total number of proxy requests by logical endpoint and response status",
		}, []string{"endpoint", "status"}),

		// Dashboard metrics
		DashboardBuildsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "builds_total",
			Help:      "Total number of dashboard snapshots built by outcome",
		}, []string{"outcome"}),
		DashboardBuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "build_duration_seconds",
			Help:      "Time to build one dashboard snapshot",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DashboardWarningsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "warnings_total",
			Help:      "Total number of degraded sub-calls by source",
		}, []string{"source"}),
		SubaccountResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "subaccount_resolutions_total",
			Help:      "Total number of subaccount resolutions by source",
		}, []string{"source"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "stream_clients",
			Help:      "Current number of connected dashboard stream clients",
		}),

		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Inbound HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPoolCall records one pool API round trip. Status 0 means a transport failure.
func RecordPoolCall(endpoint string, status int, seconds float64) {
	DefaultMetrics.PoolRequestsTotal.WithLabelValues(endpoint, statusLabel(status)).Inc()
	DefaultMetrics.PoolRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

// RecordProxyRequest records a proxied request outcome.
func RecordProxyRequest(endpoint string, status int) {
	DefaultMetrics.ProxyRequestsTotal.WithLabelValues(endpoint, statusLabel(status)).Inc()
}

// RecordDashboardBuild records a finished snapshot build.
func RecordDashboardBuild(warnings int, durationSeconds float64) {
	outcome := "complete"
	if warnings > 0 {
		outcome = "partial"
	}
	DefaultMetrics.DashboardBuildsTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.DashboardBuildDuration.Observe(durationSeconds)
}

// RecordDashboardWarning increments the degraded sub-call counter.
func RecordDashboardWarning(source string) {
	DefaultMetrics.DashboardWarningsTotal.WithLabelValues(source).Inc()
}

// RecordSubaccountResolution records where a subaccount list came from.
func RecordSubaccountResolution(source string) {
	DefaultMetrics.SubaccountResolutions.WithLabelValues(source).Inc()
}

// StreamClientConnected adjusts the stream client gauge.
func StreamClientConnected(delta int) {
	DefaultMetrics.StreamClients.Add(float64(delta))
}

// RecordHTTPRequest records an inbound HTTP request.
func RecordHTTPRequest(method, route string, status int, seconds float64) {
	DefaultMetrics.HTTPRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func statusLabel(status int) string {
	if status == 0 {
		return "transport_error"
	}
	return strconv.Itoa(status)
}
