// Package observability exposes Prometheus metrics and OpenTelemetry tracing
package observability

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the server
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	filterRequestsTotal *prometheus.CounterVec
	filterRules         *prometheus.HistogramVec

	dbQueryDuration *prometheus.HistogramVec
	dbQueryErrors   *prometheus.CounterVec

	countCacheTotal *prometheus.CounterVec
	rateLimitHits   *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide metrics, registering them on first use
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics(prometheus.DefaultRegisterer)
	})
	return metricsInstance
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filterable_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filterable_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		filterRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filterable_filter_requests_total",
			Help: "Filter and sort bindings by table and outcome",
		}, []string{"table", "outcome"}),
		filterRules: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filterable_filter_rules",
			Help:    "Number of filter predicates per bound request",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}, []string{"table"}),

		dbQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filterable_db_query_duration_seconds",
			Help:    "Query execution latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation", "table"}),
		dbQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filterable_db_query_errors_total",
			Help: "Failed query executions",
		}, []string{"operation", "table"}),

		countCacheTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filterable_count_cache_total",
			Help: "Total row count cache lookups by result",
		}, []string{"result"}),
		rateLimitHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filterable_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"limiter"}),
	}
}

// Handler serves the registered metrics in the Prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Middleware records request counts and latencies
func (m *Metrics) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		path := normalizePath(c.Route().Path)
		m.httpRequestsTotal.WithLabelValues(c.Method(), path, statusClass(status)).Inc()
		m.httpRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// RecordFilter records the outcome of binding filter and sort parameters.
// outcome is "ok", "invalid" or "error".
func (m *Metrics) RecordFilter(table, outcome string, predicates int) {
	m.filterRequestsTotal.WithLabelValues(table, outcome).Inc()
	if outcome == "ok" {
		m.filterRules.WithLabelValues(table).Observe(float64(predicates))
	}
}

// RecordDBQuery records a Count or Find execution
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		m.dbQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordCountCache records a cache lookup; result is "hit", "miss" or "error"
func (m *Metrics) RecordCountCache(result string) {
	m.countCacheTotal.WithLabelValues(result).Inc()
}

// RecordRateLimitHit records a rejected request
func (m *Metrics) RecordRateLimitHit(limiter string) {
	m.rateLimitHits.WithLabelValues(limiter).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}

// normalizePath keeps label cardinality bounded; route patterns are used
// rather than raw URLs, but unmatched routes fall back to "unmatched"
func normalizePath(path string) string {
	if path == "" || path == "/*" {
		return "unmatched"
	}
	if len(path) > 50 {
		return "long_path"
	}
	return path
}
