package observability

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace      = "route_engine"
	unmatchedRoute = "unmatched"
	metricsPath    = "/metrics"
)

// Optimizer calls and whole runs share one bucket layout: 50ms doubling to ~100s.
var latencyBuckets = prometheus.ExponentialBuckets(0.05, 2, 12)

// Metrics holds the collectors of one process. All methods are safe on a
// nil receiver so components can run without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	generationRunsTotal     *prometheus.CounterVec
	generationDuration      *prometheus.HistogramVec
	optimizerDuration       *prometheus.HistogramVec
	fallbackOrdersTotal     *prometheus.CounterVec
	routesCreatedTotal      prometheus.Counter
	workerInflight          prometheus.Gauge
	autoGenerateQueuedTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		generationRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_runs_total",
			Help:      "Route generation runs by request source and outcome.",
		}, []string{"source", "outcome"}),
		generationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end route generation latency by request source.",
			Buckets:   latencyBuckets,
		}, []string{"source"}),
		optimizerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimizer_request_duration_seconds",
			Help:      "Fleet optimizer call latency by outcome.",
			Buckets:   latencyBuckets,
		}, []string{"outcome"}),
		fallbackOrdersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_orders_total",
			Help:      "Orders placed by the fallback assigner because the optimizer skipped them.",
		}, []string{"mode"}),
		routesCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_created_total",
			Help:      "Routes persisted by successful generation runs.",
		}),

		workerInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_inflight",
			Help:      "Generation requests currently held by the worker.",
		}),
		autoGenerateQueuedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_generate_enqueued_total",
			Help:      "Generation requests enqueued by the auto-generate scanner.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// HTTPMiddleware records every request except scrapes of the metrics endpoint.
// Paths are labeled by route template so batch ids do not explode cardinality.
// statusOf must agree with the app's error handler; nil treats every
// non-fiber error as a 500.
func (m *Metrics) HTTPMiddleware(statusOf func(error) int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		if path := routeTemplate(c); path != metricsPath {
			m.recordHTTPRequest(c.Method(), path, responseStatus(c, err, statusOf), time.Since(start))
		}
		return err
	}
}

func (m *Metrics) ObserveGeneration(source string, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	src := label(source)
	m.generationRunsTotal.WithLabelValues(src, label(outcome)).Inc()
	m.generationDuration.WithLabelValues(src).Observe(seconds(duration))
}

func (m *Metrics) ObserveOptimizerRequest(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.optimizerDuration.WithLabelValues(label(outcome)).Observe(seconds(duration))
}

func (m *Metrics) AddFallbackOrders(mode string, orders int) {
	if m == nil || orders <= 0 {
		return
	}
	m.fallbackOrdersTotal.WithLabelValues(label(mode)).Add(float64(orders))
}

func (m *Metrics) AddRoutesCreated(routes int) {
	if m == nil || routes <= 0 {
		return
	}
	m.routesCreatedTotal.Add(float64(routes))
}

func (m *Metrics) IncWorkerInFlight() {
	if m != nil {
		m.workerInflight.Inc()
	}
}

func (m *Metrics) DecWorkerInFlight() {
	if m != nil {
		m.workerInflight.Dec()
	}
}

func (m *Metrics) IncAutoGenerateEnqueued() {
	if m != nil {
		m.autoGenerateQueuedTotal.Inc()
	}
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "UNKNOWN"
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func routeTemplate(c *fiber.Ctx) string {
	route := c.Route()
	if route == nil || strings.TrimSpace(route.Path) == "" {
		return unmatchedRoute
	}
	return route.Path
}

// responseStatus predicts the status the error handler will write, since the
// middleware runs before it.
func responseStatus(c *fiber.Ctx, err error, statusOf func(error) int) int {
	if err == nil {
		if status := c.Response().StatusCode(); status != 0 {
			return status
		}
		return fiber.StatusOK
	}
	if statusOf != nil {
		return statusOf(err)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

func seconds(d time.Duration) float64 {
	return max(d.Seconds(), 0)
}

func label(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
