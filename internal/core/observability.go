package core

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bikerental/pkg/domain"
)

const metricsNamespace = "bikerental"

// PrometheusMetrics records service, store and HTTP metrics on a private
// registry. It satisfies MetricsRecorder, ChargeRecorder and the store's
// write observer.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	charged           prometheus.Counter
	returns           prometheus.Counter
	writes            *prometheus.CounterVec
	writeDuration     *prometheus.HistogramVec
	queueDepth        prometheus.Gauge
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// NewPrometheusMetrics builds the recorder and registers every collector,
// including the Go runtime and process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		charged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rental_charged_total",
			Help:      "Sum of total_charged over returned rentals.",
		}),
		returns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rental_returns_total",
			Help:      "Rentals returned.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Document commits by backend and outcome.",
		}, []string{"driver", "status"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "write_duration_seconds",
			Help:      "Document commit latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"driver"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "queue_depth",
			Help:      "Writes waiting for the writer goroutine.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations, m.operationDuration, m.charged, m.returns,
		m.writes, m.writeDuration, m.queueDepth,
		m.requests, m.requestDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe implements MetricsRecorder.
func (m *PrometheusMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	m.operations.WithLabelValues(operation, outcome(success)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCharge implements ChargeRecorder.
func (m *PrometheusMetrics) ObserveCharge(amount float64) {
	m.returns.Inc()
	if amount > 0 {
		m.charged.Add(amount)
	}
}

// ObserveWrite records one document commit.
func (m *PrometheusMetrics) ObserveWrite(driver domain.StorageDriver, success bool, duration time.Duration) {
	m.writes.WithLabelValues(string(driver), outcome(success)).Inc()
	m.writeDuration.WithLabelValues(string(driver)).Observe(duration.Seconds())
}

// ObserveQueueDepth records writes still waiting after a commit.
func (m *PrometheusMetrics) ObserveQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// ObserveRequest records one HTTP request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *PrometheusMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
