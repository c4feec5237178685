package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unknownService is the label value used for requests that do not match
// any configured service route, keeping cardinality bounded.
const unknownService = "unknown"

// Metrics holds the gateway-level Prometheus metrics.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	activeRequests  *prometheus.GaugeVec
	instanceHealth  *prometheus.GaugeVec
	rateLimitHits   *prometheus.CounterVec
	cacheResults    *prometheus.CounterVec
	buildInfo       *prometheus.GaugeVec
	startTime       prometheus.Gauge
	registry        *prometheus.Registry
}

// NewMetrics creates a new Metrics instance. All metrics share the given
// namespace, defaulting to "gateway".
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "service", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "service", "status"},
	)

	m.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "service"},
	)

	m.activeRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests",
		},
		[]string{"service"},
	)

	m.instanceHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instance_health",
			Help:      "Backend instance health (1=healthy, 0=unhealthy)",
		},
		[]string{"service", "instance"},
	)

	m.rateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by rate limiting",
		},
		[]string{"service"},
	)

	m.cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_results_total",
			Help:      "Response cache lookups by result",
		},
		[]string{"service", "result"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the gateway",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the gateway in unix seconds",
		},
	)

	m.registerCollectors()
	m.startTime.SetToCurrentTime()

	return m
}

// registerCollectors registers all collectors with the registry.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.responseSize,
		m.activeRequests,
		m.instanceHealth,
		m.rateLimitHits,
		m.cacheResults,
		m.buildInfo,
		m.startTime,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordRequest records a completed HTTP request. The service parameter
// must be the matched logical service name, not the raw path, to keep
// label cardinality bounded.
func (m *Metrics) RecordRequest(
	method, service string,
	status int,
	duration time.Duration,
	respSize int64,
) {
	if service == "" {
		service = unknownService
	}
	statusStr := strconv.Itoa(status)

	m.requestsTotal.WithLabelValues(method, service, statusStr).Inc()
	m.requestDuration.WithLabelValues(method, service, statusStr).
		Observe(duration.Seconds())
	m.responseSize.WithLabelValues(method, service).
		Observe(float64(respSize))
}

// IncrementActiveRequests increments the in-flight request gauge.
func (m *Metrics) IncrementActiveRequests(service string) {
	if service == "" {
		service = unknownService
	}
	m.activeRequests.WithLabelValues(service).Inc()
}

// DecrementActiveRequests decrements the in-flight request gauge.
func (m *Metrics) DecrementActiveRequests(service string) {
	if service == "" {
		service = unknownService
	}
	m.activeRequests.WithLabelValues(service).Dec()
}

// SetInstanceHealth sets the health gauge for one backend instance.
func (m *Metrics) SetInstanceHealth(service, instance string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.instanceHealth.WithLabelValues(service, instance).Set(value)
}

// DeleteInstanceHealth removes the health gauge for a deregistered instance.
func (m *Metrics) DeleteInstanceHealth(service, instance string) {
	m.instanceHealth.DeleteLabelValues(service, instance)
}

// RecordRateLimitHit records a request rejected by rate limiting.
func (m *Metrics) RecordRateLimitHit(service string) {
	if service == "" {
		service = unknownService
	}
	m.rateLimitHits.WithLabelValues(service).Inc()
}

// RecordCacheResult records a response cache lookup outcome ("hit" or "miss").
func (m *Metrics) RecordCacheResult(service, result string) {
	if service == "" {
		service = unknownService
	}
	m.cacheResults.WithLabelValues(service, result).Inc()
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns the HTTP handler for the metrics endpoint. It gathers
// both the gateway registry and the default registry, so package-level
// pool and circuit breaker metrics appear on the same endpoint.
func (m *Metrics) Handler() http.Handler {
	gatherers := prometheus.Gatherers{
		m.registry,
		prometheus.DefaultGatherer,
	}
	return promhttp.HandlerFor(
		gatherers,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the gateway's Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterCollector registers an additional collector with the gateway
// registry.
func (m *Metrics) RegisterCollector(c prometheus.Collector) error {
	return m.registry.Register(c)
}
