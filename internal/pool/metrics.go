package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HealthyInstances shows the current healthy instance count per service.
	HealthyInstances = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "load_balancer_healthy_instances",
			Help: "Number of healthy instances in the service pool",
		},
		[]string{"service"},
	)

	// TotalInstances shows the current total instance count per service.
	TotalInstances = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "load_balancer_total_instances",
			Help: "Number of registered instances in the service pool",
		},
		[]string{"service"},
	)

	// SelectionsTotal counts successful instance selections.
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "load_balancer_selections_total",
			Help: "Total number of instance selections",
		},
		[]string{"service", "strategy"},
	)

	// SelectionErrorsTotal counts selections that found no healthy instance.
	SelectionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "load_balancer_selection_errors_total",
			Help: "Total number of selections that failed for lack of healthy instances",
		},
		[]string{"service"},
	)

	// HealthProbesTotal counts health probes by outcome.
	HealthProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "load_balancer_health_probes_total",
			Help: "Total number of health probes",
		},
		[]string{"service", "result"},
	)

	// HealthProbeDuration observes probe latency.
	HealthProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "load_balancer_health_probe_duration_seconds",
			Help:    "Health probe duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"service"},
	)
)

// SetInstanceCounts records the healthy and total instance gauges.
func SetInstanceCounts(service string, healthy, total int) {
	HealthyInstances.WithLabelValues(service).Set(float64(healthy))
	TotalInstances.WithLabelValues(service).Set(float64(total))
}

// RecordSelection records a successful selection.
func RecordSelection(service, strategy string) {
	SelectionsTotal.WithLabelValues(service, strategy).Inc()
}

// RecordSelectionError records a selection with no healthy instances.
func RecordSelectionError(service string) {
	SelectionErrorsTotal.WithLabelValues(service).Inc()
}

// RecordProbe records one health probe outcome and its latency.
func RecordProbe(service string, healthy bool, elapsed time.Duration) {
	result := "healthy"
	if !healthy {
		result = "unhealthy"
	}
	HealthProbesTotal.WithLabelValues(service, result).Inc()
	HealthProbeDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}
