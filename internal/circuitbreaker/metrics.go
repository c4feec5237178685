package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CircuitBreakerState shows the current state of circuit breakers.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	// CircuitBreakerRequestsTotal counts calls evaluated by circuit breakers.
	CircuitBreakerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of calls evaluated by circuit breakers",
		},
		[]string{"service", "result"},
	)

	// CircuitBreakerFailuresTotal counts failures recorded by circuit breakers.
	CircuitBreakerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures recorded by circuit breakers",
		},
		[]string{"service"},
	)

	// CircuitBreakerSuccessesTotal counts successes recorded by circuit breakers.
	CircuitBreakerSuccessesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_successes_total",
			Help: "Total number of successes recorded by circuit breakers",
		},
		[]string{"service"},
	)

	// CircuitBreakerStateChangesTotal counts state changes.
	CircuitBreakerStateChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Total number of circuit breaker state changes",
		},
		[]string{"service", "from", "to"},
	)

	// CircuitBreakerRejectedTotal counts calls rejected by an open circuit.
	CircuitBreakerRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Total number of calls rejected due to open circuit",
		},
		[]string{"service"},
	)
)

// RecordState records the current state of a circuit breaker.
func RecordState(serviceName string, state State) {
	CircuitBreakerState.WithLabelValues(serviceName).Set(float64(state))
}

// RecordRequest records an admission decision. Rejections count in their
// own series, never in the attempted-call counters.
func RecordRequest(serviceName string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
		CircuitBreakerRejectedTotal.WithLabelValues(serviceName).Inc()
	}
	CircuitBreakerRequestsTotal.WithLabelValues(serviceName, result).Inc()
}

// RecordFailure records a failure.
func RecordFailure(serviceName string) {
	CircuitBreakerFailuresTotal.WithLabelValues(serviceName).Inc()
}

// RecordSuccess records a success.
func RecordSuccess(serviceName string) {
	CircuitBreakerSuccessesTotal.WithLabelValues(serviceName).Inc()
}

// RecordStateChange records a state change and the resulting state.
func RecordStateChange(serviceName string, from, to State) {
	CircuitBreakerStateChangesTotal.WithLabelValues(serviceName, from.String(), to.String()).Inc()
	RecordState(serviceName, to)
}
