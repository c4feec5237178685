package circuitbreaker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordStateChange_CountsTransition(t *testing.T) {
	originalCounter := CircuitBreakerStateChangesTotal
	testCounter := promauto.With(prometheus.NewRegistry()).NewCounterVec(
		prometheus.CounterOpts{
			Name: "test_circuit_breaker_state_changes_total",
			Help: "Total number of circuit breaker state changes",
		},
		[]string{"service", "from", "to"},
	)
	CircuitBreakerStateChangesTotal = testCounter
	defer func() {
		CircuitBreakerStateChangesTotal = originalCounter
	}()

	cfg := DefaultConfig().WithFailureThreshold(1)
	cb := NewCircuitBreaker("metrics-test", cfg, zap.NewNop())

	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	metric, err := testCounter.GetMetricWithLabelValues("metrics-test", "closed", "open")
	require.NoError(t, err)

	counterMetric := &dto.Metric{}
	require.NoError(t, metric.Write(counterMetric))
	assert.Equal(t, float64(1), *counterMetric.Counter.Value)
}

func TestRecordRequest_CountsRejections(t *testing.T) {
	originalRejected := CircuitBreakerRejectedTotal
	testRejected := promauto.With(prometheus.NewRegistry()).NewCounterVec(
		prometheus.CounterOpts{
			Name: "test_circuit_breaker_rejected_total",
			Help: "Total number of calls rejected due to open circuit",
		},
		[]string{"service"},
	)
	CircuitBreakerRejectedTotal = testRejected
	defer func() {
		CircuitBreakerRejectedTotal = originalRejected
	}()

	cfg := DefaultConfig().WithFailureThreshold(1).WithResetTimeout(time.Minute)
	cb := NewCircuitBreaker("rejection-test", cfg, zap.NewNop())

	require.Error(t, cb.Execute(context.Background(), failingOp))
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Execute(context.Background(), succeedingOp), ErrCircuitOpen)
	}

	metric, err := testRejected.GetMetricWithLabelValues("rejection-test")
	require.NoError(t, err)

	counterMetric := &dto.Metric{}
	require.NoError(t, metric.Write(counterMetric))
	assert.Equal(t, float64(3), *counterMetric.Counter.Value)
}
