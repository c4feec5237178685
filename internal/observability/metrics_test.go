package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
	}{
		{
			name:      "with custom namespace",
			namespace: "custom",
		},
		{
			name:      "with empty namespace uses default",
			namespace: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			metrics := NewMetrics(tt.namespace)

			assert.NotNil(t, metrics)
			assert.NotNil(t, metrics.requestsTotal)
			assert.NotNil(t, metrics.requestDuration)
			assert.NotNil(t, metrics.responseSize)
			assert.NotNil(t, metrics.activeRequests)
			assert.NotNil(t, metrics.instanceHealth)
			assert.NotNil(t, metrics.rateLimitHits)
			assert.NotNil(t, metrics.cacheResults)
			assert.NotNil(t, metrics.registry)
		})
	}
}

func TestMetricsRecordRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	metrics.RecordRequest("GET", "gamification", 200, 100*time.Millisecond, 2048)
	metrics.RecordRequest("GET", "", 503, time.Millisecond, 64)

	metric, err := metrics.requestsTotal.GetMetricWithLabelValues("GET", "gamification", "200")
	require.NoError(t, err)

	out := &dto.Metric{}
	require.NoError(t, metric.Write(out))
	assert.Equal(t, float64(1), *out.Counter.Value)

	// Empty service maps to the bounded "unknown" label.
	metric, err = metrics.requestsTotal.GetMetricWithLabelValues("GET", "unknown", "503")
	require.NoError(t, err)
	require.NoError(t, metric.Write(out))
	assert.Equal(t, float64(1), *out.Counter.Value)
}

func TestMetricsActiveRequests(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	metrics.IncrementActiveRequests("analytics")
	metrics.IncrementActiveRequests("analytics")
	metrics.DecrementActiveRequests("analytics")

	metric, err := metrics.activeRequests.GetMetricWithLabelValues("analytics")
	require.NoError(t, err)

	out := &dto.Metric{}
	require.NoError(t, metric.Write(out))
	assert.Equal(t, float64(1), *out.Gauge.Value)
}

func TestMetricsInstanceHealth(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")

	metrics.SetInstanceHealth("echo", "inst-1", true)

	metric, err := metrics.instanceHealth.GetMetricWithLabelValues("echo", "inst-1")
	require.NoError(t, err)

	out := &dto.Metric{}
	require.NoError(t, metric.Write(out))
	assert.Equal(t, float64(1), *out.Gauge.Value)

	metrics.SetInstanceHealth("echo", "inst-1", false)
	require.NoError(t, metric.Write(out))
	assert.Equal(t, float64(0), *out.Gauge.Value)

	metrics.DeleteInstanceHealth("echo", "inst-1")
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("handlertest")
	metrics.SetBuildInfo("1.0.0", "abc123", "2026-01-01")
	metrics.RecordRateLimitHit("echo")
	metrics.RecordCacheResult("echo", "hit")

	server := httptest.NewServer(metrics.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.True(t, strings.Contains(text, "handlertest_build_info"))
	assert.True(t, strings.Contains(text, "handlertest_rate_limit_hits_total"))
}
