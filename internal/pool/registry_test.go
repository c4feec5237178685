package pool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

func TestRegistry_GetOrCreate_ReturnsSamePool(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig(), observability.NopLogger())

	p1 := r.GetOrCreate("gamification")
	p2 := r.GetOrCreate("gamification")

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_GetOrCreate_UsesDefaults(t *testing.T) {
	t.Parallel()

	defaults := DefaultConfig()
	defaults.Strategy = StrategyLeastConnections
	r := NewRegistry(defaults, observability.NopLogger())

	p := r.GetOrCreate("analytics")

	assert.Equal(t, StrategyLeastConnections, p.Strategy())
}

func TestRegistry_GetOrCreate_Concurrent(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig(), observability.NopLogger())

	const workers = 20
	pools := make([]*ServicePool, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pools[i] = r.GetOrCreate("gamification")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, pools[0], pools[i])
	}
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_Register_CustomConfig(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig(), observability.NopLogger())

	cfg := Config{
		Strategy:            StrategyWeighted,
		HealthCheckPath:     "/status",
		HealthCheckInterval: 10 * time.Second,
		HealthCheckTimeout:  2 * time.Second,
	}
	p := r.Register("ai-feedback", cfg)

	assert.Equal(t, StrategyWeighted, p.Strategy())
	assert.Equal(t, "/status", p.config.HealthCheckPath)

	// Re-registering keeps the existing pool.
	again := r.Register("ai-feedback", DefaultConfig())
	assert.Same(t, p, again)
}

func TestRegistry_Get(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig(), observability.NopLogger())

	assert.Nil(t, r.Get("gamification"))
	p := r.GetOrCreate("gamification")
	assert.Same(t, p, r.Get("gamification"))
}

func TestRegistry_List_SortedByName(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig(), observability.NopLogger())
	r.GetOrCreate("gamification")
	r.GetOrCreate("ai-feedback")
	r.GetOrCreate("analytics")

	pools := r.List()

	require.Len(t, pools, 3)
	assert.Equal(t, "ai-feedback", pools[0].Service())
	assert.Equal(t, "analytics", pools[1].Service())
	assert.Equal(t, "gamification", pools[2].Service())
}

func TestRegistry_Remove(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig(), observability.NopLogger())
	r.GetOrCreate("gamification")

	r.Remove("gamification")
	assert.Nil(t, r.Get("gamification"))
	assert.Equal(t, 0, r.Count())

	// Removing an unknown service is a no-op.
	r.Remove("missing")
}

func TestRegistry_Metrics(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig(), observability.NopLogger())
	r.GetOrCreate("gamification").AddInstance("http://10.0.0.1:8080", 1, nil)
	r.GetOrCreate("analytics")

	metrics := r.Metrics()

	require.Len(t, metrics, 2)
	assert.Equal(t, 1, metrics["gamification"].TotalInstances)
	assert.Equal(t, 0, metrics["analytics"].TotalInstances)
}

func TestRegistry_StartAll_StopAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	defaults := DefaultConfig()
	defaults.HealthCheckInterval = time.Hour
	defaults.HealthCheckTimeout = time.Second
	r := NewRegistry(defaults, observability.NopLogger())

	p := r.GetOrCreate("gamification")
	p.AddInstance(server.URL, 1, nil)
	p.Instances()[0].SetHealthy(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartAll(ctx)
	defer r.StopAll()

	// The initial sweep restores the instance without waiting an interval.
	require.Eventually(t, p.Instances()[0].Healthy, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_LazyPoolStartsAfterStartAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	defaults := DefaultConfig()
	defaults.HealthCheckInterval = 50 * time.Millisecond
	defaults.HealthCheckTimeout = time.Second
	r := NewRegistry(defaults, observability.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartAll(ctx)
	defer r.StopAll()

	// Created after StartAll: the checker must begin probing on its own.
	p := r.GetOrCreate("late-service")
	p.AddInstance(server.URL, 1, nil)

	require.Eventually(t, func() bool {
		return !p.Instances()[0].LastHealthCheckAt().IsZero()
	}, 3*time.Second, 10*time.Millisecond)
}
