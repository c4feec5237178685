package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, strategy Strategy, urls ...string) *ServicePool {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Strategy = strategy
	p := NewServicePool("test-service", cfg)
	for _, url := range urls {
		p.AddInstance(url, 1, nil)
	}
	return p
}

// ============================================================================
// Strategy parsing
// ============================================================================

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Strategy
	}{
		{name: "round robin", in: "round-robin", want: StrategyRoundRobin},
		{name: "weighted", in: "weighted", want: StrategyWeighted},
		{name: "least connections", in: "least-connections", want: StrategyLeastConnections},
		{name: "response time", in: "response-time", want: StrategyResponseTime},
		{name: "adaptive", in: "adaptive", want: StrategyAdaptive},
		{name: "empty defaults to adaptive", in: "", want: StrategyAdaptive},
		{name: "unknown defaults to adaptive", in: "bogus", want: StrategyAdaptive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseStrategy(tt.in))
		})
	}
}

func TestStrategy_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "round-robin", StrategyRoundRobin.String())
	assert.Equal(t, "weighted", StrategyWeighted.String())
	assert.Equal(t, "least-connections", StrategyLeastConnections.String())
	assert.Equal(t, "response-time", StrategyResponseTime.String())
	assert.Equal(t, "adaptive", StrategyAdaptive.String())
}

// ============================================================================
// Round robin
// ============================================================================

func TestRoundRobin_CyclesInOrder(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyRoundRobin,
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
		"http://10.0.0.3:8080",
	)

	var order []string
	for i := 0; i < 6; i++ {
		inst, err := p.SelectInstance()
		require.NoError(t, err)
		order = append(order, inst.URL)
	}

	assert.Equal(t, []string{
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
		"http://10.0.0.3:8080",
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
		"http://10.0.0.3:8080",
	}, order)
}

func TestRoundRobin_Fairness(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyRoundRobin,
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
		"http://10.0.0.3:8080",
		"http://10.0.0.4:8080",
	)

	const selections = 100
	seen := make(map[string]int)
	for i := 0; i < selections; i++ {
		inst, err := p.SelectInstance()
		require.NoError(t, err)
		seen[inst.URL]++
	}

	// 100 selections over 4 instances: every count is 25.
	for url, count := range seen {
		assert.Equal(t, 25, count, "uneven distribution for %s", url)
	}
}

func TestRoundRobin_SkipsUnhealthy(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyRoundRobin,
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
	)
	p.Instances()[0].SetHealthy(false)

	for i := 0; i < 5; i++ {
		inst, err := p.SelectInstance()
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.2:8080", inst.URL)
	}
}

// ============================================================================
// Weighted
// ============================================================================

func TestWeighted_Proportionality(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Strategy = StrategyWeighted
	p := NewServicePool("test-service", cfg)
	p.AddInstance("http://10.0.0.1:8080", 1, nil)
	p.AddInstance("http://10.0.0.2:8080", 3, nil)

	const selections = 4000
	seen := make(map[string]int)
	for i := 0; i < selections; i++ {
		inst, err := p.SelectInstance()
		require.NoError(t, err)
		seen[inst.URL]++
	}

	// Weight 3 of total 4 should draw about 75% of traffic. The bound
	// is far outside the binomial noise at this sample size.
	heavy := seen["http://10.0.0.2:8080"]
	assert.Greater(t, heavy, 2750)
	assert.Less(t, heavy, 3250)
}

func TestWeighted_SingleInstance(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyWeighted, "http://10.0.0.1:8080")

	inst, err := p.SelectInstance()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8080", inst.URL)
}

func TestWeighted_ZeroWeightTreatedAsOne(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Strategy = StrategyWeighted
	p := NewServicePool("test-service", cfg)
	p.AddInstance("http://10.0.0.1:8080", 0, nil)
	p.AddInstance("http://10.0.0.2:8080", 0, nil)

	seen := make(map[string]int)
	for i := 0; i < 200; i++ {
		inst, err := p.SelectInstance()
		require.NoError(t, err)
		seen[inst.URL]++
	}

	// Both instances participate.
	assert.Positive(t, seen["http://10.0.0.1:8080"])
	assert.Positive(t, seen["http://10.0.0.2:8080"])
}

// ============================================================================
// Least connections
// ============================================================================

func TestLeastConnections_PicksMinimum(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyLeastConnections,
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
		"http://10.0.0.3:8080",
	)

	instances := p.Instances()
	for i := 0; i < 5; i++ {
		instances[0].IncrementConnections()
	}
	for i := 0; i < 2; i++ {
		instances[1].IncrementConnections()
	}
	for i := 0; i < 8; i++ {
		instances[2].IncrementConnections()
	}

	inst, err := p.SelectInstance()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8080", inst.URL)
}

func TestLeastConnections_TieBreaksByOrder(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyLeastConnections,
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
	)

	inst, err := p.SelectInstance()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8080", inst.URL)
}

// ============================================================================
// Response time
// ============================================================================

func TestResponseTime_PicksFastest(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyResponseTime,
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
		"http://10.0.0.3:8080",
	)

	instances := p.Instances()
	instances[0].SetResponseTime(120 * time.Millisecond)
	instances[1].SetResponseTime(15 * time.Millisecond)
	instances[2].SetResponseTime(300 * time.Millisecond)

	inst, err := p.SelectInstance()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8080", inst.URL)
}

func TestResponseTime_UnmeasuredWinsByZero(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyResponseTime,
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
	)
	p.Instances()[0].SetResponseTime(50 * time.Millisecond)

	// The never-measured instance reports zero and wins.
	inst, err := p.SelectInstance()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8080", inst.URL)
}

// ============================================================================
// Adaptive
// ============================================================================

func TestAdaptive_PrefersIdleFastInstance(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, StrategyAdaptive,
		"http://10.0.0.1:8080",
		"http://10.0.0.2:8080",
	)

	instances := p.Instances()
	// Loaded and slow: both load and latency components bottom out.
	for i := 0; i < 10; i++ {
		instances[0].IncrementConnections()
	}
	instances[0].SetResponseTime(2 * time.Second)

	inst, err := p.SelectInstance()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8080", inst.URL)
}

func TestAdaptive_WeightBreaksEvenLoad(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Strategy = StrategyAdaptive
	p := NewServicePool("test-service", cfg)
	p.AddInstance("http://10.0.0.1:8080", 1, nil)
	p.AddInstance("http://10.0.0.2:8080", 5, nil)

	inst, err := p.SelectInstance()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8080", inst.URL)
}

func TestAdaptiveScore(t *testing.T) {
	t.Parallel()

	idle := NewInstance("http://10.0.0.1:8080", 1, nil)
	assert.InDelta(t, 80.2, adaptiveScore(idle), 0.001)

	// Ten connections exhaust the load component.
	loaded := NewInstance("http://10.0.0.2:8080", 1, nil)
	for i := 0; i < 10; i++ {
		loaded.IncrementConnections()
	}
	assert.InDelta(t, 40.2, adaptiveScore(loaded), 0.001)

	// A second of latency exhausts the latency component.
	slow := NewInstance("http://10.0.0.3:8080", 1, nil)
	slow.SetResponseTime(time.Second)
	assert.InDelta(t, 40.2, adaptiveScore(slow), 0.001)

	// Overload never drives the components negative.
	saturated := NewInstance("http://10.0.0.4:8080", 2, nil)
	for i := 0; i < 50; i++ {
		saturated.IncrementConnections()
	}
	saturated.SetResponseTime(10 * time.Second)
	assert.InDelta(t, 0.4, adaptiveScore(saturated), 0.001)
}
