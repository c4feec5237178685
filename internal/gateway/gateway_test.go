package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/config"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

func newTestGateway(t *testing.T, cfg *config.Config, opts ...Option) *Gateway {
	t.Helper()

	g, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(g.Stop)
	return g
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, nil)

	assert.NotNil(t, g.Pools())
	assert.NotNil(t, g.Breakers())
	assert.NotNil(t, g.Metrics())
	assert.False(t, g.Ready())
	assert.Equal(t, 0, g.Pools().Count())
}

func TestNew_RegistersConfiguredServices(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Services = []config.ServiceConfig{
		{
			Name:     "gamification",
			Strategy: "round-robin",
			Instances: []config.InstanceConfig{
				{URL: "http://10.0.0.1:9001", Weight: 1},
				{URL: "http://10.0.0.2:9001", Weight: 2},
			},
		},
		{
			Name:     "analytics",
			Strategy: "least-connections",
		},
	}

	g := newTestGateway(t, cfg)

	p := g.Pools().Get("gamification")
	require.NotNil(t, p)
	assert.Len(t, p.Instances(), 2)
	assert.Equal(t, "round-robin", p.Strategy().String())

	require.NotNil(t, g.Pools().Get("analytics"))
	assert.Equal(t, "least-connections", g.Pools().Get("analytics").Strategy().String())

	require.NotNil(t, g.Breakers().Get("gamification"))
	require.NotNil(t, g.Breakers().Get("analytics"))
}

func TestGateway_ResolveService(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Services = []config.ServiceConfig{
		{Name: "gamification", RoutePrefix: "/api/gamification"},
		{Name: "gamification-v2", RoutePrefix: "/api/gamification/v2"},
		{Name: "legacy", RoutePrefix: "/legacy"},
	}

	g := newTestGateway(t, cfg)

	tests := []struct {
		name    string
		path    string
		service string
		found   bool
	}{
		{"configured prefix", "/api/gamification/points", "gamification", true},
		{"exact prefix match", "/api/gamification", "gamification", true},
		{"longest prefix wins", "/api/gamification/v2/points", "gamification-v2", true},
		{"non api prefix", "/legacy/export", "legacy", true},
		{"lazy api segment", "/api/leaderboard/top", "leaderboard", true},
		{"lazy single segment", "/api/leaderboard", "leaderboard", true},
		{"prefix is not a segment boundary", "/api/gamificationx/points", "gamificationx", true},
		{"bare api root", "/api/", "", false},
		{"unrelated path", "/internal/debug", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service, found := g.resolveService(tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.service, service)
		})
	}
}

func TestGateway_RegisterService_RebindsPrefix(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, config.DefaultConfig())

	g.RegisterService(config.ServiceConfig{Name: "old-scoring", RoutePrefix: "/api/scores"})
	g.RegisterService(config.ServiceConfig{Name: "scoring", RoutePrefix: "/api/scores"})

	service, found := g.resolveService("/api/scores/today")
	require.True(t, found)
	assert.Equal(t, "scoring", service)
}

func TestGateway_StartStop_TogglesReadiness(t *testing.T) {
	t.Parallel()

	g, err := New(config.DefaultConfig())
	require.NoError(t, err)

	assert.False(t, g.Ready())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g.Start(ctx)
	assert.True(t, g.Ready())

	g.Stop()
	assert.False(t, g.Ready())
}

func TestGateway_FallbackPayload_Builtins(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, config.DefaultConfig())

	gamification := g.fallbackPayload("gamification")
	assert.Equal(t, "degraded", gamification["status"])
	assert.Equal(t, 0, gamification["points"])
	assert.Equal(t, []any{}, gamification["badges"])

	analytics := g.fallbackPayload("analytics")
	assert.Equal(t, map[string]any{}, analytics["report"])

	feedback := g.fallbackPayload("ai-feedback")
	assert.Equal(t, "", feedback["feedback"])

	generic := g.fallbackPayload("billing")
	assert.Equal(t, "degraded", generic["status"])
	assert.Equal(t, "billing", generic["service"])
	assert.Equal(t, "temporarily unavailable", generic["message"])
}

func TestGateway_FallbackPayload_ConfiguredOverride(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Services = []config.ServiceConfig{{
		Name: "gamification",
		Fallback: map[string]any{
			"status": "maintenance",
			"points": float64(0),
		},
	}}

	g := newTestGateway(t, cfg)

	payload := g.fallbackPayload("gamification")
	assert.Equal(t, "maintenance", payload["status"])
	_, hasBadges := payload["badges"]
	assert.False(t, hasBadges)
}

func TestGateway_New_WithOptions(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics("gateway_opts_test")
	g := newTestGateway(t, nil, WithMetrics(m), WithLogger(observability.NopLogger()))

	assert.Same(t, m, g.Metrics())
}
