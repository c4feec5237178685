// Package gateway wires service pools, circuit breakers, the
// downstream forwarder, and the response cache behind one HTTP
// surface: routed proxying plus the management endpoints.
package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/cache"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/circuitbreaker"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/config"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/pool"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/proxy"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/ratelimit"
)

// Gateway routes incoming requests to backend service pools, guarded
// by per-service circuit breakers.
type Gateway struct {
	cfg       *config.Config
	logger    observability.Logger
	metrics   *observability.Metrics
	pools     *pool.Registry
	breakers  *circuitbreaker.Registry
	forwarder *proxy.Forwarder
	cache     cache.Cache
	limiter   *ratelimit.Limiter

	mu        sync.RWMutex
	routes    []route
	fallbacks map[string]map[string]any

	ready atomic.Bool
}

// route binds a path prefix to a logical service.
type route struct {
	prefix  string
	service string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the request metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithCache overrides the response cache backend.
func WithCache(c cache.Cache) Option {
	return func(g *Gateway) {
		g.cache = c
	}
}

// WithForwarder overrides the downstream forwarder.
func WithForwarder(f *proxy.Forwarder) Option {
	return func(g *Gateway) {
		g.forwarder = f
	}
}

// WithLimiter overrides the client rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(g *Gateway) {
		g.limiter = l
	}
}

// New builds a gateway from configuration and registers its services.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	g := &Gateway{
		cfg:       cfg,
		logger:    observability.NopLogger(),
		fallbacks: make(map[string]map[string]any),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = observability.NewMetrics("gateway")
	}

	g.pools = pool.NewRegistry(pool.DefaultConfig(), g.logger,
		pool.WithStatusCallback(func(service string, inst *pool.ServiceInstance, healthy bool) {
			g.metrics.SetInstanceHealth(service, inst.ID, healthy)
		}))
	g.breakers = circuitbreaker.NewRegistry(nil, observability.ZapLogger(g.logger))

	if g.forwarder == nil {
		g.forwarder = proxy.NewForwarder(proxy.DefaultPoolConfig(),
			proxy.WithForwarderLogger(g.logger))
	}

	if g.cache == nil {
		c, err := cache.New(&cfg.Cache, g.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		g.cache = c
	}

	if g.limiter == nil {
		g.limiter = ratelimit.FromConfig(&cfg.RateLimit, g.logger)
	}

	for _, svc := range cfg.Services {
		g.RegisterService(svc)
	}

	return g, nil
}

// RegisterService creates the pool and breaker for one configured
// service, seeds its initial instances, and binds its route prefix.
func (g *Gateway) RegisterService(svc config.ServiceConfig) {
	p := g.pools.Register(svc.Name, pool.Config{
		Strategy:            pool.ParseStrategy(svc.Strategy),
		HealthCheckPath:     svc.HealthCheck.Path,
		HealthCheckInterval: time.Duration(svc.HealthCheck.Interval),
		HealthCheckTimeout:  time.Duration(svc.HealthCheck.Timeout),
		GRPCHealthCheck:     svc.HealthCheck.GRPC,
		GRPCServiceName:     svc.HealthCheck.GRPCServiceName,
	})
	for _, inst := range svc.Instances {
		p.AddInstance(inst.URL, inst.Weight, inst.Metadata)
	}

	g.breakers.GetOrCreateWithConfig(svc.Name, &circuitbreaker.Config{
		FailureThreshold: svc.CircuitBreaker.FailureThreshold,
		ResetTimeout:     time.Duration(svc.CircuitBreaker.ResetTimeout),
	})

	prefix := svc.RoutePrefix
	if prefix == "" {
		prefix = "/api/" + svc.Name
	}

	g.mu.Lock()
	g.bindRouteLocked(prefix, svc.Name)
	if len(svc.Fallback) > 0 {
		g.fallbacks[svc.Name] = svc.Fallback
	}
	g.mu.Unlock()

	g.logger.Info("service registered",
		observability.String("service", svc.Name),
		observability.String("prefix", prefix),
		observability.String("strategy", p.Strategy().String()),
		observability.Int("instances", len(svc.Instances)))
}

// bindRouteLocked inserts or updates a prefix binding, keeping routes
// sorted longest-prefix-first so the most specific route wins.
func (g *Gateway) bindRouteLocked(prefix, service string) {
	for i := range g.routes {
		if g.routes[i].prefix == prefix {
			g.routes[i].service = service
			return
		}
	}
	g.routes = append(g.routes, route{prefix: prefix, service: service})
	sort.Slice(g.routes, func(i, j int) bool {
		return len(g.routes[i].prefix) > len(g.routes[j].prefix)
	})
}

// resolveService maps a request path to a logical service. Configured
// prefixes win, longest first; unknown /api/<name> paths fall back to
// the first path segment so fresh services come up lazily with
// defaults.
func (g *Gateway) resolveService(path string) (string, bool) {
	g.mu.RLock()
	for _, r := range g.routes {
		if path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
			g.mu.RUnlock()
			return r.service, true
		}
	}
	g.mu.RUnlock()

	if rest, ok := strings.CutPrefix(path, "/api/"); ok {
		name, _, _ := strings.Cut(rest, "/")
		if name != "" {
			return name, true
		}
	}

	return "", false
}

// fallbackFor returns the configured fallback payload, or nil.
func (g *Gateway) fallbackFor(service string) map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.fallbacks[service]
}

// Start launches the health probe loops and marks the gateway ready.
func (g *Gateway) Start(ctx context.Context) {
	g.pools.StartAll(ctx)
	g.ready.Store(true)
	g.logger.Info("gateway started",
		observability.Int("services", g.pools.Count()))
}

// Stop drains the gateway. Readiness drops first so upstream load
// balancers stop routing here, then probe loops, limiter, cache, and
// idle downstream connections are torn down.
func (g *Gateway) Stop() {
	g.ready.Store(false)
	g.pools.StopAll()
	if g.limiter != nil {
		g.limiter.Stop()
	}
	if err := g.cache.Close(); err != nil {
		g.logger.Warn("failed to close cache", observability.Error(err))
	}
	g.forwarder.CloseIdleConnections()
	g.logger.Info("gateway stopped")
}

// Ready reports whether the gateway accepts routed traffic.
func (g *Gateway) Ready() bool {
	return g.ready.Load()
}

// Pools exposes the service pool registry.
func (g *Gateway) Pools() *pool.Registry {
	return g.pools
}

// Breakers exposes the circuit breaker registry.
func (g *Gateway) Breakers() *circuitbreaker.Registry {
	return g.breakers
}

// Metrics exposes the request metrics sink, e.g. for the metrics
// server endpoint.
func (g *Gateway) Metrics() *observability.Metrics {
	return g.metrics
}
