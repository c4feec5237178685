package pool

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

// ErrNoHealthyInstances is returned by SelectInstance when the pool is
// empty or every instance is unhealthy. Callers must treat it as
// "service unavailable", not retry internally.
var ErrNoHealthyInstances = errors.New("no healthy instances available")

// Config holds per-pool settings.
type Config struct {
	// Strategy picks instances for requests. Fixed for the pool lifetime.
	Strategy Strategy

	// HealthCheckPath is the probe path on each instance URL.
	HealthCheckPath string

	// HealthCheckInterval is the time between probe sweeps.
	HealthCheckInterval time.Duration

	// HealthCheckTimeout bounds each individual probe.
	HealthCheckTimeout time.Duration

	// GRPCHealthCheck switches probes to the standard gRPC health
	// protocol instead of HTTP.
	GRPCHealthCheck bool

	// GRPCServiceName is the service name sent in gRPC health checks.
	GRPCServiceName string
}

// DefaultConfig returns conservative pool settings used for services that
// were never explicitly registered.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategyAdaptive,
		HealthCheckPath:     "/health",
		HealthCheckInterval: 30 * time.Second,
		HealthCheckTimeout:  5 * time.Second,
	}
}

// ServicePool owns the instance list for one logical service, its
// selection strategy, and its background health checker. Instances are
// kept in insertion order, which is the round-robin order.
type ServicePool struct {
	serviceName string
	strategy    Strategy
	selector    selectFunc
	config      Config
	logger      observability.Logger

	mu        sync.RWMutex
	instances []*ServiceInstance

	cursor  atomic.Uint64
	checker *HealthChecker
}

// Option is a functional option for configuring a pool.
type Option func(*ServicePool)

// WithPoolLogger sets the logger for the pool and its health checker.
func WithPoolLogger(logger observability.Logger) Option {
	return func(p *ServicePool) {
		p.logger = logger
	}
}

// WithProbeClient sets the HTTP client used for health probes. The
// client's timeout is overridden per probe by the configured bound.
func WithProbeClient(client *http.Client) Option {
	return func(p *ServicePool) {
		p.checker.client = client
	}
}

// WithStatusCallback registers a callback fired outside locks whenever an
// instance transitions between healthy and unhealthy.
func WithStatusCallback(fn StatusFunc) Option {
	return func(p *ServicePool) {
		p.checker.onStatusChange = fn
	}
}

// NewServicePool creates a pool for the named service. The strategy is
// resolved once here; changing it requires recreating the pool.
func NewServicePool(serviceName string, cfg Config, opts ...Option) *ServicePool {
	if cfg.HealthCheckPath == "" {
		cfg.HealthCheckPath = "/health"
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = 5 * time.Second
	}

	p := &ServicePool{
		serviceName: serviceName,
		strategy:    cfg.Strategy,
		selector:    selectorFor(cfg.Strategy),
		config:      cfg,
		logger:      observability.NopLogger(),
	}
	p.checker = newHealthChecker(p)

	for _, opt := range opts {
		opt(p)
	}
	p.checker.logger = p.logger

	return p
}

// Service returns the pool's service name.
func (p *ServicePool) Service() string {
	return p.serviceName
}

// Strategy returns the pool's selection strategy.
func (p *ServicePool) Strategy() Strategy {
	return p.strategy
}

// AddInstance appends a new healthy-by-default instance and returns its
// generated id. The instance is eligible for the next selection.
func (p *ServicePool) AddInstance(url string, weight int, metadata map[string]string) string {
	inst := NewInstance(url, weight, metadata)

	p.mu.Lock()
	p.instances = append(p.instances, inst)
	healthy, total := p.countLocked()
	p.mu.Unlock()

	SetInstanceCounts(p.serviceName, healthy, total)

	p.logger.Info("instance added",
		observability.String("service", p.serviceName),
		observability.String("instance", inst.ID),
		observability.String("url", url),
		observability.Int("weight", inst.Weight),
	)

	return inst.ID
}

// RemoveInstance removes the instance with the given id. In-flight
// requests already routed to it are unaffected; their connection release
// becomes a no-op. Returns false for unknown ids.
func (p *ServicePool) RemoveInstance(id string) bool {
	p.mu.Lock()
	removed := false
	for i, inst := range p.instances {
		if inst.ID == id {
			p.instances = append(p.instances[:i], p.instances[i+1:]...)
			removed = true
			break
		}
	}
	healthy, total := p.countLocked()
	p.mu.Unlock()

	if removed {
		SetInstanceCounts(p.serviceName, healthy, total)
		p.logger.Info("instance removed",
			observability.String("service", p.serviceName),
			observability.String("instance", id),
		)
	}

	return removed
}

// SelectInstance picks one healthy instance using the pool strategy.
// Selection is O(len(instances)) and never blocks on network I/O.
func (p *ServicePool) SelectInstance() (*ServiceInstance, error) {
	p.mu.RLock()
	healthy := make([]*ServiceInstance, 0, len(p.instances))
	for _, inst := range p.instances {
		if inst.Healthy() {
			healthy = append(healthy, inst)
		}
	}
	p.mu.RUnlock()

	if len(healthy) == 0 {
		RecordSelectionError(p.serviceName)
		return nil, ErrNoHealthyInstances
	}

	selected := p.selector(p, healthy)
	RecordSelection(p.serviceName, p.strategy.String())
	return selected, nil
}

// IncrementConnections records a request being routed to the instance.
// Unknown ids are ignored.
func (p *ServicePool) IncrementConnections(id string) {
	if inst := p.lookup(id); inst != nil {
		inst.IncrementConnections()
	}
}

// DecrementConnections records a routed request finishing. Unknown ids
// are ignored: the instance may have been removed mid-flight.
func (p *ServicePool) DecrementConnections(id string) {
	if inst := p.lookup(id); inst != nil {
		inst.DecrementConnections()
	}
}

// RecordResponseTime opportunistically refreshes an instance's observed
// latency from real traffic. Unknown ids are ignored.
func (p *ServicePool) RecordResponseTime(id string, d time.Duration) {
	if inst := p.lookup(id); inst != nil {
		inst.SetResponseTime(d)
	}
}

// lookup finds an instance by id, or nil.
func (p *ServicePool) lookup(id string) *ServiceInstance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, inst := range p.instances {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}

// Instances returns a snapshot of the current instance list.
func (p *ServicePool) Instances() []*ServiceInstance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*ServiceInstance, len(p.instances))
	copy(out, p.instances)
	return out
}

// Health returns the healthy and total instance counts.
func (p *ServicePool) Health() (healthy, total int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.countLocked()
}

// countLocked counts healthy and total instances. Callers hold p.mu.
func (p *ServicePool) countLocked() (healthy, total int) {
	for _, inst := range p.instances {
		if inst.Healthy() {
			healthy++
		}
	}
	return healthy, len(p.instances)
}

// PoolMetrics is the JSON snapshot of one pool.
type PoolMetrics struct {
	Service          string            `json:"service"`
	Strategy         string            `json:"strategy"`
	TotalInstances   int               `json:"totalInstances"`
	HealthyInstances int               `json:"healthyInstances"`
	Instances        []InstanceMetrics `json:"instances"`
}

// Metrics returns a point-in-time snapshot of the pool and every
// instance in it.
func (p *ServicePool) Metrics() PoolMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m := PoolMetrics{
		Service:   p.serviceName,
		Strategy:  p.strategy.String(),
		Instances: make([]InstanceMetrics, 0, len(p.instances)),
	}
	for _, inst := range p.instances {
		if inst.Healthy() {
			m.HealthyInstances++
		}
		m.Instances = append(m.Instances, inst.Snapshot())
	}
	m.TotalInstances = len(p.instances)

	return m
}

// Start launches the pool's background health checker.
func (p *ServicePool) Start(ctx context.Context) {
	p.checker.Start(ctx)
}

// Stop stops the health checker and waits for it to exit.
func (p *ServicePool) Stop() {
	p.checker.Stop()
}

// Checker exposes the pool's health checker.
func (p *ServicePool) Checker() *HealthChecker {
	return p.checker
}
