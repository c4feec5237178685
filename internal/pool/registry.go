package pool

import (
	"context"
	"sort"
	"sync"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

// Registry manages the service pools of the gateway. Pools are created
// on first use: explicitly via Register with per-service settings, or
// lazily by GetOrCreate with the registry defaults when a request names
// a service nobody configured.
type Registry struct {
	pools    sync.Map
	defaults Config
	logger   observability.Logger
	poolOpts []Option

	mu      sync.Mutex
	started bool
	ctx     context.Context
}

// NewRegistry creates a pool registry. opts are applied to every pool
// the registry creates.
func NewRegistry(defaults Config, logger observability.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Registry{
		defaults: defaults,
		logger:   logger,
		poolOpts: opts,
	}
}

// Get returns the pool for the service, or nil if none exists.
func (r *Registry) Get(serviceName string) *ServicePool {
	value, ok := r.pools.Load(serviceName)
	if !ok {
		return nil
	}
	return value.(*ServicePool)
}

// Register creates the pool for a service with explicit settings. If a
// pool already exists the existing one is returned unchanged; settings
// are fixed at creation.
func (r *Registry) Register(serviceName string, cfg Config) *ServicePool {
	return r.create(serviceName, cfg)
}

// GetOrCreate returns the pool for the service, creating it with the
// registry defaults when absent.
func (r *Registry) GetOrCreate(serviceName string) *ServicePool {
	if value, ok := r.pools.Load(serviceName); ok {
		return value.(*ServicePool)
	}
	return r.create(serviceName, r.defaults)
}

func (r *Registry) create(serviceName string, cfg Config) *ServicePool {
	if value, ok := r.pools.Load(serviceName); ok {
		return value.(*ServicePool)
	}

	opts := append([]Option{WithPoolLogger(r.logger)}, r.poolOpts...)
	p := NewServicePool(serviceName, cfg, opts...)

	actual, loaded := r.pools.LoadOrStore(serviceName, p)
	if loaded {
		return actual.(*ServicePool)
	}

	r.logger.Debug("created service pool",
		observability.String("service", serviceName),
		observability.String("strategy", p.strategy.String()),
	)

	// Pools created after StartAll begin probing immediately.
	r.mu.Lock()
	if r.started {
		p.Start(r.ctx)
	}
	r.mu.Unlock()

	return p
}

// Remove deletes a service's pool, stopping its health checker.
func (r *Registry) Remove(serviceName string) {
	value, ok := r.pools.LoadAndDelete(serviceName)
	if !ok {
		return
	}
	value.(*ServicePool).Stop()
	r.logger.Debug("removed service pool",
		observability.String("service", serviceName),
	)
}

// List returns all pools ordered by service name.
func (r *Registry) List() []*ServicePool {
	var pools []*ServicePool
	r.pools.Range(func(_, value interface{}) bool {
		pools = append(pools, value.(*ServicePool))
		return true
	})
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].serviceName < pools[j].serviceName
	})
	return pools
}

// Count returns the number of registered pools.
func (r *Registry) Count() int {
	count := 0
	r.pools.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Metrics returns the snapshot of every pool keyed by service name.
func (r *Registry) Metrics() map[string]PoolMetrics {
	metrics := make(map[string]PoolMetrics)
	r.pools.Range(func(key, value interface{}) bool {
		metrics[key.(string)] = value.(*ServicePool).Metrics()
		return true
	})
	return metrics
}

// StartAll launches the health checker of every registered pool and
// marks the registry started so later pools start on creation.
func (r *Registry) StartAll(ctx context.Context) {
	r.mu.Lock()
	r.started = true
	r.ctx = ctx
	r.mu.Unlock()

	r.pools.Range(func(_, value interface{}) bool {
		value.(*ServicePool).Start(ctx)
		return true
	})
}

// StopAll stops every pool's health checker and waits for them.
func (r *Registry) StopAll() {
	r.mu.Lock()
	r.started = false
	r.mu.Unlock()

	r.pools.Range(func(_, value interface{}) bool {
		value.(*ServicePool).Stop()
		return true
	})
}
