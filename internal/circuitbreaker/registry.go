package circuitbreaker

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages the circuit breakers of the gateway, one per logical
// service. Breakers are created lazily: a request naming an unknown
// service gets a fresh closed breaker with the registry defaults.
type Registry struct {
	breakers sync.Map
	config   *Config
	logger   *zap.Logger
}

// NewRegistry creates a circuit breaker registry.
func NewRegistry(config *Config, logger *zap.Logger) *Registry {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		config: config,
		logger: logger,
	}
}

// Get returns a circuit breaker by service name, or nil if not found.
func (r *Registry) Get(serviceName string) *CircuitBreaker {
	value, ok := r.breakers.Load(serviceName)
	if !ok {
		return nil
	}
	return value.(*CircuitBreaker)
}

// GetOrCreate returns an existing circuit breaker or creates one with
// the registry defaults.
func (r *Registry) GetOrCreate(serviceName string) *CircuitBreaker {
	return r.getOrCreate(serviceName, r.config)
}

// GetOrCreateWithConfig returns an existing circuit breaker or creates
// one with the given config. Configs are fixed at creation.
func (r *Registry) GetOrCreateWithConfig(serviceName string, config *Config) *CircuitBreaker {
	return r.getOrCreate(serviceName, config)
}

func (r *Registry) getOrCreate(serviceName string, config *Config) *CircuitBreaker {
	if value, ok := r.breakers.Load(serviceName); ok {
		return value.(*CircuitBreaker)
	}

	cb := NewCircuitBreaker(serviceName, config, r.logger)

	actual, loaded := r.breakers.LoadOrStore(serviceName, cb)
	if loaded {
		return actual.(*CircuitBreaker)
	}

	r.logger.Debug("created circuit breaker",
		zap.String("service", serviceName),
	)

	return cb
}

// Remove removes a circuit breaker from the registry.
func (r *Registry) Remove(serviceName string) {
	r.breakers.Delete(serviceName)
}

// List returns all circuit breakers ordered by service name.
func (r *Registry) List() []*CircuitBreaker {
	var breakers []*CircuitBreaker
	r.breakers.Range(func(_, value interface{}) bool {
		breakers = append(breakers, value.(*CircuitBreaker))
		return true
	})
	sort.Slice(breakers, func(i, j int) bool {
		return breakers[i].serviceName < breakers[j].serviceName
	})
	return breakers
}

// Count returns the number of circuit breakers in the registry.
func (r *Registry) Count() int {
	count := 0
	r.breakers.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Stats returns statistics for every breaker, ordered by service name.
func (r *Registry) Stats() []Stats {
	breakers := r.List()
	stats := make([]Stats, 0, len(breakers))
	for _, cb := range breakers {
		stats = append(stats, cb.Stats())
	}
	return stats
}
