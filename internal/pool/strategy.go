package pool

import (
	"crypto/rand"
	"encoding/binary"
)

// Strategy selects one instance from the currently-healthy subset of a
// pool. The set is closed: strategies are resolved from configuration
// once at pool construction, never by string comparison on the request
// path.
type Strategy int

const (
	// StrategyRoundRobin cycles through healthy instances in insertion
	// order.
	StrategyRoundRobin Strategy = iota

	// StrategyWeighted picks randomly in proportion to instance weights.
	StrategyWeighted

	// StrategyLeastConnections picks the instance with the fewest active
	// connections.
	StrategyLeastConnections

	// StrategyResponseTime picks the instance with the lowest observed
	// latency.
	StrategyResponseTime

	// StrategyAdaptive blends load, latency, and weight into a composite
	// score. This is the default.
	StrategyAdaptive
)

// Adaptive scoring coefficients. The score blends connection load,
// observed latency, and operator-assigned weight:
//
//	score = 0.4*max(0, 100 - conns*10) + 0.4*max(0, 100 - latencyMs/10) + 0.2*weight
const (
	adaptiveLoadFactor    = 0.4
	adaptiveLatencyFactor = 0.4
	adaptiveWeightFactor  = 0.2
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyRoundRobin:
		return "round-robin"
	case StrategyWeighted:
		return "weighted"
	case StrategyLeastConnections:
		return "least-connections"
	case StrategyResponseTime:
		return "response-time"
	case StrategyAdaptive:
		return "adaptive"
	default:
		return "adaptive"
	}
}

// ParseStrategy resolves a configuration name to a Strategy. Unknown or
// empty names fall back to adaptive.
func ParseStrategy(name string) Strategy {
	switch name {
	case "round-robin":
		return StrategyRoundRobin
	case "weighted":
		return StrategyWeighted
	case "least-connections":
		return StrategyLeastConnections
	case "response-time":
		return StrategyResponseTime
	case "adaptive":
		return StrategyAdaptive
	default:
		return StrategyAdaptive
	}
}

// selectFunc picks one instance from a non-empty healthy subset.
type selectFunc func(p *ServicePool, healthy []*ServiceInstance) *ServiceInstance

// selectorFor resolves the selection function for a strategy once, at
// pool construction.
func selectorFor(s Strategy) selectFunc {
	switch s {
	case StrategyRoundRobin:
		return pickRoundRobin
	case StrategyWeighted:
		return pickWeighted
	case StrategyLeastConnections:
		return pickLeastConnections
	case StrategyResponseTime:
		return pickResponseTime
	default:
		return pickAdaptive
	}
}

// pickRoundRobin advances the pool's monotonic cursor over the current
// healthy subset. Fairness holds over the current set only; membership
// changes may transiently skew distribution.
func pickRoundRobin(p *ServicePool, healthy []*ServiceInstance) *ServiceInstance {
	idx := p.cursor.Add(1) - 1
	return healthy[idx%uint64(len(healthy))]
}

// pickWeighted draws a uniform value in [0, totalWeight) and walks the
// subset subtracting weights until the remainder goes negative.
func pickWeighted(_ *ServicePool, healthy []*ServiceInstance) *ServiceInstance {
	totalWeight := 0
	for _, inst := range healthy {
		totalWeight += instanceWeight(inst)
	}

	r := secureRandomInt(totalWeight)
	for _, inst := range healthy {
		r -= instanceWeight(inst)
		if r < 0 {
			return inst
		}
	}

	return healthy[len(healthy)-1]
}

// pickLeastConnections scans for the minimum active connection count,
// ties broken by list order.
func pickLeastConnections(_ *ServicePool, healthy []*ServiceInstance) *ServiceInstance {
	selected := healthy[0]
	minConns := selected.ActiveConnections()

	for _, inst := range healthy[1:] {
		if conns := inst.ActiveConnections(); conns < minConns {
			minConns = conns
			selected = inst
		}
	}

	return selected
}

// pickResponseTime scans for the minimum observed latency, ties broken
// by list order.
func pickResponseTime(_ *ServicePool, healthy []*ServiceInstance) *ServiceInstance {
	selected := healthy[0]
	minLatency := selected.ResponseTimeMs()

	for _, inst := range healthy[1:] {
		if latency := inst.ResponseTimeMs(); latency < minLatency {
			minLatency = latency
			selected = inst
		}
	}

	return selected
}

// pickAdaptive scores every instance and returns the maximum, ties
// broken by list order.
func pickAdaptive(_ *ServicePool, healthy []*ServiceInstance) *ServiceInstance {
	selected := healthy[0]
	best := adaptiveScore(selected)

	for _, inst := range healthy[1:] {
		if score := adaptiveScore(inst); score > best {
			best = score
			selected = inst
		}
	}

	return selected
}

// adaptiveScore computes the composite selection score for one instance.
func adaptiveScore(inst *ServiceInstance) float64 {
	loadScore := 100.0 - float64(inst.ActiveConnections())*10.0
	if loadScore < 0 {
		loadScore = 0
	}

	latencyScore := 100.0 - inst.ResponseTimeMs()/10.0
	if latencyScore < 0 {
		latencyScore = 0
	}

	return adaptiveLoadFactor*loadScore +
		adaptiveLatencyFactor*latencyScore +
		adaptiveWeightFactor*float64(instanceWeight(inst))
}

// instanceWeight guards against non-positive weights slipping in.
func instanceWeight(inst *ServiceInstance) int {
	if inst.Weight <= 0 {
		return 1
	}
	return inst.Weight
}

// secureRandomInt returns a cryptographically secure random int in [0, n).
func secureRandomInt(n int) int {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return int(binary.LittleEndian.Uint64(b[:]) % uint64(n)) //nolint:gosec // bounds checked
}
