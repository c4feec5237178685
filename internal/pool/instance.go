// Package pool provides per-service instance pools with pluggable
// selection strategies and background health checking.
package pool

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ServiceInstance represents one backend endpoint for a logical service.
// Identity fields are immutable after registration; live state is held in
// atomics so the request path can read it without locks.
type ServiceInstance struct {
	// ID is an opaque unique identifier generated at registration.
	ID string

	// URL is the instance base address, e.g. "http://10.0.0.3:9001".
	URL string

	// Weight influences weighted and adaptive selection. Always >= 1.
	Weight int

	// Metadata carries version/region/capability tags. Opaque to routing.
	Metadata map[string]string

	healthy           atomic.Bool
	responseTimeUs    atomic.Int64
	activeConnections atomic.Int64
	lastHealthCheckAt atomic.Int64
}

// NewInstance creates an instance with a generated id. Instances start
// healthy so they are eligible for selection until the first probe says
// otherwise.
func NewInstance(url string, weight int, metadata map[string]string) *ServiceInstance {
	if weight <= 0 {
		weight = 1
	}
	inst := &ServiceInstance{
		ID:       uuid.New().String(),
		URL:      url,
		Weight:   weight,
		Metadata: metadata,
	}
	inst.healthy.Store(true)
	return inst
}

// Healthy reports whether the instance passed its last health probe.
func (si *ServiceInstance) Healthy() bool {
	return si.healthy.Load()
}

// SetHealthy sets the health flag and returns the previous value.
func (si *ServiceInstance) SetHealthy(healthy bool) bool {
	return si.healthy.Swap(healthy)
}

// ResponseTimeMs returns the last observed latency in milliseconds.
func (si *ServiceInstance) ResponseTimeMs() float64 {
	return float64(si.responseTimeUs.Load()) / 1000.0
}

// SetResponseTime records an observed latency.
func (si *ServiceInstance) SetResponseTime(d time.Duration) {
	si.responseTimeUs.Store(d.Microseconds())
}

// ActiveConnections returns the number of requests currently routed to
// this instance.
func (si *ServiceInstance) ActiveConnections() int64 {
	return si.activeConnections.Load()
}

// IncrementConnections records a request being routed to this instance.
func (si *ServiceInstance) IncrementConnections() {
	si.activeConnections.Add(1)
}

// DecrementConnections records a routed request finishing. The counter
// floors at zero: a decrement for an already-zero counter is a no-op so
// the invariant activeConnections >= 0 holds even for orphaned releases.
func (si *ServiceInstance) DecrementConnections() {
	for {
		current := si.activeConnections.Load()
		if current <= 0 {
			return
		}
		if si.activeConnections.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// LastHealthCheckAt returns the time of the last completed probe, or the
// zero time if the instance has not been probed yet.
func (si *ServiceInstance) LastHealthCheckAt() time.Time {
	nanos := si.lastHealthCheckAt.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// markChecked records the completion time of a probe.
func (si *ServiceInstance) markChecked(at time.Time) {
	si.lastHealthCheckAt.Store(at.UnixNano())
}

// InstanceMetrics is the JSON snapshot of one instance.
type InstanceMetrics struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Healthy           bool              `json:"healthy"`
	ResponseTimeMs    float64           `json:"responseTimeMs"`
	ActiveConnections int64             `json:"activeConnections"`
	Weight            int               `json:"weight"`
	LastHealthCheckAt time.Time         `json:"lastHealthCheckAt"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Snapshot returns a point-in-time copy of the instance state.
func (si *ServiceInstance) Snapshot() InstanceMetrics {
	return InstanceMetrics{
		ID:                si.ID,
		URL:               si.URL,
		Healthy:           si.Healthy(),
		ResponseTimeMs:    si.ResponseTimeMs(),
		ActiveConnections: si.ActiveConnections(),
		Weight:            si.Weight,
		LastHealthCheckAt: si.LastHealthCheckAt(),
		Metadata:          si.Metadata,
	}
}
