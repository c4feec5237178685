package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HitsTotal counts cache hits per backend.
	HitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"},
	)

	// MissesTotal counts cache misses per backend.
	MissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// Entries shows the current number of cached entries per backend.
	Entries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"backend"},
	)

	// EvictionsTotal counts entries evicted to honor the size bound.
	EvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"backend"},
	)
)

// RecordHit records a cache hit.
func RecordHit(backend string) {
	HitsTotal.WithLabelValues(backend).Inc()
}

// RecordMiss records a cache miss.
func RecordMiss(backend string) {
	MissesTotal.WithLabelValues(backend).Inc()
}

// SetEntries records the current entry count.
func SetEntries(backend string, n int) {
	Entries.WithLabelValues(backend).Set(float64(n))
}

// RecordEviction records a size-bound eviction.
func RecordEviction(backend string) {
	EvictionsTotal.WithLabelValues(backend).Inc()
}
