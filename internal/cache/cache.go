package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/config"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

var (
	// ErrCacheMiss is returned when a key is not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheDisabled is returned when cache operations are attempted
	// on a disabled cache.
	ErrCacheDisabled = errors.New("cache is disabled")
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value from the cache. Returns ErrCacheMiss when
	// the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache. A ttl of zero or less applies
	// the backend's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key is present and not expired.
	Exists(ctx context.Context, key string) (bool, error)

	// Stats returns cache statistics.
	Stats() CacheStats

	// Close releases resources held by the cache.
	Close() error
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int64  `json:"size"`
	Bytes  int64  `json:"bytes"`
}

// HitRate returns the cache hit rate as a value between 0 and 1.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// New creates a cache backend from the configuration. A nil or
// disabled configuration yields a no-op cache whose operations return
// ErrCacheDisabled.
func New(cfg *config.CacheConfig, logger observability.Logger) (Cache, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	if cfg == nil || !cfg.Enabled {
		logger.Debug("cache is disabled")
		return &disabledCache{}, nil
	}

	switch cfg.Type {
	case config.CacheTypeMemory, "":
		return newMemoryCache(cfg, logger)
	case config.CacheTypeRedis:
		return newRedisCache(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// disabledCache is a no-op cache used when caching is disabled.
type disabledCache struct{}

func (c *disabledCache) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrCacheDisabled
}

func (c *disabledCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return ErrCacheDisabled
}

func (c *disabledCache) Delete(_ context.Context, _ string) error {
	return ErrCacheDisabled
}

func (c *disabledCache) Exists(_ context.Context, _ string) (bool, error) {
	return false, ErrCacheDisabled
}

func (c *disabledCache) Stats() CacheStats {
	return CacheStats{}
}

func (c *disabledCache) Close() error {
	return nil
}
