package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/config"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

const (
	redisBackend = "redis"

	defaultKeyPrefix = "gateway:cache:"
	pingTimeout      = 5 * time.Second

	// ttlJitterFactor spreads expirations so entries written together
	// do not all expire in the same instant.
	ttlJitterFactor = 0.1
)

// redisCache is a Redis-backed cache for multi-replica deployments.
type redisCache struct {
	client     *redis.Client
	logger     observability.Logger
	keyPrefix  string
	defaultTTL time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

func newRedisCache(cfg *config.CacheConfig, logger observability.Logger) (*redisCache, error) {
	if cfg.Redis == nil {
		return nil, errors.New("redis cache requires a redis configuration")
	}
	if cfg.Redis.Address == "" {
		return nil, errors.New("redis cache requires an address")
	}

	defaultTTL := time.Duration(cfg.TTL)
	if defaultTTL <= 0 {
		defaultTTL = defaultCacheTTL
	}

	keyPrefix := cfg.Redis.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis cache initialized",
		observability.String("address", cfg.Redis.Address),
		observability.String("keyPrefix", keyPrefix),
		observability.Duration("defaultTTL", defaultTTL))

	return &redisCache{
		client:     client,
		logger:     logger,
		keyPrefix:  keyPrefix,
		defaultTTL: defaultTTL,
	}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		RecordMiss(redisBackend)
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	c.hits.Add(1)
	RecordHit(redisBackend)
	return value, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, c.keyPrefix+key, value, applyTTLJitter(ttl)).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (c *redisCache) Stats() CacheStats {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Best effort; the key count covers the whole logical database.
	size, _ := c.client.DBSize(ctx).Result()

	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   size,
	}
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

// applyTTLJitter extends ttl by a random fraction up to
// ttlJitterFactor.
func applyTTLJitter(ttl time.Duration) time.Duration {
	maxJitter := int64(float64(ttl) * ttlJitterFactor)
	if maxJitter <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(maxJitter))
}
