// Package cache provides response caching for the gateway.
//
// Two backends are supported: an in-memory LRU cache bounded by entry
// count, and a Redis-backed distributed cache for multi-replica
// deployments. Both store opaque byte values under string keys with a
// per-entry TTL and expose hit/miss statistics.
//
// # Example Usage
//
//	cfg := &config.CacheConfig{
//	    Enabled:    true,
//	    Type:       config.CacheTypeMemory,
//	    TTL:        config.Duration(30 * time.Second),
//	    MaxEntries: 10000,
//	}
//
//	c, err := cache.New(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
package cache
