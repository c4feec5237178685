package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/config"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

const (
	memoryBackend = "memory"

	defaultCacheTTL        = 30 * time.Second
	defaultMaxEntries      = 10000
	defaultCleanupInterval = time.Minute
)

// memoryEntry is one cached value tracked on the LRU list.
type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// memoryCache is an in-memory LRU cache with per-entry TTL. Expired
// entries are dropped lazily on access and swept by a background
// cleanup loop.
type memoryCache struct {
	logger     observability.Logger
	defaultTTL time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	bytes   int64
	hits    uint64
	misses  uint64

	cleanupInterval time.Duration
	stopOnce        sync.Once
	stopCh          chan struct{}
}

func newMemoryCache(cfg *config.CacheConfig, logger observability.Logger) (*memoryCache, error) {
	defaultTTL := time.Duration(cfg.TTL)
	if defaultTTL <= 0 {
		defaultTTL = defaultCacheTTL
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	c := &memoryCache{
		logger:          logger,
		defaultTTL:      defaultTTL,
		maxEntries:      maxEntries,
		entries:         make(map[string]*list.Element),
		lru:             list.New(),
		cleanupInterval: defaultCleanupInterval,
		stopCh:          make(chan struct{}),
	}

	go c.cleanupLoop()

	logger.Info("memory cache initialized",
		observability.Int("maxEntries", maxEntries),
		observability.Duration("defaultTTL", defaultTTL))

	return c, nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		RecordMiss(memoryBackend)
		return nil, ErrCacheMiss
	}

	entry := elem.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElementLocked(elem)
		c.misses++
		RecordMiss(memoryBackend)
		return nil, ErrCacheMiss
	}

	c.lru.MoveToFront(elem)
	c.hits++
	RecordHit(memoryBackend)
	return entry.value, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		c.bytes += int64(len(value)) - int64(len(entry.value))
		entry.value = value
		entry.expiresAt = expiresAt
		c.lru.MoveToFront(elem)
		return nil
	}

	elem := c.lru.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	c.entries[key] = elem
	c.bytes += int64(len(value))

	for len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}

	SetEntries(memoryBackend, len(c.entries))
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElementLocked(elem)
	}
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(elem.Value.(*memoryEntry).expiresAt) {
		c.removeElementLocked(elem)
		return false, nil
	}
	return true, nil
}

func (c *memoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Hits:   c.hits,
		Misses: c.misses,
		Size:   int64(len(c.entries)),
		Bytes:  c.bytes,
	}
}

func (c *memoryCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	return nil
}

// evictOldestLocked removes the least recently used entry. Callers
// must hold c.mu.
func (c *memoryCache) evictOldestLocked() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	c.removeElementLocked(elem)
	RecordEviction(memoryBackend)
}

// removeElementLocked unlinks an entry from the list and the index.
// Callers must hold c.mu.
func (c *memoryCache) removeElementLocked(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	c.lru.Remove(elem)
	delete(c.entries, entry.key)
	c.bytes -= int64(len(entry.value))
	SetEntries(memoryBackend, len(c.entries))
}

// cleanupLoop periodically sweeps expired entries until Close.
func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired drops every entry whose TTL has passed. Expiry order
// is unrelated to LRU order, so the whole list is scanned.
func (c *memoryCache) removeExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *list.Element
	for elem := c.lru.Back(); elem != nil; elem = prev {
		prev = elem.Prev()
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			c.removeElementLocked(elem)
		}
	}
}
