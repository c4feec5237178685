// Package ratelimit provides client request rate limiting built on
// token buckets from golang.org/x/time/rate. The limiter runs either
// as a single shared bucket or as one bucket per client, with idle
// client buckets dropped by a background cleanup loop.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/config"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

const (
	// DefaultClientTTL bounds how long an idle per-client bucket is
	// kept before cleanup reclaims it.
	DefaultClientTTL = 10 * time.Minute

	minCleanupInterval = 10 * time.Second
	maxCleanupInterval = time.Minute
)

// clientEntry pairs a token bucket with its last access time so idle
// clients can be reclaimed.
type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter enforces a requests-per-second budget, either shared across
// all clients or tracked per client identifier.
type Limiter struct {
	global    *rate.Limiter
	perClient bool
	rps       int
	burst     int
	clientTTL time.Duration
	logger    observability.Logger

	mu      sync.Mutex
	clients map[string]*clientEntry
	stopped bool

	stopCh chan struct{}
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the limiter logger.
func WithLogger(logger observability.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithClientTTL overrides the idle TTL for per-client buckets.
func WithClientTTL(ttl time.Duration) Option {
	return func(l *Limiter) {
		if ttl > 0 {
			l.clientTTL = ttl
		}
	}
}

// New creates a limiter allowing rps requests per second with the
// given burst. When perClient is set, each client identifier gets its
// own bucket and a cleanup goroutine reclaims idle entries until Stop.
func New(rps, burst int, perClient bool, opts ...Option) *Limiter {
	if rps <= 0 {
		rps = 100
	}
	if burst <= 0 {
		burst = rps
	}

	l := &Limiter{
		global:    rate.NewLimiter(rate.Limit(rps), burst),
		perClient: perClient,
		rps:       rps,
		burst:     burst,
		clientTTL: DefaultClientTTL,
		logger:    observability.NopLogger(),
		clients:   make(map[string]*clientEntry),
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	if perClient {
		go l.cleanupLoop()
	}

	return l
}

// FromConfig builds a limiter from gateway configuration. Returns nil
// when rate limiting is disabled; callers treat a nil limiter as
// unlimited.
func FromConfig(cfg *config.RateLimitConfig, logger observability.Logger) *Limiter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return New(cfg.RequestsPerSecond, cfg.Burst, cfg.PerClient, WithLogger(logger))
}

// Allow reports whether the client may proceed right now.
func (l *Limiter) Allow(clientID string) bool {
	if l.perClient {
		return l.allowPerClient(clientID)
	}
	return l.global.Allow()
}

// allowPerClient consumes from the client's own bucket, creating it on
// first sight. Existence check and lastAccess update share one
// critical section so cleanup cannot race a live client away.
func (l *Limiter) allowPerClient(clientID string) bool {
	l.mu.Lock()
	entry, ok := l.clients[clientID]
	if !ok {
		entry = &clientEntry{
			limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst),
		}
		l.clients[clientID] = entry
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	l.mu.Unlock()

	// rate.Limiter is safe without our lock.
	return limiter.Allow()
}

// CleanupOldClients drops per-client buckets idle longer than maxAge.
func (l *Limiter) CleanupOldClients(maxAge time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for clientID, entry := range l.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(l.clients, clientID)
			removed++
		}
	}

	if removed > 0 {
		l.logger.Debug("reclaimed idle rate limiter buckets",
			observability.Int("removed", removed),
			observability.Int("remaining", len(l.clients)))
	}
}

// ClientCount returns the number of tracked per-client buckets.
func (l *Limiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.stopped {
		l.stopped = true
		close(l.stopCh)
	}
}

func (l *Limiter) cleanupLoop() {
	interval := l.clientTTL / 2
	if interval > maxCleanupInterval {
		interval = maxCleanupInterval
	}
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.CleanupOldClients(l.clientTTL)
		case <-l.stopCh:
			return
		}
	}
}
