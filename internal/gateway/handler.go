package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/cache"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/util"
)

// Response headers attached to every routed response.
const (
	HeaderInstance   = "X-Load-Balancer-Instance"
	HeaderStrategy   = "X-Load-Balancer-Strategy"
	HeaderPoolHealth = "X-Service-Pool-Health"
	HeaderBreaker    = "X-Circuit-Breaker-State"
	HeaderService    = "X-Service-Name"
	HeaderCache      = "X-Cache"
)

// serviceKey is the gin context key carrying the resolved service.
const serviceKey = "service"

// maxCacheableBody bounds how large a response body may be and still
// enter the response cache.
const maxCacheableBody = 1 << 20

// cachedResponse is the serialized form of a stored GET response.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// handleProxy is the catch-all entry point: it resolves the target
// service from the request path and runs the routed request.
func (g *Gateway) handleProxy(c *gin.Context) {
	service, ok := g.resolveService(c.Request.URL.Path)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no route for path",
			"path":  c.Request.URL.Path,
		})
		return
	}

	c.Set(serviceKey, service)
	g.serveService(c, service)
}

// serveService runs one routed request: cache lookup, breaker
// admission, instance selection, forward, and accounting.
func (g *Gateway) serveService(c *gin.Context, service string) {
	c.Header(HeaderService, service)

	g.metrics.IncrementActiveRequests(service)
	defer g.metrics.DecrementActiveRequests(service)

	cacheable := g.cacheable(c)
	if cacheable && g.serveFromCache(c, service) {
		return
	}

	breaker := g.breakers.GetOrCreate(service)
	if !breaker.Allow() {
		c.Header(HeaderBreaker, breaker.State().String())
		g.logger.Warn("circuit open, rejecting request",
			observability.String("service", service),
			observability.String("path", c.Request.URL.Path))
		c.JSON(http.StatusServiceUnavailable, g.fallbackPayload(service))
		return
	}

	p := g.pools.GetOrCreate(service)
	inst, err := p.SelectInstance()
	if err != nil {
		c.Header(HeaderBreaker, breaker.State().String())
		g.respondNoInstances(c, service)
		return
	}

	healthy, total := p.Health()
	c.Header(HeaderInstance, inst.ID)
	c.Header(HeaderStrategy, p.Strategy().String())
	c.Header(HeaderPoolHealth, fmt.Sprintf("%d/%d", healthy, total))
	c.Header(HeaderBreaker, breaker.State().String())

	var capture *util.CaptureWriter
	if cacheable {
		c.Header(HeaderCache, "MISS")
		capture = util.NewCaptureWriter(c.Writer, maxCacheableBody)
		c.Writer = capture
	}

	ctx := c.Request.Context()
	if d := time.Duration(g.cfg.Gateway.DownstreamTimeout); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	p.IncrementConnections(inst.ID)
	defer p.DecrementConnections(inst.ID)

	start := time.Now()
	fwdErr := g.forwarder.Forward(ctx, service, inst, c.Writer, c.Request)
	elapsed := time.Since(start)

	p.RecordResponseTime(inst.ID, elapsed)

	if fwdErr != nil {
		breaker.RecordFailure()
		g.logger.Warn("routed request failed",
			observability.String("service", service),
			observability.String("instance", inst.ID),
			observability.Duration("latency", elapsed),
			observability.Error(fwdErr))
		return
	}

	breaker.RecordSuccess()

	if capture != nil {
		g.storeResponse(c, service, capture)
	}
}

// respondNoInstances writes the 503 for an empty or fully unhealthy
// pool. A configured fallback payload wins over the generic error.
func (g *Gateway) respondNoInstances(c *gin.Context, service string) {
	g.logger.Warn("no healthy instances",
		observability.String("service", service),
		observability.String("path", c.Request.URL.Path))

	if payload := g.fallbackFor(service); payload != nil {
		c.JSON(http.StatusServiceUnavailable, payload)
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "no healthy instances",
		"service": service,
	})
}

// cacheable reports whether this request may use the response cache.
func (g *Gateway) cacheable(c *gin.Context) bool {
	return g.cfg.Cache.Enabled && c.Request.Method == http.MethodGet
}

// serveFromCache replays a stored response. Returns false on a miss so
// the caller proceeds to route the request.
func (g *Gateway) serveFromCache(c *gin.Context, service string) bool {
	key := cache.RequestKey(service, c.Request)

	data, err := g.cache.Get(c.Request.Context(), key)
	if err != nil {
		g.metrics.RecordCacheResult(service, "miss")
		return false
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		g.logger.Warn("dropping undecodable cache entry",
			observability.String("service", service),
			observability.Error(err))
		_ = g.cache.Delete(c.Request.Context(), key)
		g.metrics.RecordCacheResult(service, "miss")
		return false
	}

	header := c.Writer.Header()
	for name, values := range cached.Header {
		header[name] = values
	}
	c.Header(HeaderCache, "HIT")
	c.Header(HeaderService, service)
	g.metrics.RecordCacheResult(service, "hit")

	c.Writer.WriteHeader(cached.Status)
	_, _ = c.Writer.Write(cached.Body)
	return true
}

// routingHeaders are per-request routing annotations that must not be
// replayed from the cache.
var routingHeaders = map[string]struct{}{
	HeaderInstance:   {},
	HeaderStrategy:   {},
	HeaderPoolHealth: {},
	HeaderBreaker:    {},
	HeaderService:    {},
	HeaderCache:      {},
}

// storeResponse persists a captured 200 response for later replay.
func (g *Gateway) storeResponse(c *gin.Context, service string, capture *util.CaptureWriter) {
	if capture.Overflowed() || capture.Status() != http.StatusOK {
		return
	}

	header := make(http.Header, len(capture.Header()))
	for name, values := range capture.Header() {
		if _, skip := routingHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		header[name] = append([]string(nil), values...)
	}

	data, err := json.Marshal(cachedResponse{
		Status: http.StatusOK,
		Header: header,
		Body:   append([]byte(nil), capture.Body()...),
	})
	if err != nil {
		return
	}

	key := cache.RequestKey(service, c.Request)
	ttl := time.Duration(g.cfg.Cache.TTL)
	if err := g.cache.Set(c.Request.Context(), key, data, ttl); err != nil &&
		!errors.Is(err, cache.ErrCacheDisabled) {
		g.logger.Debug("failed to store response in cache",
			observability.String("service", service),
			observability.Error(err))
	}
}
