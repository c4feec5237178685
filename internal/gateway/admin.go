package gateway

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/circuitbreaker"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/pool"
)

// registerAdminRoutes mounts the health and management endpoints on
// the engine. Everything else falls through to the proxy handler.
func (g *Gateway) registerAdminRoutes(engine *gin.Engine) {
	engine.GET("/health", g.handleHealth)
	engine.GET("/ready", g.handleReady)
	engine.GET("/_lb/metrics", g.handleLBMetrics)
	engine.POST("/_lb/manage", g.handleLBManage)
	engine.GET("/_cb/metrics", g.handleCBMetrics)
	engine.POST("/_cb/control", g.handleCBControl)
}

func (g *Gateway) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (g *Gateway) handleReady(c *gin.Context) {
	if !g.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "draining"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// handleLBMetrics reports a snapshot of every pool, sorted by service
// name so output is stable for dashboards and diffing.
func (g *Gateway) handleLBMetrics(c *gin.Context) {
	pools := g.pools.List()

	metrics := make([]pool.PoolMetrics, 0, len(pools))
	for _, p := range pools {
		metrics = append(metrics, p.Metrics())
	}
	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].Service < metrics[j].Service
	})

	c.JSON(http.StatusOK, metrics)
}

// manageRequest is the body for POST /_lb/manage.
type manageRequest struct {
	Action     string            `json:"action"`
	Service    string            `json:"service"`
	URL        string            `json:"url"`
	Weight     int               `json:"weight"`
	Metadata   map[string]string `json:"metadata"`
	InstanceID string            `json:"instanceId"`
}

// handleLBManage adds or removes pool instances at runtime.
func (g *Gateway) handleLBManage(c *gin.Context) {
	var req manageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service is required"})
		return
	}

	switch req.Action {
	case "add":
		if req.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url is required for add"})
			return
		}
		weight := req.Weight
		if weight <= 0 {
			weight = 1
		}
		p := g.pools.GetOrCreate(req.Service)
		id := p.AddInstance(req.URL, weight, req.Metadata)
		g.logger.Info("instance added via management API",
			observability.String("service", req.Service),
			observability.String("instance", id),
			observability.String("url", req.URL))
		c.JSON(http.StatusOK, gin.H{
			"status":     "added",
			"service":    req.Service,
			"instanceId": id,
		})

	case "remove":
		if req.InstanceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "instanceId is required for remove"})
			return
		}
		p := g.pools.GetOrCreate(req.Service)
		if !p.RemoveInstance(req.InstanceID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
			return
		}
		g.logger.Info("instance removed via management API",
			observability.String("service", req.Service),
			observability.String("instance", req.InstanceID))
		c.JSON(http.StatusOK, gin.H{
			"status":     "removed",
			"service":    req.Service,
			"instanceId": req.InstanceID,
		})

	case "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + req.Action})
	}
}

// handleCBMetrics reports the state of every circuit breaker.
func (g *Gateway) handleCBMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, g.breakers.Stats())
}

// controlRequest is the body for POST /_cb/control.
type controlRequest struct {
	Service string `json:"service"`
	Action  string `json:"action"`
}

// handleCBControl forces a breaker into a named state. Meant for
// operators draining a bad deploy or probing recovery by hand.
func (g *Gateway) handleCBControl(c *gin.Context) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service is required"})
		return
	}

	// The action verb "close" targets the "closed" state.
	action := req.Action
	if action == "close" {
		action = "closed"
	}
	state, ok := circuitbreaker.ParseState(action)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + req.Action})
		return
	}

	breaker := g.breakers.GetOrCreate(req.Service)
	breaker.ForceState(state)
	g.logger.Info("circuit breaker state forced",
		observability.String("service", req.Service),
		observability.String("state", state.String()))

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": req.Service,
		"state":   breaker.State().String(),
	})
}
