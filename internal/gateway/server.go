package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/config"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

// ginModeOnce ensures gin's global mode is set exactly once even when
// multiple servers are created, as happens in tests.
var ginModeOnce sync.Once

// Server is the HTTP front of the gateway: the middleware chain, the
// management endpoints, and the catch-all proxy route.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	gw         *Gateway
	logger     observability.Logger
	cfg        *config.GatewayConfig

	mu      sync.Mutex
	running bool
	errCh   chan error
}

// NewServer builds the HTTP server around a gateway.
func NewServer(cfg *config.Config, gw *Gateway, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.Use(
		Recovery(logger),
		RequestID(),
		LoggingWithConfig(LoggingConfig{
			Logger:    logger,
			SkipPaths: []string{"/health", "/ready"},
		}),
		Tracing(),
		Metrics(gw.Metrics()),
		RateLimit(gw.limiter, gw.Metrics()),
	)

	gw.registerAdminRoutes(engine)
	engine.NoRoute(gw.handleProxy)

	return &Server{
		engine: engine,
		gw:     gw,
		logger: logger,
		cfg:    &cfg.Gateway,
		errCh:  make(chan error, 1),
	}
}

// Start begins serving in a background goroutine. A listen failure is
// delivered on Err.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server already running")
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.engine,
		ReadTimeout:       time.Duration(s.cfg.ReadTimeout),
		ReadHeaderTimeout: time.Duration(s.cfg.ReadHeaderTimeout),
		WriteTimeout:      time.Duration(s.cfg.WriteTimeout),
		IdleTimeout:       time.Duration(s.cfg.IdleTimeout),
	}
	s.running = true

	go func() {
		s.logger.Info("gateway server listening",
			observability.String("address", s.cfg.ListenAddress))
		if err := s.httpServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()

	return nil
}

// Err delivers a fatal serve error, if one occurs.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Stop gracefully shuts the server down, waiting for in-flight
// requests up to the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	s.logger.Info("stopping gateway server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Engine exposes the underlying router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
