package gateway

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/config"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

func init() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

func TestNewServer_WiresRoutesAndMiddleware(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	g := newTestGateway(t, cfg)

	srv := NewServer(cfg, g, observability.NopLogger())

	require.NotNil(t, srv.Engine())
	assert.False(t, srv.IsRunning())

	// The full chain answers without a running listener.
	w := doRequest(srv.Engine(), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Gateway.ListenAddress = "127.0.0.1:0"
	g := newTestGateway(t, cfg)

	srv := NewServer(cfg, g, observability.NopLogger())

	require.NoError(t, srv.Start())
	assert.True(t, srv.IsRunning())

	err := srv.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.False(t, srv.IsRunning())

	select {
	case err := <-srv.Err():
		t.Fatalf("unexpected serve error: %v", err)
	default:
	}
}

func TestServer_StopWithoutStart(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	g := newTestGateway(t, cfg)
	srv := NewServer(cfg, g, observability.NopLogger())

	require.NoError(t, srv.Stop(context.Background()))
}

func TestServer_ListenFailureReachesErrChannel(t *testing.T) {
	t.Parallel()

	// Occupy a port so the server cannot bind it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	cfg := config.DefaultConfig()
	cfg.Gateway.ListenAddress = listener.Addr().String()
	g := newTestGateway(t, cfg)

	srv := NewServer(cfg, g, observability.NopLogger())
	require.NoError(t, srv.Start())

	select {
	case err := <-srv.Err():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a listen error")
	}
}
