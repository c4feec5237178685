package pool

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
)

// StatusFunc is called after an instance changes health status. healthy
// is the new status. Called outside pool locks.
type StatusFunc func(serviceName string, inst *ServiceInstance, healthy bool)

// HealthChecker periodically probes every instance of a pool and flips
// instance health on a single probe result. A passing probe marks the
// instance healthy immediately; a failing one marks it unhealthy
// immediately. Probe latency feeds the response-time strategies.
type HealthChecker struct {
	pool   *ServicePool
	logger observability.Logger
	client *http.Client

	onStatusChange StatusFunc

	grpcMu    sync.Mutex
	grpcConns map[string]*grpc.ClientConn

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func newHealthChecker(p *ServicePool) *HealthChecker {
	return &HealthChecker{
		pool:   p,
		logger: observability.NopLogger(),
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		grpcConns: make(map[string]*grpc.ClientConn),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the background probe loop. The first sweep runs
// immediately so freshly added pools converge without waiting a full
// interval. Subsequent calls are no-ops.
func (hc *HealthChecker) Start(ctx context.Context) {
	hc.startOnce.Do(func() {
		hc.started.Store(true)
		go hc.run(ctx)
	})
}

// Stop terminates the probe loop and waits for it to exit. Safe to call
// on a checker that was never started. Idempotent.
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() {
		close(hc.stopCh)
		if hc.started.Load() {
			<-hc.stoppedCh
		}
		hc.closeGRPCConns()
	})
}

func (hc *HealthChecker) run(ctx context.Context) {
	defer close(hc.stoppedCh)

	interval := hc.pool.config.HealthCheckInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	hc.logger.Info("health checker started",
		observability.String("service", hc.pool.serviceName),
		observability.Duration("interval", interval),
	)

	hc.checkAll(ctx)

	for {
		select {
		case <-ctx.Done():
			hc.logger.Info("health checker context cancelled",
				observability.String("service", hc.pool.serviceName))
			return
		case <-hc.stopCh:
			hc.logger.Info("health checker stopped",
				observability.String("service", hc.pool.serviceName))
			return
		case <-ticker.C:
			hc.checkAll(ctx)
		}
	}
}

// checkAll probes every instance concurrently and waits for the sweep
// to finish before returning.
func (hc *HealthChecker) checkAll(ctx context.Context) {
	instances := hc.pool.Instances()

	var wg sync.WaitGroup
	for _, inst := range instances {
		wg.Add(1)
		go func(inst *ServiceInstance) {
			defer wg.Done()
			hc.checkInstance(ctx, inst)
		}(inst)
	}
	wg.Wait()
}

// CheckNow runs one probe sweep synchronously. Used by tests and by the
// management surface after topology changes.
func (hc *HealthChecker) CheckNow(ctx context.Context) {
	hc.checkAll(ctx)
}

func (hc *HealthChecker) checkInstance(ctx context.Context, inst *ServiceInstance) {
	start := time.Now()

	var healthy bool
	if hc.pool.config.GRPCHealthCheck {
		healthy = hc.probeGRPC(ctx, inst)
	} else {
		healthy = hc.probeHTTP(ctx, inst)
	}

	elapsed := time.Since(start)
	RecordProbe(hc.pool.serviceName, healthy, elapsed)

	if healthy {
		inst.SetResponseTime(elapsed)
	}
	inst.markChecked(time.Now())

	previous := inst.SetHealthy(healthy)
	if previous == healthy {
		return
	}

	healthyCount, total := hc.pool.Health()
	SetInstanceCounts(hc.pool.serviceName, healthyCount, total)

	if healthy {
		hc.logger.Info("instance recovered",
			observability.String("service", hc.pool.serviceName),
			observability.String("instance", inst.ID),
			observability.String("url", inst.URL),
			observability.Duration("latency", elapsed),
		)
	} else {
		hc.logger.Warn("instance degraded",
			observability.String("service", hc.pool.serviceName),
			observability.String("instance", inst.ID),
			observability.String("url", inst.URL),
		)
	}

	if hc.onStatusChange != nil {
		hc.onStatusChange(hc.pool.serviceName, inst, healthy)
	}
}

// probeHTTP issues GET <url><path> and treats any 2xx as healthy.
func (hc *HealthChecker) probeHTTP(ctx context.Context, inst *ServiceInstance) bool {
	probeCtx, cancel := context.WithTimeout(ctx, hc.pool.config.HealthCheckTimeout)
	defer cancel()

	url := strings.TrimRight(inst.URL, "/") + hc.pool.config.HealthCheckPath

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		hc.logger.Debug("health probe request build failed",
			observability.String("service", hc.pool.serviceName),
			observability.String("url", url),
			observability.Error(err),
		)
		return false
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// probeGRPC asks the standard health service and treats SERVING as
// healthy. Connections are pooled per instance address.
func (hc *HealthChecker) probeGRPC(ctx context.Context, inst *ServiceInstance) bool {
	target := strings.TrimPrefix(strings.TrimPrefix(inst.URL, "http://"), "https://")

	conn, err := hc.getGRPCConn(target)
	if err != nil {
		hc.logger.Debug("grpc health conn failed",
			observability.String("service", hc.pool.serviceName),
			observability.String("target", target),
			observability.Error(err),
		)
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, hc.pool.config.HealthCheckTimeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(probeCtx, &healthpb.HealthCheckRequest{
		Service: hc.pool.config.GRPCServiceName,
	})
	if err != nil {
		return false
	}

	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

// getGRPCConn returns a pooled client connection for the target,
// replacing connections that have shut down or failed.
func (hc *HealthChecker) getGRPCConn(target string) (*grpc.ClientConn, error) {
	hc.grpcMu.Lock()
	defer hc.grpcMu.Unlock()

	if conn, ok := hc.grpcConns[target]; ok {
		state := conn.GetState()
		if state != connectivity.Shutdown && state != connectivity.TransientFailure {
			return conn, nil
		}
		_ = conn.Close()
		delete(hc.grpcConns, target)
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	hc.grpcConns[target] = conn
	return conn, nil
}

func (hc *HealthChecker) closeGRPCConns() {
	hc.grpcMu.Lock()
	defer hc.grpcMu.Unlock()
	for target, conn := range hc.grpcConns {
		_ = conn.Close()
		delete(hc.grpcConns, target)
	}
}
