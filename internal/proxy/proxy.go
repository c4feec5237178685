// Package proxy forwards requests to selected service instances over a
// shared pooled transport and classifies the outcome for the circuit
// breaker layer.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/observability"
	"github.com/Ananya6Daitkar/GAMIFYX-FULL-sub004/internal/pool"
)

// ErrDownstreamFailure marks outcomes that must count as circuit breaker
// failures: transport errors, timeouts, and 5xx responses. A 4xx from
// the backend is the client's problem and is not wrapped.
var ErrDownstreamFailure = errors.New("downstream request failed")

// hopHeaders are headers that should not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder performs the actual downstream call for one proxied request.
type Forwarder struct {
	client *http.Client
	logger observability.Logger
}

// ForwarderOption is a functional option for configuring the forwarder.
type ForwarderOption func(*Forwarder)

// WithForwarderLogger sets the logger.
func WithForwarderLogger(logger observability.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// WithTransport overrides the downstream transport.
func WithTransport(transport http.RoundTripper) ForwarderOption {
	return func(f *Forwarder) {
		f.client.Transport = transport
	}
}

// NewForwarder creates a forwarder over a pooled transport.
func NewForwarder(poolConfig PoolConfig, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		client: &http.Client{
			Transport: NewTransport(poolConfig),
			// Timeouts come from the request context.
			Timeout: 0,
		},
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Forward sends the request to the instance and relays the response. The
// backend's response is always relayed as-is, including non-2xx bodies;
// the returned error only classifies the outcome for the breaker. When
// the transport itself fails nothing has been relayed, so a 502 (or 504
// on timeout) JSON body is written here.
func (f *Forwarder) Forward(ctx context.Context, serviceName string, inst *pool.ServiceInstance, w http.ResponseWriter, r *http.Request) error {
	outReq, err := f.buildRequest(ctx, inst, r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadGateway, serviceName, "invalid downstream request")
		return fmt.Errorf("%w: %w", ErrDownstreamFailure, err)
	}

	resp, err := f.client.Do(outReq)
	if err != nil {
		status := http.StatusBadGateway
		reason := "downstream unreachable"
		if isTimeout(err) {
			status = http.StatusGatewayTimeout
			reason = "downstream timed out"
		}

		f.logger.Warn("downstream call failed",
			observability.String("service", serviceName),
			observability.String("instance", inst.ID),
			observability.String("url", inst.URL),
			observability.Error(err),
		)

		writeErrorResponse(w, status, serviceName, reason)
		return fmt.Errorf("%w: %w", ErrDownstreamFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	copyHeaders(w.Header(), resp.Header)
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are gone; nothing more can be written.
		return fmt.Errorf("%w: copying response body: %w", ErrDownstreamFailure, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: upstream status %d", ErrDownstreamFailure, resp.StatusCode)
	}

	return nil
}

// buildRequest creates the outgoing request targeting the instance,
// preserving method, path, query, and body.
func (f *Forwarder) buildRequest(ctx context.Context, inst *pool.ServiceInstance, r *http.Request) (*http.Request, error) {
	target := strings.TrimRight(inst.URL, "/") + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	outReq, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}
	outReq.ContentLength = r.ContentLength

	copyHeaders(outReq.Header, r.Header)
	for _, h := range hopHeaders {
		outReq.Header.Del(h)
	}

	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if prior := r.Header.Get("X-Forwarded-For"); prior != "" {
			clientIP = prior + ", " + clientIP
		}
		outReq.Header.Set("X-Forwarded-For", clientIP)
	}
	if r.TLS != nil {
		outReq.Header.Set("X-Forwarded-Proto", "https")
	} else {
		outReq.Header.Set("X-Forwarded-Proto", "http")
	}
	outReq.Header.Set("X-Forwarded-Host", r.Host)

	observability.InjectTraceContext(ctx, outReq)

	return outReq, nil
}

// CloseIdleConnections releases pooled downstream connections.
func (f *Forwarder) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func writeErrorResponse(w http.ResponseWriter, status int, serviceName, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":%q,"service":%q}`, reason, serviceName)
}
