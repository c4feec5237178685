package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and calls pass through.
	StateClosed State = iota

	// StateOpen indicates the circuit is open and calls are rejected
	// without touching the downstream.
	StateOpen

	// StateHalfOpen indicates the circuit is admitting trial calls to
	// probe downstream recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ParseState resolves the wire name of a state. The second return is
// false for unknown names.
func ParseState(name string) (State, bool) {
	switch name {
	case "closed":
		return StateClosed, true
	case "open":
		return StateOpen, true
	case "half-open":
		return StateHalfOpen, true
	default:
		return StateClosed, false
	}
}

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker tracks consecutive failures for one service and decides
// whether calls may be attempted at all. The open->half-open transition
// is lazy: it happens on the first call attempted after the reset
// timeout, never on a timer.
type CircuitBreaker struct {
	serviceName string
	config      *Config
	logger      *zap.Logger

	mu    sync.Mutex
	state State

	// failureCount is consecutive failures; any success zeroes it.
	failureCount int

	// Lifetime totals over attempted calls. Rejections are excluded.
	requestCount int
	successCount int

	lastFailureAt   time.Time
	lastStateChange time.Time
}

// NewCircuitBreaker creates a circuit breaker for the named service.
func NewCircuitBreaker(serviceName string, config *Config, logger *zap.Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	_ = config.Validate()

	if logger == nil {
		logger = zap.NewNop()
	}

	cb := &CircuitBreaker{
		serviceName:     serviceName,
		config:          config,
		logger:          logger,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
	RecordState(serviceName, StateClosed)
	return cb
}

// Execute runs op under circuit breaker protection. When the circuit is
// open and the reset timeout has not elapsed, op is never invoked and
// ErrCircuitOpen is returned. Otherwise op runs outside the breaker's
// lock and its error is returned unchanged; the breaker only records the
// outcome, it never swallows or wraps the downstream error.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := op(ctx)

	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}

	return err
}

// Allow reports whether a call may be attempted now, performing the lazy
// open->half-open transition when the reset timeout has elapsed.
// Rejections do not advance lastFailureAt, so the open window is not
// extended by traffic hitting a tripped breaker.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	var allowed bool
	switch cb.state {
	case StateClosed, StateHalfOpen:
		allowed = true

	case StateOpen:
		if time.Since(cb.lastFailureAt) >= cb.config.ResetTimeout {
			cb.transitionTo(StateHalfOpen)
			allowed = true
		}
	}

	if allowed {
		cb.requestCount++
	}
	RecordRequest(cb.serviceName, allowed)

	return allowed
}

// RecordSuccess records a successful attempted call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successCount++
	cb.failureCount = 0
	RecordSuccess(cb.serviceName)

	if cb.state == StateHalfOpen {
		cb.transitionTo(StateClosed)
	}
	// A success landing in open state (a slow trial finishing after a
	// concurrent trial already re-opened the circuit) counts but does
	// not transition.
}

// RecordFailure records a failed attempted call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureAt = time.Now()
	RecordFailure(cb.serviceName)

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		cb.transitionTo(StateOpen)
	}
}

// ForceState overrides the breaker state. Forcing closed resets the
// consecutive failure count; forcing open stamps lastFailureAt so the
// reset timeout starts from now; forcing half-open arms a trial.
func (cb *CircuitBreaker) ForceState(state State) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch state {
	case StateClosed:
		cb.failureCount = 0
	case StateOpen:
		cb.lastFailureAt = time.Now()
	}

	if cb.state != state {
		cb.transitionTo(state)
	}

	cb.logger.Info("circuit breaker state forced",
		zap.String("service", cb.serviceName),
		zap.String("state", state.String()),
	)
}

// transitionTo moves to a new state. Callers hold cb.mu.
func (cb *CircuitBreaker) transitionTo(newState State) {
	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = time.Now()

	if newState == StateClosed {
		cb.failureCount = 0
	}

	RecordStateChange(cb.serviceName, oldState, newState)

	cb.logger.Info("circuit breaker state changed",
		zap.String("service", cb.serviceName),
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
	)

	if cb.config.OnStateChange != nil {
		go cb.config.OnStateChange(cb.serviceName, oldState, newState)
	}
}

// State returns the current state without triggering transitions.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ServiceName returns the service this breaker protects.
func (cb *CircuitBreaker) ServiceName() string {
	return cb.serviceName
}

// Stats is the JSON snapshot of one breaker.
type Stats struct {
	Service       string    `json:"service"`
	State         string    `json:"state"`
	FailureCount  int       `json:"failureCount"`
	SuccessCount  int       `json:"successCount"`
	RequestCount  int       `json:"requestCount"`
	FailureRate   float64   `json:"failureRate"`
	LastFailureAt time.Time `json:"lastFailureAt"`
}

// Stats returns the current counters. FailureRate is the lifetime share
// of attempted calls that failed, zero before any call is attempted.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	var rate float64
	if cb.requestCount > 0 {
		rate = float64(cb.requestCount-cb.successCount) / float64(cb.requestCount)
	}

	return Stats{
		Service:       cb.serviceName,
		State:         cb.state.String(),
		FailureCount:  cb.failureCount,
		SuccessCount:  cb.successCount,
		RequestCount:  cb.requestCount,
		FailureRate:   rate,
		LastFailureAt: cb.lastFailureAt,
	}
}
