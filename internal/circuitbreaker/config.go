// Package circuitbreaker isolates failing downstream services. Each
// logical service gets its own breaker; once consecutive failures cross
// the threshold the breaker rejects calls outright until a reset timeout
// passes, then admits trial calls to probe recovery.
package circuitbreaker

import (
	"time"
)

// Config holds configuration for a circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before the next
	// call is admitted as a recovery trial.
	ResetTimeout time.Duration

	// OnStateChange is called after every state transition.
	OnStateChange func(serviceName string, from, to State)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// Validate coerces out-of-range values back to defaults.
func (c *Config) Validate() error {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout < time.Millisecond {
		c.ResetTimeout = 60 * time.Second
	}
	return nil
}

// WithFailureThreshold sets the consecutive failure threshold.
func (c *Config) WithFailureThreshold(n int) *Config {
	c.FailureThreshold = n
	return c
}

// WithResetTimeout sets the open-state reset timeout.
func (c *Config) WithResetTimeout(d time.Duration) *Config {
	c.ResetTimeout = d
	return c
}

// WithOnStateChange sets the state change callback.
func (c *Config) WithOnStateChange(fn func(serviceName string, from, to State)) *Config {
	c.OnStateChange = fn
	return c
}
