package config

import (
	"fmt"
	"net/url"
	"strings"
)

// knownStrategies are the selection strategy names accepted in config.
var knownStrategies = map[string]bool{
	"round-robin":       true,
	"weighted":          true,
	"least-connections": true,
	"response-time":     true,
	"adaptive":          true,
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, e[i].Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a configuration and returns all errors found.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	if errs := v.Validate(cfg); errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate runs all checks against the configuration.
func (v *Validator) Validate(cfg *Config) ValidationErrors {
	v.errors = v.errors[:0]

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateGateway(&cfg.Gateway)
	v.validateCache(&cfg.Cache)
	v.validateRateLimit(&cfg.RateLimit)
	v.validateServices(cfg.Services)

	return v.errors
}

// addError records a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateGateway(gw *GatewayConfig) {
	if gw.ListenAddress == "" {
		v.addError("gateway.listenAddress", "listen address is required")
	}
	if gw.ShutdownTimeout < 0 {
		v.addError("gateway.shutdownTimeout", "must not be negative")
	}
	if gw.DownstreamTimeout < 0 {
		v.addError("gateway.downstreamTimeout", "must not be negative")
	}
}

func (v *Validator) validateCache(c *CacheConfig) {
	if !c.Enabled {
		return
	}
	switch c.Type {
	case CacheTypeMemory:
	case CacheTypeRedis:
		if c.Redis == nil || c.Redis.Address == "" {
			v.addError("cache.redis.address", "address is required for redis cache")
		}
	default:
		v.addError("cache.type", fmt.Sprintf("unknown cache type %q", c.Type))
	}
	if c.TTL < 0 {
		v.addError("cache.ttl", "must not be negative")
	}
	if c.MaxEntries < 0 {
		v.addError("cache.maxEntries", "must not be negative")
	}
}

func (v *Validator) validateRateLimit(rl *RateLimitConfig) {
	if !rl.Enabled {
		return
	}
	if rl.RequestsPerSecond <= 0 {
		v.addError("rateLimit.requestsPerSecond", "must be positive")
	}
	if rl.Burst <= 0 {
		v.addError("rateLimit.burst", "must be positive")
	}
}

func (v *Validator) validateServices(services []ServiceConfig) {
	names := make(map[string]bool, len(services))
	prefixes := make(map[string]bool, len(services))

	for i := range services {
		svc := &services[i]
		path := fmt.Sprintf("services[%d]", i)

		if svc.Name == "" {
			v.addError(path+".name", "service name is required")
		} else if names[svc.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate service name %q", svc.Name))
		} else {
			names[svc.Name] = true
		}

		if svc.RoutePrefix != "" {
			if !strings.HasPrefix(svc.RoutePrefix, "/") {
				v.addError(path+".routePrefix", "must start with /")
			} else if prefixes[svc.RoutePrefix] {
				v.addError(path+".routePrefix",
					fmt.Sprintf("duplicate route prefix %q", svc.RoutePrefix))
			} else {
				prefixes[svc.RoutePrefix] = true
			}
		}

		if svc.Strategy != "" && !knownStrategies[svc.Strategy] {
			v.addError(path+".strategy", fmt.Sprintf("unknown strategy %q", svc.Strategy))
		}

		v.validateHealthCheck(path+".healthCheck", &svc.HealthCheck)
		v.validateCircuitBreaker(path+".circuitBreaker", &svc.CircuitBreaker)

		for j := range svc.Instances {
			v.validateInstance(fmt.Sprintf("%s.instances[%d]", path, j), &svc.Instances[j])
		}
	}
}

func (v *Validator) validateHealthCheck(path string, hc *HealthCheckConfig) {
	if hc.Interval <= 0 {
		v.addError(path+".interval", "must be positive")
	}
	if hc.Timeout <= 0 {
		v.addError(path+".timeout", "must be positive")
	}
	if !hc.GRPC && !strings.HasPrefix(hc.Path, "/") {
		v.addError(path+".path", "must start with /")
	}
}

func (v *Validator) validateCircuitBreaker(path string, cb *CircuitBreakerConfig) {
	if cb.FailureThreshold < 1 {
		v.addError(path+".failureThreshold", "must be at least 1")
	}
	if cb.ResetTimeout <= 0 {
		v.addError(path+".resetTimeout", "must be positive")
	}
}

func (v *Validator) validateInstance(path string, inst *InstanceConfig) {
	if inst.URL == "" {
		v.addError(path+".url", "url is required")
		return
	}

	parsed, err := url.Parse(inst.URL)
	if err != nil {
		v.addError(path+".url", fmt.Sprintf("invalid url: %v", err))
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		v.addError(path+".url", "scheme must be http or https")
	}
	if parsed.Host == "" {
		v.addError(path+".url", "host is required")
	}

	if inst.Weight < 0 {
		v.addError(path+".weight", "must not be negative")
	}
}
