// Package config defines the gateway configuration model and loading.
package config

import "time"

// Default values applied when the configuration omits a setting.
const (
	// DefaultListenAddress is the default gateway listen address.
	DefaultListenAddress = ":8080"

	// DefaultMetricsPort is the default metrics server port.
	DefaultMetricsPort = 9090

	// DefaultMetricsPath is the default metrics endpoint path.
	DefaultMetricsPath = "/metrics"

	// DefaultHealthCheckPath is the probe path used when a service does
	// not configure one.
	DefaultHealthCheckPath = "/health"

	// DefaultHealthCheckInterval is the default probe interval.
	DefaultHealthCheckInterval = 30 * time.Second

	// DefaultHealthCheckTimeout is the default probe timeout.
	DefaultHealthCheckTimeout = 5 * time.Second

	// DefaultFailureThreshold is the default number of consecutive
	// failures that opens a circuit.
	DefaultFailureThreshold = 5

	// DefaultResetTimeout is the default cooldown before an open circuit
	// admits a trial call.
	DefaultResetTimeout = 60 * time.Second

	// DefaultStrategy is the selection strategy used when a service does
	// not configure one.
	DefaultStrategy = "adaptive"

	// DefaultInstanceWeight is the weight assigned to instances that do
	// not configure one.
	DefaultInstanceWeight = 1
)

// Config is the root gateway configuration.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway" json:"gateway"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	RateLimit RateLimitConfig `yaml:"rateLimit" json:"rateLimit"`
	Services  []ServiceConfig `yaml:"services" json:"services"`
}

// GatewayConfig configures the main HTTP listener.
type GatewayConfig struct {
	ListenAddress     string   `yaml:"listenAddress" json:"listenAddress"`
	ReadTimeout       Duration `yaml:"readTimeout" json:"readTimeout"`
	ReadHeaderTimeout Duration `yaml:"readHeaderTimeout" json:"readHeaderTimeout"`
	WriteTimeout      Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout       Duration `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownTimeout   Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`

	// DownstreamTimeout bounds each proxied backend call. Zero means the
	// client's context alone bounds the call.
	DownstreamTimeout Duration `yaml:"downstreamTimeout" json:"downstreamTimeout"`
}

// MetricsConfig configures the separate metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}

// Cache backend types.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled    bool              `yaml:"enabled" json:"enabled"`
	Type       string            `yaml:"type" json:"type"`
	TTL        Duration          `yaml:"ttl" json:"ttl"`
	MaxEntries int               `yaml:"maxEntries" json:"maxEntries"`
	Redis      *RedisCacheConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisCacheConfig configures the Redis cache backend.
type RedisCacheConfig struct {
	Address   string `yaml:"address" json:"address"`
	Password  string `yaml:"password,omitempty" json:"password,omitempty"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"keyPrefix" json:"keyPrefix"`
	PoolSize  int    `yaml:"poolSize" json:"poolSize"`
}

// RateLimitConfig configures client rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int  `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int  `yaml:"burst" json:"burst"`
	PerClient         bool `yaml:"perClient" json:"perClient"`
}

// ServiceConfig declares one logical backend service.
type ServiceConfig struct {
	Name           string               `yaml:"name" json:"name"`
	RoutePrefix    string               `yaml:"routePrefix" json:"routePrefix"`
	Strategy       string               `yaml:"strategy" json:"strategy"`
	HealthCheck    HealthCheckConfig    `yaml:"healthCheck" json:"healthCheck"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
	Fallback       map[string]any       `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	Instances      []InstanceConfig     `yaml:"instances" json:"instances"`
}

// HealthCheckConfig configures the background probe loop for one service.
type HealthCheckConfig struct {
	Path     string   `yaml:"path" json:"path"`
	Interval Duration `yaml:"interval" json:"interval"`
	Timeout  Duration `yaml:"timeout" json:"timeout"`

	// GRPC switches the probe to the standard gRPC health protocol.
	GRPC bool `yaml:"grpc" json:"grpc"`

	// GRPCServiceName is the service name sent in gRPC health checks.
	// Empty checks overall server health.
	GRPCServiceName string `yaml:"grpcServiceName,omitempty" json:"grpcServiceName,omitempty"`
}

// CircuitBreakerConfig configures the per-service circuit breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int      `yaml:"failureThreshold" json:"failureThreshold"`
	ResetTimeout     Duration `yaml:"resetTimeout" json:"resetTimeout"`
}

// InstanceConfig declares one initial backend instance.
type InstanceConfig struct {
	URL      string            `yaml:"url" json:"url"`
	Weight   int               `yaml:"weight" json:"weight"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// DefaultConfig returns a configuration with defaults applied and no
// services declared.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills omitted settings with their default values.
func (c *Config) ApplyDefaults() {
	if c.Gateway.ListenAddress == "" {
		c.Gateway.ListenAddress = DefaultListenAddress
	}
	if c.Gateway.ReadTimeout == 0 {
		c.Gateway.ReadTimeout = Duration(30 * time.Second)
	}
	if c.Gateway.ReadHeaderTimeout == 0 {
		c.Gateway.ReadHeaderTimeout = Duration(10 * time.Second)
	}
	if c.Gateway.WriteTimeout == 0 {
		c.Gateway.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Gateway.IdleTimeout == 0 {
		c.Gateway.IdleTimeout = Duration(120 * time.Second)
	}
	if c.Gateway.ShutdownTimeout == 0 {
		c.Gateway.ShutdownTimeout = Duration(30 * time.Second)
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 1.0
	}

	if c.Cache.Type == "" {
		c.Cache.Type = CacheTypeMemory
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = Duration(30 * time.Second)
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 10000
	}

	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 100
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = c.RateLimit.RequestsPerSecond
	}

	for i := range c.Services {
		c.Services[i].applyDefaults()
	}
}

// applyDefaults fills omitted per-service settings.
func (s *ServiceConfig) applyDefaults() {
	if s.Strategy == "" {
		s.Strategy = DefaultStrategy
	}
	if s.RoutePrefix == "" && s.Name != "" {
		s.RoutePrefix = "/api/" + s.Name
	}
	if s.HealthCheck.Path == "" {
		s.HealthCheck.Path = DefaultHealthCheckPath
	}
	if s.HealthCheck.Interval == 0 {
		s.HealthCheck.Interval = Duration(DefaultHealthCheckInterval)
	}
	if s.HealthCheck.Timeout == 0 {
		s.HealthCheck.Timeout = Duration(DefaultHealthCheckTimeout)
	}
	if s.CircuitBreaker.FailureThreshold == 0 {
		s.CircuitBreaker.FailureThreshold = DefaultFailureThreshold
	}
	if s.CircuitBreaker.ResetTimeout == 0 {
		s.CircuitBreaker.ResetTimeout = Duration(DefaultResetTimeout)
	}
	for j := range s.Instances {
		if s.Instances[j].Weight == 0 {
			s.Instances[j].Weight = DefaultInstanceWeight
		}
	}
}
