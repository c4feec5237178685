package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultLogConfig(),
			wantErr: false,
		},
		{
			name: "console format",
			config: LogConfig{
				Level:  "debug",
				Format: "console",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "stderr output",
			config: LogConfig{
				Level:  "warn",
				Format: "json",
				Output: "stderr",
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: LogConfig{
				Level:  "loud",
				Format: "json",
				Output: "stdout",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tt.config)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, logger)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	t.Parallel()

	logger := NopLogger()

	logger.Debug("debug", String("k", "v"))
	logger.Info("info", Int("count", 1))
	logger.Warn("warn", Bool("flag", true))
	logger.Error("error", Float64("ratio", 0.5))

	child := logger.With(String("component", "test"))
	assert.NotNil(t, child)
	child.Info("from child")

	assert.NoError(t, logger.Sync())
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	logger := NopLogger()

	ctx := context.Background()
	assert.Same(t, logger, logger.WithContext(ctx))

	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithTraceID(ctx, "trace-1")
	ctx = ContextWithSpanID(ctx, "span-1")

	enriched := logger.WithContext(ctx)
	assert.NotNil(t, enriched)
	assert.NotSame(t, logger, enriched)
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.Empty(t, SpanIDFromContext(ctx))

	ctx = ContextWithRequestID(ctx, "req-42")
	ctx = ContextWithTraceID(ctx, "trace-42")
	ctx = ContextWithSpanID(ctx, "span-42")

	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
	assert.Equal(t, "trace-42", TraceIDFromContext(ctx))
	assert.Equal(t, "span-42", SpanIDFromContext(ctx))
}

func TestGlobalLogger(t *testing.T) {
	logger, err := NewLogger(DefaultLogConfig())
	require.NoError(t, err)

	SetGlobalLogger(logger)
	assert.Equal(t, logger, GetGlobalLogger())
	assert.Equal(t, logger, L())

	SetGlobalLogger(nil)
	assert.NotNil(t, GetGlobalLogger(), "falls back to a default logger")
}

func TestZapLoggerUnwrap(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	assert.NotNil(t, ZapLogger(logger))

	// Foreign Logger implementations unwrap to a nop zap logger.
	assert.NotNil(t, ZapLogger(nil))
}
