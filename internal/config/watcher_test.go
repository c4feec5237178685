package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watcherConfigV1 = `
gateway:
  listenAddress: ":8080"
services:
  - name: echo
    instances:
      - url: http://localhost:9100
`

const watcherConfigV2 = `
gateway:
  listenAddress: ":8081"
services:
  - name: echo
    instances:
      - url: http://localhost:9100
`

func writeWatcherConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWatcherStartAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	writeWatcherConfig(t, path, watcherConfigV1)

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path,
		func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		},
		WithDebounceDelay(20*time.Millisecond),
	)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	require.NotNil(t, w.LastConfig())
	assert.Equal(t, ":8080", w.LastConfig().Gateway.ListenAddress)

	writeWatcherConfig(t, path, watcherConfigV2)

	select {
	case cfg := <-reloaded:
		assert.Equal(t, ":8081", cfg.Gateway.ListenAddress)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}

	assert.Equal(t, ":8081", w.LastConfig().Gateway.ListenAddress)
}

func TestWatcherInvalidReloadKeepsLastConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	writeWatcherConfig(t, path, watcherConfigV1)

	errCh := make(chan error, 1)
	w, err := NewWatcher(path, nil,
		WithDebounceDelay(20*time.Millisecond),
		WithErrorCallback(func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}),
	)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	// Service without a name fails validation.
	writeWatcherConfig(t, path, "services:\n  - routePrefix: /api/broken\n")

	select {
	case reloadErr := <-errCh:
		assert.Error(t, reloadErr)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}

	assert.Equal(t, ":8080", w.LastConfig().Gateway.ListenAddress)
}

func TestWatcherStartFailsOnMissingFile(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	assert.Error(t, w.Start(context.Background()))
}

func TestWatcherForceReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	writeWatcherConfig(t, path, watcherConfigV1)

	var got *Config
	w, err := NewWatcher(path, func(cfg *Config) { got = cfg })
	require.NoError(t, err)

	writeWatcherConfig(t, path, watcherConfigV2)
	require.NoError(t, w.ForceReload())

	require.NotNil(t, got)
	assert.Equal(t, ":8081", got.Gateway.ListenAddress)
}

func TestWatcherStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	writeWatcherConfig(t, path, watcherConfigV1)

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "second stop is a no-op")
}
