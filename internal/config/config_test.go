package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/nevala/sysprobe/internal/config"
	"codeberg.org/nevala/sysprobe/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setArgs replaces os.Args for the duration of the test so Load does not
// trip over the test binary's own flags.
func setArgs(t *testing.T, args ...string) {
	t.Helper()

	saved := os.Args
	os.Args = append([]string{"sysprobe"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sysprobe.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "com.sysprobe.metrics", cfg.ServiceName)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.ServerURL)
	assert.Equal(t, 500*time.Millisecond, cfg.CacheInterval)
	assert.Equal(t, 30*time.Second, cfg.RetryInterval)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.FallbackEnabled)
	assert.False(t, cfg.ForceFallback)
	assert.Equal(t, 2, cfg.Interval)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	setArgs(t)
	t.Setenv("SYSPROBE_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	setArgs(t)
	path := writeConfigFile(t, `
service_name = "com.example.metrics"
server_url = "nats://metrics.internal:4222"
cache_interval = "750ms"
retry_interval = "10s"
fallback = false
interval = 5
log_level = "debug"
`)
	t.Setenv("SYSPROBE_CONFIG", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "com.example.metrics", cfg.ServiceName)
	assert.Equal(t, "nats://metrics.internal:4222", cfg.ServerURL)
	assert.Equal(t, 750*time.Millisecond, cfg.CacheInterval)
	assert.Equal(t, 10*time.Second, cfg.RetryInterval)
	assert.False(t, cfg.FallbackEnabled)
	assert.Equal(t, 5, cfg.Interval)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	setArgs(t)
	t.Setenv("SYSPROBE_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	_, err := config.Load()
	require.Error(t, err)
	assert.Equal(t, errors.ErrReadConfig, errors.CodeOf(err))
}

func TestLoadMalformedFile(t *testing.T) {
	setArgs(t)
	path := writeConfigFile(t, "service_name = [not toml")
	t.Setenv("SYSPROBE_CONFIG", path)

	_, err := config.Load()
	require.Error(t, err)
	assert.Equal(t, errors.ErrReadConfig, errors.CodeOf(err))
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	setArgs(t,
		"--server-url", "nats://10.0.0.7:4222",
		"--cache-interval", "1s",
		"--force-fallback",
	)
	path := writeConfigFile(t, `
server_url = "nats://metrics.internal:4222"
cache_interval = "750ms"
`)
	t.Setenv("SYSPROBE_CONFIG", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "nats://10.0.0.7:4222", cfg.ServerURL)
	assert.Equal(t, time.Second, cfg.CacheInterval)
	assert.True(t, cfg.ForceFallback)
}

func TestLoadRejectsUnknownFlag(t *testing.T) {
	setArgs(t, "--no-such-flag")
	t.Setenv("SYSPROBE_CONFIG", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Equal(t, errors.ErrBindFlags, errors.CodeOf(err))
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	setArgs(t, "--log-level", "chatty")
	t.Setenv("SYSPROBE_CONFIG", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidLogLevel, errors.CodeOf(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		errCode errors.ErrorCode
	}{
		{
			name:    "empty service name",
			mutate:  func(c *config.Config) { c.ServiceName = "" },
			errCode: errors.ErrInvalidConfig,
		},
		{
			name:    "zero cache interval",
			mutate:  func(c *config.Config) { c.CacheInterval = 0 },
			errCode: errors.ErrInvalidInterval,
		},
		{
			name:    "negative retry interval",
			mutate:  func(c *config.Config) { c.RetryInterval = -time.Second },
			errCode: errors.ErrInvalidInterval,
		},
		{
			name:    "zero request timeout",
			mutate:  func(c *config.Config) { c.RequestTimeout = 0 },
			errCode: errors.ErrInvalidInterval,
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *config.Config) { c.Interval = 0 },
			errCode: errors.ErrInvalidInterval,
		},
		{
			name:    "bogus log level",
			mutate:  func(c *config.Config) { c.LogLevel = "chatty" },
			errCode: errors.ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.errCode, errors.CodeOf(err))
		})
	}
}
