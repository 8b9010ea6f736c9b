package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nifty-options/internal/errors"
)

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "NIFTY", cfg.Generator.DefaultSymbol)
	assert.Equal(t, 24300.0, cfg.Generator.DefaultSpot)
	assert.Equal(t, 7, cfg.Generator.ExpiryDays)
	assert.Equal(t, 2, cfg.Fetch.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Fetch.InitialDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.TickerPause)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.Equal(t, filepath.Join(dir, "quotes.db"), cfg.Cache.SQLitePath)
	assert.False(t, cfg.Sources.KiteEnabled())
}

func TestLoadReadsTOMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	toml := `
[generator]
default_symbol = "BANKNIFTY"
expiry_days = 14
seed = 42

[fetch]
timeout = "3s"
max_attempts = 3

[cache]
backend = "sqlite"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0600))
	t.Setenv("KITE_API_KEY", "key")
	t.Setenv("KITE_ACCESS_TOKEN", "token")
	t.Setenv("OPTIONCHAIN_LISTEN", ":9090")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "BANKNIFTY", cfg.Generator.DefaultSymbol)
	assert.Equal(t, 14, cfg.Generator.ExpiryDays)
	assert.Equal(t, int64(42), cfg.Generator.Seed)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, CacheSQLite, cfg.Cache.Backend)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.True(t, cfg.Sources.KiteEnabled())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPTIONCHAIN_LOG_LEVEL=debug\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("OPTIONCHAIN_LOG_LEVEL") })

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = "memcached"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)

	cfg = Default()
	cfg.Fetch.MaxAttempts = 0
	assert.ErrorIs(t, cfg.Validate(), apperrors.ErrConfigInvalid)
}
