// Package config provides configuration management for the option-chain tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Generator GeneratorConfig   `mapstructure:"generator"`
	Fetch     FetchConfig       `mapstructure:"fetch"`
	Sources   SourcesConfig     `mapstructure:"sources"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Server    ServerConfig      `mapstructure:"server"`
	Log       logging.LogConfig `mapstructure:"log"`
}

// GeneratorConfig holds synthetic chain defaults.
type GeneratorConfig struct {
	DefaultSymbol string  `mapstructure:"default_symbol"`
	DefaultSpot   float64 `mapstructure:"default_spot"`
	ExpiryDays    int     `mapstructure:"expiry_days"`
	Seed          int64   `mapstructure:"seed"` // 0 = time-seeded
}

// FetchConfig holds upstream retry and pacing settings.
type FetchConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	DelayStep         time.Duration `mapstructure:"delay_step"`
	TickerPause       time.Duration `mapstructure:"ticker_pause"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

// SourcesConfig holds upstream endpoints and credentials.
type SourcesConfig struct {
	YahooBaseURL    string `mapstructure:"yahoo_base_url"`
	NSEBaseURL      string `mapstructure:"nse_base_url"`
	KiteAPIKey      string `mapstructure:"kite_api_key"`
	KiteAccessToken string `mapstructure:"kite_access_token"`
}

// KiteEnabled reports whether Kite Connect credentials are present.
func (s SourcesConfig) KiteEnabled() bool {
	return s.KiteAPIKey != "" && s.KiteAccessToken != ""
}

// CacheConfig selects the last-known-good quote cache.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // none, sqlite, redis
	SQLitePath string        `mapstructure:"sqlite_path"`
	RedisURL   string        `mapstructure:"redis_url"`
	MaxAge     time.Duration `mapstructure:"max_age"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/nifty-options"
	}
	return filepath.Join(home, ".config", "nifty-options")
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("generator.default_symbol", "NIFTY")
	v.SetDefault("generator.default_spot", 24300.0)
	v.SetDefault("generator.expiry_days", 7)
	v.SetDefault("generator.seed", 0)

	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.max_attempts", 2)
	v.SetDefault("fetch.initial_delay", time.Second)
	v.SetDefault("fetch.delay_step", time.Second)
	v.SetDefault("fetch.ticker_pause", 500*time.Millisecond)
	v.SetDefault("fetch.requests_per_minute", 60)
	v.SetDefault("fetch.breaker_failures", 5)
	v.SetDefault("fetch.breaker_cooldown", time.Minute)

	v.SetDefault("sources.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("sources.nse_base_url", "https://www.nseindia.com")

	v.SetDefault("cache.backend", CacheNone)
	v.SetDefault("cache.sqlite_path", filepath.Join(configDir, "quotes.db"))
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.max_age", 24*time.Hour)

	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	logDefaults := logging.DefaultLogConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.console", logDefaults.Console)
	v.SetDefault("log.file", logDefaults.File)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "optionchain.log"))
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads config.toml from configDir (optional), a .env file in the working
// directory or configDir (optional), and environment overrides.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(".env", filepath.Join(configDir, ".env")); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, configDir)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads the first .env files that exist; existing environment
// variables win.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// Kite Connect credentials
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Sources.KiteAPIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Sources.KiteAccessToken = v
	}

	// Cache
	if v := os.Getenv("OPTIONCHAIN_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}

	// Server
	if v := os.Getenv("OPTIONCHAIN_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}

	if v := os.Getenv("OPTIONCHAIN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheNone, CacheSQLite, CacheRedis:
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "cache backend %q (must be none, sqlite or redis)", c.Cache.Backend)
	}

	if c.Generator.ExpiryDays < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "generator.expiry_days must be non-negative")
	}
	if c.Fetch.MaxAttempts < 1 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "fetch.max_attempts must be at least 1")
	}
	if c.Fetch.Timeout <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "fetch.timeout must be positive")
	}
	if c.Fetch.RequestsPerMinute < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "fetch.requests_per_minute must be non-negative")
	}

	return nil
}
