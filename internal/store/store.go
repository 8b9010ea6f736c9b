// Package store provides the last-known-good quote cache.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nifty-options/internal/config"
	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
)

// QuoteCache persists the most recent successful upstream quote per key.
// Only upstream price snapshots are stored; generated chains never are.
type QuoteCache interface {
	// Put stores snap under key, replacing any previous entry.
	Put(ctx context.Context, key string, snap *models.PriceSnapshot) error
	// Get returns the entry for key if it is no older than maxAge.
	// A zero maxAge accepts any age. Missing or stale entries return ErrNoData.
	Get(ctx context.Context, key string, maxAge time.Duration) (*models.PriceSnapshot, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// New opens the cache selected by cfg. The "none" backend returns a nil
// cache and no error.
func New(ctx context.Context, cfg config.CacheConfig) (QuoteCache, error) {
	switch cfg.Backend {
	case config.CacheNone, "":
		return nil, nil
	case config.CacheSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		return NewSQLiteQuoteCache(cfg.SQLitePath)
	case config.CacheRedis:
		return NewRedisQuoteCache(ctx, cfg.RedisURL)
	default:
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "unknown cache backend %q", cfg.Backend)
	}
}

// Key normalizes a cache key.
func Key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func isFresh(stored, now time.Time, maxAge time.Duration) bool {
	return maxAge <= 0 || now.Sub(stored) <= maxAge
}
