package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-options/internal/config"
	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
)

func newTestSQLite(t *testing.T) *SQLiteQuoteCache {
	t.Helper()
	cache, err := NewSQLiteQuoteCache(filepath.Join(t.TempDir(), "quotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func sampleSnapshot() *models.PriceSnapshot {
	return &models.PriceSnapshot{
		Symbol:        "NIFTY 50",
		Price:         24310.55,
		Open:          24250.1,
		High:          24380,
		Low:           24201.35,
		Change:        60.45,
		ChangePercent: 0.25,
		Volume:        1250000,
		Timestamp:     time.Date(2024, 1, 3, 4, 30, 0, 0, time.UTC),
		Status:        models.StatusSuccess,
		Source:        "yahoo",
	}
}

func TestSQLiteQuoteCachePutGet(t *testing.T) {
	cache := newTestSQLite(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, "NIFTY", 0)
	assert.ErrorIs(t, err, apperrors.ErrNoData)

	require.NoError(t, cache.Put(ctx, "nifty", sampleSnapshot()))
	got, err := cache.Get(ctx, "NIFTY", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)

	// Upsert replaces the previous entry.
	updated := sampleSnapshot()
	updated.Price = 24400
	require.NoError(t, cache.Put(ctx, "NIFTY", updated))
	got, err = cache.Get(ctx, "NIFTY", 0)
	require.NoError(t, err)
	assert.Equal(t, 24400.0, got.Price)
}

func TestSQLiteQuoteCacheMaxAge(t *testing.T) {
	cache := newTestSQLite(t)
	ctx := context.Background()

	stored := time.Date(2024, 1, 3, 4, 30, 0, 0, time.UTC)
	cache.now = func() time.Time { return stored }
	require.NoError(t, cache.Put(ctx, "BANKNIFTY", sampleSnapshot()))

	cache.now = func() time.Time { return stored.Add(2 * time.Hour) }
	_, err := cache.Get(ctx, "BANKNIFTY", time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrNoData)

	_, err = cache.Get(ctx, "BANKNIFTY", 3*time.Hour)
	assert.NoError(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	cache, err := New(ctx, config.CacheConfig{Backend: config.CacheNone})
	require.NoError(t, err)
	assert.Nil(t, cache)

	path := filepath.Join(t.TempDir(), "nested", "quotes.db")
	cache, err = New(ctx, config.CacheConfig{Backend: config.CacheSQLite, SQLitePath: path})
	require.NoError(t, err)
	defer cache.Close()
	assert.IsType(t, &SQLiteQuoteCache{}, cache)
	assert.FileExists(t, path)

	_, err = New(ctx, config.CacheConfig{Backend: "memcached"})
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestRedisQuoteCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	cache, err := NewRedisQuoteCache(ctx, url)
	require.NoError(t, err)
	defer cache.Close()

	key := "TEST-" + time.Now().Format("150405.000000")
	_, err = cache.Get(ctx, key, 0)
	assert.ErrorIs(t, err, apperrors.ErrNoData)

	require.NoError(t, cache.Put(ctx, key, sampleSnapshot()))
	got, err := cache.Get(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)
	cache.client.Del(ctx, redisKeyPrefix+Key(key))
}

// Property: any stored quote reads back unchanged under the same key.
func TestProperty_QuoteCacheRoundTrip(t *testing.T) {
	cache := newTestSQLite(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	symbols := []string{"NIFTY", "BANKNIFTY", "RELIANCE", "TCS", "HDFCBANK", "INFY"}

	properties.Property("put then get returns the stored quote", prop.ForAll(
		func(idx int, price float64, volume int64) bool {
			snap := sampleSnapshot()
			snap.Symbol = symbols[idx%len(symbols)]
			snap.Price = price
			snap.Volume = volume
			if err := cache.Put(ctx, snap.Symbol, snap); err != nil {
				return false
			}
			got, err := cache.Get(ctx, snap.Symbol, 0)
			if err != nil {
				return false
			}
			return got.Price == price && got.Volume == volume && got.Symbol == snap.Symbol
		},
		gen.IntRange(0, 100),
		gen.Float64Range(100, 60000),
		gen.Int64Range(500000, 2000000),
	))

	properties.TestingRun(t)
}
