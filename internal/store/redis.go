package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
)

const redisKeyPrefix = "optionchain:quote:"

// RedisQuoteCache implements QuoteCache on Redis.
type RedisQuoteCache struct {
	client *redis.Client
}

type redisEntry struct {
	StoredAt time.Time             `json:"storedAt"`
	Quote    *models.PriceSnapshot `json:"quote"`
}

// NewRedisQuoteCache connects to the Redis server at url and pings it.
func NewRedisQuoteCache(ctx context.Context, url string) (*RedisQuoteCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "redis url %q", url)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisQuoteCacheWithClient(client), nil
}

// NewRedisQuoteCacheWithClient wraps an existing client.
func NewRedisQuoteCacheWithClient(client *redis.Client) *RedisQuoteCache {
	return &RedisQuoteCache{client: client}
}

// Put stores snap under key. Entries never expire on the server; staleness
// is decided by the reader's maxAge.
func (r *RedisQuoteCache) Put(ctx context.Context, key string, snap *models.PriceSnapshot) error {
	data, err := json.Marshal(redisEntry{StoredAt: time.Now().UTC(), Quote: snap})
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+Key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store quote: %w", err)
	}
	return nil
}

// Get returns the cached quote for key.
func (r *RedisQuoteCache) Get(ctx context.Context, key string, maxAge time.Duration) (*models.PriceSnapshot, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+Key(key)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNoDataError("redis cache", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read quote: %w", err)
	}

	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	if entry.Quote == nil || !isFresh(entry.StoredAt, time.Now(), maxAge) {
		return nil, apperrors.NewNoDataError("redis cache", key)
	}
	return entry.Quote, nil
}

// Ping checks the Redis connection.
func (r *RedisQuoteCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisQuoteCache) Close() error {
	return r.client.Close()
}
