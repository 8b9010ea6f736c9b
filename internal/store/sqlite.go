package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
)

// SQLiteQuoteCache implements QuoteCache using SQLite.
type SQLiteQuoteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteQuoteCache opens (or creates) the cache database at dbPath.
func NewSQLiteQuoteCache(dbPath string) (*SQLiteQuoteCache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	cache := &SQLiteQuoteCache{db: db, now: time.Now}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return cache, nil
}

func (s *SQLiteQuoteCache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quote_cache (
		cache_key TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		payload TEXT NOT NULL,
		stored_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_quote_cache_stored_at ON quote_cache(stored_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put stores snap under key.
func (s *SQLiteQuoteCache) Put(ctx context.Context, key string, snap *models.PriceSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quote_cache (cache_key, symbol, price, payload, stored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			symbol = excluded.symbol,
			price = excluded.price,
			payload = excluded.payload,
			stored_at = excluded.stored_at
	`, Key(key), snap.Symbol, snap.Price, string(payload), s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store quote: %w", err)
	}
	return nil
}

// Get returns the cached quote for key.
func (s *SQLiteQuoteCache) Get(ctx context.Context, key string, maxAge time.Duration) (*models.PriceSnapshot, error) {
	var (
		payload  string
		storedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, stored_at FROM quote_cache WHERE cache_key = ?
	`, Key(key)).Scan(&payload, &storedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNoDataError("sqlite cache", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read quote: %w", err)
	}

	if !isFresh(storedAt, s.now(), maxAge) {
		return nil, apperrors.NewNoDataError("sqlite cache", key)
	}

	var snap models.PriceSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	return &snap, nil
}

// Ping checks the database connection.
func (s *SQLiteQuoteCache) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteQuoteCache) Close() error {
	return s.db.Close()
}
