package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const insightCacheSchema = `
CREATE TABLE IF NOT EXISTS insight_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_insight_cache_created ON insight_cache(created_at);
`

// SQLiteCache persists insights in a SQLite file so separate CLI runs share one cache.
type SQLiteCache struct {
	db         *sql.DB
	clock      Clock
	maxEntries int
}

// OpenSQLiteCache opens (or creates) the cache database at path. Use ":memory:" in tests.
func OpenSQLiteCache(path string, maxEntries int, clock Clock) (*SQLiteCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// A :memory: database exists per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure cache database: %w", err)
	}
	if _, err := db.Exec(insightCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	if clock == nil {
		clock = SystemClock
	}
	return &SQLiteCache{db: db, clock: clock, maxEntries: maxEntries}, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (InsightResult, bool, error) {
	var raw string
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM insight_cache WHERE key = ?`, key).Scan(&raw, &expiresAt)
	if err == sql.ErrNoRows {
		return InsightResult{}, false, nil
	}
	if err != nil {
		return InsightResult{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if c.clock().UnixNano() >= expiresAt {
		return InsightResult{}, false, nil
	}

	var v InsightResult
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return InsightResult{}, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return v, true, nil
}

func (c *SQLiteCache) Put(ctx context.Context, key string, value InsightResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultInsightTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	now := c.clock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO insight_cache (key, value, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		key, string(raw), now.UnixNano(), now.Add(ttl).UnixNano()); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM insight_cache WHERE expires_at <= ?`, now.UnixNano()); err != nil {
		return fmt.Errorf("failed to purge expired entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM insight_cache WHERE key IN (
			SELECT key FROM insight_cache WHERE key != ? ORDER BY created_at DESC, key DESC LIMIT -1 OFFSET ?
		)`, key, c.maxEntries-1); err != nil {
		return fmt.Errorf("failed to trim cache: %w", err)
	}
	return tx.Commit()
}
