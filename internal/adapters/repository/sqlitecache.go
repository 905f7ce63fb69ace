package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/joshirank/internal/domain/attribution"
	"github.com/okian/joshirank/pkg/metrics"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS promotions_worked (
	wrestler_id TEXT    NOT NULL,
	year        INTEGER NOT NULL,
	counts      TEXT    NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (wrestler_id, year)
)`

type cacheRow struct {
	Counts    string `db:"counts"`
	UpdatedAt int64  `db:"updated_at"`
}

// SQLiteCache stores canonical attribution JSON in an SQLite table.
type SQLiteCache struct {
	db     *sqlx.DB
	closed atomic.Bool
}

// OpenSQLiteCache opens (or creates) the cache at path. Use ":memory:" for a
// throwaway cache.
func OpenSQLiteCache(ctx context.Context, path string) (*SQLiteCache, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open attribution cache %s: %w", path, err)
	}
	// One connection: an in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create attribution cache table: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Get implements AttributionCache.Get.
func (c *SQLiteCache) Get(ctx context.Context, key CacheKey) (map[string]int, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrCacheClosed
	}
	var row cacheRow
	err := c.db.GetContext(ctx, &row,
		`SELECT counts, updated_at FROM promotions_worked WHERE wrestler_id = ? AND year = ?`,
		key.WrestlerID, key.Year)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordCacheLookup("sqlite", "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read attribution %s/%d: %w", key.WrestlerID, key.Year, err)
	}
	counts, err := attribution.DecodeCounts([]byte(row.Counts))
	if err != nil {
		return nil, false, err
	}
	metrics.RecordCacheLookup("sqlite", "hit")
	return counts, true, nil
}

// Put implements AttributionCache.Put.
func (c *SQLiteCache) Put(ctx context.Context, key CacheKey, counts map[string]int) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	raw, err := attribution.EncodeCounts(counts)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO promotions_worked (wrestler_id, year, counts, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (wrestler_id, year) DO UPDATE SET
			counts = excluded.counts,
			updated_at = excluded.updated_at`,
		key.WrestlerID, key.Year, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write attribution %s/%d: %w", key.WrestlerID, key.Year, err)
	}
	return nil
}

// Raw returns the stored bytes for key, for byte-level comparisons.
func (c *SQLiteCache) Raw(ctx context.Context, key CacheKey) ([]byte, error) {
	var raw string
	err := c.db.GetContext(ctx, &raw,
		`SELECT counts FROM promotions_worked WHERE wrestler_id = ? AND year = ?`,
		key.WrestlerID, key.Year)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read attribution %s/%d: %w", key.WrestlerID, key.Year, err)
	}
	return []byte(raw), nil
}

// Len returns the number of cached entries.
func (c *SQLiteCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM promotions_worked`); err != nil {
		return 0, fmt.Errorf("count attribution cache: %w", err)
	}
	return n, nil
}

// Close implements AttributionCache.Close.
func (c *SQLiteCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.db.Close()
}
