// Package repository holds the rating leaderboard and the promotion
// attribution caches.
package repository

import (
	"context"

	"github.com/okian/joshirank/internal/domain/types"
)

// Leaderboard provides ranked read access to end-of-run ratings.
type Leaderboard interface {
	// Upsert stores or replaces a wrestler's row. Returns false when the row
	// does not meet the leaderboard's minimum match count.
	Upsert(ctx context.Context, e types.Entry) (bool, error)

	// Rank returns the row for a wrestler with its current rank.
	// Returns ErrNotFound if the wrestler is not on the leaderboard.
	Rank(ctx context.Context, wrestlerID string) (types.Entry, error)

	// TopN returns the best n rows, rating desc then wrestler ID asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of rows.
	Count(ctx context.Context) int
}

// CacheKey identifies a cached attribution.
type CacheKey struct {
	WrestlerID string
	Year       int
}

// AttributionCache persists promotion counts. Entries are a cache only:
// callers must verify them against a recomputation before use.
type AttributionCache interface {
	// Get returns the cached counts. ok is false on a miss.
	Get(ctx context.Context, key CacheKey) (counts map[string]int, ok bool, err error)
	// Put stores counts, replacing any previous entry.
	Put(ctx context.Context, key CacheKey, counts map[string]int) error
	// Close releases resources.
	Close() error
}
