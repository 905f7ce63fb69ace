package repository

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/joshirank/internal/domain/attribution"
	"github.com/okian/joshirank/pkg/metrics"
)

// DefaultLRUSize is the number of attributions kept in memory.
const DefaultLRUSize = 4096

// LRUCache keeps recently used attributions in memory in front of an optional
// slower cache. Values are stored in canonical encoded form.
type LRUCache struct {
	entries *lru.Cache[CacheKey, string]
	next    AttributionCache
}

// NewLRUCache creates an in-memory cache of size entries backed by next,
// which may be nil.
func NewLRUCache(size int, next AttributionCache) (*LRUCache, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	entries, err := lru.New[CacheKey, string](size)
	if err != nil {
		return nil, fmt.Errorf("create attribution lru: %w", err)
	}
	return &LRUCache{entries: entries, next: next}, nil
}

// Get implements AttributionCache.Get, falling through to the backing cache
// on a miss.
func (c *LRUCache) Get(ctx context.Context, key CacheKey) (map[string]int, bool, error) {
	if raw, ok := c.entries.Get(key); ok {
		metrics.RecordCacheLookup("memory", "hit")
		counts, err := attribution.DecodeCounts([]byte(raw))
		return counts, err == nil, err
	}
	metrics.RecordCacheLookup("memory", "miss")
	if c.next == nil {
		return nil, false, nil
	}
	counts, ok, err := c.next.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	raw, err := attribution.EncodeCounts(counts)
	if err != nil {
		return nil, false, err
	}
	c.entries.Add(key, string(raw))
	return counts, true, nil
}

// Put implements AttributionCache.Put, writing through to the backing cache.
func (c *LRUCache) Put(ctx context.Context, key CacheKey, counts map[string]int) error {
	raw, err := attribution.EncodeCounts(counts)
	if err != nil {
		return err
	}
	c.entries.Add(key, string(raw))
	if c.next != nil {
		return c.next.Put(ctx, key, counts)
	}
	return nil
}

// Len returns the number of entries held in memory.
func (c *LRUCache) Len() int { return c.entries.Len() }

// Close closes the backing cache.
func (c *LRUCache) Close() error {
	c.entries.Purge()
	if c.next != nil {
		return c.next.Close()
	}
	return nil
}
