// Package dedupe tracks which match keys have already been ingested.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen match keys so each match enters the corpus once,
// even though per-wrestler records repeat it for every participant.
type Deduper interface {
	// SeenAndRecord reports whether key was already seen and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key, used when a recorded match is later rejected.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps keys in a map. In bounded mode a ring of insertion
// order evicts the oldest key once maxSize is reached.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> slot in ring, -1 when unbounded
	ring    []string
	next    int
	maxSize int // <= 0 means unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper. The default is unbounded; a corpus is
// loaded once per run and must not forget keys mid-load.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[key] = -1
		d.size.Add(1)
		return false
	}

	slot := d.next
	if old, ok := d.occupant(slot); ok {
		delete(d.seen, old)
		d.size.Add(-1)
	}
	d.ring[slot] = key
	d.seen[key] = slot
	d.next = (slot + 1) % d.maxSize
	d.size.Add(1)
	return false
}

// occupant returns the key currently owning slot, if any.
func (d *inMemoryDeduper) occupant(slot int) (string, bool) {
	key := d.ring[slot]
	if s, ok := d.seen[key]; ok && s == slot {
		return key, true
	}
	return "", false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
