package repository

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/joshirank/internal/domain/types"
	"github.com/okian/joshirank/pkg/metrics"
)

// Treap-based, in-memory Leaderboard.
//
// Ordering: rating DESC, then wrestler ID ASC. "less" means ranks earlier,
// so in-order traversal yields the leaderboard from best to worst. Node
// priorities are hashes of the wrestler ID, which keeps the tree shape
// deterministic for a given set of rows.

// ratingScale fixes ratings to 9 decimal places so float noise cannot split
// a tie.
const ratingScale = 1_000_000_000

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	return ratingFP(math.Round(x * ratingScale))
}

type node struct {
	id     string
	rating ratingFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aRating ratingFP, aID string, bRating ratingFP, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rating ratingFP) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: xxhash.Sum64String(id), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, rating ratingFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case rating == n.rating && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rating)
		}
	case less(rating, id, n.rating, n.id):
		n.left = deleteNode(n.left, id, rating)
	default:
		n.right = deleteNode(n.right, id, rating)
	}
	fix(n)
	return n
}

// countAbove returns how many rows have a strictly higher rating.
func countAbove(n *node, rating ratingFP) int {
	count := 0
	for n != nil {
		if n.rating > rating {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

func collectTopN(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	collectTopN(n.right, limit, out)
}

// TreapStore implements Leaderboard.
type TreapStore struct {
	mu         sync.RWMutex
	root       *node
	byID       map[string]types.Entry
	minMatches int
}

// NewTreapStore constructs an empty leaderboard.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{byID: make(map[string]types.Entry)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert implements Leaderboard.Upsert in O(log n) expected time.
func (s *TreapStore) Upsert(_ context.Context, e types.Entry) (bool, error) {
	if e.WrestlerID == "" {
		return false, fmt.Errorf("%w: empty wrestler id", ErrInvalidEntry)
	}
	if math.IsNaN(e.Rating) || math.IsInf(e.Rating, 0) {
		return false, fmt.Errorf("%w: rating %v for %s", ErrInvalidEntry, e.Rating, e.WrestlerID)
	}
	if e.Record.Matches() < s.minMatches {
		return false, nil
	}

	s.mu.Lock()
	if old, ok := s.byID[e.WrestlerID]; ok {
		s.root = deleteNode(s.root, old.WrestlerID, toFixedPoint(old.Rating))
	}
	e.Rank = 0
	s.byID[e.WrestlerID] = e
	s.root = insert(s.root, e.WrestlerID, toFixedPoint(e.Rating))
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateLeaderboardSize(count)
	return true, nil
}

// Rank returns a wrestler's row in O(log n). Equal ratings share a rank.
func (s *TreapStore) Rank(_ context.Context, wrestlerID string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[wrestlerID]
	if !ok {
		return types.Entry{}, ErrNotFound
	}
	e.Rank = countAbove(s.root, toFixedPoint(e.Rating)) + 1
	return e, nil
}

// TopN returns the first n rows with competition ranks (1, 2, 2, 4).
func (s *TreapStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &ids)
	out := make([]types.Entry, len(ids))
	for i, id := range ids {
		out[i] = s.byID[id]
		switch {
		case i > 0 && toFixedPoint(out[i].Rating) == toFixedPoint(out[i-1].Rating):
			out[i].Rank = out[i-1].Rank
		default:
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Count returns the number of rows.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
