// Package network builds the weighted co-participation graph of wrestlers
// reachable from a set of seed wrestlers.
package network

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/okian/joshirank/internal/domain/model"
)

type pair struct{ a, b string } // a < b

func newPair(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{a: x, b: y}
}

type edgeData struct {
	weight int
	years  map[int]struct{}
}

// Builder turns a match corpus into a Network.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder with DefaultOptions adjusted by opts.
func NewBuilder(opts ...Option) *Builder {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder{opts: o}
}

// Options returns the builder's effective options.
func (b *Builder) Options() Options { return b.opts }

// Network is the pruned subgraph reachable from the seeds. It is immutable
// once built.
type Network struct {
	opts     Options
	seeds    []string
	ids      []string         // every wrestler with a valid match, sorted
	index    map[string]int64 // wrestler ID -> gonum node ID
	edges    map[pair]*edgeData
	matches  map[string]int
	included map[string]int // wrestler ID -> BFS depth
}

// Build derives edges from matches and walks them breadth-first from the
// seeds. Unknown seeds and an empty seed set are reported as warnings.
func (b *Builder) Build(seeds []string, matches []model.Match) (*Network, []model.Warning) {
	n := &Network{
		opts:     b.opts,
		index:    make(map[string]int64),
		edges:    make(map[pair]*edgeData),
		matches:  make(map[string]int),
		included: make(map[string]int),
	}
	var warnings []model.Warning

	for _, m := range matches {
		if b.opts.Year != 0 && m.Year != b.opts.Year {
			continue
		}
		// Unlinked slots are skipped; the known participants still pair up.
		ps := m.Participants()
		if len(ps) < 2 {
			continue
		}
		for _, id := range ps {
			n.matches[id]++
		}
		for i := 0; i < len(ps); i++ {
			for j := i + 1; j < len(ps); j++ {
				k := newPair(ps[i], ps[j])
				e, ok := n.edges[k]
				if !ok {
					e = &edgeData{years: make(map[int]struct{})}
					n.edges[k] = e
				}
				e.weight++
				if m.Year != 0 {
					e.years[m.Year] = struct{}{}
				}
			}
		}
	}
	for id := range n.matches {
		n.ids = append(n.ids, id)
	}
	sort.Strings(n.ids)
	for i, id := range n.ids {
		n.index[id] = int64(i)
	}

	if len(seeds) == 0 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarningEmptySeedSet,
			Message: ErrEmptySeedSet.Error(),
		})
		return n, warnings
	}

	seen := make(map[string]struct{})
	for _, s := range seeds {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := n.index[s]; !ok {
			warnings = append(warnings, model.Warning{
				Kind:       model.WarningUnknownSeed,
				WrestlerID: s,
				Message:    fmt.Sprintf("seed %s has no matches in scope", s),
			})
			continue
		}
		n.seeds = append(n.seeds, s)
	}
	sort.Strings(n.seeds)

	n.walk()
	if b.opts.PruneIsolated {
		n.pruneIsolated()
	}
	return n, warnings
}

// qualifies reports whether the edge is heavy enough to keep.
func (n *Network) qualifies(e *edgeData) bool {
	return e != nil && e.weight >= n.opts.MinEdgeWeight
}

func (n *Network) reachable(id string) bool {
	if n.matches[id] >= n.opts.MinNodeMatches {
		return true
	}
	for _, s := range n.seeds {
		if s == id {
			return true
		}
	}
	return false
}

// traversalGraph holds every qualifying edge between reachable wrestlers.
func (n *Network) traversalGraph() *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for _, id := range n.ids {
		if n.reachable(id) {
			g.AddNode(simple.Node(n.index[id]))
		}
	}
	for k, e := range n.edges {
		if !n.qualifies(e) || !n.reachable(k.a) || !n.reachable(k.b) {
			continue
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(n.index[k.a]), simple.Node(n.index[k.b]), float64(e.weight)))
	}
	return g
}

// walk runs a breadth-first search from each seed and keeps every wrestler
// discovered within MaxDepth, recording the smallest depth seen.
func (n *Network) walk() {
	g := n.traversalGraph()
	var bfs traverse.BreadthFirst
	for _, s := range n.seeds {
		bfs.Reset()
		bfs.Walk(g, simple.Node(n.index[s]), func(node graph.Node, depth int) bool {
			if n.opts.MaxDepth > 0 && depth > n.opts.MaxDepth {
				return true
			}
			id := n.ids[node.ID()]
			if d, ok := n.included[id]; !ok || depth < d {
				n.included[id] = depth
			}
			return false
		})
	}
}

func (n *Network) pruneIsolated() {
	connected := make(map[string]struct{}, len(n.included))
	for k, e := range n.edges {
		if !n.qualifies(e) || !n.Contains(k.a) || !n.Contains(k.b) {
			continue
		}
		connected[k.a] = struct{}{}
		connected[k.b] = struct{}{}
	}
	for id := range n.included {
		if _, ok := connected[id]; !ok {
			delete(n.included, id)
		}
	}
}

// Seeds returns the seeds the walk started from.
func (n *Network) Seeds() []string { return append([]string(nil), n.seeds...) }

// Contains reports whether id is part of the network.
func (n *Network) Contains(id string) bool {
	_, ok := n.included[id]
	return ok
}

// Depth returns the BFS distance from the nearest seed.
func (n *Network) Depth(id string) (int, bool) {
	d, ok := n.included[id]
	return d, ok
}

// Members returns the included wrestler IDs, sorted.
func (n *Network) Members() []string {
	out := make([]string, 0, len(n.included))
	for id := range n.included {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Weight returns the number of distinct matches a and b shared in scope,
// whether or not the edge made it into the network.
func (n *Network) Weight(a, b string) int {
	if a == b {
		return 0
	}
	if e := n.edges[newPair(a, b)]; e != nil {
		return e.weight
	}
	return 0
}

// Matches returns how many valid matches id worked in scope.
func (n *Network) Matches(id string) int { return n.matches[id] }
