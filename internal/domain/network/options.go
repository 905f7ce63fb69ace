package network

// Options controls which part of the co-participation graph is kept.
type Options struct {
	Year           int  // 0 uses every year
	MaxDepth       int  // 0 is unlimited
	MinEdgeWeight  int  // edges lighter than this are neither traversed nor emitted
	MinNodeMatches int  // non-seed wrestlers with fewer matches are not reached
	PruneIsolated  bool // drop reached wrestlers left without a kept edge
}

// DefaultOptions keeps every reachable wrestler and prunes isolated ones.
func DefaultOptions() Options {
	return Options{MinEdgeWeight: 1, PruneIsolated: true}
}

// Option configures a Builder.
type Option func(*Options)

// WithYear limits edges to matches of one year.
func WithYear(year int) Option {
	return func(o *Options) { o.Year = year }
}

// WithMaxDepth bounds the traversal depth from any seed.
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		if depth >= 0 {
			o.MaxDepth = depth
		}
	}
}

// WithMinEdgeWeight sets the minimum number of shared matches for an edge.
func WithMinEdgeWeight(weight int) Option {
	return func(o *Options) {
		if weight >= 1 {
			o.MinEdgeWeight = weight
		}
	}
}

// WithMinNodeMatches sets the match count a wrestler needs to be reached.
func WithMinNodeMatches(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MinNodeMatches = n
		}
	}
}

// WithPruneIsolated toggles isolation pruning.
func WithPruneIsolated(prune bool) Option {
	return func(o *Options) { o.PruneIsolated = prune }
}
