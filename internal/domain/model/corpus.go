package model

import (
	"sort"
)

// Wrestler is a performer identified by a stable external ID.
type Wrestler struct {
	ID   string
	Name string
}

// WrestlerYear keys per-wrestler, per-year aggregates.
type WrestlerYear struct {
	WrestlerID string
	Year       int
}

// Corpus is the deduplicated, in-memory match set for one run. Matches keep
// their load order, which the rating engine uses to break date ties.
type Corpus struct {
	wrestlers map[string]Wrestler
	matches   []Match
	byID      map[string][]int // wrestler ID -> indexes into matches

	// CachedCounts holds promotions_worked counters shipped with the store
	// document. They are verified against recomputation, never trusted.
	CachedCounts map[WrestlerYear]map[string]int
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		wrestlers:    make(map[string]Wrestler),
		byID:         make(map[string][]int),
		CachedCounts: make(map[WrestlerYear]map[string]int),
	}
}

// AddWrestler registers or renames a wrestler.
func (c *Corpus) AddWrestler(w Wrestler) {
	if w.ID == "" {
		return
	}
	prev, ok := c.wrestlers[w.ID]
	if ok && w.Name == "" {
		w.Name = prev.Name
	}
	c.wrestlers[w.ID] = w
}

// AddMatch appends a match and registers unseen participants. Deduplication
// is the caller's job.
func (c *Corpus) AddMatch(m Match) {
	if m.Year == 0 && m.HasDate() {
		m.Year = m.Date.Year()
	}
	idx := len(c.matches)
	c.matches = append(c.matches, m)
	for _, id := range m.Participants() {
		if _, ok := c.wrestlers[id]; !ok {
			c.wrestlers[id] = Wrestler{ID: id}
		}
		c.byID[id] = append(c.byID[id], idx)
	}
}

// Matches returns all matches in load order. The slice must not be modified.
func (c *Corpus) Matches() []Match { return c.matches }

// MatchesIn returns the matches of the given year, or all matches for year 0.
func (c *Corpus) MatchesIn(year int) []Match {
	if year == 0 {
		return c.matches
	}
	var out []Match
	for _, m := range c.matches {
		if m.Year == year {
			out = append(out, m)
		}
	}
	return out
}

// MatchesFor returns id's matches in the given year (0 for every year), in
// load order.
func (c *Corpus) MatchesFor(id string, year int) []Match {
	idxs := c.byID[id]
	out := make([]Match, 0, len(idxs))
	for _, i := range idxs {
		if year != 0 && c.matches[i].Year != year {
			continue
		}
		out = append(out, c.matches[i])
	}
	return out
}

// Wrestler looks up a wrestler by ID.
func (c *Corpus) Wrestler(id string) (Wrestler, bool) {
	w, ok := c.wrestlers[id]
	return w, ok
}

// Name returns the display name, or the ID when no name is known.
func (c *Corpus) Name(id string) string {
	if w, ok := c.wrestlers[id]; ok && w.Name != "" {
		return w.Name
	}
	return id
}

// WrestlerIDs returns every known wrestler ID in ascending order.
func (c *Corpus) WrestlerIDs() []string {
	ids := make([]string, 0, len(c.wrestlers))
	for id := range c.wrestlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// YearsFor returns the sorted set of years in which id has matches.
func (c *Corpus) YearsFor(id string) []int {
	set := make(map[int]struct{})
	for _, i := range c.byID[id] {
		if y := c.matches[i].Year; y != 0 {
			set[y] = struct{}{}
		}
	}
	return sortedYears(set)
}

// Years returns every year present in the corpus.
func (c *Corpus) Years() []int {
	set := make(map[int]struct{})
	for _, m := range c.matches {
		if m.Year != 0 {
			set[m.Year] = struct{}{}
		}
	}
	return sortedYears(set)
}

// Len returns the number of distinct matches.
func (c *Corpus) Len() int { return len(c.matches) }

func sortedYears(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}
