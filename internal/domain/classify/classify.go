// Package classify labels wrestlers as members of the target category from
// the promotions they have worked for.
//
// The rule favors recall: one match above the threshold for any target
// promotion is enough. Cross-over talent is caught at the cost of some false
// positives.
package classify

import (
	"sort"

	"github.com/okian/joshirank/internal/domain/attribution"
)

// Labels attached to a Result.
const (
	LabelMember    = "member"
	LabelNonMember = "non-member"
)

// DefaultMinMatches treats any nonzero count as qualifying.
const DefaultMinMatches = 1

// Evidence is one qualifying promotion.
type Evidence struct {
	PromotionID string `json:"promotion_id" yaml:"promotion_id"`
	Count       int    `json:"count" yaml:"count"`
}

// Result is the classification of one wrestler. Confidence is the share of
// the wrestler's matches worked for qualifying promotions.
type Result struct {
	WrestlerID    string     `json:"wrestler_id" yaml:"wrestler_id"`
	Year          int        `json:"year" yaml:"year"`
	Member        bool       `json:"member" yaml:"member"`
	Label         string     `json:"label" yaml:"label"`
	Confidence    float64    `json:"confidence" yaml:"confidence"`
	Evidence      []Evidence `json:"evidence" yaml:"evidence"`
	Threshold     int        `json:"threshold" yaml:"threshold"`
	TargetMatches int        `json:"target_matches" yaml:"target_matches"`
	TotalMatches  int        `json:"total_matches" yaml:"total_matches"`
	Override      bool       `json:"override,omitempty" yaml:"override,omitempty"`
}

// Classifier applies the membership rule. It is immutable and safe for
// concurrent use.
type Classifier struct {
	targets    map[string]struct{}
	minMatches int
	forced     map[string]bool // wrestler ID -> decided membership
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTargets sets the qualifying promotion IDs.
func WithTargets(ids ...string) Option {
	return func(c *Classifier) {
		for _, id := range ids {
			if id != "" {
				c.targets[id] = struct{}{}
			}
		}
	}
}

// WithMinMatches sets the count a target promotion needs to qualify.
// Values below 1 are ignored.
func WithMinMatches(n int) Option {
	return func(c *Classifier) {
		if n >= 1 {
			c.minMatches = n
		}
	}
}

// WithOverrides pins the label of known wrestlers regardless of their
// promotions. An ID in both lists is a non-member.
func WithOverrides(members, nonMembers []string) Option {
	return func(c *Classifier) {
		for _, id := range members {
			c.forced[id] = true
		}
		for _, id := range nonMembers {
			c.forced[id] = false
		}
	}
}

// New creates a classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		targets:    make(map[string]struct{}),
		minMatches: DefaultMinMatches,
		forced:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Targets returns the configured promotion IDs, sorted.
func (c *Classifier) Targets() []string {
	out := make([]string, 0, len(c.targets))
	for id := range c.targets {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Classify decides membership from a single attribution.
func (c *Classifier) Classify(a attribution.Attribution) Result {
	r := Result{
		WrestlerID:   a.WrestlerID,
		Year:         a.Year,
		Label:        LabelNonMember,
		Evidence:     []Evidence{},
		Threshold:    c.minMatches,
		TotalMatches: a.Total,
	}
	for _, id := range c.Targets() {
		n := a.Counts[id]
		if n < c.minMatches {
			continue
		}
		r.Evidence = append(r.Evidence, Evidence{PromotionID: id, Count: n})
		r.TargetMatches += n
	}
	r.Member = len(r.Evidence) > 0
	if member, ok := c.forced[a.WrestlerID]; ok {
		r.Member = member
		r.Override = true
	}
	if r.Member {
		r.Label = LabelMember
	}
	if a.Total > 0 {
		r.Confidence = float64(r.TargetMatches) / float64(a.Total)
	}
	return r
}

// ClassifyAll classifies each attribution and returns results sorted by
// wrestler ID, then year.
func (c *Classifier) ClassifyAll(attrs []attribution.Attribution) []Result {
	out := make([]Result, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, c.Classify(a))
	}
	Sort(out)
	return out
}

// Sort orders results by wrestler ID, then year.
func Sort(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].WrestlerID != results[j].WrestlerID {
			return results[i].WrestlerID < results[j].WrestlerID
		}
		return results[i].Year < results[j].Year
	})
}
