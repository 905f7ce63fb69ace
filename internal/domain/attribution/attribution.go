// Package attribution counts the matches each wrestler worked per promotion.
//
// Attribution is a derived cache: it can always be recomputed from the match
// corpus, and any persisted copy is only trusted after it compares equal to a
// fresh recomputation.
package attribution

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/okian/joshirank/internal/domain/model"
)

// AllYears marks an attribution aggregated across every year.
const AllYears = 0

// Freelancer is the primary promotion of a wrestler with no dominant promotion.
const Freelancer = "Freelancer"

// DefaultPrimaryShare is the share of a year's matches one promotion needs to
// count as the wrestler's primary promotion.
const DefaultPrimaryShare = 0.4

// Attribution maps promotion IDs to match counts for one wrestler and year.
// Invariant: the sum of Counts plus Unattributed equals Total.
type Attribution struct {
	WrestlerID   string         `json:"wrestler_id" yaml:"wrestler_id"`
	Year         int            `json:"year" yaml:"year"`
	Counts       map[string]int `json:"promotions" yaml:"promotions"`
	Countries    map[string]int `json:"countries,omitempty" yaml:"countries,omitempty"`
	Total        int            `json:"total" yaml:"total"`
	Unattributed int            `json:"unattributed" yaml:"unattributed"`
}

// PromotionCount is one entry of a ranked attribution.
type PromotionCount struct {
	PromotionID string `json:"promotion_id" yaml:"promotion_id"`
	Count       int    `json:"count" yaml:"count"`
}

// Compute counts id's matches in year (AllYears for every year) per
// promotion. Matches without a promotion count towards Unattributed.
func Compute(id string, year int, matches []model.Match) Attribution {
	a := Attribution{
		WrestlerID: id,
		Year:       year,
		Counts:     make(map[string]int),
		Countries:  make(map[string]int),
	}
	for _, m := range matches {
		if year != AllYears && m.Year != year {
			continue
		}
		if !m.Involves(id) {
			continue
		}
		a.Total++
		if m.Country != "" {
			a.Countries[m.Country]++
		}
		if m.PromotionID == "" {
			a.Unattributed++
			continue
		}
		a.Counts[m.PromotionID]++
	}
	return a
}

// Aggregate merges per-year attributions of one wrestler into an all-years
// attribution.
func Aggregate(id string, parts []Attribution) Attribution {
	out := Attribution{
		WrestlerID: id,
		Year:       AllYears,
		Counts:     make(map[string]int),
		Countries:  make(map[string]int),
	}
	for _, p := range parts {
		for k, v := range p.Counts {
			out.Counts[k] += v
		}
		for k, v := range p.Countries {
			out.Countries[k] += v
		}
		out.Total += p.Total
		out.Unattributed += p.Unattributed
	}
	return out
}

// Check validates the sum invariant and non-negativity.
func (a Attribution) Check() error {
	sum := a.Unattributed
	if a.Unattributed < 0 {
		return fmt.Errorf("%w: negative unattributed count %d", ErrInconsistentPromotionCount, a.Unattributed)
	}
	for p, c := range a.Counts {
		if c < 0 {
			return fmt.Errorf("%w: promotion %s has negative count %d", ErrInconsistentPromotionCount, p, c)
		}
		sum += c
	}
	if sum != a.Total {
		return fmt.Errorf("%w: counts sum to %d, %d matches recorded", ErrInconsistentPromotionCount, sum, a.Total)
	}
	return nil
}

// Count returns the number of matches worked for promotion.
func (a Attribution) Count(promotion string) int { return a.Counts[promotion] }

// Share returns the fraction of all matches worked for promotion.
func (a Attribution) Share(promotion string) float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Counts[promotion]) / float64(a.Total)
}

// Ranked lists promotions by count descending, then by ID.
func (a Attribution) Ranked() []PromotionCount {
	out := make([]PromotionCount, 0, len(a.Counts))
	for p, c := range a.Counts {
		if c > 0 {
			out = append(out, PromotionCount{PromotionID: p, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].PromotionID < out[j].PromotionID
	})
	return out
}

// Primary returns the most-worked promotion when it holds at least share of
// the wrestler's matches, and Freelancer otherwise.
func (a Attribution) Primary(share float64) string {
	ranked := a.Ranked()
	if len(ranked) == 0 || a.Total == 0 {
		return Freelancer
	}
	if float64(ranked[0].Count)/float64(a.Total) >= share {
		return ranked[0].PromotionID
	}
	return Freelancer
}

// normalized drops zero entries; a zero count and an absent key mean the same.
func normalized(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// EncodeCounts renders counts as canonical JSON: sorted keys, no zero
// entries. Equal counts always encode to identical bytes.
func EncodeCounts(counts map[string]int) ([]byte, error) {
	raw, err := json.Marshal(normalized(counts))
	if err != nil {
		return nil, fmt.Errorf("encode promotion counts: %w", err)
	}
	return raw, nil
}

// DecodeCounts parses counts written by EncodeCounts.
func DecodeCounts(raw []byte) (map[string]int, error) {
	counts := make(map[string]int)
	if len(raw) == 0 {
		return counts, nil
	}
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, fmt.Errorf("decode promotion counts: %w", err)
	}
	return counts, nil
}

// Equal reports whether two count maps agree exactly.
func Equal(a, b map[string]int) bool {
	na, nb := normalized(a), normalized(b)
	if len(na) != len(nb) {
		return false
	}
	for k, v := range na {
		if nb[k] != v {
			return false
		}
	}
	return true
}

// Verify compares cached counts against a recomputation. It returns nil when
// they agree and a descriptive ErrInconsistentPromotionCount otherwise; the
// recomputed value is always the one to keep.
func Verify(cached map[string]int, recomputed Attribution) error {
	if Equal(cached, recomputed.Counts) {
		return nil
	}
	keys := make(map[string]struct{})
	for k := range cached {
		keys[k] = struct{}{}
	}
	for k := range recomputed.Counts {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	for _, k := range sorted {
		if cached[k] != recomputed.Counts[k] {
			return fmt.Errorf("%w: wrestler %s year %d promotion %s cached %d, recomputed %d",
				ErrInconsistentPromotionCount, recomputed.WrestlerID, recomputed.Year, k, cached[k], recomputed.Counts[k])
		}
	}
	return fmt.Errorf("%w: wrestler %s year %d", ErrInconsistentPromotionCount, recomputed.WrestlerID, recomputed.Year)
}
