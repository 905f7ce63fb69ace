// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Outcome is a single wrestler's result in a match.
type Outcome int

// Outcomes, ordered by score.
const (
	OutcomeLoss Outcome = iota
	OutcomeDraw
	OutcomeWin
)

// Score maps the outcome onto the [0,1] scale used by the rating engine.
func (o Outcome) Score() float64 {
	switch o {
	case OutcomeWin:
		return 1
	case OutcomeDraw:
		return 0.5
	default:
		return 0
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeDraw:
		return "draw"
	default:
		return "loss"
	}
}

// Side is one team (or one wrestler) in a match.
type Side struct {
	Wrestlers []string `json:"wrestlers" yaml:"wrestlers"`
	Winner    bool     `json:"winner,omitempty" yaml:"winner,omitempty"`
}

// Match is an immutable, normalized match record.
type Match struct {
	ID          string    // store ID; Key() derives one when empty
	Date        time.Time // zero when the store reports the date as unknown
	Year        int       // calendar year; falls back to the owning record's year
	PromotionID string    // empty when no promotion could be resolved
	Country     string
	Sides       []Side
}

// HasDate reports whether the match can be placed in a rating period.
func (m Match) HasDate() bool { return !m.Date.IsZero() }

// Participants returns the distinct, non-empty wrestler IDs in side order.
func (m Match) Participants() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	for _, s := range m.Sides {
		for _, id := range s.Wrestlers {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Involves reports whether id took part in the match.
func (m Match) Involves(id string) bool {
	return m.sideOf(id) >= 0
}

// Singles is true for one-on-one matches.
func (m Match) Singles() bool {
	return len(m.Sides) == 2 && len(m.Sides[0].Wrestlers) == 1 && len(m.Sides[1].Wrestlers) == 1
}

// winningSide returns the index of the single winning side, or -1 for a
// draw. More than one flagged winner is treated as a draw.
func (m Match) winningSide() int {
	idx := -1
	for i, s := range m.Sides {
		if !s.Winner {
			continue
		}
		if idx >= 0 {
			return -1
		}
		idx = i
	}
	return idx
}

func (m Match) sideOf(id string) int {
	for i, s := range m.Sides {
		for _, w := range s.Wrestlers {
			if w == id {
				return i
			}
		}
	}
	return -1
}

// Opponents returns the wrestlers on every other side than id's.
func (m Match) Opponents(id string) []string {
	own := m.sideOf(id)
	if own < 0 {
		return nil
	}
	var out []string
	for i, s := range m.Sides {
		if i == own {
			continue
		}
		for _, w := range s.Wrestlers {
			if w != "" && w != id {
				out = append(out, w)
			}
		}
	}
	return out
}

// OutcomeFor returns id's result. ok is false when id did not participate.
func (m Match) OutcomeFor(id string) (Outcome, bool) {
	own := m.sideOf(id)
	if own < 0 {
		return OutcomeLoss, false
	}
	switch win := m.winningSide(); {
	case win < 0:
		return OutcomeDraw, true
	case win == own:
		return OutcomeWin, true
	default:
		return OutcomeLoss, true
	}
}

// Validate checks that the match can produce at least one rated pairing.
func (m Match) Validate() error {
	if len(m.Sides) == 0 {
		return ErrNoSides
	}
	populated := 0
	for _, s := range m.Sides {
		for _, w := range s.Wrestlers {
			if w == "" {
				return fmt.Errorf("%w: empty wrestler id", ErrMissingOpponent)
			}
		}
		if len(s.Wrestlers) > 0 {
			populated++
		}
	}
	if populated < 2 {
		return ErrMissingOpponent
	}
	if len(m.Pairings()) == 0 {
		// every opponent is the wrestler themself
		return ErrMissingOpponent
	}
	return nil
}

// Pairing is one decomposed head-to-head result. ScoreA+ScoreB is always 1.
type Pairing struct {
	A, B           string
	ScoreA, ScoreB float64
}

// Pairings decomposes the match into pairwise results between wrestlers on
// different sides. The winning side beats every other side; any two
// non-winning sides draw. Teammates are never paired. Output order follows
// side order, so it is stable for a given record.
func (m Match) Pairings() []Pairing {
	win := m.winningSide()
	var out []Pairing
	for i := 0; i < len(m.Sides); i++ {
		for j := i + 1; j < len(m.Sides); j++ {
			sa, sb := 0.5, 0.5
			switch win {
			case i:
				sa, sb = 1, 0
			case j:
				sa, sb = 0, 1
			}
			for _, a := range m.Sides[i].Wrestlers {
				for _, b := range m.Sides[j].Wrestlers {
					if a == "" || b == "" || a == b {
						continue
					}
					out = append(out, Pairing{A: a, B: b, ScoreA: sa, ScoreB: sb})
				}
			}
		}
	}
	return out
}

// Key identifies the match for deduplication. Records without a store ID get
// a deterministic ID derived from their content, independent of side order.
// Two such records with identical content share a key; callers that can see
// genuine repeats, such as a rematch on the same card, must set ID.
func (m Match) Key() string {
	if m.ID != "" {
		return m.ID
	}
	sides := make([]string, len(m.Sides))
	for i, s := range m.Sides {
		ids := append([]string(nil), s.Wrestlers...)
		sort.Strings(ids)
		sides[i] = strconv.FormatBool(s.Winner) + ":" + strings.Join(ids, ",")
	}
	sort.Strings(sides)
	date := "unknown"
	if m.HasDate() {
		date = m.Date.Format(time.DateOnly)
	}
	raw := fmt.Sprintf("%s|%d|%s|%s|%s", date, m.Year, m.PromotionID, m.Country, strings.Join(sides, "/"))
	return "auto-" + strconv.FormatUint(xxhash.Sum64String(raw), 16)
}
