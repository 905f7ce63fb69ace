package matchstore

import (
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/joshirank/internal/domain/model"
)

// unknown is how the store spells an unresolved date or country.
const unknown = "Unknown"

// noProfile is the store's ID for a wrestler named in a match without a
// profile link.
const noProfile = "-1"

// id accepts both numeric and string IDs.
type id string

func (i *id) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return &yaml.TypeError{Errors: []string{"line " + strconv.Itoa(n.Line) + ": id must be a scalar"}}
	}
	v := strings.TrimSpace(n.Value)
	if n.Tag == "!!null" || v == noProfile {
		v = ""
	}
	*i = id(v)
	return nil
}

func ids(in []id) []string {
	out := make([]string, len(in))
	for k, v := range in {
		out[k] = string(v)
	}
	return out
}

type document struct {
	Wrestlers []wrestlerDoc `yaml:"wrestlers"`
	Matches   []matchDoc    `yaml:"matches"`
	Records   []recordDoc   `yaml:"records"`
}

type wrestlerDoc struct {
	ID   id     `yaml:"id"`
	Name string `yaml:"name"`
}

type sideDoc struct {
	Wrestlers []id `yaml:"wrestlers"`
	IsWinner  bool `yaml:"is_winner"`
}

// matchDoc accepts both the sides list and the older side_a/side_b layout.
type matchDoc struct {
	ID        id        `yaml:"id"`
	Date      string    `yaml:"date"`
	Year      int       `yaml:"year"`
	Promotion id        `yaml:"promotion"`
	Country   string    `yaml:"country"`
	Sides     []sideDoc `yaml:"sides"`
	SideA     []id      `yaml:"side_a"`
	SideB     []id      `yaml:"side_b"`
	IsVictory *bool     `yaml:"is_victory"`
}

type recordDoc struct {
	WrestlerID       id             `yaml:"wrestler_id"`
	Name             string         `yaml:"name"`
	Year             int            `yaml:"year"`
	Matches          []matchDoc     `yaml:"matches"`
	PromotionsWorked map[string]int `yaml:"promotions_worked"`
}

func (d *document) empty() bool {
	return d.Wrestlers == nil && d.Matches == nil && d.Records == nil
}

// parseDate returns the zero time for unknown or malformed dates.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, unknown) {
		return time.Time{}
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// toMatch normalizes a stored match. recordYear fills in the year of matches
// whose date is unknown.
func (m matchDoc) toMatch(recordYear int) model.Match {
	out := model.Match{
		ID:          string(m.ID),
		Date:        parseDate(m.Date),
		Year:        m.Year,
		PromotionID: string(m.Promotion),
		Country:     strings.TrimSpace(m.Country),
	}
	if strings.EqualFold(out.Country, unknown) {
		out.Country = ""
	}
	if out.HasDate() {
		out.Year = out.Date.Year()
	}
	if out.Year == 0 {
		out.Year = recordYear
	}

	switch {
	case len(m.Sides) > 0:
		for _, s := range m.Sides {
			out.Sides = append(out.Sides, model.Side{Wrestlers: ids(s.Wrestlers), Winner: s.IsWinner})
		}
	case len(m.SideA) > 0 || len(m.SideB) > 0:
		victory := m.IsVictory == nil || *m.IsVictory
		out.Sides = []model.Side{
			{Wrestlers: ids(m.SideA), Winner: victory},
			{Wrestlers: ids(m.SideB)},
		}
	}
	// A draw may still carry a winner flag on its first side.
	if m.IsVictory != nil && !*m.IsVictory {
		for i := range out.Sides {
			out.Sides[i].Winner = false
		}
	}
	return out
}
