package rating

import (
	"errors"
	"fmt"
	"sort"

	"github.com/okian/joshirank/internal/domain/model"
	"github.com/okian/joshirank/internal/domain/types"
)

// Snapshot is a wrestler's end-of-period state for a period they competed in.
type Snapshot struct {
	WrestlerID string       `json:"wrestler_id" yaml:"wrestler_id"`
	Period     string       `json:"period" yaml:"period"`
	Year       int          `json:"year" yaml:"year"`
	State      State        `json:"state" yaml:"state"`
	Matches    int          `json:"matches" yaml:"matches"`
	Record     types.Record `json:"record" yaml:"record"`
	Upsets     int          `json:"upsets,omitempty" yaml:"upsets,omitempty"`
}

// Standing is a wrestler's state after the last period of the run.
type Standing struct {
	WrestlerID string       `json:"wrestler_id" yaml:"wrestler_id"`
	State      State        `json:"state" yaml:"state"`
	Matches    int          `json:"matches" yaml:"matches"`
	Record     types.Record `json:"record" yaml:"record"`
	LastActive string       `json:"last_active,omitempty" yaml:"last_active,omitempty"`
}

// Upset is a win over a wrestler who started the period rated higher.
type Upset struct {
	MatchID      string  `json:"match_id" yaml:"match_id"`
	Period       string  `json:"period" yaml:"period"`
	WinnerID     string  `json:"winner_id" yaml:"winner_id"`
	LoserID      string  `json:"loser_id" yaml:"loser_id"`
	WinnerRating float64 `json:"winner_rating" yaml:"winner_rating"`
	LoserRating  float64 `json:"loser_rating" yaml:"loser_rating"`
}

// Stats counts engine work for metrics.
type Stats struct {
	Periods          int
	Updates          int
	Decays           int
	SolverIterations int
	NonConverged     int
	Failures         int
}

// Result is the output of one run.
type Result struct {
	Periods   []string
	Snapshots []Snapshot
	Final     map[string]Standing
	Upsets    []Upset
	Warnings  []model.Warning
	Stats     Stats
}

// Engine runs the Glicko-2 recurrence. It holds no state between runs.
type Engine struct {
	params      Params
	granularity Granularity
	seed        map[string]State
}

// NewEngine creates an engine with default constants and yearly periods.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		params:      DefaultParams(),
		granularity: Year,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the constants the engine runs with.
func (e *Engine) Params() Params { return e.params }

type periodBatch struct {
	period  Period
	matches []model.Match
}

// Run rates matches period by period. Matches are ordered by date with input
// order breaking ties. Invalid or undated matches are skipped with a warning.
func (e *Engine) Run(matches []model.Match) Result {
	res := Result{Final: make(map[string]Standing)}

	usable := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if err := m.Validate(); err != nil {
			res.Warnings = append(res.Warnings, model.Warning{
				Kind:    model.WarningMissingOpponent,
				MatchID: m.Key(),
				Message: err.Error(),
			})
			continue
		}
		if !m.HasDate() {
			res.Warnings = append(res.Warnings, model.Warning{
				Kind:    model.WarningMissingDate,
				MatchID: m.Key(),
				Message: model.ErrMissingDate.Error(),
			})
			continue
		}
		usable = append(usable, m)
	}
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Date.Before(usable[j].Date)
	})

	states := make(map[string]State, len(e.seed))
	for id, s := range e.seed {
		states[id] = s
	}
	for id, s := range states {
		res.Final[id] = Standing{WrestlerID: id, State: s}
	}

	for _, batch := range e.batches(usable) {
		e.runPeriod(batch, states, &res)
	}
	return res
}

// batches groups sorted matches into contiguous periods from the first to the
// last, including empty periods so inactive wrestlers decay.
func (e *Engine) batches(sorted []model.Match) []periodBatch {
	if len(sorted) == 0 {
		return nil
	}
	cur := PeriodOf(sorted[0].Date, e.granularity)
	last := PeriodOf(sorted[len(sorted)-1].Date, e.granularity)
	out := []periodBatch{{period: cur}}
	for _, m := range sorted {
		p := PeriodOf(m.Date, e.granularity)
		for out[len(out)-1].period.Start.Before(p.Start) {
			out = append(out, periodBatch{period: out[len(out)-1].period.Next()})
		}
		out[len(out)-1].matches = append(out[len(out)-1].matches, m)
	}
	for out[len(out)-1].period.Start.Before(last.Start) {
		out = append(out, periodBatch{period: out[len(out)-1].period.Next()})
	}
	return out
}

type periodEntry struct {
	results []Opponent
	matches int
	record  types.Record
	upsets  int
}

func (e *Engine) runPeriod(b periodBatch, states map[string]State, res *Result) {
	label := b.period.String()
	res.Periods = append(res.Periods, label)
	res.Stats.Periods++

	// New wrestlers enter at the initial state, visible to opponents in this
	// same period.
	for _, m := range b.matches {
		for _, id := range m.Participants() {
			if _, ok := states[id]; !ok {
				states[id] = e.params.Initial()
			}
		}
	}
	start := make(map[string]State, len(states))
	for id, s := range states {
		start[id] = s
	}

	entries := make(map[string]*periodEntry)
	entry := func(id string) *periodEntry {
		pe, ok := entries[id]
		if !ok {
			pe = &periodEntry{}
			entries[id] = pe
		}
		return pe
	}

	for _, m := range b.matches {
		for _, id := range m.Participants() {
			pe := entry(id)
			pe.matches++
			switch o, _ := m.OutcomeFor(id); o {
			case model.OutcomeWin:
				pe.record.Wins++
			case model.OutcomeDraw:
				pe.record.Draws++
			default:
				pe.record.Losses++
			}
		}
		for _, p := range m.Pairings() {
			a, bb := start[p.A], start[p.B]
			entry(p.A).results = append(entry(p.A).results, Opponent{State: bb, Score: p.ScoreA})
			entry(p.B).results = append(entry(p.B).results, Opponent{State: a, Score: p.ScoreB})
			if up, ok := upset(m, p, a, bb, label); ok {
				res.Upsets = append(res.Upsets, up)
				entry(up.WinnerID).upsets++
			}
		}
	}

	for _, id := range sortedIDs(states) {
		pe, active := entries[id]
		if !active {
			states[id] = Decay(start[id], e.params)
			res.Stats.Decays++
			st := res.Final[id]
			st.WrestlerID = id
			st.State = states[id]
			res.Final[id] = st
			continue
		}

		next, err := e.updateIsolated(start[id], pe.results, res)
		if err != nil {
			kind := model.WarningRatingFailure
			if errors.Is(err, ErrNonConvergentVolatility) {
				kind = model.WarningNonConvergentVolatility
			}
			res.Warnings = append(res.Warnings, model.Warning{
				Kind:       kind,
				WrestlerID: id,
				Period:     label,
				Message:    err.Error(),
			})
		}
		states[id] = next
		res.Stats.Updates++

		res.Snapshots = append(res.Snapshots, Snapshot{
			WrestlerID: id,
			Period:     label,
			Year:       b.period.Year(),
			State:      next,
			Matches:    pe.matches,
			Record:     pe.record,
			Upsets:     pe.upsets,
		})
		st := res.Final[id]
		st.WrestlerID = id
		st.State = next
		st.Matches += pe.matches
		st.Record = st.Record.Add(pe.record)
		st.LastActive = label
		res.Final[id] = st
	}
}

// updateIsolated runs Update and converts a panic into an error so one
// wrestler cannot take down the period. On any error other than
// non-convergence the prior state is kept.
func (e *Engine) updateIsolated(s State, results []Opponent, res *Result) (next State, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = s, fmt.Errorf("rating update panicked: %v", r)
			res.Stats.Failures++
		}
	}()
	next, iterations, err := Update(s, results, e.params)
	res.Stats.SolverIterations += iterations
	switch {
	case err == nil:
	case errors.Is(err, ErrNonConvergentVolatility):
		res.Stats.NonConverged++
	default:
		res.Stats.Failures++
		next = s
	}
	return next, err
}

func upset(m model.Match, p model.Pairing, a, b State, label string) (Upset, bool) {
	switch {
	case p.ScoreA == 1 && a.Rating < b.Rating:
		return Upset{MatchID: m.Key(), Period: label, WinnerID: p.A, LoserID: p.B, WinnerRating: a.Rating, LoserRating: b.Rating}, true
	case p.ScoreB == 1 && b.Rating < a.Rating:
		return Upset{MatchID: m.Key(), Period: label, WinnerID: p.B, LoserID: p.A, WinnerRating: b.Rating, LoserRating: a.Rating}, true
	}
	return Upset{}, false
}

func sortedIDs(states map[string]State) []string {
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
