package rating_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/joshirank/internal/domain/model"
	"github.com/okian/joshirank/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func match(id string, date time.Time, winner, loser string) model.Match {
	return model.Match{
		ID:   id,
		Date: date,
		Sides: []model.Side{
			{Wrestlers: []string{winner}, Winner: true},
			{Wrestlers: []string{loser}},
		},
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUpdate(t *testing.T) {
	Convey("Given the example from Glickman's Glicko-2 paper", t, func() {
		player := rating.State{Rating: 1500, Deviation: 200, Volatility: 0.06}
		results := []rating.Opponent{
			{State: rating.State{Rating: 1400, Deviation: 30, Volatility: 0.06}, Score: 1},
			{State: rating.State{Rating: 1550, Deviation: 100, Volatility: 0.06}, Score: 0},
			{State: rating.State{Rating: 1700, Deviation: 300, Volatility: 0.06}, Score: 0},
		}

		Convey("When the period is applied", func() {
			next, iterations, err := rating.Update(player, results, rating.DefaultParams())

			Convey("Then it matches the published values", func() {
				So(err, ShouldBeNil)
				So(iterations, ShouldBeGreaterThan, 0)
				So(next.Rating, ShouldAlmostEqual, 1464.06, 0.01)
				So(next.Deviation, ShouldAlmostEqual, 151.52, 0.01)
				So(next.Volatility, ShouldAlmostEqual, 0.05999, 0.00001)
			})
		})

		Convey("When the solver is allowed a single iteration", func() {
			params := rating.DefaultParams()
			params.MaxIterations = 1
			params.Tolerance = 1e-15
			next, _, err := rating.Update(player, results, params)

			Convey("Then it falls back to the prior volatility", func() {
				So(errors.Is(err, rating.ErrNonConvergentVolatility), ShouldBeTrue)
				So(next.Volatility, ShouldEqual, player.Volatility)
				So(next.Rating, ShouldBeLessThan, player.Rating)
			})
		})

		Convey("When there are no results", func() {
			next, iterations, err := rating.Update(player, nil, rating.DefaultParams())

			Convey("Then only the deviation moves", func() {
				So(err, ShouldBeNil)
				So(iterations, ShouldEqual, 0)
				So(next.Rating, ShouldEqual, player.Rating)
				So(next.Deviation, ShouldBeGreaterThan, player.Deviation)
			})
		})
	})
}

func TestSolveVolatility(t *testing.T) {
	in := rating.VolatilityInput{Sigma: 0.06, Phi: 1.1513, Variance: 1.7785, Delta: -0.4834}

	Convey("Given the paper's intermediate quantities", t, func() {
		Convey("When solved with the default budget", func() {
			sigma, iterations, err := rating.SolveVolatility(in, 0.5, 1e-6, 100)

			Convey("Then it converges to the published volatility", func() {
				So(err, ShouldBeNil)
				So(iterations, ShouldBeLessThanOrEqualTo, 100)
				So(sigma, ShouldAlmostEqual, 0.05999, 0.00001)
			})
		})

		Convey("When the budget is too small", func() {
			sigma, iterations, err := rating.SolveVolatility(in, 0.5, 1e-15, 2)

			Convey("Then non-convergence is signalled", func() {
				So(errors.Is(err, rating.ErrNonConvergentVolatility), ShouldBeTrue)
				So(iterations, ShouldBeGreaterThan, 2)
				So(sigma, ShouldEqual, in.Sigma)
			})
		})
	})
}

func TestDecay(t *testing.T) {
	Convey("Given an inactive wrestler", t, func() {
		params := rating.DefaultParams()
		s := rating.State{Rating: 1620, Deviation: 80, Volatility: 0.06}

		Convey("Then every idle period keeps the rating and widens the deviation", func() {
			prev := s
			for i := 0; i < 20; i++ {
				next := rating.Decay(prev, params)
				So(next.Rating, ShouldEqual, s.Rating)
				So(next.Volatility, ShouldEqual, s.Volatility)
				So(next.Deviation, ShouldBeGreaterThan, prev.Deviation)
				So(next.Deviation, ShouldBeLessThanOrEqualTo, params.MaxDeviation)
				prev = next
			}
		})

		Convey("Then the deviation never exceeds the cap", func() {
			params.MaxDeviation = 80.5
			So(rating.Decay(s, params).Deviation, ShouldEqual, 80.5)
			So(rating.Decay(rating.Decay(s, params), params).Deviation, ShouldEqual, 80.5)
		})
	})
}

func TestEngineRun(t *testing.T) {
	Convey("Given A beating B twice in one period from default states", t, func() {
		e := rating.NewEngine()
		res := e.Run([]model.Match{
			match("1", day(2023, 3, 1), "A", "B"),
			match("2", day(2023, 6, 1), "A", "B"),
		})

		Convey("Then A rises, B falls and both deviations shrink", func() {
			a, b := res.Final["A"].State, res.Final["B"].State
			So(a.Rating, ShouldBeGreaterThan, 1500)
			So(b.Rating, ShouldBeLessThan, 1500)
			So(a.Deviation, ShouldBeLessThan, 350)
			So(b.Deviation, ShouldBeLessThan, 350)
			So(res.Warnings, ShouldBeEmpty)
		})

		Convey("Then one snapshot per active wrestler is produced", func() {
			So(res.Periods, ShouldResemble, []string{"2023"})
			So(res.Snapshots, ShouldHaveLength, 2)
			So(res.Snapshots[0].WrestlerID, ShouldEqual, "A")
			So(res.Snapshots[0].Record.String(), ShouldEqual, "2-0-0")
			So(res.Snapshots[1].Record.String(), ShouldEqual, "0-2-0")
			So(res.Final["A"].Matches, ShouldEqual, 2)
		})

		Convey("Then the run is deterministic", func() {
			again := e.Run([]model.Match{
				match("1", day(2023, 3, 1), "A", "B"),
				match("2", day(2023, 6, 1), "A", "B"),
			})
			So(again.Snapshots, ShouldResemble, res.Snapshots)
		})
	})

	Convey("Given a wrestler who sits out a period", t, func() {
		res := rating.NewEngine().Run([]model.Match{
			match("1", day(2021, 3, 1), "A", "B"),
			match("2", day(2023, 3, 1), "C", "D"),
		})

		Convey("Then idle periods are still stepped", func() {
			So(res.Periods, ShouldResemble, []string{"2021", "2022", "2023"})
		})

		Convey("Then the rating is constant and the deviation grows", func() {
			after2021 := res.Snapshots[0]
			So(after2021.WrestlerID, ShouldEqual, "A")
			final := res.Final["A"]
			So(final.State.Rating, ShouldEqual, after2021.State.Rating)
			So(final.State.Deviation, ShouldBeGreaterThan, after2021.State.Deviation)
			So(final.State.Deviation, ShouldBeLessThanOrEqualTo, 350)
			So(final.LastActive, ShouldEqual, "2021")
			So(res.Stats.Decays, ShouldEqual, 4)
		})
	})

	Convey("Given matches that arrive out of order on the same day", t, func() {
		first := match("1", day(2023, 3, 1), "A", "B")
		second := match("2", day(2023, 3, 1), "B", "A")
		e := rating.NewEngine(rating.WithGranularity(rating.Month))
		res := e.Run([]model.Match{first, second})

		Convey("Then input order is kept and the record is even", func() {
			So(res.Periods, ShouldResemble, []string{"2023-03"})
			So(res.Final["A"].Record.String(), ShouldEqual, "1-1-0")
			So(res.Final["A"].State.Rating, ShouldAlmostEqual, 1500, 1e-9)
		})
	})

	Convey("Given bad records mixed with good ones", t, func() {
		good := match("1", day(2023, 3, 1), "A", "B")
		lonely := model.Match{ID: "2", Date: day(2023, 3, 2), Sides: []model.Side{{Wrestlers: []string{"A"}, Winner: true}}}
		undated := match("3", time.Time{}, "A", "B")
		res := rating.NewEngine().Run([]model.Match{good, lonely, undated})

		Convey("Then they are skipped with warnings and the rest is rated", func() {
			So(res.Warnings, ShouldHaveLength, 2)
			So(res.Warnings[0].Kind, ShouldEqual, model.WarningMissingOpponent)
			So(res.Warnings[0].MatchID, ShouldEqual, "2")
			So(res.Warnings[1].Kind, ShouldEqual, model.WarningMissingDate)
			So(res.Final["A"].Matches, ShouldEqual, 1)
		})
	})

	Convey("Given a solver budget that can never converge", t, func() {
		params := rating.DefaultParams()
		params.MaxIterations = 1
		params.Tolerance = 1e-15
		res := rating.NewEngine(rating.WithParams(params)).Run([]model.Match{
			match("1", day(2023, 3, 1), "A", "B"),
		})

		Convey("Then each wrestler keeps the prior volatility and is reported", func() {
			So(res.Final["A"].State.Volatility, ShouldEqual, 0.06)
			So(res.Final["A"].State.Rating, ShouldBeGreaterThan, 1500)
			So(res.Stats.NonConverged, ShouldEqual, 2)
			for _, w := range res.Warnings {
				So(w.Kind, ShouldEqual, model.WarningNonConvergentVolatility)
				So(w.Period, ShouldEqual, "2023")
			}
		})
	})

	Convey("Given seeded states from a previous year", t, func() {
		seed := map[string]rating.State{
			"A": {Rating: 1400, Deviation: 80, Volatility: 0.06},
			"B": {Rating: 1700, Deviation: 80, Volatility: 0.06},
		}
		res := rating.NewEngine(rating.WithSeed(seed)).Run([]model.Match{
			match("1", day(2024, 2, 1), "A", "B"),
		})

		Convey("Then the run starts from the seed and flags the upset", func() {
			So(res.Final["A"].State.Rating, ShouldBeGreaterThan, 1400)
			So(res.Final["A"].State.Deviation, ShouldBeLessThan, 80)
			So(res.Upsets, ShouldHaveLength, 1)
			So(res.Upsets[0].WinnerID, ShouldEqual, "A")
			So(res.Snapshots[0].Upsets, ShouldEqual, 1)
		})

		Convey("Then the caller's seed map is not modified", func() {
			So(seed["A"].Rating, ShouldEqual, 1400)
		})
	})

	Convey("Given a four-way match", t, func() {
		m := model.Match{ID: "1", Date: day(2023, 1, 1), Sides: []model.Side{
			{Wrestlers: []string{"A"}, Winner: true},
			{Wrestlers: []string{"B"}},
			{Wrestlers: []string{"C"}},
			{Wrestlers: []string{"D"}},
		}}
		res := rating.NewEngine().Run([]model.Match{m})

		Convey("Then the winner gains and the losers move together", func() {
			So(res.Final["A"].State.Rating, ShouldBeGreaterThan, 1500)
			So(res.Final["B"].State.Rating, ShouldBeLessThan, 1500)
			So(res.Final["B"].State.Rating, ShouldAlmostEqual, res.Final["C"].State.Rating, 1e-9)
			So(res.Final["B"].Record.String(), ShouldEqual, "0-1-0")
		})
	})
}

func TestPeriods(t *testing.T) {
	Convey("Given a date", t, func() {
		d := day(2023, 5, 3) // a Wednesday

		Convey("Then each granularity labels its period", func() {
			So(rating.PeriodOf(d, rating.Year).String(), ShouldEqual, "2023")
			So(rating.PeriodOf(d, rating.Month).String(), ShouldEqual, "2023-05")
			So(rating.PeriodOf(d, rating.Week).String(), ShouldEqual, "2023-W18")
			So(rating.PeriodOf(d, rating.Week).Start, ShouldEqual, day(2023, 5, 1))
		})

		Convey("Then Next advances by one period", func() {
			So(rating.PeriodOf(d, rating.Month).Next().String(), ShouldEqual, "2023-06")
			So(rating.PeriodOf(d, rating.Week).Next().String(), ShouldEqual, "2023-W19")
			So(rating.PeriodOf(d, rating.Year).Next().Year(), ShouldEqual, 2024)
		})
	})

	Convey("Given granularity names", t, func() {
		g, err := rating.ParseGranularity("")
		So(err, ShouldBeNil)
		So(g, ShouldEqual, rating.Year)
		_, err = rating.ParseGranularity("decade")
		So(errors.Is(err, rating.ErrUnknownGranularity), ShouldBeTrue)
	})

	Convey("Given parameters", t, func() {
		So(rating.DefaultParams().Validate(), ShouldBeNil)
		p := rating.DefaultParams()
		p.Tau = 0
		So(errors.Is(p.Validate(), rating.ErrInvalidParams), ShouldBeTrue)
	})
}
