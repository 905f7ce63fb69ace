package matchstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/joshirank/internal/domain/model"
	"github.com/okian/joshirank/pkg/logger"
)

const recordsJSON = `{
  "wrestlers": [{"id": 9462, "name": "Wrestler A"}, {"id": "10402", "name": "Wrestler B"}],
  "records": [
    {
      "wrestler_id": 9462, "year": 2023,
      "promotions_worked": {"1467": 2},
      "matches": [
        {"date": "2023-05-01", "country": "Japan", "promotion": 1467,
         "sides": [{"wrestlers": [9462], "is_winner": true}, {"wrestlers": [10402], "is_winner": false}]},
        {"date": "Unknown", "country": "Unknown", "promotion": null,
         "side_a": [9462], "side_b": [10402], "is_victory": false}
      ]
    },
    {
      "wrestler_id": 10402, "year": 2023,
      "matches": [
        {"date": "2023-05-01", "country": "Japan", "promotion": 1467,
         "sides": [{"wrestlers": [9462], "is_winner": true}, {"wrestlers": [10402], "is_winner": false}]},
        {"date": "2023-06-11", "promotion": 326,
         "sides": [{"wrestlers": [10402], "is_winner": true}, {"wrestlers": [-1], "is_winner": false}]}
      ]
    }
  ]
}`

const matchesYAML = `
wrestlers:
  - id: a
    name: Alpha
matches:
  - id: m1
    date: 2022-03-04
    promotion: "745"
    sides:
      - wrestlers: [a]
        is_winner: true
      - wrestlers: [b]
      - wrestlers: [c]
  - id: m1
    date: 2022-03-04
    sides:
      - wrestlers: [a]
      - wrestlers: [b]
`

const rematchJSON = `{
  "records": [
    {
      "wrestler_id": 1, "year": 2023,
      "matches": [
        {"date": "2023-08-12", "promotion": 745, "side_a": [1], "side_b": [2], "is_victory": true},
        {"date": "2023-08-12", "promotion": 745, "side_a": [1], "side_b": [2], "is_victory": true}
      ]
    },
    {
      "wrestler_id": 2, "year": 2023,
      "matches": [
        {"date": "2023-08-12", "promotion": 745, "side_a": [1], "side_b": [2], "is_victory": true},
        {"date": "2023-08-12", "promotion": 745, "side_a": [1], "side_b": [2], "is_victory": true}
      ]
    }
  ]
}`

func TestDecode(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given per-wrestler records in JSON", t, func() {
		corpus, stats, err := NewReader().Decode(ctx, []byte(recordsJSON))
		So(err, ShouldBeNil)

		Convey("Then a match listed under both wrestlers is kept once", func() {
			So(stats.Records, ShouldEqual, 2)
			So(stats.Matches, ShouldEqual, 3)
			So(stats.Duplicates, ShouldEqual, 1)
			So(corpus.Len(), ShouldEqual, 3)
		})

		Convey("Then numeric IDs, names and the first match are normalized", func() {
			So(corpus.Name("9462"), ShouldEqual, "Wrestler A")
			m := corpus.Matches()[0]
			So(m.PromotionID, ShouldEqual, "1467")
			So(m.Country, ShouldEqual, "Japan")
			So(m.Year, ShouldEqual, 2023)
			out, ok := m.OutcomeFor("9462")
			So(ok, ShouldBeTrue)
			So(out, ShouldEqual, model.OutcomeWin)
		})

		Convey("Then an unknown date keeps the record year and a non-victory is a draw", func() {
			m := corpus.Matches()[1]
			So(m.HasDate(), ShouldBeFalse)
			So(m.Year, ShouldEqual, 2023)
			So(m.PromotionID, ShouldBeEmpty)
			So(m.Country, ShouldBeEmpty)
			out, _ := m.OutcomeFor("10402")
			So(out, ShouldEqual, model.OutcomeDraw)
		})

		Convey("Then a wrestler without a profile becomes an empty ID", func() {
			m := corpus.Matches()[2]
			So(m.Sides[1].Wrestlers, ShouldResemble, []string{""})
			So(errors.Is(m.Validate(), model.ErrMissingOpponent), ShouldBeTrue)
		})

		Convey("Then cached promotion counts are carried for verification", func() {
			So(corpus.CachedCounts[model.WrestlerYear{WrestlerID: "9462", Year: 2023}], ShouldResemble, map[string]int{"1467": 2})
			_, ok := corpus.CachedCounts[model.WrestlerYear{WrestlerID: "10402", Year: 2023}]
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a flat match list in YAML", t, func() {
		corpus, stats, err := NewReader().Decode(ctx, []byte(matchesYAML))
		So(err, ShouldBeNil)

		Convey("Then matches with the same ID are deduplicated", func() {
			So(stats.Matches, ShouldEqual, 1)
			So(stats.Duplicates, ShouldEqual, 1)
			So(stats.Wrestlers, ShouldEqual, 3)
		})

		Convey("Then unquoted dates and multi-sided matches survive", func() {
			m := corpus.Matches()[0]
			So(m.Date.Format(time.DateOnly), ShouldEqual, "2022-03-04")
			So(len(m.Sides), ShouldEqual, 3)
			So(m.PromotionID, ShouldEqual, "745")
		})
	})

	Convey("Given a same-card rematch listed in both wrestlers' records", t, func() {
		corpus, stats, err := NewReader().Decode(ctx, []byte(rematchJSON))
		So(err, ShouldBeNil)

		Convey("Then both bouts are kept and only the cross-record copies are dropped", func() {
			So(stats.Matches, ShouldEqual, 2)
			So(stats.Duplicates, ShouldEqual, 2)
			ms := corpus.Matches()
			So(ms[0].Key(), ShouldNotEqual, ms[1].Key())
		})
	})

	Convey("Given unusable input", t, func() {
		r := NewReader()

		Convey("Then an empty document is fatal", func() {
			_, _, err := r.Decode(ctx, []byte("  \n"))
			So(errors.Is(err, ErrMatchStore), ShouldBeTrue)
			_, _, err = r.Decode(ctx, []byte("{}"))
			So(errors.Is(err, ErrMatchStore), ShouldBeTrue)
		})

		Convey("Then a corrupt document is fatal", func() {
			_, _, err := r.Decode(ctx, []byte(`{"matches": [`))
			So(errors.Is(err, ErrMatchStore), ShouldBeTrue)
		})

		Convey("Then a missing file is fatal", func() {
			_, _, err := r.Load(ctx, filepath.Join(t.TempDir(), "missing.json"))
			So(errors.Is(err, ErrMatchStore), ShouldBeTrue)
			_, _, err = r.Load(ctx, "")
			So(errors.Is(err, ErrMatchStore), ShouldBeTrue)
		})
	})
}

func TestLoadAndWatch(t *testing.T) {
	_ = logger.Init()

	Convey("Given a store document on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "store.yaml")
		So(os.WriteFile(path, []byte(matchesYAML), 0o600), ShouldBeNil)

		Convey("When it is loaded", func() {
			corpus, _, err := NewReader(WithDedupeLimit(0)).Load(context.Background(), path)

			Convey("Then the corpus is returned", func() {
				So(err, ShouldBeNil)
				So(corpus.Len(), ShouldEqual, 1)
			})
		})

		Convey("When it changes while watched", func() {
			w, err := NewWatcher(path, 20*time.Millisecond)
			So(err, ShouldBeNil)
			defer w.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			changed := make(chan struct{}, 4)
			go w.Run(ctx, func(context.Context) { changed <- struct{}{} })

			So(os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600), ShouldBeNil)
			So(os.WriteFile(path, []byte(recordsJSON), 0o600), ShouldBeNil)

			Convey("Then the callback fires", func() {
				select {
				case <-changed:
					So(true, ShouldBeTrue)
				case <-time.After(2 * time.Second):
					So("no change reported", ShouldBeEmpty)
				}
			})
		})
	})
}
