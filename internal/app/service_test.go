package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/joshirank/internal/adapters/repository"
	service "github.com/okian/joshirank/internal/app"
	"github.com/okian/joshirank/internal/domain/model"
	"github.com/okian/joshirank/internal/domain/network"
	"github.com/okian/joshirank/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func singles(id string, date time.Time, promo, winner, loser string) model.Match {
	return model.Match{
		ID:          id,
		Date:        date,
		PromotionID: promo,
		Sides: []model.Side{
			{Wrestlers: []string{winner}, Winner: true},
			{Wrestlers: []string{loser}},
		},
	}
}

// sampleCorpus: A beats B twice, B beats C, C and D draw, D beats E. A also
// has an undated match without an opponent.
func sampleCorpus() *model.Corpus {
	c := model.NewCorpus()
	c.AddWrestler(model.Wrestler{ID: "A", Name: "Alpha"})
	c.AddMatch(singles("m1", day(2023, 1, 10), "1467", "A", "B"))
	c.AddMatch(singles("m2", day(2023, 2, 10), "1467", "A", "B"))
	c.AddMatch(singles("m3", day(2023, 3, 10), "745", "B", "C"))
	draw := singles("m4", day(2023, 4, 10), "326", "C", "D")
	draw.Sides[0].Winner = false
	c.AddMatch(draw)
	c.AddMatch(singles("m5", day(2023, 5, 10), "326", "D", "E"))
	c.AddMatch(model.Match{ID: "m6", Sides: []model.Side{{Wrestlers: []string{"A"}, Winner: true}}})
	return c
}

func TestService_Run(t *testing.T) {
	Convey("Given a service over a small corpus", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithTargets("1467"),
			service.WithSeeds("A"),
			service.WithLeaderboardMinMatches(1),
			service.WithWorkerCount(4),
			service.WithNetworkOptions(network.WithMaxDepth(2)),
		)
		defer svc.Close()

		res, err := svc.Run(ctx, sampleCorpus())
		So(err, ShouldBeNil)

		Convey("Then every wrestler is rated and A leads", func() {
			So(res.RunID, ShouldNotBeEmpty)
			So(res.Final, ShouldHaveLength, 5)
			So(res.Leaderboard[0].WrestlerID, ShouldEqual, "A")
			So(res.Leaderboard[0].Name, ShouldEqual, "Alpha")
			So(res.Leaderboard[0].Rank, ShouldEqual, 1)
			So(res.Periods, ShouldResemble, []string{"2023"})
		})

		Convey("Then the bad match is reported and skipped", func() {
			So(res.Warnings, ShouldHaveLength, 1)
			So(res.Warnings[0].Kind, ShouldEqual, model.WarningMissingOpponent)
			So(res.Warnings[0].MatchID, ShouldEqual, "m6")
		})

		Convey("Then attribution and classification follow the promotions", func() {
			So(res.Attribution, ShouldHaveLength, 5)
			byID := map[string]service.AttributionRow{}
			for _, r := range res.Attribution {
				byID[r.WrestlerID] = r
			}
			So(byID["A"].Counts, ShouldResemble, map[string]int{"1467": 2})
			So(byID["A"].Unattributed, ShouldEqual, 1)
			So(byID["A"].Total, ShouldEqual, 3)
			So(byID["B"].Primary, ShouldEqual, "1467")

			labels := map[string]bool{}
			for _, c := range res.Classified {
				labels[c.WrestlerID] = c.Member
			}
			So(labels, ShouldResemble, map[string]bool{"A": true, "B": true, "C": false, "D": false, "E": false})
		})

		Convey("Then the network is grown from A to depth two", func() {
			ids := []string{}
			for _, n := range res.Network.Nodes {
				ids = append(ids, n.ID)
			}
			So(ids, ShouldResemble, []string{"A", "B", "C"})
			So(res.Network.Links, ShouldHaveLength, 2)
			So(res.Network.Links[0].Weight, ShouldEqual, 2)
			So(res.Network.Nodes[0].Member, ShouldBeTrue)
			So(res.Network.Nodes[0].Rating, ShouldBeGreaterThan, 1500)
		})

		Convey("Then results do not depend on the worker count", func() {
			single := service.New(
				service.WithTargets("1467"),
				service.WithSeeds("A"),
				service.WithLeaderboardMinMatches(1),
				service.WithWorkerCount(1),
				service.WithNetworkOptions(network.WithMaxDepth(2)),
			)
			again, err := single.Run(ctx, sampleCorpus())
			So(err, ShouldBeNil)
			So(again.Attribution, ShouldResemble, res.Attribution)
			So(again.Classified, ShouldResemble, res.Classified)
			So(again.Final, ShouldResemble, res.Final)
			So(again.Network, ShouldResemble, res.Network)
		})
	})
}

func TestService_SingleYear(t *testing.T) {
	Convey("Given matches over two years", t, func() {
		ctx := context.Background()
		c := model.NewCorpus()
		c.AddMatch(singles("p1", day(2022, 6, 1), "1467", "A", "B"))
		c.AddMatch(singles("p2", day(2022, 7, 1), "1467", "A", "B"))
		c.AddMatch(singles("y1", day(2023, 6, 1), "745", "B", "C"))

		Convey("When ranking 2023 alone", func() {
			res, err := service.New(service.WithYear(2023), service.WithLeaderboardMinMatches(0)).Run(ctx, c)
			So(err, ShouldBeNil)

			Convey("Then only 2023 wrestlers appear", func() {
				So(res.Final, ShouldHaveLength, 2)
				So(res.Attribution, ShouldHaveLength, 2)
				So(res.Attribution[0].Year, ShouldEqual, 2023)
			})
		})

		Convey("When ranking 2023 seeded from 2022", func() {
			res, err := service.New(
				service.WithYear(2023),
				service.WithSeedPriorYear(true),
				service.WithLeaderboardMinMatches(0),
			).Run(ctx, c)
			So(err, ShouldBeNil)

			Convey("Then prior wrestlers carry their states in", func() {
				So(res.Final, ShouldHaveLength, 3)
				var a float64
				for _, st := range res.Final {
					if st.WrestlerID == "A" {
						a = st.State.Rating
					}
				}
				So(a, ShouldBeGreaterThan, 1500)
			})
		})
	})
}

func TestService_AttributionCache(t *testing.T) {
	Convey("Given a persisted cache holding stale counts", t, func() {
		ctx := context.Background()
		sqlite, err := repository.OpenSQLiteCache(ctx, ":memory:")
		So(err, ShouldBeNil)
		cache, err := repository.NewLRUCache(16, sqlite)
		So(err, ShouldBeNil)

		stale := repository.CacheKey{WrestlerID: "A", Year: 2023}
		So(sqlite.Put(ctx, stale, map[string]int{"1467": 1}), ShouldBeNil)

		corpus := sampleCorpus()
		corpus.CachedCounts[model.WrestlerYear{WrestlerID: "B", Year: 2023}] = map[string]int{"1467": 2, "745": 1}
		corpus.CachedCounts[model.WrestlerYear{WrestlerID: "C", Year: 2023}] = map[string]int{"745": 1, "326": 1, "9999": 0}
		corpus.CachedCounts[model.WrestlerYear{WrestlerID: "D", Year: 2023}] = map[string]int{"326": 3}

		svc := service.New(service.WithCache(cache), service.WithYear(2023))
		defer svc.Close()
		res, err := svc.Run(ctx, corpus)
		So(err, ShouldBeNil)

		Convey("Then each disagreement is reported once and repaired", func() {
			var mismatched []string
			for _, w := range res.Warnings {
				if w.Kind == model.WarningInconsistentPromotionCount {
					mismatched = append(mismatched, w.WrestlerID)
				}
			}
			So(mismatched, ShouldResemble, []string{"A", "D"})

			raw, err := sqlite.Raw(ctx, stale)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"1467":2}`)
		})

		Convey("Then a second run agrees with the repaired cache", func() {
			corpus.CachedCounts = map[model.WrestlerYear]map[string]int{}
			again, err := svc.Run(ctx, corpus)
			So(err, ShouldBeNil)
			for _, w := range again.Warnings {
				So(w.Kind, ShouldNotEqual, model.WarningInconsistentPromotionCount)
			}
			n, err := sqlite.Len(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 5)
		})
	})
}

func TestService_NotReady(t *testing.T) {
	Convey("Given a service that has not run", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("Then reads report that no result exists", func() {
			_, err := svc.TopN(ctx, 10)
			So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)
			_, err = svc.Rank(ctx, "A")
			So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)
			_, err = svc.Network(ctx)
			So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)
			So(svc.GetStats()["ready"], ShouldEqual, false)
			So(svc.Current(), ShouldBeNil)
		})
	})
}
