package network_test

import (
	"testing"
	"time"

	"github.com/okian/joshirank/internal/domain/model"
	"github.com/okian/joshirank/internal/domain/network"
	. "github.com/smartystreets/goconvey/convey"
)

func bout(id string, year int, sides ...[]string) model.Match {
	m := model.Match{ID: id, Year: year, Date: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)}
	for i, s := range sides {
		m.Sides = append(m.Sides, model.Side{Wrestlers: s, Winner: i == 0})
	}
	return m
}

func linkWeights(doc network.Document) map[string]int {
	out := make(map[string]int)
	for _, l := range doc.Links {
		out[l.Source+"-"+l.Target] = l.Weight
	}
	return out
}

func TestBuild(t *testing.T) {
	Convey("Given seed A with matches A-B and B-C", t, func() {
		matches := []model.Match{
			bout("1", 2023, []string{"A"}, []string{"B"}),
			bout("2", 2023, []string{"B"}, []string{"C"}),
		}

		Convey("When the network is built", func() {
			n, warnings := network.NewBuilder().Build([]string{"A"}, matches)
			doc := n.Document(nil)

			Convey("Then it contains A, B and C joined through B only", func() {
				So(warnings, ShouldBeEmpty)
				So(n.Members(), ShouldResemble, []string{"A", "B", "C"})
				So(linkWeights(doc), ShouldResemble, map[string]int{"A-B": 1, "B-C": 1})
				So(n.Weight("A", "C"), ShouldEqual, 0)
			})

			Convey("Then depth and stats describe the walk", func() {
				d, _ := n.Depth("C")
				So(d, ShouldEqual, 2)
				So(doc.Nodes[0].Seed, ShouldBeTrue)
				So(doc.Stats.Nodes, ShouldEqual, 3)
				So(doc.Stats.Links, ShouldEqual, 2)
				So(doc.Stats.Components, ShouldEqual, 1)
				So(doc.Stats.MeanWeight, ShouldEqual, 1)
			})
		})

		Convey("When the depth is limited to one hop", func() {
			n, _ := network.NewBuilder(network.WithMaxDepth(1)).Build([]string{"A"}, matches)

			Convey("Then C is out of reach", func() {
				So(n.Members(), ShouldResemble, []string{"A", "B"})
				So(linkWeights(n.Document(nil)), ShouldResemble, map[string]int{"A-B": 1})
			})
		})
	})

	Convey("Given repeated and multi-person matches", t, func() {
		matches := []model.Match{
			bout("1", 2022, []string{"A", "B"}, []string{"C", "D"}),
			bout("2", 2023, []string{"A"}, []string{"B"}, []string{"C"}),
			bout("3", 2023, []string{"A"}, []string{"C"}),
			bout("4", 2023, []string{"X"}, []string{"Y"}),
		}
		n, _ := network.NewBuilder().Build([]string{"A"}, matches)

		Convey("Then each weight is the exact shared-match count", func() {
			So(n.Weight("A", "B"), ShouldEqual, 2)
			So(n.Weight("A", "C"), ShouldEqual, 3)
			So(n.Weight("C", "A"), ShouldEqual, 3)
			So(n.Weight("B", "D"), ShouldEqual, 1)
			So(n.Weight("A", "A"), ShouldEqual, 0)
			So(n.Matches("A"), ShouldEqual, 3)
		})

		Convey("Then unreachable wrestlers stay out", func() {
			So(n.Contains("X"), ShouldBeFalse)
			So(n.Members(), ShouldResemble, []string{"A", "B", "C", "D"})
		})

		Convey("Then links carry their active years", func() {
			for _, l := range n.Document(nil).Links {
				if l.Source == "A" && l.Target == "C" {
					So(l.Years, ShouldResemble, []int{2022, 2023})
				}
			}
		})

		Convey("When a minimum weight of two applies", func() {
			heavy, _ := network.NewBuilder(network.WithMinEdgeWeight(2)).Build([]string{"A"}, matches)

			Convey("Then only the repeated pairs survive", func() {
				So(linkWeights(heavy.Document(nil)), ShouldResemble, map[string]int{"A-B": 2, "A-C": 3, "B-C": 2})
			})
		})

		Convey("When scoped to one year", func() {
			y, _ := network.NewBuilder(network.WithYear(2022)).Build([]string{"A"}, matches)

			Convey("Then only that year's matches form edges", func() {
				So(y.Weight("A", "C"), ShouldEqual, 1)
				So(y.Members(), ShouldResemble, []string{"A", "B", "C", "D"})
			})
		})
	})

	Convey("Given invalid matches", t, func() {
		matches := []model.Match{
			bout("1", 2023, []string{"A"}, []string{"A"}),
			bout("2", 2023, []string{"A"}),
			bout("3", 2023, []string{"A"}, []string{""}),
		}
		n, _ := network.NewBuilder(network.WithPruneIsolated(false)).Build([]string{"A"}, matches)

		Convey("Then they form no edges", func() {
			So(n.Weight("A", ""), ShouldEqual, 0)
			So(n.Document(nil).Links, ShouldBeEmpty)
		})
	})

	Convey("Given a tag match with an unlinked partner", t, func() {
		matches := []model.Match{
			bout("1", 2023, []string{"A", ""}, []string{"B", "C"}),
		}
		n, warnings := network.NewBuilder().Build([]string{"A"}, matches)

		Convey("Then every known participant is paired", func() {
			So(warnings, ShouldBeEmpty)
			So(n.Members(), ShouldResemble, []string{"A", "B", "C"})
			So(n.Weight("A", "B"), ShouldEqual, 1)
			So(n.Weight("A", "C"), ShouldEqual, 1)
			So(n.Weight("B", "C"), ShouldEqual, 1)
			So(n.Matches("A"), ShouldEqual, 1)
		})
	})

	Convey("Given an empty seed set", t, func() {
		n, warnings := network.NewBuilder().Build(nil, []model.Match{bout("1", 2023, []string{"A"}, []string{"B"})})

		Convey("Then the graph is empty and a warning is reported", func() {
			So(n.Members(), ShouldBeEmpty)
			So(warnings, ShouldHaveLength, 1)
			So(warnings[0].Kind, ShouldEqual, model.WarningEmptySeedSet)
			doc := n.Document(nil)
			So(doc.Nodes, ShouldBeEmpty)
			So(doc.Stats.Components, ShouldEqual, 0)
		})
	})

	Convey("Given seeds without qualifying edges", t, func() {
		matches := []model.Match{bout("1", 2023, []string{"A"}, []string{"B"})}

		Convey("Then an unknown seed is reported and skipped", func() {
			n, warnings := network.NewBuilder().Build([]string{"A", "ghost"}, matches)
			So(warnings, ShouldHaveLength, 1)
			So(warnings[0].Kind, ShouldEqual, model.WarningUnknownSeed)
			So(n.Seeds(), ShouldResemble, []string{"A"})
		})

		Convey("Then an isolated seed is pruned unless pruning is off", func() {
			pruned, _ := network.NewBuilder(network.WithMinEdgeWeight(2)).Build([]string{"A"}, matches)
			So(pruned.Members(), ShouldBeEmpty)
			kept, _ := network.NewBuilder(network.WithMinEdgeWeight(2), network.WithPruneIsolated(false)).Build([]string{"A"}, matches)
			So(kept.Members(), ShouldResemble, []string{"A"})
		})
	})

	Convey("Given a minimum match count for wrestlers", t, func() {
		matches := []model.Match{
			bout("1", 2023, []string{"A"}, []string{"B"}),
			bout("2", 2023, []string{"A"}, []string{"B"}),
			bout("3", 2023, []string{"B"}, []string{"C"}),
		}
		n, _ := network.NewBuilder(network.WithMinNodeMatches(2)).Build([]string{"A"}, matches)

		Convey("Then light wrestlers are not reached", func() {
			So(n.Members(), ShouldResemble, []string{"A", "B"})
		})
	})
}

func TestDocument(t *testing.T) {
	Convey("Given an annotated network", t, func() {
		matches := []model.Match{
			bout("1", 2023, []string{"A"}, []string{"B"}),
			bout("2", 2023, []string{"B"}, []string{"C"}),
			bout("3", 2023, []string{"C"}, []string{"B"}),
		}
		n, _ := network.NewBuilder().Build([]string{"A"}, matches)
		info := map[string]network.NodeInfo{
			"A": {Name: "Alpha", Primary: "326", Member: true, Label: "joshi"},
			"B": {Name: "Bravo", Primary: "1467", Member: true, Label: "joshi"},
			"C": {Primary: "326"},
		}
		doc := n.Document(func(id string) network.NodeInfo { return info[id] })

		Convey("Then nodes carry names, labels and promotion groups", func() {
			So(doc.Nodes[0].Name, ShouldEqual, "Alpha")
			So(doc.Nodes[2].Name, ShouldEqual, "C")
			So(doc.Nodes[0].Group, ShouldEqual, doc.Nodes[2].Group)
			So(doc.Nodes[1].Group, ShouldNotEqual, doc.Nodes[0].Group)
			So(doc.Nodes[1].Matches, ShouldEqual, 3)
			So(doc.Nodes[1].LogMatches, ShouldAlmostEqual, 0.4771, 0.0001)
		})

		Convey("Then link values are log-scaled weights", func() {
			So(doc.Links[1].Source, ShouldEqual, "B")
			So(doc.Links[1].Weight, ShouldEqual, 2)
			So(doc.Links[1].LogValue, ShouldAlmostEqual, 0.30103, 0.0001)
			So(doc.Stats.MeanDegree, ShouldAlmostEqual, 4.0/3.0, 1e-9)
		})
	})
}
