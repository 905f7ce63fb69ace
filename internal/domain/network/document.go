package network

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat"
)

// NodeInfo is what the caller knows about a wrestler beyond the graph.
type NodeInfo struct {
	Name    string
	Label   string // classification label, empty when unknown
	Member  bool
	Primary string // primary promotion
	Rating  float64
}

// Annotate supplies NodeInfo for a wrestler ID.
type Annotate func(id string) NodeInfo

// Node is a graph document vertex.
type Node struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Label      string  `json:"label,omitempty" yaml:"label,omitempty"`
	Member     bool    `json:"member" yaml:"member"`
	Seed       bool    `json:"seed" yaml:"seed"`
	Depth      int     `json:"depth" yaml:"depth"`
	Primary    string  `json:"primary_promotion,omitempty" yaml:"primary_promotion,omitempty"`
	Group      int     `json:"group" yaml:"group"`
	Matches    int     `json:"matches" yaml:"matches"`
	LogMatches float64 `json:"log_matches" yaml:"log_matches"`
	Rating     float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
}

// Link is a graph document edge. Source sorts before Target.
type Link struct {
	Source   string  `json:"source" yaml:"source"`
	Target   string  `json:"target" yaml:"target"`
	Weight   int     `json:"weight" yaml:"weight"`
	LogValue float64 `json:"value" yaml:"value"`
	Years    []int   `json:"years,omitempty" yaml:"years,omitempty"`
}

// Stats summarizes the emitted graph.
type Stats struct {
	Nodes      int     `json:"nodes" yaml:"nodes"`
	Links      int     `json:"links" yaml:"links"`
	Seeds      int     `json:"seeds" yaml:"seeds"`
	Components int     `json:"components" yaml:"components"`
	MeanWeight float64 `json:"mean_weight" yaml:"mean_weight"`
	MeanDegree float64 `json:"mean_degree" yaml:"mean_degree"`
}

// Document is the serializable form of a Network consumed by renderers.
type Document struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Links []Link `json:"links" yaml:"links"`
	Stats Stats  `json:"stats" yaml:"stats"`
}

// Document renders the network. annotate may be nil. Nodes are sorted by ID
// and links by (source, target).
func (n *Network) Document(annotate Annotate) Document {
	doc := Document{Nodes: []Node{}, Links: []Link{}}
	members := n.Members()

	seeds := make(map[string]struct{}, len(n.seeds))
	for _, s := range n.seeds {
		seeds[s] = struct{}{}
	}

	groups := make(map[string]int)
	for _, id := range members {
		info := NodeInfo{Name: id}
		if annotate != nil {
			info = annotate(id)
			if info.Name == "" {
				info.Name = id
			}
		}
		_, seed := seeds[id]
		doc.Nodes = append(doc.Nodes, Node{
			ID:         id,
			Name:       info.Name,
			Label:      info.Label,
			Member:     info.Member,
			Seed:       seed,
			Depth:      n.included[id],
			Primary:    info.Primary,
			Matches:    n.matches[id],
			LogMatches: log10(n.matches[id]),
			Rating:     info.Rating,
		})
		groups[info.Primary] = 0
	}

	// Group is the index of the node's primary promotion among all primaries.
	names := make([]string, 0, len(groups))
	for p := range groups {
		names = append(names, p)
	}
	sort.Strings(names)
	for i, p := range names {
		groups[p] = i
	}
	for i := range doc.Nodes {
		doc.Nodes[i].Group = groups[doc.Nodes[i].Primary]
	}

	for k, e := range n.edges {
		if !n.qualifies(e) || !n.Contains(k.a) || !n.Contains(k.b) {
			continue
		}
		years := make([]int, 0, len(e.years))
		for y := range e.years {
			years = append(years, y)
		}
		sort.Ints(years)
		doc.Links = append(doc.Links, Link{
			Source:   k.a,
			Target:   k.b,
			Weight:   e.weight,
			LogValue: log10(e.weight),
			Years:    years,
		})
	}
	sort.Slice(doc.Links, func(i, j int) bool {
		if doc.Links[i].Source != doc.Links[j].Source {
			return doc.Links[i].Source < doc.Links[j].Source
		}
		return doc.Links[i].Target < doc.Links[j].Target
	})

	doc.Stats = n.stats(doc)
	return doc
}

func (n *Network) stats(doc Document) Stats {
	st := Stats{Nodes: len(doc.Nodes), Links: len(doc.Links), Seeds: len(n.seeds)}
	if st.Nodes == 0 {
		return st
	}
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for _, node := range doc.Nodes {
		g.AddNode(simple.Node(n.index[node.ID]))
	}
	weights := make([]float64, 0, len(doc.Links))
	for _, l := range doc.Links {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(n.index[l.Source]), simple.Node(n.index[l.Target]), float64(l.Weight)))
		weights = append(weights, float64(l.Weight))
	}
	st.Components = len(topo.ConnectedComponents(g))
	if len(weights) > 0 {
		st.MeanWeight = stat.Mean(weights, nil)
	}
	st.MeanDegree = 2 * float64(st.Links) / float64(st.Nodes)
	return st
}

// log10 scales counts for renderers; zero maps to zero.
func log10(v int) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log10(float64(v))
}
