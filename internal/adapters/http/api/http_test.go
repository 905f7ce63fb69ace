package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/joshirank/internal/adapters/http/api"
	service "github.com/okian/joshirank/internal/app"
	"github.com/okian/joshirank/internal/domain/attribution"
	"github.com/okian/joshirank/internal/domain/classify"
	"github.com/okian/joshirank/internal/domain/network"
	"github.com/okian/joshirank/internal/domain/types"
	"github.com/okian/joshirank/pkg/logger"
)

type mockDeps struct {
	ready   bool
	entries []types.Entry
	failErr error
	limits  []int
}

func (m *mockDeps) check() error {
	if m.failErr != nil {
		return m.failErr
	}
	if !m.ready {
		return service.ErrNotReady
	}
	return nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"ready": m.ready, "wrestlers": len(m.entries)}
}

func (m *mockDeps) TopN(_ context.Context, n int) ([]types.Entry, error) {
	m.limits = append(m.limits, n)
	if err := m.check(); err != nil {
		return nil, err
	}
	if n > len(m.entries) {
		n = len(m.entries)
	}
	return m.entries[:n], nil
}

func (m *mockDeps) Rank(_ context.Context, id string) (types.Entry, error) {
	if err := m.check(); err != nil {
		return types.Entry{}, err
	}
	for _, e := range m.entries {
		if e.WrestlerID == id {
			return e, nil
		}
	}
	return types.Entry{}, fmt.Errorf("rank %s: %w", id, service.ErrNotFound)
}

func (m *mockDeps) Network(context.Context) (network.Document, error) {
	if err := m.check(); err != nil {
		return network.Document{}, err
	}
	return network.Document{
		Nodes: []network.Node{{ID: "A", Name: "Alpha", Seed: true}},
		Links: []network.Link{},
		Stats: network.Stats{Nodes: 1},
	}, nil
}

func (m *mockDeps) Attribution(_ context.Context, id string) (service.AttributionRow, error) {
	if err := m.check(); err != nil {
		return service.AttributionRow{}, err
	}
	if id != "A" {
		return service.AttributionRow{}, fmt.Errorf("attribution %s: %w", id, service.ErrNotFound)
	}
	return service.AttributionRow{
		Attribution: attribution.Attribution{WrestlerID: "A", Counts: map[string]int{"1467": 3}, Total: 3},
		Name:        "Alpha",
		Primary:     "1467",
	}, nil
}

func (m *mockDeps) Classification(_ context.Context, id string) (classify.Result, error) {
	if err := m.check(); err != nil {
		return classify.Result{}, err
	}
	if id != "A" {
		return classify.Result{}, fmt.Errorf("classification %s: %w", id, service.ErrNotFound)
	}
	return classify.Result{WrestlerID: "A", Member: true, Label: classify.LabelMember, Confidence: 1}, nil
}

func newHandler(deps *mockDeps) http.Handler {
	_ = logger.Init()
	return api.NewServer(deps, api.WithMaxLimit(10)).Handler(context.Background())
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a server over a finished run", t, func() {
		deps := &mockDeps{
			ready: true,
			entries: []types.Entry{
				{Rank: 1, WrestlerID: "A", Name: "Alpha", Rating: 1700},
				{Rank: 2, WrestlerID: "B", Rating: 1600},
				{Rank: 3, WrestlerID: "C", Rating: 1500},
			},
		}
		h := newHandler(deps)

		Convey("Then /healthz serves Prometheus metrics", func() {
			w := get(h, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "joshirank_")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("Then /stats returns the provider's map", func() {
			w := get(h, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["ready"], ShouldEqual, true)
		})

		Convey("Then /rankings honors the limit", func() {
			w := get(h, "/rankings?limit=2")
			So(w.Code, ShouldEqual, http.StatusOK)
			var rows []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].WrestlerID, ShouldEqual, "A")
		})

		Convey("Then /rankings without a limit uses the maximum", func() {
			w := get(h, "/rankings")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.limits, ShouldResemble, []int{10})
		})

		Convey("Then bad limits are rejected", func() {
			So(get(h, "/rankings?limit=0").Code, ShouldEqual, http.StatusBadRequest)
			So(get(h, "/rankings?limit=abc").Code, ShouldEqual, http.StatusBadRequest)
			w := get(h, "/rankings?limit=11")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
			So(deps.limits, ShouldBeEmpty)
		})

		Convey("Then /rank/{id} finds known wrestlers only", func() {
			w := get(h, "/rank/B")
			So(w.Code, ShouldEqual, http.StatusOK)
			var e types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)

			So(get(h, "/rank/Z").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then /network returns the graph document", func() {
			w := get(h, "/network")
			So(w.Code, ShouldEqual, http.StatusOK)
			var doc network.Document
			So(json.Unmarshal(w.Body.Bytes(), &doc), ShouldBeNil)
			So(doc.Nodes, ShouldHaveLength, 1)
			So(doc.Nodes[0].Seed, ShouldBeTrue)
		})

		Convey("Then /promotions/{id} returns flat attribution", func() {
			w := get(h, "/promotions/A")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["primary_promotion"], ShouldEqual, "1467")
			So(body["wrestler_id"], ShouldEqual, "A")

			So(get(h, "/promotions/Z").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then /classification/{id} returns the label", func() {
			w := get(h, "/classification/A")
			So(w.Code, ShouldEqual, http.StatusOK)
			var res classify.Result
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
			So(res.Label, ShouldEqual, classify.LabelMember)

			So(get(h, "/classification/Z").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then unknown paths and methods are not served", func() {
			So(get(h, "/unknown").Code, ShouldEqual, http.StatusNotFound)

			req := httptest.NewRequest(http.MethodPost, "/rankings", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Errors(t *testing.T) {
	Convey("Given a server before the first run", t, func() {
		h := newHandler(&mockDeps{})

		Convey("Then reads are unavailable", func() {
			for _, path := range []string{"/rankings", "/rank/A", "/network", "/promotions/A", "/classification/A"} {
				w := get(h, path)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "not_ready")
			}
		})

		Convey("Then /stats still answers", func() {
			So(get(h, "/stats").Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Given a failing service", t, func() {
		h := newHandler(&mockDeps{ready: true, failErr: fmt.Errorf("boom")})

		Convey("Then reads fail with 500", func() {
			w := get(h, "/network")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "api.get_network")
		})
	})
}
