package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, wrestlerID string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{id} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Rank(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, Wrap("api.get_rank", err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
