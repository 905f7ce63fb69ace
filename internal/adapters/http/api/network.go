package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NetworkHandler serves the co-participation graph.
type NetworkHandler struct {
	deps NetworkDependencies
}

// NewNetworkHandler creates a new network handler.
func NewNetworkHandler(deps NetworkDependencies) *NetworkHandler {
	return &NetworkHandler{deps: deps}
}

// HandleGetNetwork handles GET /network requests.
func (h *NetworkHandler) HandleGetNetwork(w http.ResponseWriter, r *http.Request) {
	doc, err := h.deps.Network(r.Context())
	if err != nil {
		writeServiceError(w, Wrap("api.get_network", err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PromotionHandler serves per-wrestler attribution and classification.
type PromotionHandler struct {
	deps PromotionDependencies
}

// NewPromotionHandler creates a new promotion handler.
func NewPromotionHandler(deps PromotionDependencies) *PromotionHandler {
	return &PromotionHandler{deps: deps}
}

// HandleGetPromotions handles GET /promotions/{id} requests.
func (h *PromotionHandler) HandleGetPromotions(w http.ResponseWriter, r *http.Request) {
	row, err := h.deps.Attribution(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, Wrap("api.get_promotions", err))
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// HandleGetClassification handles GET /classification/{id} requests.
func (h *PromotionHandler) HandleGetClassification(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Classification(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, Wrap("api.get_classification", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
