// Package api serves the latest ranking run over a read-only HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/joshirank/internal/app"
	"github.com/okian/joshirank/internal/domain/classify"
	"github.com/okian/joshirank/internal/domain/network"
	"github.com/okian/joshirank/internal/domain/types"
	"github.com/okian/joshirank/pkg/logger"
)

// DefaultMaxLimit caps /rankings?limit=N when no limit is configured.
const DefaultMaxLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service.
type Dependencies interface {
	StatsProvider
	LeaderboardDependencies
	RankDependencies
	NetworkDependencies
	PromotionDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	networkHandler     *NetworkHandler
	promotionHandler   *PromotionHandler
	logger             logger.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxLimit int
	logger   logger.Logger
}

// WithMaxLimit sets the largest accepted rankings limit.
func WithMaxLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{maxLimit: DefaultMaxLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("http")
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		rankHandler:        NewRankHandler(deps),
		networkHandler:     NewNetworkHandler(deps),
		promotionHandler:   NewPromotionHandler(deps),
		logger:             cfg.logger,
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	r.HandleFunc("/rankings", MetricsMiddleware(s.leaderboardHandler.HandleGetRankings, "rankings")).Methods(http.MethodGet)
	r.HandleFunc("/rank/{id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank")).Methods(http.MethodGet)
	r.HandleFunc("/network", MetricsMiddleware(s.networkHandler.HandleGetNetwork, "network")).Methods(http.MethodGet)
	r.HandleFunc("/promotions/{id}", MetricsMiddleware(s.promotionHandler.HandleGetPromotions, "promotions")).Methods(http.MethodGet)
	r.HandleFunc("/classification/{id}", MetricsMiddleware(s.promotionHandler.HandleGetClassification, "classification")).Methods(http.MethodGet)

	r.NotFoundHandler = MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	}, "not_found")
}

// Handler returns a router with every route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := mux.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// NetworkDependencies defines the interface for graph reads.
type NetworkDependencies interface {
	Network(ctx context.Context) (network.Document, error)
}

// PromotionDependencies defines the interface for per-wrestler attribution
// and classification reads.
type PromotionDependencies interface {
	Attribution(ctx context.Context, wrestlerID string) (service.AttributionRow, error)
	Classification(ctx context.Context, wrestlerID string) (classify.Result, error)
}
