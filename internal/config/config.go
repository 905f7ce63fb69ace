// Package config defines process configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/joshirank/internal/domain/rating"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	LogJSON  bool   `koanf:"log_json"`

	// Addr configures the HTTP listen address for serve mode, e.g. ":9080".
	Addr string `koanf:"addr"`

	// InputPath is the JSON or YAML store document.
	InputPath    string `koanf:"input_path"`
	OutputDir    string `koanf:"output_dir"`
	OutputFormat string `koanf:"output_format"`

	// Watch reloads the store document in serve mode when it changes.
	Watch bool `koanf:"watch"`

	// Year scopes attribution, classification and the network. Zero means
	// all years.
	Year int `koanf:"year"`

	// Period is the rating period granularity: year, month or week.
	Period string `koanf:"period"`

	// SeedPriorYear starts a single-year ranking from the end states of the
	// previous year.
	SeedPriorYear bool `koanf:"seed_prior_year"`

	// Seeds are the wrestler IDs the network is grown from.
	Seeds []string `koanf:"seeds"`

	MinEdgeWeight  int  `koanf:"min_edge_weight"`
	MaxDepth       int  `koanf:"max_depth"`
	MinNodeMatches int  `koanf:"min_node_matches"`
	PruneIsolated  bool `koanf:"prune_isolated"`

	// TargetPromotions are the promotion IDs that qualify a wrestler.
	TargetPromotions         []string `koanf:"target_promotions"`
	ClassificationMinMatches int      `koanf:"classification_min_matches"`
	KnownMembers             []string `koanf:"known_members"`
	KnownNonMembers          []string `koanf:"known_non_members"`

	// PrimaryShare is the share of matches a promotion needs to be a
	// wrestler's primary promotion.
	PrimaryShare float64 `koanf:"primary_share"`

	LeaderboardMinMatches int `koanf:"leaderboard_min_matches"`

	// MaxLeaderboardLimit caps GET /rankings?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	WorkerCount int `koanf:"worker_count"`
	QueueSize   int `koanf:"queue_size"`

	// CachePath is the SQLite attribution cache. Empty keeps the cache in
	// memory only.
	CachePath string `koanf:"cache_path"`
	CacheSize int    `koanf:"cache_size"`

	GlickoInitialRating     float64 `koanf:"glicko_initial_rating"`
	GlickoInitialRD         float64 `koanf:"glicko_initial_rd"`
	GlickoInitialVolatility float64 `koanf:"glicko_initial_volatility"`
	GlickoTau               float64 `koanf:"glicko_tau"`
	GlickoTolerance         float64 `koanf:"glicko_tolerance"`
	GlickoMaxIterations     int     `koanf:"glicko_max_iterations"`
	GlickoMaxRD             float64 `koanf:"glicko_max_rd"`
}

// New creates a Config holding the defaults.
func New() *Config {
	p := rating.DefaultParams()
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9080",
		OutputDir:                "out",
		OutputFormat:             FormatJSON,
		Watch:                    true,
		Period:                   "year",
		MinEdgeWeight:            1,
		PruneIsolated:            true,
		ClassificationMinMatches: 1,
		PrimaryShare:             0.4,
		LeaderboardMinMatches:    5,
		MaxLeaderboardLimit:      100,
		WorkerCount:              runtime.NumCPU(),
		QueueSize:                1024,
		CacheSize:                4096,
		GlickoInitialRating:      p.InitialRating,
		GlickoInitialRD:          p.InitialDeviation,
		GlickoInitialVolatility:  p.InitialVolatility,
		GlickoTau:                p.Tau,
		GlickoTolerance:          p.Tolerance,
		GlickoMaxIterations:      p.MaxIterations,
		GlickoMaxRD:              p.MaxDeviation,
	}
}

// RatingParams returns the Glicko-2 constants.
func (c *Config) RatingParams() rating.Params {
	return rating.Params{
		InitialRating:     c.GlickoInitialRating,
		InitialDeviation:  c.GlickoInitialRD,
		InitialVolatility: c.GlickoInitialVolatility,
		Tau:               c.GlickoTau,
		Tolerance:         c.GlickoTolerance,
		MaxIterations:     c.GlickoMaxIterations,
		MaxDeviation:      c.GlickoMaxRD,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.OutputFormat != FormatJSON && c.OutputFormat != FormatYAML:
		return invalid("output_format must be %q or %q, got %q", FormatJSON, FormatYAML, c.OutputFormat)
	case c.Year < 0:
		return invalid("year must not be negative")
	case c.MinEdgeWeight < 1:
		return invalid("min_edge_weight must be at least 1")
	case c.MaxDepth < 0:
		return invalid("max_depth must not be negative")
	case c.MinNodeMatches < 0:
		return invalid("min_node_matches must not be negative")
	case c.ClassificationMinMatches < 1:
		return invalid("classification_min_matches must be at least 1")
	case c.PrimaryShare <= 0 || c.PrimaryShare > 1:
		return invalid("primary_share must be in (0, 1]")
	case c.LeaderboardMinMatches < 0:
		return invalid("leaderboard_min_matches must not be negative")
	case c.MaxLeaderboardLimit < 1:
		return invalid("max_leaderboard_limit must be at least 1")
	case c.WorkerCount < 1:
		return invalid("worker_count must be at least 1")
	case c.QueueSize < 1:
		return invalid("queue_size must be at least 1")
	case c.CacheSize < 0:
		return invalid("cache_size must not be negative")
	}
	if _, err := rating.ParseGranularity(c.Period); err != nil {
		return invalid("period: %v", err)
	}
	if err := c.RatingParams().Validate(); err != nil {
		return invalid("glicko: %v", err)
	}
	return nil
}

// splitList turns a comma separated value into a trimmed list.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
