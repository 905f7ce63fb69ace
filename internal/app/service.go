// Package service runs the rating, attribution, classification and network
// pipeline over a match corpus and serves the latest result.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/okian/joshirank/internal/adapters/matchstore"
	"github.com/okian/joshirank/internal/adapters/repository"
	"github.com/okian/joshirank/internal/domain/attribution"
	"github.com/okian/joshirank/internal/domain/classify"
	"github.com/okian/joshirank/internal/domain/model"
	"github.com/okian/joshirank/internal/domain/network"
	"github.com/okian/joshirank/internal/domain/rating"
	"github.com/okian/joshirank/internal/domain/types"
	"github.com/okian/joshirank/pkg/logger"
	"github.com/okian/joshirank/pkg/metrics"
)

// Result is everything one run produces.
type Result struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Year        int       `json:"year" yaml:"year"`
	Period      string    `json:"period" yaml:"period"`

	Input matchstore.Stats `json:"input" yaml:"input"`

	Periods     []string          `json:"periods" yaml:"periods"`
	Snapshots   []rating.Snapshot `json:"snapshots" yaml:"snapshots"`
	Final       []rating.Standing `json:"final" yaml:"final"`
	Upsets      []rating.Upset    `json:"upsets" yaml:"upsets"`
	Leaderboard []types.Entry     `json:"leaderboard" yaml:"leaderboard"`
	Network     network.Document  `json:"network" yaml:"network"`
	Attribution []AttributionRow  `json:"attribution" yaml:"attribution"`
	Classified  []classify.Result `json:"classification" yaml:"classification"`
	Warnings    []model.Warning   `json:"warnings" yaml:"warnings"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`

	board    *repository.TreapStore
	attrByID map[string]int
}

// AttributionRow is one wrestler's attribution with the derived primary
// promotion.
type AttributionRow struct {
	attribution.Attribution `yaml:",inline"`
	Name                    string `json:"name" yaml:"name"`
	Primary                 string `json:"primary_promotion" yaml:"primary_promotion"`
}

// Service implements the API dependencies on top of the latest run.
type Service struct {
	mu      sync.RWMutex
	current *Result
	reload  sync.Mutex

	reader *matchstore.Reader
	cache  repository.AttributionCache

	// Configuration
	params          rating.Params
	granularity     rating.Granularity
	year            int
	seedPriorYear   bool
	seeds           []string
	networkOpts     []network.Option
	targets         []string
	classifyMin     int
	knownMembers    []string
	knownNonMembers []string
	primaryShare    float64
	leaderboardMin  int
	workerCount     int
	queueSize       int

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		params:       rating.DefaultParams(),
		granularity:  rating.Year,
		classifyMin:  classify.DefaultMinMatches,
		primaryShare: attribution.DefaultPrimaryShare,
		workerCount:  runtime.NumCPU(),
		queueSize:    1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.reader == nil {
		s.reader = matchstore.NewReader()
	}
	return s
}

// Load reads the store document at path, runs the pipeline and makes the
// result current. A missing or corrupt document is the only fatal error.
func (s *Service) Load(ctx context.Context, path string) (*Result, error) {
	s.reload.Lock()
	defer s.reload.Unlock()

	start := time.Now()
	corpus, stats, err := s.reader.Load(ctx, path)
	if err != nil {
		metrics.RecordRun("error", time.Since(start).Seconds())
		return nil, err
	}
	res, err := s.Run(ctx, corpus)
	if err != nil {
		return nil, err
	}
	res.Input = stats
	s.setCurrent(res)
	return res, nil
}

// Reload is Load for a running server: a failure keeps the previous result.
func (s *Service) Reload(ctx context.Context, path string) error {
	if _, err := s.Load(ctx, path); err != nil {
		metrics.RecordReload("error")
		s.logger.Error(ctx, "reload failed; keeping previous result",
			logger.String("path", path), logger.Error(err))
		return err
	}
	metrics.RecordReload("ok")
	return nil
}

// Watch reloads path whenever it changes until ctx is done.
func (s *Service) Watch(ctx context.Context, path string) error {
	w, err := matchstore.NewWatcher(path, matchstore.DefaultDebounce)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	s.logger.Info(ctx, "watching store document", logger.String("path", path))
	w.Run(ctx, func(ctx context.Context) {
		s.logger.Info(ctx, "store document changed; reloading", logger.String("path", path))
		_ = s.Reload(ctx, path)
	})
	return nil
}

func (s *Service) setCurrent(res *Result) {
	s.mu.Lock()
	s.current = res
	s.mu.Unlock()
}

// Current returns the latest result, or nil before the first run.
func (s *Service) Current() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) ready() (*Result, error) {
	res := s.Current()
	if res == nil {
		return nil, ErrNotReady
	}
	return res, nil
}

// TopN returns the top n leaderboard rows.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	res, err := s.ready()
	if err != nil {
		return nil, err
	}
	return res.board.TopN(ctx, n)
}

// Rank returns a wrestler's leaderboard row.
func (s *Service) Rank(ctx context.Context, wrestlerID string) (types.Entry, error) {
	res, err := s.ready()
	if err != nil {
		return types.Entry{}, err
	}
	e, err := res.board.Rank(ctx, wrestlerID)
	if err != nil {
		return types.Entry{}, fmt.Errorf("rank %s: %w", wrestlerID, ErrNotFound)
	}
	return e, nil
}

// Network returns the current graph document.
func (s *Service) Network(_ context.Context) (network.Document, error) {
	res, err := s.ready()
	if err != nil {
		return network.Document{}, err
	}
	return res.Network, nil
}

// Attribution returns a wrestler's promotion counts.
func (s *Service) Attribution(_ context.Context, wrestlerID string) (AttributionRow, error) {
	res, err := s.ready()
	if err != nil {
		return AttributionRow{}, err
	}
	i, ok := res.attrByID[wrestlerID]
	if !ok {
		return AttributionRow{}, fmt.Errorf("attribution %s: %w", wrestlerID, ErrNotFound)
	}
	return res.Attribution[i], nil
}

// Classification returns a wrestler's classification.
func (s *Service) Classification(_ context.Context, wrestlerID string) (classify.Result, error) {
	res, err := s.ready()
	if err != nil {
		return classify.Result{}, err
	}
	i, ok := res.attrByID[wrestlerID]
	if !ok {
		return classify.Result{}, fmt.Errorf("classification %s: %w", wrestlerID, ErrNotFound)
	}
	return res.Classified[i], nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"ready":       false,
		"year":        s.year,
		"period":      string(s.granularity),
		"workerCount": s.workerCount,
	}
	res := s.Current()
	if res == nil {
		return stats
	}
	members := 0
	for _, c := range res.Classified {
		if c.Member {
			members++
		}
	}
	stats["ready"] = true
	stats["runId"] = res.RunID
	stats["generatedAt"] = res.GeneratedAt
	stats["matches"] = res.Input.Matches
	stats["wrestlers"] = len(res.Final)
	stats["ranked"] = len(res.Leaderboard)
	stats["members"] = members
	stats["networkNodes"] = res.Network.Stats.Nodes
	stats["networkLinks"] = res.Network.Stats.Links
	stats["warnings"] = len(res.Warnings)
	stats["durationMs"] = res.Duration.Milliseconds()
	return stats
}

// Close releases the attribution cache.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

func sortWarnings(ws []model.Warning) {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Kind != ws[j].Kind {
			return ws[i].Kind < ws[j].Kind
		}
		if ws[i].WrestlerID != ws[j].WrestlerID {
			return ws[i].WrestlerID < ws[j].WrestlerID
		}
		return ws[i].Period < ws[j].Period
	})
}
