package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/joshirank/internal/adapters/matchstore"
	"github.com/okian/joshirank/internal/adapters/mq/queue"
	"github.com/okian/joshirank/internal/adapters/mq/worker"
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

// Run executes one deterministic pass over corpus. It does not change the
// current result; Load does. Per-wrestler failures become warnings.
func (s *Service) Run(ctx context.Context, corpus *model.Corpus) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:       uuid.NewString(),
		GeneratedAt: start.UTC(),
		Year:        s.year,
		Period:      string(s.granularity),
		Input:       matchstoreStats(corpus),
	}
	log := s.logger.Named("run")
	log.Info(ctx, "run started",
		logger.String("run_id", res.RunID),
		logger.Int("year", s.year),
		logger.Int("matches", corpus.Len()),
	)

	ratings := s.rate(ctx, corpus)
	res.Periods = ratings.Periods
	res.Snapshots = ratings.Snapshots
	res.Upsets = ratings.Upsets
	res.Warnings = append(res.Warnings, ratings.Warnings...)
	res.Final = make([]rating.Standing, 0, len(ratings.Final))
	for _, id := range sortedStandings(ratings.Final) {
		res.Final = append(res.Final, ratings.Final[id])
	}

	board, err := s.buildLeaderboard(ctx, corpus, res.Final)
	if err != nil {
		metrics.RecordRun("error", time.Since(start).Seconds())
		return nil, err
	}
	res.board = board
	res.Leaderboard = []types.Entry{}
	if n := board.Count(ctx); n > 0 {
		if res.Leaderboard, err = board.TopN(ctx, n); err != nil {
			metrics.RecordRun("error", time.Since(start).Seconds())
			return nil, err
		}
	}

	rows, classified, warnings, err := s.attribute(ctx, corpus)
	if err != nil {
		metrics.RecordRun("error", time.Since(start).Seconds())
		return nil, err
	}
	res.Attribution = rows
	res.Classified = classified
	res.attrByID = make(map[string]int, len(rows))
	for i, r := range rows {
		res.attrByID[r.WrestlerID] = i
	}
	res.Warnings = append(res.Warnings, warnings...)

	net, netWarnings := s.buildNetwork(corpus, res, ratings.Final)
	res.Network = net
	res.Warnings = append(res.Warnings, netWarnings...)

	sortWarnings(res.Warnings)
	if res.Warnings == nil {
		res.Warnings = []model.Warning{}
	}
	for _, w := range res.Warnings {
		metrics.RecordWarning(string(w.Kind))
		if w.Kind == model.WarningMissingOpponent || w.Kind == model.WarningMissingDate {
			metrics.RecordMatchSkipped(string(w.Kind))
		}
		log.Warn(ctx, w.Message,
			logger.String("kind", string(w.Kind)),
			logger.String("wrestler_id", w.WrestlerID),
			logger.String("match_id", w.MatchID),
			logger.String("period", w.Period),
		)
	}

	recordRatingStats(ratings.Stats)
	metrics.UpdateWrestlerCount(len(res.Final))
	metrics.UpdateGraphSize(net.Stats.Nodes, net.Stats.Links, net.Stats.Components)
	res.Duration = time.Since(start)
	metrics.RecordRun("ok", res.Duration.Seconds())
	log.Info(ctx, "run finished",
		logger.String("run_id", res.RunID),
		logger.Int("wrestlers", len(res.Final)),
		logger.Int("ranked", len(res.Leaderboard)),
		logger.Int("network_nodes", net.Stats.Nodes),
		logger.Int("warnings", len(res.Warnings)),
		logger.Duration("duration", res.Duration),
	)
	return res, nil
}

// rate runs the rating engine over the run's scope. With SeedPriorYear a
// single-year run starts from the end states of the year before.
func (s *Service) rate(ctx context.Context, corpus *model.Corpus) rating.Result {
	opts := []rating.Option{rating.WithParams(s.params), rating.WithGranularity(s.granularity)}
	if s.seedPriorYear && s.year > 0 {
		prior := rating.NewEngine(opts...).Run(corpus.MatchesIn(s.year - 1))
		seed := make(map[string]rating.State, len(prior.Final))
		for id, st := range prior.Final {
			seed[id] = st.State
		}
		s.logger.Debug(ctx, "seeded from prior year",
			logger.Int("year", s.year-1), logger.Int("wrestlers", len(seed)))
		opts = append(opts, rating.WithSeed(seed))
	}
	return rating.NewEngine(opts...).Run(corpus.MatchesIn(s.year))
}

func (s *Service) buildLeaderboard(ctx context.Context, corpus *model.Corpus, final []rating.Standing) (*repository.TreapStore, error) {
	board := repository.NewTreapStore(repository.WithMinMatches(s.leaderboardMin))
	for _, st := range final {
		_, err := board.Upsert(ctx, types.Entry{
			WrestlerID: st.WrestlerID,
			Name:       corpus.Name(st.WrestlerID),
			Rating:     st.State.Rating,
			Deviation:  st.State.Deviation,
			Volatility: st.State.Volatility,
			Record:     st.Record,
		})
		if err != nil {
			return nil, fmt.Errorf("leaderboard %s: %w", st.WrestlerID, err)
		}
	}
	return board, nil
}

// attribute fans attribution and classification out over the worker pool.
// Results are sorted by wrestler ID so the output does not depend on
// scheduling.
func (s *Service) attribute(ctx context.Context, corpus *model.Corpus) ([]AttributionRow, []classify.Result, []model.Warning, error) {
	classifier := classify.New(
		classify.WithTargets(s.targets...),
		classify.WithMinMatches(s.classifyMin),
		classify.WithOverrides(s.knownMembers, s.knownNonMembers),
	)
	h := &attributionHandler{
		corpus:     corpus,
		cache:      s.cache,
		classifier: classifier,
		share:      s.primaryShare,
		rows:       make(map[string]AttributionRow),
		results:    make(map[string]classify.Result),
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	pool := worker.NewPool(s.workerCount, q, h,
		worker.WithLogger(s.logger.Named("attribution")),
		worker.WithErrorHandler(h.fail),
	)
	pool.Start(ctx)

	var submitErr error
	for _, id := range corpus.WrestlerIDs() {
		if s.year != attribution.AllYears && len(corpus.MatchesFor(id, s.year)) == 0 {
			continue
		}
		if err := q.Submit(ctx, queue.Job{WrestlerID: id, Year: s.year}); err != nil {
			submitErr = err
			break
		}
	}
	_ = q.Close()
	pool.Wait()
	if submitErr != nil {
		return nil, nil, nil, fmt.Errorf("attribution: %w", submitErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("attribution: %w", err)
	}

	ids := make([]string, 0, len(h.rows))
	for id := range h.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]AttributionRow, 0, len(ids))
	results := make([]classify.Result, 0, len(ids))
	members := 0
	for _, id := range ids {
		rows = append(rows, h.rows[id])
		r := h.results[id]
		results = append(results, r)
		if r.Member {
			members++
		}
	}
	metrics.UpdateClassificationMembers(members)
	return rows, results, h.warnings, nil
}

func (s *Service) buildNetwork(corpus *model.Corpus, res *Result, final map[string]rating.Standing) (network.Document, []model.Warning) {
	opts := append(append([]network.Option(nil), s.networkOpts...), network.WithYear(s.year))
	net, warnings := network.NewBuilder(opts...).Build(s.seeds, corpus.Matches())

	doc := net.Document(func(id string) network.NodeInfo {
		info := network.NodeInfo{Name: corpus.Name(id)}
		if i, ok := res.attrByID[id]; ok {
			info.Primary = res.Attribution[i].Primary
			info.Label = res.Classified[i].Label
			info.Member = res.Classified[i].Member
		}
		if st, ok := final[id]; ok {
			info.Rating = st.State.Rating
		}
		return info
	})
	return doc, warnings
}

// attributionHandler computes one wrestler's attribution per job, verifies
// every cached copy against it and classifies the result.
type attributionHandler struct {
	corpus     *model.Corpus
	cache      repository.AttributionCache
	classifier *classify.Classifier
	share      float64

	mu       sync.Mutex
	rows     map[string]AttributionRow
	results  map[string]classify.Result
	warnings []model.Warning
}

func (h *attributionHandler) Handle(ctx context.Context, j queue.Job) error {
	// Caches hold one entry per (wrestler, year), so every year in scope is
	// verified on its own.
	years := []int{j.Year}
	if j.Year == attribution.AllYears {
		years = h.corpus.YearsFor(j.WrestlerID)
	}
	var warnings []model.Warning
	for _, y := range years {
		part := attribution.Compute(j.WrestlerID, y, h.corpus.MatchesFor(j.WrestlerID, y))
		warnings = append(warnings, h.verify(ctx, part)...)
	}

	// The all-years total also counts matches whose year is unknown.
	a := attribution.Compute(j.WrestlerID, j.Year, h.corpus.MatchesFor(j.WrestlerID, j.Year))
	if err := a.Check(); err != nil {
		return err
	}
	if j.Year == attribution.AllYears {
		warnings = append(warnings, h.verify(ctx, a)...)
	}
	metrics.RecordAttributionComputed()

	result := h.classifier.Classify(a)
	metrics.RecordClassificationEvaluated()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows[j.WrestlerID] = AttributionRow{
		Attribution: a,
		Name:        h.corpus.Name(j.WrestlerID),
		Primary:     a.Primary(h.share),
	}
	h.results[j.WrestlerID] = result
	h.warnings = append(h.warnings, warnings...)
	return nil
}

// verify checks the counts shipped with the store document and the
// persisted cache against a recomputation, then writes the recomputed
// counts back. The recomputed value always wins.
func (h *attributionHandler) verify(ctx context.Context, part attribution.Attribution) []model.Warning {
	var out []model.Warning
	mismatch := func(source string, err error) {
		metrics.RecordAttributionMismatch()
		out = append(out, model.Warning{
			Kind:       model.WarningInconsistentPromotionCount,
			WrestlerID: part.WrestlerID,
			Period:     strconv.Itoa(part.Year),
			Message:    source + ": " + err.Error(),
		})
	}

	key := model.WrestlerYear{WrestlerID: part.WrestlerID, Year: part.Year}
	if cached, ok := h.corpus.CachedCounts[key]; ok {
		if err := attribution.Verify(cached, part); err != nil {
			mismatch("store", err)
		}
	}
	if h.cache == nil {
		return out
	}

	ckey := repository.CacheKey{WrestlerID: part.WrestlerID, Year: part.Year}
	cached, ok, err := h.cache.Get(ctx, ckey)
	if err != nil {
		return append(out, cacheWarning(part, err))
	}
	if ok {
		if err := attribution.Verify(cached, part); err != nil {
			mismatch("cache", err)
		} else {
			return out
		}
	}
	if err := h.cache.Put(ctx, ckey, part.Counts); err != nil {
		out = append(out, cacheWarning(part, err))
	}
	return out
}

func (h *attributionHandler) fail(j queue.Job, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warnings = append(h.warnings, model.Warning{
		Kind:       model.WarningInconsistentPromotionCount,
		WrestlerID: j.WrestlerID,
		Message:    err.Error(),
	})
}

func cacheWarning(part attribution.Attribution, err error) model.Warning {
	return model.Warning{
		Kind:       model.WarningCache,
		WrestlerID: part.WrestlerID,
		Period:     strconv.Itoa(part.Year),
		Message:    err.Error(),
	}
}

func recordRatingStats(st rating.Stats) {
	for i := 0; i < st.Periods; i++ {
		metrics.RecordRatingPeriod()
	}
	for i := 0; i < st.Updates; i++ {
		metrics.RecordRatingUpdate()
	}
	for i := 0; i < st.Decays; i++ {
		metrics.RecordRatingDecay()
	}
	for i := 0; i < st.NonConverged; i++ {
		metrics.RecordSolverNonConverged()
	}
	if st.Updates > 0 {
		metrics.RecordSolverIterations(st.SolverIterations / st.Updates)
	}
}

func matchstoreStats(corpus *model.Corpus) matchstore.Stats {
	return matchstore.Stats{Wrestlers: len(corpus.WrestlerIDs()), Matches: corpus.Len()}
}

func sortedStandings(final map[string]rating.Standing) []string {
	ids := make([]string, 0, len(final))
	for id := range final {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
