// Package metrics provides Prometheus metrics for the joshirank engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Input
	matchesLoaded  prometheus.Counter
	matchesDeduped prometheus.Counter
	matchesSkipped *prometheus.CounterVec

	// Rating engine
	ratingPeriods      prometheus.Counter
	ratingUpdates      prometheus.Counter
	ratingDecays       prometheus.Counter
	solverIterations   prometheus.Histogram
	solverNonConverged prometheus.Counter

	// Attribution / classification
	attributionComputed     prometheus.Counter
	attributionMismatches   prometheus.Counter
	classificationMembers   prometheus.Gauge
	classificationEvaluated prometheus.Counter

	// Storage
	cacheLookups    *prometheus.CounterVec
	leaderboardSize prometheus.Gauge

	// Graph
	graphNodes      prometheus.Gauge
	graphEdges      prometheus.Gauge
	graphComponents prometheus.Gauge

	// Run
	warnings     *prometheus.CounterVec
	runDuration  prometheus.Histogram
	runsTotal    *prometheus.CounterVec
	wrestlersSet prometheus.Gauge
	reloads      *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Workers
	workerJobs    prometheus.Counter
	workerErrors  prometheus.Counter
	workerActive  prometheus.Gauge
	queueDepth    prometheus.Gauge
	queueRejected prometheus.Counter
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // engine registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "joshirank",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all collectors
	auto := promauto.With(m.registry)

	m.matchesLoaded = m.counter("matches_loaded_total", "Match records read from the match store")
	m.matchesDeduped = m.counter("matches_deduplicated_total", "Match records dropped as duplicates of an already loaded match")
	m.matchesSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "matches_skipped_total",
		Help: "Matches excluded from rating or graph construction, by reason",
	}, []string{"reason"})

	m.ratingPeriods = m.counter("rating_periods_total", "Rating periods processed")
	m.ratingUpdates = m.counter("rating_updates_total", "Glicko-2 batch updates applied to active wrestlers")
	m.ratingDecays = m.counter("rating_decays_total", "Inactivity deviation adjustments applied")
	m.solverIterations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "volatility_solver_iterations",
		Help:    "Iterations used by the volatility root finder",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})
	m.solverNonConverged = m.counter("volatility_solver_nonconverged_total", "Volatility solves that exceeded the iteration budget")

	m.attributionComputed = m.counter("attribution_computed_total", "Promotion attributions computed from matches")
	m.attributionMismatches = m.counter("attribution_cache_mismatches_total", "Cached promotion attributions that disagreed with recomputation")
	m.classificationMembers = m.gauge("classification_members", "Wrestlers classified as members in the last run")
	m.classificationEvaluated = m.counter("classification_evaluated_total", "Classification decisions evaluated")

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "attribution_cache_lookups_total",
		Help: "Attribution cache lookups by layer and result",
	}, []string{"layer", "result"})
	m.leaderboardSize = m.gauge("leaderboard_entries", "Wrestlers on the rating leaderboard")

	m.graphNodes = m.gauge("graph_nodes", "Nodes in the last built network")
	m.graphEdges = m.gauge("graph_edges", "Edges in the last built network")
	m.graphComponents = m.gauge("graph_components", "Connected components in the last built network")

	m.warnings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "warnings_total",
		Help: "Isolated per-record failures reported as warnings, by kind",
	}, []string{"kind"})
	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "run_duration_seconds",
		Help:    "Wall time of a full engine run",
		Buckets: m.histogramBuckets,
	})
	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "runs_total",
		Help: "Engine runs by result",
	}, []string{"result"})
	m.wrestlersSet = m.gauge("wrestlers", "Wrestlers known to the last run")
	m.reloads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "reloads_total",
		Help: "Input reloads triggered by file changes in serve mode, by result",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.workerJobs = m.counter("worker_jobs_total", "Per-wrestler jobs completed by the worker pool")
	m.workerErrors = m.counter("worker_errors_total", "Per-wrestler jobs that failed")
	m.workerActive = m.gauge("worker_active", "Workers currently running")
	m.queueDepth = m.gauge("queue_depth", "Jobs waiting in the in-memory queue")
	m.queueRejected = m.counter("queue_rejected_total", "Jobs rejected because the queue was full or closed")
}

// RecordMatchesLoaded adds n loaded match records.
func RecordMatchesLoaded(n int) { globalManager.matchesLoaded.Add(float64(n)) }

// RecordMatchDeduplicated counts a duplicate match record.
func RecordMatchDeduplicated() { globalManager.matchesDeduped.Inc() }

// RecordMatchSkipped counts a match excluded for reason.
func RecordMatchSkipped(reason string) { globalManager.matchesSkipped.WithLabelValues(reason).Inc() }

// RecordRatingPeriod counts a processed rating period.
func RecordRatingPeriod() { globalManager.ratingPeriods.Inc() }

// RecordRatingUpdate counts an applied batch update.
func RecordRatingUpdate() { globalManager.ratingUpdates.Inc() }

// RecordRatingDecay counts an inactivity adjustment.
func RecordRatingDecay() { globalManager.ratingDecays.Inc() }

// RecordSolverIterations observes the iteration count of one volatility solve.
func RecordSolverIterations(n int) { globalManager.solverIterations.Observe(float64(n)) }

// RecordSolverNonConverged counts a solve that ran out of iterations.
func RecordSolverNonConverged() { globalManager.solverNonConverged.Inc() }

// RecordAttributionComputed counts a computed attribution.
func RecordAttributionComputed() { globalManager.attributionComputed.Inc() }

// RecordAttributionMismatch counts a cache entry that disagreed with recomputation.
func RecordAttributionMismatch() { globalManager.attributionMismatches.Inc() }

// RecordClassificationEvaluated counts one classification decision.
func RecordClassificationEvaluated() { globalManager.classificationEvaluated.Inc() }

// UpdateClassificationMembers sets the member gauge.
func UpdateClassificationMembers(n int) { globalManager.classificationMembers.Set(float64(n)) }

// RecordCacheLookup counts an attribution cache lookup. layer is "memory" or
// "sqlite"; result is "hit", "miss" or "stale".
func RecordCacheLookup(layer, result string) { globalManager.cacheLookups.WithLabelValues(layer, result).Inc() }

// UpdateLeaderboardSize sets the leaderboard gauge.
func UpdateLeaderboardSize(n int) { globalManager.leaderboardSize.Set(float64(n)) }

// UpdateGraphSize sets node, edge and component gauges.
func UpdateGraphSize(nodes, edges, components int) {
	globalManager.graphNodes.Set(float64(nodes))
	globalManager.graphEdges.Set(float64(edges))
	globalManager.graphComponents.Set(float64(components))
}

// RecordWarning counts a warning of the given kind.
func RecordWarning(kind string) { globalManager.warnings.WithLabelValues(kind).Inc() }

// RecordRun observes a finished run.
func RecordRun(result string, seconds float64) {
	globalManager.runsTotal.WithLabelValues(result).Inc()
	globalManager.runDuration.Observe(seconds)
}

// UpdateWrestlerCount sets the number of wrestlers in the last run.
func UpdateWrestlerCount(n int) { globalManager.wrestlersSet.Set(float64(n)) }

// RecordReload counts a serve-mode reload.
func RecordReload(result string) { globalManager.reloads.WithLabelValues(result).Inc() }

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordWorkerJob counts a completed job.
func RecordWorkerJob() { globalManager.workerJobs.Inc() }

// RecordWorkerError counts a failed job.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateWorkerActive sets the running worker gauge.
func UpdateWorkerActive(n int) { globalManager.workerActive.Set(float64(n)) }

// UpdateQueueDepth sets the queue depth gauge.
func UpdateQueueDepth(n int) { globalManager.queueDepth.Set(float64(n)) }

// RecordQueueRejected counts a rejected enqueue.
func RecordQueueRejected() { globalManager.queueRejected.Inc() }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
