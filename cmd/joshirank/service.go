package main

import (
	"context"
	"fmt"

	"github.com/okian/joshirank/internal/adapters/export"
	"github.com/okian/joshirank/internal/adapters/matchstore"
	"github.com/okian/joshirank/internal/adapters/repository"
	service "github.com/okian/joshirank/internal/app"
	"github.com/okian/joshirank/internal/config"
	"github.com/okian/joshirank/internal/domain/network"
	"github.com/okian/joshirank/internal/domain/rating"
	"github.com/okian/joshirank/pkg/logger"
)

// newService wires the attribution cache and the pipeline from cfg. The
// caller owns the returned service and must Close it.
func newService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	granularity, err := rating.ParseGranularity(cfg.Period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	var backing repository.AttributionCache
	if cfg.CachePath != "" {
		sqlite, err := repository.OpenSQLiteCache(ctx, cfg.CachePath)
		if err != nil {
			return nil, err
		}
		backing = sqlite
	}
	cache, err := repository.NewLRUCache(cfg.CacheSize, backing)
	if err != nil {
		if backing != nil {
			_ = backing.Close()
		}
		return nil, err
	}

	log := logger.Get()
	return service.New(
		service.WithLogger(log.Named("service")),
		service.WithReader(matchstore.NewReader(matchstore.WithLogger(log.Named("matchstore")))),
		service.WithCache(cache),
		service.WithRatingParams(cfg.RatingParams()),
		service.WithGranularity(granularity),
		service.WithYear(cfg.Year),
		service.WithSeedPriorYear(cfg.SeedPriorYear),
		service.WithSeeds(cfg.Seeds...),
		service.WithNetworkOptions(
			network.WithMinEdgeWeight(cfg.MinEdgeWeight),
			network.WithMaxDepth(cfg.MaxDepth),
			network.WithMinNodeMatches(cfg.MinNodeMatches),
			network.WithPruneIsolated(cfg.PruneIsolated),
		),
		service.WithTargets(cfg.TargetPromotions...),
		service.WithClassificationMinMatches(cfg.ClassificationMinMatches),
		service.WithOverrides(cfg.KnownMembers, cfg.KnownNonMembers),
		service.WithPrimaryShare(cfg.PrimaryShare),
		service.WithLeaderboardMinMatches(cfg.LeaderboardMinMatches),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
	), nil
}

func newWriter(cfg *config.Config) (*export.Writer, error) {
	format, err := export.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	return export.NewWriter(cfg.OutputDir,
		export.WithFormat(format),
		export.WithLogger(logger.Get().Named("export")),
	), nil
}
