package service

import (
	"github.com/okian/joshirank/internal/adapters/matchstore"
	"github.com/okian/joshirank/internal/adapters/repository"
	"github.com/okian/joshirank/internal/domain/network"
	"github.com/okian/joshirank/internal/domain/rating"
	"github.com/okian/joshirank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReader sets the store document reader.
func WithReader(r *matchstore.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.reader = r
		}
	}
}

// WithCache sets the attribution cache checked against every recomputation.
// The service closes it on Close.
func WithCache(c repository.AttributionCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithRatingParams sets the Glicko-2 constants.
func WithRatingParams(p rating.Params) Option {
	return func(s *Service) {
		s.params = p
	}
}

// WithGranularity sets the rating period length.
func WithGranularity(g rating.Granularity) Option {
	return func(s *Service) {
		s.granularity = g
	}
}

// WithYear scopes the run to one calendar year. Zero covers every year.
func WithYear(year int) Option {
	return func(s *Service) {
		if year >= 0 {
			s.year = year
		}
	}
}

// WithSeedPriorYear starts a single-year ranking from the previous year's
// end states.
func WithSeedPriorYear(enabled bool) Option {
	return func(s *Service) {
		s.seedPriorYear = enabled
	}
}

// WithSeeds sets the wrestlers the network is grown from.
func WithSeeds(ids ...string) Option {
	return func(s *Service) {
		s.seeds = append([]string(nil), ids...)
	}
}

// WithNetworkOptions adjusts the network builder. The year is always taken
// from WithYear.
func WithNetworkOptions(opts ...network.Option) Option {
	return func(s *Service) {
		s.networkOpts = append(s.networkOpts, opts...)
	}
}

// WithTargets sets the qualifying promotion IDs.
func WithTargets(ids ...string) Option {
	return func(s *Service) {
		s.targets = append([]string(nil), ids...)
	}
}

// WithClassificationMinMatches sets the count a target promotion needs.
func WithClassificationMinMatches(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.classifyMin = n
		}
	}
}

// WithOverrides pins the label of known wrestlers.
func WithOverrides(members, nonMembers []string) Option {
	return func(s *Service) {
		s.knownMembers = append([]string(nil), members...)
		s.knownNonMembers = append([]string(nil), nonMembers...)
	}
}

// WithPrimaryShare sets the share of matches a primary promotion needs.
func WithPrimaryShare(share float64) Option {
	return func(s *Service) {
		if share > 0 && share <= 1 {
			s.primaryShare = share
		}
	}
}

// WithLeaderboardMinMatches sets how many rated matches a wrestler needs to
// appear on the leaderboard.
func WithLeaderboardMinMatches(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.leaderboardMin = n
		}
	}
}

// WithWorkerCount sets the number of attribution workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the attribution job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}
