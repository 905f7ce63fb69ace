package model

import "fmt"

// WarningKind classifies a recoverable, isolated failure.
type WarningKind string

// Warning kinds reported on a run result.
const (
	WarningMissingOpponent            WarningKind = "missing_opponent"
	WarningMissingDate                WarningKind = "missing_date"
	WarningNonConvergentVolatility    WarningKind = "nonconvergent_volatility"
	WarningInconsistentPromotionCount WarningKind = "inconsistent_promotion_count"
	WarningEmptySeedSet               WarningKind = "empty_seed_set"
	WarningUnknownSeed                WarningKind = "unknown_seed"
	WarningRatingFailure              WarningKind = "rating_failure"
	WarningCache                      WarningKind = "cache"
)

// Warning records a skipped or repaired record. Warnings never abort a run.
type Warning struct {
	Kind       WarningKind `json:"kind" yaml:"kind"`
	WrestlerID string      `json:"wrestler_id,omitempty" yaml:"wrestler_id,omitempty"`
	MatchID    string      `json:"match_id,omitempty" yaml:"match_id,omitempty"`
	Period     string      `json:"period,omitempty" yaml:"period,omitempty"`
	Message    string      `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
