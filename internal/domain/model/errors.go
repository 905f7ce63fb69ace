package model

import "errors"

// Sentinel kinds for invalid match records. Callers skip the record and
// report a Warning; none of these abort a run.
var (
	ErrMissingOpponent = errors.New("match lacks a resolvable opponent")
	ErrMissingDate     = errors.New("match has no usable date")
	ErrNoSides         = errors.New("match has no sides")
)
