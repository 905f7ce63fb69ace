package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("wrestler not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidEntry = errors.New("invalid leaderboard entry")
	ErrCacheClosed  = errors.New("attribution cache closed")
)
