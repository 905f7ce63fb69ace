package service

import "errors"

// Sentinel errors returned by the service.
var (
	// ErrNotReady means no run has completed yet.
	ErrNotReady = errors.New("no completed run")
	// ErrNotFound means the wrestler is not part of the current run.
	ErrNotFound = errors.New("wrestler not found")
)
