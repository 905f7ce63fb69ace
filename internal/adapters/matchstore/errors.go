package matchstore

import "errors"

// ErrMatchStore marks a missing or unreadable store document. It is the only
// fatal input condition; everything below document level becomes a warning.
var ErrMatchStore = errors.New("match store unavailable")
