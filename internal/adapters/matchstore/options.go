package matchstore

import (
	"github.com/okian/joshirank/pkg/logger"
)

// Option configures a Reader.
type Option func(*Reader)

// WithDedupeLimit bounds the number of match keys remembered while loading.
// Zero keeps every key, which is required for exact deduplication.
func WithDedupeLimit(n int) Option {
	return func(r *Reader) {
		if n >= 0 {
			r.dedupeLimit = n
		}
	}
}

// WithLogger sets the reader's logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}
