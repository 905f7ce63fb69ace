package worker

import (
	"github.com/okian/joshirank/internal/adapters/mq/queue"
	"github.com/okian/joshirank/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithErrorHandler receives every failed job. Handler errors are otherwise
// only logged.
func WithErrorHandler(fn func(queue.Job, error)) Option {
	return func(w *InMemoryWorker) {
		w.onError = fn
	}
}
