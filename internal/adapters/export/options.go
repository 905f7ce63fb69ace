package export

import "github.com/okian/joshirank/pkg/logger"

// Option configures a Writer.
type Option func(*Writer)

// WithFormat sets the encoding of every document.
func WithFormat(f Format) Option {
	return func(w *Writer) {
		w.format = f
	}
}

// WithLogger sets the writer's logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}
