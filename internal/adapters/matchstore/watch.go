package matchstore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/joshirank/pkg/logger"
)

// DefaultDebounce collapses the burst of events an editor or copy produces.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to a single store document. The parent directory
// is watched so that atomic replace-by-rename is seen too.
type Watcher struct {
	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher
	logger   logger.Logger
}

// NewWatcher starts watching path.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		fs:       fsw,
		logger:   logger.Get().Named("matchstore-watch"),
	}, nil
}

// Run calls onChange after each settled burst of changes to the document,
// until ctx is done or the watcher is closed. Calls never overlap.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "watch error", logger.String("path", w.path), logger.Error(err))
		case <-fire:
			fire = nil
			onChange(ctx)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
