package library

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// importSettleDelay gives whatever is writing a new file time to finish
// before ffprobe reads it. Imports are idempotent by path, so a premature
// attempt followed by a retry on the next event is harmless.
const importSettleDelay = 2 * time.Second

// Watcher imports video files that appear in registered watch folders.
type Watcher struct {
	svc    *Service
	fs     *fsnotify.Watcher
	logger *slog.Logger
}

func NewWatcher(svc *Service, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{svc: svc, fs: fs, logger: logger}, nil
}

// Watch adds a directory to the watch set.
func (w *Watcher) Watch(path string) error {
	return w.fs.Add(path)
}

// Run consumes filesystem events until the context is cancelled. It blocks,
// so callers start it in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("watch folder importer started")

	for {
		select {
		case <-ctx.Done():
			w.fs.Close()
			w.logger.Info("watch folder importer stopping")
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) || !IsVideoFile(event.Name) {
				continue
			}
			path := event.Name
			go func() {
				select {
				case <-ctx.Done():
					return
				case <-time.After(importSettleDelay):
				}
				if _, err := w.svc.Import(ctx, path); err != nil {
					w.logger.Warn("auto-import failed", "path", path, "error", err)
				}
			}()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}
