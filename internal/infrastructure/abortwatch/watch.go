// Package abortwatch cancels a run when a marker file shows up, so a CI
// job can be stopped gracefully by touching a file in the workspace.
package abortwatch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch returns a context that is cancelled once path exists. An empty
// path, or a watcher that cannot be set up, yields a plain child context.
func Watch(ctx context.Context, path string, log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	if path == "" {
		return ctx, cancel
	}

	if _, err := os.Stat(path); err == nil {
		log.Warn("abort file already present", zap.String("path", path))
		cancel()
		return ctx, cancel
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify init failed", zap.Error(err))
		return ctx, cancel
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := w.Add(dir); err != nil {
		log.Warn("fsnotify add dir failed", zap.String("dir", dir), zap.Error(err))
		_ = w.Close()
		return ctx, cancel
	}

	go func() {
		defer func() { _ = w.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					log.Warn("abort file detected, cancelling run", zap.String("path", path))
					cancel()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("fsnotify error", zap.Error(err))
			}
		}
	}()

	return ctx, cancel
}
