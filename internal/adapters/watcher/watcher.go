// Package watcher reports changes to a single file, used by serve to reload
// its configuration.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces editor save bursts into a single reload.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher calls back after a file settles following a change.
type FileWatcher struct {
	logger   *slog.Logger
	debounce time.Duration
}

// New creates a watcher. A non-positive debounce uses DefaultDebounce.
func New(logger *slog.Logger, debounce time.Duration) *FileWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{logger: logger, debounce: debounce}
}

// Watch blocks until ctx is done, invoking onChange after path is created,
// written, renamed or removed. The parent directory is watched so editors
// that replace the file atomically are handled. onChange runs on the
// watching goroutine, so calls never overlap.
func (w *FileWatcher) Watch(ctx context.Context, path string, onChange func()) error {
	if onChange == nil {
		return errors.New("watch callback is nil")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(path)
	name := filepath.Base(path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching file", slog.String("path", path))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("file event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case <-timer.C:
			onChange()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("err", err))
		}
	}
}
