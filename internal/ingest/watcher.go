package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-runs ingestion sweeps when the corpus directory changes on
// disk. Filesystem events are debounced so a burst of writes (an editor
// save, a bulk copy) triggers a single sweep.
type Watcher struct {
	pipeline *Pipeline
	dir      string
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a corpus watcher. A non-positive debounce falls back
// to two seconds.
func NewWatcher(pipeline *Pipeline, dir string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		pipeline: pipeline,
		dir:      dir,
		debounce: debounce,
		logger:   logger,
	}
}

// Run watches the corpus directory until ctx is cancelled. Sweeps run
// serially on the watcher goroutine, so an event storm never overlaps two
// sweeps.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addRecursive(fsw, w.dir); err != nil {
		return err
	}

	w.logger.Info("watching corpus directory", zap.String("dir", w.dir))

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New subdirectories must be watched too.
			if event.Op&fsnotify.Create != 0 {
				if err := addRecursive(fsw, event.Name); err != nil {
					w.logger.Debug("watching new path failed",
						zap.String("path", event.Name), zap.Error(err))
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if _, err := w.pipeline.Ingest(ctx, w.dir); err != nil {
				w.logger.Error("watch-triggered sweep failed", zap.Error(err))
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("filesystem watch error", zap.Error(err))
		}
	}
}

// addRecursive registers path and every non-hidden subdirectory with the
// watcher. Non-directory paths are ignored.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// The path may have vanished between event and walk.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return fsw.Add(path)
	})
}
