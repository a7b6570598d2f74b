// Package watcher rebuilds the index when corpus files change.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driving"
	"github.com/askdoc-labs/askdoc-cli/internal/logger"
)

// defaultDebounce is how long the watcher waits after the last event
// before rebuilding. Editors and sync tools fire bursts of events per
// save; one rebuild per burst is enough.
const defaultDebounce = 2 * time.Second

// Watcher monitors a corpus directory and triggers pipeline rebuilds.
type Watcher struct {
	dir      string
	pipeline driving.Pipeline
	fsw      *fsnotify.Watcher
	debounce time.Duration
}

// New creates a watcher over dir and its subdirectories.
func New(dir string, pipeline driving.Pipeline) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		pipeline: pipeline,
		fsw:      fsw,
		debounce: defaultDebounce,
	}

	if err := w.addRecursive(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// addRecursive watches dir and every subdirectory beneath it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Run processes events until the context is cancelled. Rebuilds are
// debounced; when a rebuild is rejected because one is already running,
// the timer is re-armed so the change is picked up afterwards.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("Corpus change: %s %s", event.Op, event.Name)

			// New subdirectories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				if err := w.addRecursive(event.Name); err != nil {
					logger.Debug("Not watching %s: %v", event.Name, err)
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Corpus watcher: %v", err)

		case <-fire:
			logger.Info("Corpus changed, rebuilding index")
			if err := w.pipeline.Build(ctx); err != nil {
				if errors.Is(err, domain.ErrBuildInProgress) {
					timer.Reset(w.debounce)
					continue
				}
				logger.Warn("Watched rebuild failed: %v", err)
			}
		}
	}
}

// relevant filters out events that cannot affect index content.
func relevant(event fsnotify.Event) bool {
	return event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) ||
		event.Op.Has(fsnotify.Rename)
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
