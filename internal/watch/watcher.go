// Package watch rebuilds a project when its tree changes
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stanza-build/stanza/pkg/logger"
)

// skipDirs are directories never watched: build outputs, caches and
// VCS metadata. Watching dist would loop: every build writes there.
var skipDirs = map[string]bool{
	".git":        true,
	".stanza":     true,
	"dist":        true,
	"__pycache__": true,
	".tox":        true,
	".venv":       true,
}

// transientFiles are materialized by the builder itself and must not
// retrigger a rebuild
var transientFiles = map[string]bool{
	"setup.py":    true,
	"MANIFEST.in": true,
	"README.rst":  true,
}

// Watcher delivers settled batches of changed paths for a project root
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   logger.Logger
	settling time.Duration

	mu      sync.Mutex
	pending map[string]bool
}

// New creates a watcher. The settling delay batches rapid successive
// events into one change notification.
func New(log logger.Logger, settling time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if settling <= 0 {
		settling = 200 * time.Millisecond
	}

	return &Watcher{
		watcher:  w,
		logger:   log,
		settling: settling,
		pending:  make(map[string]bool),
	}, nil
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run watches root recursively and invokes onChange with each settled
// batch of changed paths until the context is cancelled.
func (w *Watcher) Run(ctx context.Context, root string, onChange func(changed []string)) error {
	if err := w.addTree(root); err != nil {
		return err
	}

	w.logger.Info("Watching for changes", logger.WithField("root", root))

	ticker := time.NewTicker(w.settling)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(root, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watch error", logger.WithField("error", err))

		case <-ticker.C:
			if batch := w.drain(); len(batch) > 0 {
				onChange(batch)
			}
		}
	}
}

func (w *Watcher) handleEvent(root string, event fsnotify.Event) {
	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if ignored(rel) {
		return
	}

	// New directories join the watch set
	if event.Op.Has(fsnotify.Create) {
		if err := w.addTree(event.Name); err != nil {
			w.logger.Debug("Failed to watch new path",
				logger.WithField("path", event.Name),
				logger.WithField("error", err))
		}
	}

	w.mu.Lock()
	w.pending[rel] = true
	w.mu.Unlock()
}

// drain returns and clears the pending change set
func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]bool)
	return batch
}

// addTree adds a directory and its subdirectories to the watch set.
// Non-directories are ignored.
func (w *Watcher) addTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// The path may have vanished between event and walk
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// ignored filters paths that must never trigger a rebuild
func ignored(rel string) bool {
	if transientFiles[rel] {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if skipDirs[part] {
			return true
		}
	}
	return false
}
