package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler receives the results of one debounced rescan. removed lists
// the files that disappeared, as slash-separated relative paths.
type ChangeHandler func(ctx context.Context, results []*FileResult, removed []string)

// Watcher watches the root directory for file changes and rescans the
// changed files once events settle.
type Watcher struct {
	runner       *Runner
	rootDir      string
	watcher      *fsnotify.Watcher
	handler      ChangeHandler
	logger       *slog.Logger
	debounceTime time.Duration
	started      atomic.Bool
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
}

// NewWatcher creates a watcher over the runner's root directory.
func NewWatcher(runner *Runner, handler ChangeHandler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		runner:       runner,
		rootDir:      runner.discovery.RootDir(),
		watcher:      fw,
		handler:      handler,
		logger:       runner.logger,
		debounceTime: 500 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	if _, err := os.Stat(w.rootDir); err != nil {
		fw.Close()
		return nil, err
	}
	if err := w.addDirectoriesRecursively(w.rootDir); err != nil {
		fw.Close()
		return nil, err
	}

	return w, nil
}

// SetDebounce changes how long events must settle before a rescan.
// It must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounceTime = d
}

// Start begins watching for file changes.
func (w *Watcher) Start(ctx context.Context) {
	if w.started.CompareAndSwap(false, true) {
		go w.watch(ctx)
	}
}

// Stop stops the file watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started.Load() {
			<-w.doneCh
		}
		w.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	var debounceTimer *time.Timer
	rescanCh := make(chan struct{}, 1)
	changed := make(map[string]bool)

	stopTimer := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case <-w.stopCh:
			stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// New directories join the watch before filtering, since the
			// directory itself never matches a file pattern.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if w.shouldWatchDirectory(event.Name) {
						if err := w.addDirectoriesRecursively(event.Name); err != nil {
							w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if !w.shouldProcessEvent(event) {
				continue
			}
			changed[event.Name] = true

			stopTimer()
			debounceTimer = time.AfterFunc(w.debounceTime, func() {
				select {
				case rescanCh <- struct{}{}:
				default:
				}
			})

		case <-rescanCh:
			w.rescan(ctx, changed)
			changed = make(map[string]bool)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// rescan scans the changed files that still exist and reports the rest as
// removed.
func (w *Watcher) rescan(ctx context.Context, changed map[string]bool) {
	if len(changed) == 0 {
		return
	}

	var present []string
	var removed []string
	for path := range changed {
		if _, err := os.Stat(path); err != nil {
			if rel, err := w.runner.discovery.relPath(path); err == nil {
				removed = append(removed, rel)
			}
			continue
		}
		present = append(present, path)
	}
	sort.Strings(present)
	sort.Strings(removed)

	w.logger.Info("rescanning changed files", "changed", len(present), "removed", len(removed))
	start := time.Now()

	results, err := w.runner.Run(ctx, present)
	if err != nil {
		w.logger.Error("rescan failed", "error", err)
		return
	}
	w.logger.Debug("rescan complete", "duration", time.Since(start))

	if w.handler != nil {
		w.handler(ctx, results, removed)
	}
}

// shouldProcessEvent checks if an event should trigger a rescan.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	relPath, err := w.runner.discovery.relPath(event.Name)
	if err != nil {
		return false
	}
	return w.runner.discovery.Matches(relPath)
}

// shouldWatchDirectory checks if a directory should be watched.
func (w *Watcher) shouldWatchDirectory(path string) bool {
	relPath, err := w.runner.discovery.relPath(path)
	if err != nil {
		return false
	}
	if relPath == "." {
		return true
	}
	return !w.runner.discovery.ShouldIgnore(relPath)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Don't fail the entire watch for one directory
			w.logger.Warn("error accessing path", "path", path, "error", err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if !w.shouldWatchDirectory(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}
