// Package watcher watches directories for new or changed files and hands
// them to a handler once writes have settled.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"atslens/internal/errors"
)

// DefaultDebounce is used when no debounce delay is configured
const DefaultDebounce = 500 * time.Millisecond

// MatchFunc selects the paths a Watcher reports
type MatchFunc func(path string) bool

// HandlerFunc receives a batch of settled paths, sorted
type HandlerFunc func(paths []string)

// Watcher collects file events and delivers them in debounced batches
type Watcher struct {
	mu sync.Mutex

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	pending       map[string]struct{}

	stopChan  chan struct{}
	flushChan chan struct{}
	done      chan struct{}

	match   MatchFunc
	handler HandlerFunc
	logger  *errors.Logger

	running bool
}

// New creates a watcher. A nil match accepts every path.
func New(debounceDelay time.Duration, match MatchFunc, handler HandlerFunc, logger *errors.Logger) *Watcher {
	if debounceDelay <= 0 {
		debounceDelay = DefaultDebounce
	}
	if match == nil {
		match = func(string) bool { return true }
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Watcher{
		debounceDelay: debounceDelay,
		pending:       make(map[string]struct{}),
		flushChan:     make(chan struct{}, 1), // Buffered to prevent blocking
		match:         match,
		handler:       handler,
		logger:        logger,
	}
}

// Start begins watching paths. A path may be a directory or a file; a file
// that does not exist yet is picked up through its directory.
func (w *Watcher) Start(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher is already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	for _, p := range paths {
		if err := addPath(fsWatcher, p); err != nil {
			if closeErr := fsWatcher.Close(); closeErr != nil {
				w.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
			}
			return err
		}
	}

	w.fsWatcher = fsWatcher
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.watchLoop(w.fsWatcher, w.stopChan, w.done)

	w.logger.Info("File watcher started", "paths", paths, "debounce_delay", w.debounceDelay)
	return nil
}

// addPath watches a directory, or a file and its directory to catch
// atomic writes (rename operations)
func addPath(fsWatcher *fsnotify.Watcher, p string) error {
	info, err := os.Stat(p)
	switch {
	case err == nil && info.IsDir():
		if err := fsWatcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", p, err)
		}
		return nil
	case err == nil:
		if err := fsWatcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch file %s: %w", p, err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to stat %s: %w", p, err)
	}

	dir := filepath.Dir(p)
	if err := fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. Events
// still waiting for their debounce are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}

	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false
	done, fsWatcher := w.done, w.fsWatcher
	w.mu.Unlock()

	err := fsWatcher.Close()
	<-done
	if err != nil {
		w.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	w.logger.Info("File watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop(fsWatcher *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.schedule(event.Name)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error")

		case <-w.flushChan:
			if batch := w.drain(); len(batch) > 0 {
				w.handler(batch)
			}

		case <-stop:
			return
		}
	}
}

// shouldProcessEvent keeps writes, creates and renames of matching paths
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return w.match(event.Name)
}

// schedule adds path to the pending batch and restarts the debounce timer
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.flushChan <- struct{}{}:
		default:
			// Flush already scheduled
		}
	})
}

// drain returns the pending paths that still exist and clears the batch
func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			batch = append(batch, p)
		}
	}
	clear(w.pending)
	sort.Strings(batch)
	return batch
}
