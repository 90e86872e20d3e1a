package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize
var ErrWatcherFailed = errors.New("failed to initialize plugin directory watcher")

// Watcher loads plugin files that appear in a directory after the initial scan.
//
// Hooks are only ever appended: a plugin file is bound once, after its first
// import that registers at least one hook. Later writes to the same file are
// ignored.
type Watcher struct {
	manager *HookManager
	dir     string
	watcher *fsnotify.Watcher
	events  chan LoadedModule
	stop    chan struct{}

	mu    sync.Mutex
	bound map[string]bool
}

// NewWatcher creates a watcher for dir that registers into manager.
func NewWatcher(manager *HookManager, dir string) (*Watcher, error) {
	if manager.Importer() == nil {
		return nil, ErrNoImporter
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		manager: manager,
		dir:     dir,
		watcher: fw,
		events:  make(chan LoadedModule, 16),
		stop:    make(chan struct{}),
		bound:   make(map[string]bool),
	}, nil
}

// Start performs the initial directory scan and begins watching for new
// plugin files in a background goroutine. Call Stop to release resources.
func (w *Watcher) Start(ctx context.Context) (*LoadReport, error) {
	if err := w.watcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watching plugin directory %s: %w", w.dir, err)
	}

	report, err := w.manager.LoadPlugins(ctx, w.dir)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	for _, m := range report.Loaded {
		if len(m.Stages) > 0 {
			w.bound[m.Path] = true
		}
	}
	w.mu.Unlock()

	go w.processEvents(ctx)
	return report, nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		// Already stopped
		return
	default:
		close(w.stop)
		_ = w.watcher.Close() // Best-effort cleanup, ignore error
	}
}

// Events returns the channel receiving modules bound after Start.
func (w *Watcher) Events() <-chan LoadedModule {
	return w.events
}

// processEvents processes filesystem events and loads new plugin files.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handleFileChange(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			w.manager.logger.Warn(ctx, "plugin watcher error", zap.Error(err))
		}
	}
}

// handleFileChange loads path if it is an unbound plugin file.
func (w *Watcher) handleFileChange(ctx context.Context, path string) {
	if !w.manager.MatchesPattern(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bound[path] {
		return
	}

	loaded, err := w.manager.LoadPlugin(ctx, path)
	if err != nil {
		// Already logged; a later write may complete the file
		return
	}
	if len(loaded.Stages) == 0 {
		return
	}
	w.bound[path] = true

	// Send event (non-blocking)
	select {
	case w.events <- loaded:
	default:
		// Channel full, skip event
	}
}
