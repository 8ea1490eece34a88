package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/autobackup/pkg/backup"
	"github.com/0xmhha/autobackup/pkg/logger"
)

// pending is one file waiting for its quiet period. Identity of the pointer
// tells a firing timer whether it has been superseded.
type pending struct {
	change backup.Change
	timer  *time.Timer
}

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw      *fsnotify.Watcher
	logger   logger.Logger
	config   Config
	executor Executor

	errors chan error

	mu       sync.RWMutex
	running  bool
	stopped  bool
	closed   bool
	stopChan chan struct{}
	done     chan struct{}
	execCtx  context.Context

	// Debouncing state. A nil map means no more timers may be scheduled.
	debounceTimers map[string]*pending
	debounceMu     sync.Mutex
	inflight       sync.WaitGroup

	// Circuit breaker state.
	failureCount int
	lastFailure  time.Time
}

// New creates a new event scheduler.
//
// Parameters:
//   - cfg: Watcher configuration
//   - exec: Executor that performs each backup
//   - log: Logger instance
//
// Returns:
//   - Configured Watcher
//   - Error if watcher cannot be created
func New(cfg Config, exec Executor, log logger.Logger) (Watcher, error) {
	if exec == nil {
		return nil, ErrNoExecutor
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &watcher{
		fsw:            fsw,
		logger:         log,
		config:         cfg,
		executor:       exec,
		errors:         make(chan error, 10),
		stopChan:       make(chan struct{}),
		done:           make(chan struct{}),
		debounceTimers: make(map[string]*pending),
	}

	log.Debug("file watcher created",
		"root", cfg.Root,
		"delay", cfg.Delay,
		"flush_on_stop", cfg.FlushOnStop)

	return w, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed || w.stopped {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.execCtx = ctx
	w.mu.Unlock()

	info, err := os.Stat(w.config.Root)
	if err == nil && !info.IsDir() {
		err = errors.New("not a directory")
	}
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("%w: %s: %v", ErrInvalidPath, w.config.Root, err)
	}

	if err := w.fsw.Add(w.config.Root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to add path %s: %w", w.config.Root, err)
	}
	w.addTree(w.config.Root, false)

	w.logger.Debug("watcher started", "root", w.config.Root)

	go w.processEvents(ctx)

	return nil
}

// Run implements Watcher.Run.
func (w *watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	if err := w.Stop(); err != nil && !errors.Is(err, ErrNotStarted) {
		return err
	}
	return nil
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if !w.running {
		w.mu.Unlock()
		return ErrNotStarted
	}
	close(w.stopChan)
	w.running = false
	w.stopped = true
	execCtx := w.execCtx
	w.mu.Unlock()

	<-w.done

	w.debounceMu.Lock()
	var flush []backup.Change
	for _, p := range w.debounceTimers {
		p.timer.Stop()
		if w.config.FlushOnStop {
			flush = append(flush, p.change)
		}
	}
	abandoned := len(w.debounceTimers) - len(flush)
	w.debounceTimers = nil
	w.debounceMu.Unlock()

	if abandoned > 0 {
		w.logger.Debug("abandoned pending backups", "count", abandoned)
	}

	// Flushed backups must not see the cancellation that triggered the stop.
	flushCtx := context.WithoutCancel(execCtx)
	for _, ch := range flush {
		w.inflight.Add(1)
		go func(ch backup.Change) {
			defer w.inflight.Done()
			w.executor.Execute(flushCtx, ch)
		}(ch)
	}

	w.inflight.Wait()

	w.logger.Debug("watcher stopped", "flushed", len(flush))
	return nil
}

// Pending implements Watcher.Pending.
func (w *watcher) Pending() int {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	return len(w.debounceTimers)
}

// Errors implements Watcher.Errors.
func (w *watcher) Errors() <-chan error {
	return w.errors
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	w.mu.RLock()
	running := w.running
	closed := w.closed
	w.mu.RUnlock()

	if closed {
		return nil
	}
	if running {
		if err := w.Stop(); err != nil && !errors.Is(err, ErrNotStarted) {
			w.logger.Warn("failed to stop watcher during close", "error", err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	// Timers scheduled by a watcher that never started.
	w.debounceMu.Lock()
	for _, p := range w.debounceTimers {
		p.timer.Stop()
	}
	w.debounceTimers = nil
	w.debounceMu.Unlock()

	close(w.errors)

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Debug("watcher closed")
	return nil
}

// processEvents handles events from fsnotify.
func (w *watcher) processEvents(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("event processing stopped", "reason", "context cancelled")
			return

		case <-w.stopChan:
			w.logger.Debug("event processing stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("fsnotify events channel closed")
				return
			}

			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("fsnotify errors channel closed")
				return
			}

			w.handleError(err)
		}
	}
}

// handleEvent maps a single fsnotify event to a scheduled backup.
// Removals, renames and attribute changes are ignored.
func (w *watcher) handleEvent(event fsnotify.Event) {
	var kind backup.Kind
	switch {
	case event.Has(fsnotify.Create):
		kind = backup.KindCreated
	case event.Has(fsnotify.Write):
		kind = backup.KindModified
	default:
		return
	}

	info, err := os.Lstat(event.Name)
	if err != nil {
		// Gone before we looked; nothing to back up.
		return
	}

	w.mu.Lock()
	w.failureCount = 0
	w.mu.Unlock()

	if info.IsDir() {
		if kind == backup.KindCreated {
			w.addTree(event.Name, true)
		}
		return
	}

	w.schedule(backup.Change{
		Path: event.Name,
		Kind: kind,
		Time: time.Now(),
	})
}

// schedule (re)starts the quiet-period timer for a file.
func (w *watcher) schedule(ch backup.Change) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimers == nil {
		return
	}

	if prev, exists := w.debounceTimers[ch.Path]; exists {
		prev.timer.Stop()
		// A file created and then written within one quiet period is
		// still a creation.
		if prev.change.Kind == backup.KindCreated {
			ch.Kind = backup.KindCreated
		}
	}

	p := &pending{change: ch}
	p.timer = time.AfterFunc(w.config.Delay, func() { w.fire(p) })
	w.debounceTimers[ch.Path] = p
}

// fire runs the backup for p unless it was superseded or the watcher stopped.
func (w *watcher) fire(p *pending) {
	w.debounceMu.Lock()
	if cur, ok := w.debounceTimers[p.change.Path]; !ok || cur != p {
		w.debounceMu.Unlock()
		return
	}
	delete(w.debounceTimers, p.change.Path)
	w.inflight.Add(1)
	w.debounceMu.Unlock()

	defer w.inflight.Done()

	w.mu.RLock()
	ctx := w.execCtx
	w.mu.RUnlock()

	// A timer may fire after cancellation but before Stop collects it;
	// with flushing on, that change must still be backed up.
	if w.config.FlushOnStop {
		ctx = context.WithoutCancel(ctx)
	}

	w.executor.Execute(ctx, p.change)
}

// handleError processes fsnotify errors with circuit breaker pattern.
func (w *watcher) handleError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.failureCount++
	w.lastFailure = time.Now()

	w.logger.Warn("fsnotify error",
		"error", err,
		"failure_count", w.failureCount)

	// Check circuit breaker.
	if w.failureCount >= w.config.CircuitBreakerThreshold {
		w.logger.Error("circuit breaker opened",
			"threshold", w.config.CircuitBreakerThreshold)

		select {
		case w.errors <- ErrCircuitBreakerOpen:
		default:
			w.logger.Debug("error channel full, dropping error")
		}

		return
	}

	select {
	case w.errors <- err:
	default:
		w.logger.Debug("error channel full, dropping error")
	}
}

// addTree adds every directory under root to the watcher. When fresh is set
// the tree appeared after startup, so files already inside it are scheduled
// as well: they may have been written before the watch was in place.
func (w *watcher) addTree(root string, fresh bool) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error walking path",
				"path", path,
				"error", err)
			return nil // Skip but continue walking.
		}

		if !d.IsDir() {
			if fresh && d.Type().IsRegular() {
				w.schedule(backup.Change{Path: path, Kind: backup.KindCreated, Time: time.Now()})
			}
			return nil
		}

		if path == root && !fresh {
			return nil
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("failed to add subdirectory",
				"path", path,
				"error", addErr)
			return nil
		}

		w.logger.Debug("added watch directory", "path", path)
		return nil
	})
	if err != nil {
		w.logger.Warn("failed to walk directory", "path", root, "error", err)
	}
}
