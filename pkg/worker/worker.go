package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/0xmhha/autobackup/pkg/backup"
	"github.com/0xmhha/autobackup/pkg/config"
	"github.com/0xmhha/autobackup/pkg/ledger"
	"github.com/0xmhha/autobackup/pkg/logger"
	"github.com/0xmhha/autobackup/pkg/scanner"
	"github.com/0xmhha/autobackup/pkg/watcher"
)

// Worker supervises one backup run.
type Worker struct {
	settings config.Settings
	logger   logger.Logger
	opts     options

	mu      sync.Mutex
	running bool
}

// New creates a Worker for the given settings.
//
// Parameters:
//   - s: Settings; copied, normalized and validated
//   - log: Logger for messages emitted before the journal is open
//   - opts: Optional behavior
//
// Returns:
//   - Configured Worker
//   - Error wrapping config.ErrConfigInvalid if the settings are invalid
func New(s *config.Settings, log logger.Logger, opts ...Option) (*Worker, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: no settings", config.ErrConfigInvalid)
	}
	if log == nil {
		log = logger.Default()
	}

	settings := *s
	if err := settings.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfigInvalid, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := options{console: "stderr"}
	for _, opt := range opts {
		opt(&o)
	}

	return &Worker{
		settings: settings,
		logger:   log,
		opts:     o,
	}, nil
}

// Settings returns the normalized settings the worker runs with.
func (w *Worker) Settings() config.Settings {
	return w.settings
}

// Run starts the configured scheduler and blocks until ctx is cancelled.
//
// Returns nil on a clean shutdown. Only startup failures (backup
// directory, source directory, journal, ledger) are returned; errors
// from individual files are logged and never end the run.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWorkerRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	s := w.settings

	if err := os.MkdirAll(s.BackupDir, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrBackupDir, err)
	}

	if info, err := os.Stat(s.SourceDir); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return fmt.Errorf("%w: %s: %w", ErrSourceMissing, s.SourceDir, err)
	}

	journal, err := logger.OpenJournal(filepath.Join(s.BackupDir, logger.JournalFileName))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJournal, err)
	}
	defer func() {
		if closeErr := journal.Close(); closeErr != nil {
			w.logger.Warn("failed to close journal", "error", closeErr)
		}
	}()

	log := logger.New(logger.Config{
		Level:   s.LogLevel,
		Output:  w.opts.console,
		Format:  s.LogFormat,
		Journal: journal,
	}).With("run_id", uuid.NewString())

	log.Info("Worker started watching...")
	log.Debug("settings",
		"source_dir", s.SourceDir,
		"backup_dir", s.BackupDir,
		"format", s.Format,
		"mode", s.Mode,
		"time_value", s.WaitTime)

	var rec backup.Recorder
	if s.Ledger {
		l, ledgerErr := ledger.New(ledger.Config{
			Path: filepath.Join(s.BackupDir, ledger.FileName),
		}, log)
		if ledgerErr != nil {
			log.Error("cannot open backup ledger", "error", ledgerErr)
			return ledgerErr
		}
		defer func() {
			if closeErr := l.Close(); closeErr != nil {
				log.Warn("failed to close ledger", "error", closeErr)
			}
		}()
		rec = l
	}

	exec, err := backup.New(backup.Config{
		SourceDir: s.SourceDir,
		BackupDir: s.BackupDir,
		Format:    s.Format,
		Now:       w.opts.now,
		Recorder:  rec,
	}, log)
	if err != nil {
		return err
	}

	switch s.Mode {
	case config.ModePeriodic:
		err = w.runPeriodic(ctx, exec, log)
	default:
		err = w.runEvent(ctx, exec, log)
	}
	if err != nil {
		log.Error("worker stopped", "error", err)
		return err
	}

	log.Info("Worker stopped.")
	return nil
}

// runEvent drives the event-debounce scheduler.
func (w *Worker) runEvent(ctx context.Context, exec *backup.Executor, log logger.Logger) error {
	s := w.settings
	log.Info(fmt.Sprintf("--- MODE: REAL-TIME EVENT (Debounce: %ss) ---", seconds(s.WaitTime)))

	wt, err := watcher.New(watcher.Config{
		Root:        s.SourceDir,
		Delay:       s.Wait(),
		FlushOnStop: w.opts.flushOnStop,
	}, exec, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := wt.Close(); closeErr != nil {
			log.Warn("failed to close watcher", "error", closeErr)
		}
	}()

	if err := wt.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	// Errors are already logged by the watcher; keep the channel drained.
	go func() {
		for err := range wt.Errors() {
			if errors.Is(err, watcher.ErrCircuitBreakerOpen) {
				log.Warn("file watcher is failing repeatedly; changes may be missed")
			}
		}
	}()

	w.ready()
	<-ctx.Done()

	log.Debug("stopping watcher", "pending", wt.Pending())
	if err := wt.Stop(); err != nil && !errors.Is(err, watcher.ErrNotStarted) {
		return err
	}
	return nil
}

// runPeriodic drives the periodic scan scheduler.
func (w *Worker) runPeriodic(ctx context.Context, exec *backup.Executor, log logger.Logger) error {
	s := w.settings
	log.Info(fmt.Sprintf("--- MODE: PERIODIC SCAN (Every %ss) ---", seconds(s.WaitTime)))

	sc, err := scanner.New(scanner.Config{
		Root:     s.SourceDir,
		Interval: s.Wait(),
		Workers:  s.Workers,
	}, exec, log)
	if err != nil {
		return err
	}

	w.ready()
	return sc.Run(ctx)
}

func (w *Worker) ready() {
	if w.opts.ready != nil {
		w.opts.ready()
	}
}

// seconds renders a time_value the way it was written: 5 -> "5", 0.5 -> "0.5".
func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
