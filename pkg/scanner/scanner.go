// Package scanner provides periodic backup scheduling.
//
// Every interval it walks the source tree and backs up each regular file
// whose modification time is newer than the start of the previous scan.
//
// Example usage:
//
//	s, err := scanner.New(scanner.Config{
//	    Root:     "/src",
//	    Interval: 5 * time.Second,
//	}, executor, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Blocks until ctx is cancelled.
//	err = s.Run(ctx)
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xmhha/autobackup/pkg/backup"
)

// Logger defines the logging interface used by the scanner package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Executor performs the backup for one change.
type Executor interface {
	Execute(ctx context.Context, ch backup.Change) backup.Result
}

// Config contains scanner configuration.
type Config struct {
	// Root is the source directory to walk.
	Root string

	// Interval is the pause between the end of one scan and the start of
	// the next. Must be positive.
	Interval time.Duration

	// Workers bounds concurrent backups within one scan. Default: 1.
	Workers int

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

// Stats summarizes one scan.
type Stats struct {
	Seen    int // regular files visited
	Changed int // files newer than the baseline
	Copied  int
	Skipped int
	Failed  int
}

// Scanner runs periodic scans.
type Scanner interface {
	// Run scans every interval until ctx is cancelled. The first scan
	// compares against the moment Run was called, so files untouched
	// since startup are never copied. Scan errors are logged and the
	// loop continues.
	Run(ctx context.Context) error

	// ScanOnce backs up every regular file under the root modified
	// strictly after since, and waits for those backups to finish.
	ScanOnce(ctx context.Context, since time.Time) (Stats, error)
}

// scanner implements the Scanner interface.
type scanner struct {
	config   Config
	executor Executor
	logger   Logger

	mu      sync.Mutex
	running bool
}

// New creates a new Scanner.
//
// Parameters:
//   - cfg: Scanner configuration
//   - exec: Executor that performs each backup
//   - logger: Logger instance for diagnostic messages
//
// Returns:
//   - Configured Scanner
//   - ErrInvalidInterval if the interval is not positive
func New(cfg Config, exec Executor, logger Logger) (Scanner, error) {
	if exec == nil {
		return nil, ErrNoExecutor
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.Interval)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &scanner{
		config:   cfg,
		executor: exec,
		logger:   logger,
	}, nil
}

// Run implements Scanner.Run.
func (s *scanner) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	baseline := s.config.Now()
	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scan loop stopped", "reason", "context cancelled")
			return nil
		case <-timer.C:
		}

		scanStart := s.config.Now()
		stats, err := s.ScanOnce(ctx, baseline)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			s.logger.Error("interval scan failed", "error", err)
		default:
			// Files modified while the scan ran are picked up next time.
			baseline = scanStart
		}

		s.logger.Debug("interval scan complete",
			"seen", stats.Seen,
			"changed", stats.Changed,
			"copied", stats.Copied,
			"failed", stats.Failed)

		timer.Reset(s.config.Interval)
	}
}

// ScanOnce implements Scanner.ScanOnce.
func (s *scanner) ScanOnce(ctx context.Context, since time.Time) (Stats, error) {
	var (
		stats                   Stats
		copied, skipped, failed atomic.Int64
	)

	g := new(errgroup.Group)
	g.SetLimit(s.config.Workers)

	walkErr := filepath.WalkDir(s.config.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == s.config.Root {
				return err
			}
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil // Skip but continue walking.
		}

		info, ok := s.fileInfo(path, d)
		if !ok {
			return nil
		}
		stats.Seen++
		if !info.ModTime().After(since) {
			return nil
		}
		stats.Changed++

		ch := backup.Change{Path: path, Kind: backup.KindModified, Time: info.ModTime()}
		g.Go(func() error {
			switch res := s.executor.Execute(ctx, ch); res.Status {
			case backup.StatusCopied:
				copied.Add(1)
			case backup.StatusFailed:
				failed.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
		return nil
	})

	// Backups already handed out run to completion.
	_ = g.Wait()

	stats.Copied = int(copied.Load())
	stats.Skipped = int(skipped.Load())
	stats.Failed = int(failed.Load())

	if stats.Changed > 0 {
		s.logger.Info(fmt.Sprintf("Interval Scan: Backed up %d files.", stats.Changed))
	}

	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return stats, walkErr
		}
		return stats, fmt.Errorf("%w: %w", ErrScanFailed, walkErr)
	}
	return stats, nil
}

// fileInfo returns the info of a regular file, following symlinks to
// regular files. Directories, dangling links and special files are rejected.
func (s *scanner) fileInfo(path string, d fs.DirEntry) (fs.FileInfo, bool) {
	var (
		info fs.FileInfo
		err  error
	)
	switch {
	case d.Type().IsRegular():
		info, err = d.Info()
	case d.Type()&fs.ModeSymlink != 0:
		info, err = os.Stat(path)
	default:
		return nil, false
	}
	if err != nil {
		// Removed between listing and stat, or a dangling link.
		s.logger.Debug("failed to get file info", "path", path, "error", err)
		return nil, false
	}
	return info, info.Mode().IsRegular()
}
