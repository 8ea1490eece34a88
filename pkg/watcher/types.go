// Package watcher provides real-time backup scheduling from file system events.
//
// It uses fsnotify to watch the source tree recursively and debounces
// changes per file: every create or write notification restarts that file's
// timer, and the backup runs once the file has been quiet for the configured
// delay.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    Root:  "/src",
//	    Delay: 5 * time.Second,
//	}, executor, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	// Blocks until ctx is cancelled, then stops and waits for in-flight backups.
//	if err := w.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package watcher

import (
	"context"
	"time"

	"github.com/0xmhha/autobackup/pkg/backup"
)

// Executor performs the backup for one change.
type Executor interface {
	Execute(ctx context.Context, ch backup.Change) backup.Result
}

// Watcher schedules backups from file system events.
type Watcher interface {
	// Start subscribes to the source tree and returns once the
	// subscription is established. Backups run with ctx; a timer that
	// fires after ctx is cancelled does nothing.
	//
	// Returns ErrInvalidPath if the root does not exist or is not a directory.
	Start(ctx context.Context) error

	// Run calls Start, blocks until ctx is cancelled, then calls Stop.
	Run(ctx context.Context) error

	// Stop ends the subscription, cancels (or flushes) pending timers and
	// waits for in-flight backups. A stopped watcher cannot be restarted.
	Stop() error

	// Pending returns the number of files waiting for their quiet period.
	Pending() int

	// Errors returns the channel for receiving non-fatal watcher errors.
	//
	// The channel is closed by Close.
	Errors() <-chan error

	// Close stops the watcher if needed and releases resources.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// Root is the source directory watched recursively.
	Root string

	// Delay is the quiet period after the last notification for a file
	// before it is backed up. Zero backs up on the next timer tick.
	Delay time.Duration

	// FlushOnStop runs pending backups immediately on Stop instead of
	// abandoning them.
	FlushOnStop bool

	// CircuitBreakerThreshold is the number of consecutive failures
	// before the circuit breaker opens (stops retrying).
	// Default: 5.
	CircuitBreakerThreshold int
}
