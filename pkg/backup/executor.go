package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xmhha/autobackup/pkg/layout"
	"github.com/0xmhha/autobackup/pkg/logger"
	"github.com/0xmhha/autobackup/pkg/template"
)

// Executor performs backups. It is safe for concurrent use.
type Executor struct {
	config   Config
	logger   logger.Logger
	expander template.Expander

	// Version allocation is serialized per top-level folder.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a new executor.
//
// Parameters:
//   - cfg: Executor configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Executor
//   - Error if a required directory is missing
func New(cfg Config, log logger.Logger) (*Executor, error) {
	if cfg.SourceDir == "" {
		return nil, ErrNoSourceDir
	}
	if cfg.BackupDir == "" {
		return nil, ErrNoBackupDir
	}

	cfg.SourceDir = filepath.Clean(cfg.SourceDir)
	cfg.BackupDir = filepath.Clean(cfg.BackupDir)

	return &Executor{
		config:   cfg,
		logger:   log,
		expander: template.Expander{Now: cfg.Now},
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// Execute backs up the file named by ch.
//
// Execute never panics and never returns an error: the outcome, including
// any failure, is reported in the Result and logged. Once the copy has begun
// it runs to completion even if ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, ch Change) (res Result) {
	res.Source = ch.Path

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Dest = ""
			res.Err = fmt.Errorf("backup panicked: %v", r)
			e.logger.Error("backup failed for "+ch.Path, "error", res.Err)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Status = StatusSkipped
		return res
	}

	info, err := os.Stat(ch.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.logger.Debug("source vanished, skipping", "path", ch.Path)
			res.Status = StatusSkipped
			return res
		}
		return e.fail(res, fmt.Errorf("failed to stat source: %w", err))
	}
	if info.IsDir() {
		res.Status = StatusSkipped
		return res
	}

	loc, err := layout.Decompose(e.config.SourceDir, ch.Path)
	if err != nil {
		return e.fail(res, err)
	}
	res.TopFolder = loc.TopFolder

	targetDir, version, err := e.allocate(loc, ch.Path)
	if err != nil {
		return e.fail(res, err)
	}
	res.Version = version

	dest, copied, err := copyFile(ch.Path, targetDir, loc.Filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !sourceExists(ch.Path) {
			e.logger.Debug("source vanished during copy, skipping", "path", ch.Path)
			res.Status = StatusSkipped
			return res
		}
		return e.fail(res, err)
	}

	res.Status = StatusCopied
	res.Dest = dest
	res.Size = copied.Size()
	res.ModTime = copied.ModTime()
	res.CompletedAt = time.Now()

	e.logger.Info(fmt.Sprintf("Backup Success: %s -> %s", ch.Path, dest),
		"kind", ch.Kind,
		"top_folder", loc.TopFolder,
		"version", version,
		"bytes", res.Size)

	if e.config.Recorder != nil {
		if recErr := e.config.Recorder.Record(res); recErr != nil {
			e.logger.Warn("failed to record backup in ledger", "path", ch.Path, "error", recErr)
		}
	}

	return res
}

// allocate picks the version folder for loc and creates the target directory.
//
// Counting and creation happen under the top folder's lock, so concurrent
// changes in the same top folder see each other's version folders.
func (e *Executor) allocate(loc layout.Location, sourcePath string) (targetDir, version string, err error) {
	lock := e.lockFor(loc.TopFolder)
	lock.Lock()
	defer lock.Unlock()

	count, countErr := layout.CountVersions(e.config.BackupDir, loc.TopFolder)
	if countErr != nil {
		e.logger.Warn("cannot list versions of "+loc.TopFolder+", counting from zero",
			"top_folder", loc.TopFolder,
			"error", countErr)
	}

	version = e.expander.Expand(e.config.Format, loc.TopFolder, sourcePath, count)
	if err := checkVersionName(version); err != nil {
		return "", "", err
	}

	targetDir = filepath.Join(e.config.BackupDir, loc.TopFolder, version, loc.MiddlePath)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", targetDir, err)
	}

	return targetDir, version, nil
}

// lockFor returns the mutex guarding version allocation for topFolder.
func (e *Executor) lockFor(topFolder string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	lock, ok := e.locks[topFolder]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[topFolder] = lock
	}
	return lock
}

func (e *Executor) fail(res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	e.logger.Error("backup failed for "+res.Source, "error", err)
	return res
}

// checkVersionName rejects names that would not stay one level below the top folder.
func checkVersionName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidVersionName, name)
	}
	return nil
}

func sourceExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
