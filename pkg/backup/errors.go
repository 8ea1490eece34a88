package backup

import "errors"

// Common errors returned by the executor.
var (
	// ErrInvalidVersionName is returned when a template expands to a name
	// that cannot be used as a single directory level.
	ErrInvalidVersionName = errors.New("template expanded to an invalid folder name")

	// ErrNoSourceDir is returned by New when the source directory is empty.
	ErrNoSourceDir = errors.New("source directory is required")

	// ErrNoBackupDir is returned by New when the backup directory is empty.
	ErrNoBackupDir = errors.New("backup directory is required")
)
