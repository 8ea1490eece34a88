package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrConfigMissing is returned when no settings file can be found.
	ErrConfigMissing = errors.New("settings file not found")

	// ErrConfigInvalid wraps every validation failure.
	ErrConfigInvalid = errors.New("invalid settings")

	// ErrNoSource is returned when source_dir is empty.
	ErrNoSource = errors.New("source_dir is required")

	// ErrNoBackup is returned when backup_dir is empty.
	ErrNoBackup = errors.New("backup_dir is required")

	// ErrSameDirs is returned when source_dir and backup_dir are the same directory.
	ErrSameDirs = errors.New("source_dir and backup_dir must differ")

	// ErrBackupInsideSource is returned when backup_dir lies inside source_dir.
	ErrBackupInsideSource = errors.New("backup_dir must not be inside source_dir")

	// ErrForbiddenChars is returned when the format contains reserved filename characters.
	ErrForbiddenChars = errors.New(`format contains forbidden characters (< > : " / \ | ? *)`)

	// ErrInvalidMode is returned when mode is not event or periodic.
	ErrInvalidMode = errors.New("invalid mode: must be event or periodic")

	// ErrInvalidWaitTime is returned when time_value is negative, or zero in periodic mode.
	ErrInvalidWaitTime = errors.New("invalid time_value: must be >= 0, and > 0 in periodic mode")

	// ErrInvalidWorkers is returned when workers is < 1.
	ErrInvalidWorkers = errors.New("invalid workers: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text, json, or auto")

	// ErrInvalidSyntax is returned when a settings file cannot be decoded.
	ErrInvalidSyntax = errors.New("invalid syntax in settings file")
)
