package scanner

import "errors"

// Common errors returned by the scanner package.
var (
	// ErrInvalidInterval is returned when the scan interval is not positive.
	ErrInvalidInterval = errors.New("scan interval must be positive")

	// ErrAlreadyRunning is returned when Run is called while a loop is active.
	ErrAlreadyRunning = errors.New("scanner already running")

	// ErrNoExecutor is returned by New when no executor is given.
	ErrNoExecutor = errors.New("scanner needs an executor")

	// ErrScanFailed wraps a failure to walk the source root.
	ErrScanFailed = errors.New("scan failed")
)
