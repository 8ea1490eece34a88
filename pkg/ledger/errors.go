package ledger

import "errors"

// Common errors returned by the ledger.
var (
	// ErrLedgerClosed is returned when using a closed ledger.
	ErrLedgerClosed = errors.New("ledger is closed")

	// ErrNotCopied is returned when recording a result that did not copy a file.
	ErrNotCopied = errors.New("only copied results can be recorded")

	// ErrEntryNotFound is returned when an entry ID is unknown.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrLedgerBusy is returned when the file lock is not released within
	// Config.Timeout.
	ErrLedgerBusy = errors.New("ledger is locked by another process")
)
