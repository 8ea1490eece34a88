// Package ledger keeps a persistent history of completed backups.
//
// Every successful copy is stored in a BoltDB file at the root of the backup
// tree, keyed by a time-ordered UUID so that listing newest-first is a reverse
// cursor walk. A second bucket counts backups per top-level folder.
//
// Example usage:
//
//	l, err := ledger.New(ledger.Config{
//	    Path: "/backups/.autobackup.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	entries, err := l.List(ledger.Query{TopFolder: "Proj", Limit: 10})
package ledger

import (
	"time"

	"github.com/0xmhha/autobackup/pkg/backup"
)

// FileName is the ledger database kept at the root of the backup tree.
const FileName = ".autobackup.db"

// Entry is one recorded backup.
type Entry struct {
	// ID is a UUIDv7; lexical order is chronological order.
	ID string `json:"id"`

	// Source is the file that was backed up.
	Source string `json:"source"`

	// Dest is the written backup file.
	Dest string `json:"dest"`

	// TopFolder and Version locate the version folder.
	TopFolder string `json:"top_folder"`
	Version   string `json:"version"`

	// Size is the copied size in bytes.
	Size int64 `json:"size"`

	// ModTime is the source modification time.
	ModTime time.Time `json:"mod_time"`

	// BackedUpAt is when the copy completed.
	BackedUpAt time.Time `json:"backed_up_at"`
}

// Query filters List results.
type Query struct {
	// TopFolder restricts results to one top-level folder. Empty means all.
	TopFolder string

	// Limit caps the number of entries. Zero means no limit.
	Limit int
}

// Ledger records and lists backups.
type Ledger interface {
	// Record stores a copied Result.
	//
	// Returns ErrNotCopied for skipped or failed results.
	Record(res backup.Result) error

	// Get retrieves one entry by ID.
	//
	// Returns ErrEntryNotFound if the ID is unknown.
	Get(id string) (*Entry, error)

	// List returns matching entries, newest first.
	List(q Query) ([]Entry, error)

	// TopFolders returns the number of recorded backups per top-level folder.
	TopFolders() (map[string]int, error)

	// Close marks the ledger closed. The file itself is only open while an
	// operation runs.
	Close() error
}

// Config contains ledger configuration.
type Config struct {
	// Path is the BoltDB file path.
	Path string

	// Timeout bounds waiting for the file lock on each operation
	// (default: 1 second). Expiry returns ErrLedgerBusy.
	Timeout time.Duration

	// ReadOnly opens the database without write access.
	ReadOnly bool
}
