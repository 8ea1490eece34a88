package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/autobackup/pkg/backup"
	"github.com/0xmhha/autobackup/pkg/logger"
)

// Bucket names.
var (
	bucketBackups    = []byte("backups")     // UUIDv7 -> Entry
	bucketTopFolders = []byte("top_folders") // top folder -> uint64 count
)

// ledger implements the Ledger interface using BoltDB.
//
// The database file is opened for each operation and closed right after,
// so the file lock is only held while a transaction runs. A worker
// recording backups and a history reader can then share the file.
type ledger struct {
	logger logger.Logger
	config Config

	// mu serializes operations: a second open of the file from this
	// process would wait on our own lock.
	mu     sync.Mutex
	closed bool
}

// New opens (or creates) the ledger database.
//
// Parameters:
//   - cfg: Ledger configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Ledger
//   - Error if the database cannot be opened
func New(cfg Config, log logger.Logger) (Ledger, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	if !cfg.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	l := &ledger{
		logger: log,
		config: cfg,
	}

	// The first session creates the buckets, or checks that a read-only
	// ledger exists.
	err := l.session(func(db *bolt.DB) error {
		if cfg.ReadOnly {
			return nil
		}
		return db.Update(func(tx *bolt.Tx) error {
			if _, createErr := tx.CreateBucketIfNotExists(bucketBackups); createErr != nil {
				return fmt.Errorf("failed to create backups bucket: %w", createErr)
			}
			if _, createErr := tx.CreateBucketIfNotExists(bucketTopFolders); createErr != nil {
				return fmt.Errorf("failed to create top folders bucket: %w", createErr)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Debug("ledger opened", "path", cfg.Path, "read_only", cfg.ReadOnly)

	return l, nil
}

// session opens the database, runs fn and closes it again.
// Callers hold l.mu.
func (l *ledger) session(fn func(db *bolt.DB) error) error {
	db, err := bolt.Open(l.config.Path, 0600, &bolt.Options{
		Timeout:  l.config.Timeout,
		ReadOnly: l.config.ReadOnly,
	})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return fmt.Errorf("failed to open ledger: %w", ErrLedgerBusy)
		}
		return fmt.Errorf("failed to open ledger: %w", err)
	}

	fnErr := fn(db)
	if closeErr := db.Close(); closeErr != nil {
		l.logger.Error("failed to close ledger", "error", closeErr)
		if fnErr == nil {
			fnErr = fmt.Errorf("failed to close ledger: %w", closeErr)
		}
	}
	return fnErr
}

// view runs fn in a read-only transaction of a fresh session.
func (l *ledger) view(fn func(tx *bolt.Tx) error) error {
	return l.session(func(db *bolt.DB) error {
		return db.View(fn)
	})
}

// Record implements Ledger.Record.
func (l *ledger) Record(res backup.Result) error {
	if res.Status != backup.StatusCopied {
		return ErrNotCopied
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLedgerClosed
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate entry id: %w", err)
	}

	completed := res.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}

	entry := Entry{
		ID:         id.String(),
		Source:     res.Source,
		Dest:       res.Dest,
		TopFolder:  res.TopFolder,
		Version:    res.Version,
		Size:       res.Size,
		ModTime:    res.ModTime,
		BackedUpAt: completed,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return l.session(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			return put(tx, id[:], data, entry.TopFolder)
		})
	})
}

// put stores one entry and bumps its top folder count.
func put(tx *bolt.Tx, id, data []byte, topFolder string) error {
	if err := tx.Bucket(bucketBackups).Put(id, data); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	counts := tx.Bucket(bucketTopFolders)
	var n uint64
	if v := counts.Get([]byte(topFolder)); len(v) == 8 {
		n = binary.BigEndian.Uint64(v)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n+1)
	if err := counts.Put([]byte(topFolder), buf); err != nil {
		return fmt.Errorf("failed to update top folder count: %w", err)
	}

	return nil
}

// Get implements Ledger.Get.
func (l *ledger) Get(id string) (*Entry, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryNotFound, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}

	var entry *Entry
	err = l.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBackups)
		if b == nil {
			return ErrEntryNotFound
		}

		data := b.Get(parsed[:])
		if data == nil {
			return ErrEntryNotFound
		}

		var e Entry
		if unmarshalErr := json.Unmarshal(data, &e); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal entry: %w", unmarshalErr)
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// List implements Ledger.List.
func (l *ledger) List(q Query) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}

	entries := make([]Entry, 0)
	err := l.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBackups)
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if unmarshalErr := json.Unmarshal(v, &e); unmarshalErr != nil {
				l.logger.Warn("skipping corrupt ledger entry", "error", unmarshalErr)
				continue
			}
			if q.TopFolder != "" && e.TopFolder != q.TopFolder {
				continue
			}

			entries = append(entries, e)
			if q.Limit > 0 && len(entries) >= q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// TopFolders implements Ledger.TopFolders.
func (l *ledger) TopFolders() (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}

	counts := make(map[string]int)
	err := l.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTopFolders)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) == 8 {
				counts[string(k)] = int(binary.BigEndian.Uint64(v))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// Close implements Ledger.Close.
func (l *ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.logger.Debug("ledger closed", "path", l.config.Path)

	return nil
}
