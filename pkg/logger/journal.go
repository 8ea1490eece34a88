package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// JournalFileName is the journal file kept at the root of the backup tree.
const JournalFileName = "backup_log.txt"

// journalTimeLayout is the timestamp prefix of each journal line.
const journalTimeLayout = "2006-01-02 15:04:05"

// OpenJournal opens path for appending, creating it if needed.
func OpenJournal(path string) (*os.File, error) {
	// #nosec G304: journal path is derived from the configured backup dir
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	return f, nil
}

// journalHandler renders records as "<timestamp> - <message>" lines.
//
// Errors render as "ERROR: <message>: <error>" and warnings as
// "WARNING: <message>: <error>", where <error> is the value of an "error"
// attribute when one is present. Other attributes are left to the console.
type journalHandler struct {
	mu  *sync.Mutex
	w   io.Writer
	err string
}

// NewJournalHandler returns a slog.Handler writing info-and-above records to w.
func NewJournalHandler(w io.Writer) slog.Handler {
	return &journalHandler{mu: &sync.Mutex{}, w: w}
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *journalHandler) Handle(_ context.Context, r slog.Record) error {
	detail := h.err
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "error" {
			detail = a.Value.String()
			return false
		}
		return true
	})

	var b strings.Builder
	b.WriteString(r.Time.Format(journalTimeLayout))
	b.WriteString(" - ")

	switch {
	case r.Level >= slog.LevelError:
		b.WriteString("ERROR: ")
	case r.Level >= slog.LevelWarn:
		b.WriteString("WARNING: ")
	}
	b.WriteString(r.Message)
	if detail != "" && r.Level >= slog.LevelWarn {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	for _, a := range attrs {
		if a.Key == "error" {
			next.err = a.Value.String()
		}
	}
	return &next
}

func (h *journalHandler) WithGroup(string) slog.Handler {
	return h
}
