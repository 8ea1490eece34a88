// Package display provides output formatting for backup history.
//
// It supports multiple output formats (table, JSON, simple text)
// for ledger entries and aggregated statistics.
package display

import (
	"io"

	"github.com/0xmhha/autobackup/pkg/aggregator"
	"github.com/0xmhha/autobackup/pkg/ledger"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays data in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays data as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays data in simple text format.
	FormatSimple Format = "simple"
)

// Formatter formats and displays backup history.
type Formatter interface {
	// FormatHistory formats ledger entries in the given order.
	FormatHistory(w io.Writer, entries []ledger.Entry) error

	// FormatStats formats overall statistics.
	FormatStats(w io.Writer, stats aggregator.Statistics) error

	// FormatGroupedStats formats grouped statistics.
	//
	// Parameters:
	//   - w: Output writer
	//   - grouped: Grouped statistics to format
	//   - dimensions: Dimension names for display
	//
	// Returns error if formatting fails.
	FormatGroupedStats(w io.Writer, grouped map[string]aggregator.Statistics, dimensions []string) error

	// FormatTopFolders formats per top-level folder statistics.
	FormatTopFolders(w io.Writer, folders []aggregator.FolderStats) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowPercentiles enables percentile display.
	ShowPercentiles bool

	// ShowTimestamps enables first/last backup display.
	ShowTimestamps bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
