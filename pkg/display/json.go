package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/autobackup/pkg/aggregator"
	"github.com/0xmhha/autobackup/pkg/ledger"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatHistory implements Formatter.FormatHistory.
func (f *jsonFormatter) FormatHistory(w io.Writer, entries []ledger.Entry) error {
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return f.encoder(w).Encode(entries)
}

// FormatStats implements Formatter.FormatStats.
func (f *jsonFormatter) FormatStats(w io.Writer, stats aggregator.Statistics) error {
	return f.encoder(w).Encode(stats)
}

// FormatGroupedStats implements Formatter.FormatGroupedStats.
func (f *jsonFormatter) FormatGroupedStats(w io.Writer, grouped map[string]aggregator.Statistics, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}

	return f.encoder(w).Encode(grouped)
}

// FormatTopFolders implements Formatter.FormatTopFolders.
func (f *jsonFormatter) FormatTopFolders(w io.Writer, folders []aggregator.FolderStats) error {
	return f.encoder(w).Encode(folders)
}

func (f *jsonFormatter) encoder(w io.Writer) *json.Encoder {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder
}
