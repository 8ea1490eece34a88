package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/autobackup/pkg/aggregator"
	"github.com/0xmhha/autobackup/pkg/ledger"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatHistory implements Formatter.FormatHistory.
func (f *simpleFormatter) FormatHistory(w io.Writer, entries []ledger.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s %s -> %s (%s)\n",
			formatTime(e.BackedUpAt),
			e.Source,
			e.Dest,
			formatBytes(e.Size)); err != nil {
			return err
		}
	}

	return nil
}

// FormatStats implements Formatter.FormatStats.
func (f *simpleFormatter) FormatStats(w io.Writer, stats aggregator.Statistics) error {
	_, err := fmt.Fprintf(w, "Files: %d | Top Folders: %d | Versions: %d | Total: %s | Largest: %s\n",
		stats.Count,
		stats.TopFolderCount,
		stats.VersionCount,
		formatBytes(stats.TotalBytes),
		formatBytes(stats.MaxBytes))
	return err
}

// FormatGroupedStats implements Formatter.FormatGroupedStats.
func (f *simpleFormatter) FormatGroupedStats(w io.Writer, grouped map[string]aggregator.Statistics, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}

	for _, key := range sortedKeys(grouped) {
		stats := grouped[key]
		if _, err := fmt.Fprintf(w, "%s: %d files, %s\n",
			key,
			stats.Count,
			formatBytes(stats.TotalBytes)); err != nil {
			return err
		}
	}

	return nil
}

// FormatTopFolders implements Formatter.FormatTopFolders.
func (f *simpleFormatter) FormatTopFolders(w io.Writer, folders []aggregator.FolderStats) error {
	for i, folder := range folders {
		if _, err := fmt.Fprintf(w, "#%d: %s - %s in %d versions\n",
			i+1,
			folder.TopFolder,
			formatBytes(folder.Statistics.TotalBytes),
			folder.Statistics.VersionCount); err != nil {
			return err
		}
	}

	return nil
}
