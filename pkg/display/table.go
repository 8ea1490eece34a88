package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/autobackup/pkg/aggregator"
	"github.com/0xmhha/autobackup/pkg/ledger"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatHistory implements Formatter.FormatHistory.
func (f *tableFormatter) FormatHistory(w io.Writer, entries []ledger.Entry) error {
	if err := writeHeader(w, "Backup History", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Backed Up", "Top Folder", "Version", "Size", "Source"}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			formatTime(e.BackedUpAt),
			e.TopFolder,
			e.Version,
			formatBytes(e.Size),
			e.Source,
		}
	}

	return f.writeTable(w, header, rows)
}

// FormatStats implements Formatter.FormatStats.
func (f *tableFormatter) FormatStats(w io.Writer, stats aggregator.Statistics) error {
	if err := writeHeader(w, "Backup Statistics", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Files Copied", formatNumber(stats.Count)},
		{"Top Folders", formatNumber(stats.TopFolderCount)},
		{"Versions", formatNumber(stats.VersionCount)},
		{"Total Size", formatBytes(stats.TotalBytes)},
		{"Average Size", formatBytes(int64(stats.AvgBytes))},
		{"Smallest", formatBytes(stats.MinBytes)},
		{"Largest", formatBytes(stats.MaxBytes)},
	}

	if f.config.ShowPercentiles {
		rows = append(rows,
			[]string{"P50 Size", formatBytes(stats.P50Bytes)},
			[]string{"P95 Size", formatBytes(stats.P95Bytes)},
		)
	}

	if f.config.ShowTimestamps && !stats.FirstBackup.IsZero() {
		rows = append(rows,
			[]string{"First Backup", formatTime(stats.FirstBackup)},
			[]string{"Last Backup", formatTime(stats.LastBackup)},
		)
	}

	return f.writeTable(w, []string{"Metric", "Value"}, rows)
}

// FormatGroupedStats implements Formatter.FormatGroupedStats.
func (f *tableFormatter) FormatGroupedStats(w io.Writer, grouped map[string]aggregator.Statistics, dimensions []string) error {
	if err := validateDimensions(dimensions); err != nil {
		return err
	}

	if err := writeHeader(w, "Grouped Statistics", f.config.Compact); err != nil {
		return err
	}

	header := make([]string, len(dimensions), len(dimensions)+4)
	copy(header, dimensions)
	header = append(header, "Files", "Versions", "Total", "Largest")

	rows := make([][]string, 0, len(grouped))
	for _, key := range sortedKeys(grouped) {
		stats := grouped[key]
		row := make([]string, len(header))

		// Parse key into dimension values.
		parts := strings.Split(key, "|")
		for i, part := range parts {
			if i < len(dimensions) {
				row[i] = part
			}
		}

		row[len(dimensions)] = formatNumber(stats.Count)
		row[len(dimensions)+1] = formatNumber(stats.VersionCount)
		row[len(dimensions)+2] = formatBytes(stats.TotalBytes)
		row[len(dimensions)+3] = formatBytes(stats.MaxBytes)

		rows = append(rows, row)
	}

	return f.writeTable(w, header, rows)
}

// FormatTopFolders implements Formatter.FormatTopFolders.
func (f *tableFormatter) FormatTopFolders(w io.Writer, folders []aggregator.FolderStats) error {
	if err := writeHeader(w, "Top Folders by Size", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Rank", "Top Folder", "Versions", "Files", "Total", "Last Backup"}

	rows := make([][]string, len(folders))
	for i, folder := range folders {
		rows[i] = []string{
			fmt.Sprintf("#%d", i+1),
			folder.TopFolder,
			formatNumber(folder.Statistics.VersionCount),
			formatNumber(folder.Statistics.Count),
			formatBytes(folder.Statistics.TotalBytes),
			formatTime(folder.Statistics.LastBackup),
		}
	}

	return f.writeTable(w, header, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Write header.
	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	// Write separator.
	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	// Write rows.
	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	// Add spacing.
	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	for i, cell := range cells {
		if i > 0 {
			if f.config.Compact {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(w, "  "); err != nil {
					return err
				}
			}
		}

		format := fmt.Sprintf("%%-%ds", widths[i])
		if _, err := fmt.Fprintf(w, format, cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
