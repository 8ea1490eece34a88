// Package aggregator provides backup history statistics.
//
// It aggregates ledger entries across top-level folders, versions and time
// windows, providing summary statistics over copied bytes.
//
// Example usage:
//
//	agg := aggregator.New(aggregator.Config{
//	    GroupBy: []aggregator.Dimension{aggregator.DimTopFolder, aggregator.DimDate},
//	})
//
//	for _, entry := range entries {
//	    agg.Add(entry)
//	}
//
//	stats := agg.Stats()
//	fmt.Printf("Copied: %d bytes in %d versions\n", stats.TotalBytes, stats.VersionCount)
package aggregator

import (
	"time"

	"github.com/0xmhha/autobackup/pkg/ledger"
)

// Dimension represents an aggregation dimension.
type Dimension string

const (
	// DimTopFolder aggregates by top-level folder.
	DimTopFolder Dimension = "top_folder"

	// DimVersion aggregates by version folder name.
	DimVersion Dimension = "version"

	// DimDate aggregates by backup date (YYYY-MM-DD).
	DimDate Dimension = "date"

	// DimHour aggregates by backup hour (YYYY-MM-DD HH:00).
	DimHour Dimension = "hour"
)

// ParseDimension converts a name to a Dimension.
func ParseDimension(name string) (Dimension, bool) {
	switch d := Dimension(name); d {
	case DimTopFolder, DimVersion, DimDate, DimHour:
		return d, true
	default:
		return "", false
	}
}

// Aggregator computes backup history statistics.
type Aggregator interface {
	// Add adds a ledger entry to the aggregator.
	Add(entry ledger.Entry)

	// Stats returns statistics across all entries.
	Stats() Statistics

	// GroupedStats returns statistics grouped by configured dimensions.
	//
	// Keys join the dimension values with "|" in GroupBy order.
	GroupedStats() map[string]Statistics

	// TopFolders returns the n top-level folders with the most copied
	// bytes, largest first. n <= 0 returns all of them.
	TopFolders(n int) []FolderStats

	// Reset clears all aggregated data.
	Reset()
}

// Statistics contains aggregated backup statistics.
type Statistics struct {
	// Count is the number of files copied.
	Count int

	// TopFolderCount is the number of distinct top-level folders.
	TopFolderCount int

	// VersionCount is the number of distinct version folders.
	VersionCount int

	// TotalBytes is the sum of all copied file sizes.
	TotalBytes int64

	// AvgBytes is the average file size.
	AvgBytes float64

	// MinBytes is the smallest copied file.
	MinBytes int64

	// MaxBytes is the largest copied file.
	MaxBytes int64

	// P50Bytes is the median file size.
	P50Bytes int64

	// P95Bytes is the 95th percentile file size.
	P95Bytes int64

	// FirstBackup is the time of the earliest copy.
	FirstBackup time.Time

	// LastBackup is the time of the latest copy.
	LastBackup time.Time
}

// FolderStats contains statistics for a single top-level folder.
type FolderStats struct {
	// TopFolder is the top-level folder name.
	TopFolder string

	// Statistics contains aggregated stats for this folder.
	Statistics Statistics
}

// Config contains aggregator configuration.
type Config struct {
	// GroupBy specifies aggregation dimensions.
	//
	// Default: no grouping (overall stats only).
	GroupBy []Dimension

	// TrackPercentiles enables percentile calculation.
	//
	// Percentiles require keeping every size in memory.
	TrackPercentiles bool
}
