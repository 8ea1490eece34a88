package aggregator

import (
	"sort"
	"strings"
	"sync"

	"github.com/0xmhha/autobackup/pkg/ledger"
)

// aggregator implements the Aggregator interface.
type aggregator struct {
	config Config

	mu      sync.RWMutex
	overall *group
	groups  map[string]*group // by dimension key
	folders map[string]*group // by top folder, always tracked
}

// group holds statistics for a specific dimension combination.
type group struct {
	sizes    []int64
	stats    Statistics
	folders  map[string]struct{}
	versions map[string]struct{}
}

func newGroup() *group {
	return &group{
		folders:  make(map[string]struct{}),
		versions: make(map[string]struct{}),
	}
}

// New creates a new aggregator.
//
// Parameters:
//   - cfg: Aggregator configuration
//
// Returns a configured Aggregator.
func New(cfg Config) Aggregator {
	return &aggregator{
		config:  cfg,
		overall: newGroup(),
		groups:  make(map[string]*group),
		folders: make(map[string]*group),
	}
}

// Add implements Aggregator.Add.
func (a *aggregator) Add(entry ledger.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.add(a.overall, entry)

	f, ok := a.folders[entry.TopFolder]
	if !ok {
		f = newGroup()
		a.folders[entry.TopFolder] = f
	}
	a.add(f, entry)

	if len(a.config.GroupBy) > 0 {
		key := a.dimensionKey(entry)
		g, exists := a.groups[key]
		if !exists {
			g = newGroup()
			a.groups[key] = g
		}
		a.add(g, entry)
	}
}

// Stats implements Aggregator.Stats.
func (a *aggregator) Stats() Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.finish(a.overall)
}

// GroupedStats implements Aggregator.GroupedStats.
func (a *aggregator) GroupedStats() map[string]Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]Statistics, len(a.groups))
	for key, g := range a.groups {
		result[key] = a.finish(g)
	}
	return result
}

// TopFolders implements Aggregator.TopFolders.
func (a *aggregator) TopFolders(n int) []FolderStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]FolderStats, 0, len(a.folders))
	for name, g := range a.folders {
		result = append(result, FolderStats{
			TopFolder:  name,
			Statistics: a.finish(g),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Statistics.TotalBytes != result[j].Statistics.TotalBytes {
			return result[i].Statistics.TotalBytes > result[j].Statistics.TotalBytes
		}
		return result[i].TopFolder < result[j].TopFolder
	})

	if n > 0 && n < len(result) {
		result = result[:n]
	}
	return result
}

// Reset implements Aggregator.Reset.
func (a *aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.overall = newGroup()
	a.groups = make(map[string]*group)
	a.folders = make(map[string]*group)
}

// add updates a group with a new entry.
func (a *aggregator) add(g *group, entry ledger.Entry) {
	stats := &g.stats
	size := entry.Size

	stats.Count++
	stats.TotalBytes += size
	stats.AvgBytes = float64(stats.TotalBytes) / float64(stats.Count)

	if stats.Count == 1 {
		stats.MinBytes = size
		stats.MaxBytes = size
	} else {
		if size < stats.MinBytes {
			stats.MinBytes = size
		}
		if size > stats.MaxBytes {
			stats.MaxBytes = size
		}
	}

	if stats.FirstBackup.IsZero() || entry.BackedUpAt.Before(stats.FirstBackup) {
		stats.FirstBackup = entry.BackedUpAt
	}
	if stats.LastBackup.IsZero() || entry.BackedUpAt.After(stats.LastBackup) {
		stats.LastBackup = entry.BackedUpAt
	}

	g.folders[entry.TopFolder] = struct{}{}
	// Version names repeat across top folders.
	g.versions[entry.TopFolder+"|"+entry.Version] = struct{}{}

	if a.config.TrackPercentiles {
		g.sizes = append(g.sizes, size)
	}
}

// finish copies a group's statistics and fills the derived fields.
func (a *aggregator) finish(g *group) Statistics {
	stats := g.stats
	stats.TopFolderCount = len(g.folders)
	stats.VersionCount = len(g.versions)

	if a.config.TrackPercentiles && len(g.sizes) > 0 {
		sizes := make([]int64, len(g.sizes))
		copy(sizes, g.sizes)
		sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

		stats.P50Bytes = percentile(sizes, 50)
		stats.P95Bytes = percentile(sizes, 95)
	}

	return stats
}

// dimensionKey creates a unique key for the configured dimensions.
func (a *aggregator) dimensionKey(entry ledger.Entry) string {
	parts := make([]string, 0, len(a.config.GroupBy))
	for _, dim := range a.config.GroupBy {
		switch dim {
		case DimTopFolder:
			parts = append(parts, entry.TopFolder)
		case DimVersion:
			parts = append(parts, entry.Version)
		case DimDate:
			parts = append(parts, entry.BackedUpAt.Format("2006-01-02"))
		case DimHour:
			parts = append(parts, entry.BackedUpAt.Format("2006-01-02 15:00"))
		default:
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, "|")
}

// percentile calculates the nth percentile of a sorted slice.
func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between closest ranks.
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return int64(float64(sorted[lower])*(1-fraction) + float64(sorted[upper])*fraction)
}
