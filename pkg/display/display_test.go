package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/autobackup/pkg/aggregator"
	"github.com/0xmhha/autobackup/pkg/ledger"
)

func sampleEntries() []ledger.Entry {
	return []ledger.Entry{
		{
			ID:         "01890a5d-ac96-774b-bcce-b302099a8057",
			Source:     "/src/Proj/a.txt",
			Dest:       "/bak/Proj/Proj-2/a.txt",
			TopFolder:  "Proj",
			Version:    "Proj-2",
			Size:       2048,
			BackedUpAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:         "01890a5d-ac96-774b-bcce-b302099a8058",
			Source:     "/src/root.txt",
			Dest:       "/bak/Root/Root-1/root.txt",
			TopFolder:  "Root",
			Version:    "Root-1",
			Size:       12,
			BackedUpAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func sampleStats() aggregator.Statistics {
	return aggregator.Statistics{
		Count:          1500,
		TopFolderCount: 3,
		VersionCount:   42,
		TotalBytes:     5 * 1024 * 1024,
		AvgBytes:       3495.25,
		MinBytes:       10,
		MaxBytes:       1024 * 1024,
		P50Bytes:       2048,
		P95Bytes:       512 * 1024,
		FirstBackup:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		LastBackup:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   string // Type name
	}{
		{
			name:   "default format (table)",
			config: Config{},
			want:   "*display.tableFormatter",
		},
		{
			name:   "table format",
			config: Config{Format: FormatTable},
			want:   "*display.tableFormatter",
		},
		{
			name:   "json format",
			config: Config{Format: FormatJSON},
			want:   "*display.jsonFormatter",
		},
		{
			name:   "simple format",
			config: Config{Format: FormatSimple},
			want:   "*display.simpleFormatter",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			formatter := New(tt.config)
			if formatter == nil {
				t.Fatal("New() returned nil")
			}

			got := fmt.Sprintf("%T", formatter)
			if got != tt.want {
				t.Errorf("New() type = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableFormatter_FormatHistory(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{Format: FormatTable}).FormatHistory(&buf, sampleEntries()); err != nil {
		t.Fatalf("FormatHistory() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Backup History", "Top Folder", "Proj-2", "2.0 KiB", "/src/root.txt", "2024-01-01 12:00:00"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	// Newest entry stays first.
	if strings.Index(output, "Proj-2") > strings.Index(output, "Root-1") {
		t.Error("entries were reordered")
	}
}

func TestTableFormatter_FormatStats(t *testing.T) {
	t.Parallel()

	formatter := New(Config{
		Format:          FormatTable,
		ShowPercentiles: true,
		ShowTimestamps:  true,
	})

	var buf bytes.Buffer
	if err := formatter.FormatStats(&buf, sampleStats()); err != nil {
		t.Fatalf("FormatStats() error = %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "1,500") {
		t.Error("Output missing file count")
	}
	if !strings.Contains(output, "5.0 MiB") {
		t.Error("Output missing total size")
	}
	if !strings.Contains(output, "P50") {
		t.Error("Output missing percentiles")
	}
	if !strings.Contains(output, "2024-01-01") {
		t.Error("Output missing timestamps")
	}
}

func TestTableFormatter_FormatGroupedStats(t *testing.T) {
	t.Parallel()

	grouped := map[string]aggregator.Statistics{
		"Root|2024-01-02": {Count: 1, VersionCount: 1, TotalBytes: 10, MaxBytes: 10},
		"Proj|2024-01-01": {Count: 3, VersionCount: 2, TotalBytes: 3000, MaxBytes: 2000},
	}

	var buf bytes.Buffer
	if err := New(Config{Format: FormatTable}).FormatGroupedStats(&buf, grouped, []string{"top_folder", "date"}); err != nil {
		t.Fatalf("FormatGroupedStats() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "top_folder") || !strings.Contains(output, "date") {
		t.Error("Output missing dimension headers")
	}
	if !strings.Contains(output, "2.9 KiB") {
		t.Error("Output missing group total")
	}

	// Groups are sorted by key.
	if strings.Index(output, "Proj") > strings.Index(output, "Root") {
		t.Error("groups not sorted")
	}

	if err := New(Config{}).FormatGroupedStats(&buf, grouped, nil); err == nil {
		t.Error("FormatGroupedStats() without dimensions: want error")
	}
}

func TestTableFormatter_FormatTopFolders(t *testing.T) {
	t.Parallel()

	folders := []aggregator.FolderStats{
		{TopFolder: "Proj", Statistics: aggregator.Statistics{Count: 10, VersionCount: 4, TotalBytes: 4096}},
		{TopFolder: "Root", Statistics: aggregator.Statistics{Count: 1, VersionCount: 1, TotalBytes: 1}},
	}

	var buf bytes.Buffer
	if err := New(Config{Format: FormatTable}).FormatTopFolders(&buf, folders); err != nil {
		t.Fatalf("FormatTopFolders() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "#1") || !strings.Contains(output, "#2") {
		t.Error("Output missing ranks")
	}
	if !strings.Contains(output, "4.0 KiB") {
		t.Error("Output missing folder size")
	}
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatJSON})

	var buf bytes.Buffer
	if err := formatter.FormatHistory(&buf, sampleEntries()); err != nil {
		t.Fatalf("FormatHistory() error = %v", err)
	}

	var entries []ledger.Entry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("FormatHistory() produced invalid JSON: %v", err)
	}
	if len(entries) != 2 || entries[0].Version != "Proj-2" {
		t.Errorf("decoded entries = %+v", entries)
	}

	buf.Reset()
	if err := formatter.FormatHistory(&buf, nil); err != nil {
		t.Fatalf("FormatHistory(nil) error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty history = %q, want []", buf.String())
	}

	buf.Reset()
	if err := formatter.FormatStats(&buf, sampleStats()); err != nil {
		t.Fatalf("FormatStats() error = %v", err)
	}
	var stats aggregator.Statistics
	if err := json.Unmarshal(buf.Bytes(), &stats); err != nil {
		t.Fatalf("FormatStats() produced invalid JSON: %v", err)
	}
	if stats.Count != 1500 {
		t.Errorf("Count = %d, want 1500", stats.Count)
	}
}

func TestSimpleFormatter(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatSimple})

	var buf bytes.Buffer
	if err := formatter.FormatHistory(&buf, sampleEntries()); err != nil {
		t.Fatalf("FormatHistory() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "/src/Proj/a.txt -> /bak/Proj/Proj-2/a.txt") {
		t.Errorf("line = %q", lines[0])
	}

	buf.Reset()
	if err := formatter.FormatStats(&buf, sampleStats()); err != nil {
		t.Fatalf("FormatStats() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Total: 5.0 MiB") {
		t.Errorf("Simple output missing total: %s", buf.String())
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		n    int
		want string
	}{
		{"zero", 0, "0"},
		{"small", 123, "123"},
		{"thousand", 1000, "1,000"},
		{"ten thousand", 12345, "12,345"},
		{"million", 1234567, "1,234,567"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := formatNumber(tt.n)
			if got != tt.want {
				t.Errorf("formatNumber(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestCompactMode(t *testing.T) {
	t.Parallel()

	formatter1 := New(Config{Format: FormatTable, Compact: false})
	var buf1 bytes.Buffer
	if err := formatter1.FormatStats(&buf1, sampleStats()); err != nil {
		t.Fatalf("FormatStats() error = %v", err)
	}

	formatter2 := New(Config{Format: FormatTable, Compact: true})
	var buf2 bytes.Buffer
	if err := formatter2.FormatStats(&buf2, sampleStats()); err != nil {
		t.Fatalf("FormatStats() error = %v", err)
	}

	if len(buf2.String()) >= len(buf1.String()) {
		t.Error("Compact mode did not reduce output length")
	}
}

func TestEmptyData(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatTable})

	var buf bytes.Buffer
	if err := formatter.FormatHistory(&buf, nil); err != nil {
		t.Fatalf("FormatHistory() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No data") {
		t.Error("Empty history should show 'No data'")
	}

	buf.Reset()
	if err := formatter.FormatTopFolders(&buf, nil); err != nil {
		t.Fatalf("FormatTopFolders() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No data") {
		t.Error("Empty top folders should show 'No data'")
	}
}
