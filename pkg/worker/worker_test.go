package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/autobackup/pkg/config"
	"github.com/0xmhha/autobackup/pkg/ledger"
	"github.com/0xmhha/autobackup/pkg/logger"
)

func testSettings(t *testing.T, mode config.Mode, wait float64) *config.Settings {
	t.Helper()

	root := t.TempDir()
	s := config.Default()
	s.SourceDir = filepath.Join(root, "src")
	s.BackupDir = filepath.Join(root, "bak")
	s.Format = "$top_folder-$count"
	s.Mode = mode
	s.WaitTime = wait
	require.NoError(t, os.MkdirAll(s.SourceDir, 0755))
	return s
}

// startWorker runs w in the background and waits until its scheduler is live.
func startWorker(t *testing.T, s *config.Settings, opts ...Option) (context.CancelFunc, <-chan error) {
	t.Helper()

	ready := make(chan struct{})
	opts = append(opts,
		WithConsole(filepath.Join(t.TempDir(), "console.log")),
		WithReady(func() { close(ready) }))

	w, err := New(s, logger.Noop(), opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errChan := make(chan error, 1)
	go func() { errChan <- w.Run(ctx) }()

	select {
	case <-ready:
	case err := <-errChan:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not become ready")
	}
	return cancel, errChan
}

func stopWorker(t *testing.T, cancel context.CancelFunc, errChan <-chan error) {
	t.Helper()

	cancel()
	select {
	case err := <-errChan:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func readJournal(t *testing.T, s *config.Settings) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(s.BackupDir, logger.JournalFileName))
	require.NoError(t, err)
	return string(data)
}

func writeSource(t *testing.T, s *config.Settings, rel, content string) {
	t.Helper()

	path := filepath.Join(s.SourceDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewValidatesSettings(t *testing.T) {
	s := testSettings(t, config.ModePeriodic, 0)

	_, err := New(s, logger.Noop())
	assert.ErrorIs(t, err, config.ErrConfigInvalid)
	assert.ErrorIs(t, err, config.ErrInvalidWaitTime)

	_, err = New(nil, logger.Noop())
	assert.ErrorIs(t, err, config.ErrConfigInvalid)
}

func TestNewCopiesSettings(t *testing.T) {
	s := testSettings(t, config.ModeEvent, 1)
	w, err := New(s, nil)
	require.NoError(t, err)

	s.Format = "changed"
	assert.Equal(t, "$top_folder-$count", w.Settings().Format)
}

func TestRunMissingSource(t *testing.T) {
	s := testSettings(t, config.ModeEvent, 1)
	require.NoError(t, os.RemoveAll(s.SourceDir))

	w, err := New(s, logger.Noop(), WithConsole(filepath.Join(t.TempDir(), "console.log")))
	require.NoError(t, err)

	err = w.Run(context.Background())
	assert.ErrorIs(t, err, ErrSourceMissing)

	// The backup directory is still prepared.
	info, statErr := os.Stat(s.BackupDir)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestRunEventMode(t *testing.T) {
	s := testSettings(t, config.ModeEvent, 0.1)
	cancel, errChan := startWorker(t, s)

	writeSource(t, s, filepath.Join("Proj", "a.txt"), "hello")

	dest := filepath.Join(s.BackupDir, "Proj", "Proj-1", "a.txt")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(dest)
		return err == nil && string(data) == "hello"
	}, 5*time.Second, 20*time.Millisecond)

	stopWorker(t, cancel, errChan)

	journal := readJournal(t, s)
	assert.Contains(t, journal, " - Worker started watching...\n")
	assert.Contains(t, journal, " - --- MODE: REAL-TIME EVENT (Debounce: 0.1s) ---\n")
	assert.Contains(t, journal, "Backup Success: ")
	assert.Contains(t, journal, " - Worker stopped.\n")

	l, err := ledger.New(ledger.Config{Path: filepath.Join(s.BackupDir, ledger.FileName), ReadOnly: true}, logger.Noop())
	require.NoError(t, err)
	defer l.Close()

	entries, err := l.List(ledger.Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dest, entries[0].Dest)
	assert.Equal(t, "Proj-1", entries[0].Version)
}

func TestRunPeriodicMode(t *testing.T) {
	s := testSettings(t, config.ModePeriodic, 0.1)
	s.Ledger = false
	writeSource(t, s, "old.txt", "untouched")

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.SourceDir, "old.txt"), old, old))

	cancel, errChan := startWorker(t, s)

	writeSource(t, s, "root.txt", "fresh")

	dest := filepath.Join(s.BackupDir, "Root", "Root-1", "root.txt")
	require.Eventually(t, func() bool {
		_, err := os.Stat(dest)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	stopWorker(t, cancel, errChan)

	journal := readJournal(t, s)
	assert.Contains(t, journal, " - --- MODE: PERIODIC SCAN (Every 0.1s) ---\n")
	assert.Contains(t, journal, " - Interval Scan: Backed up 1 files.\n")
	assert.NotContains(t, journal, "old.txt")

	_, err := os.Stat(filepath.Join(s.BackupDir, ledger.FileName))
	assert.True(t, os.IsNotExist(err), "ledger disabled")
}

func TestRunAlreadyRunning(t *testing.T) {
	s := testSettings(t, config.ModeEvent, 1)

	ready := make(chan struct{})
	w, err := New(s, logger.Noop(),
		WithConsole(filepath.Join(t.TempDir(), "console.log")),
		WithReady(func() { close(ready) }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- w.Run(ctx) }()
	<-ready

	assert.ErrorIs(t, w.Run(ctx), ErrWorkerRunning)

	cancel()
	assert.NoError(t, <-errChan)
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, "5", seconds(5))
	assert.Equal(t, "0.5", seconds(0.5))
	assert.Equal(t, "0", seconds(0))
}
