package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/autobackup/pkg/aggregator"
	"github.com/0xmhha/autobackup/pkg/backup"
	"github.com/0xmhha/autobackup/pkg/config"
	"github.com/0xmhha/autobackup/pkg/ledger"
	"github.com/0xmhha/autobackup/pkg/logger"
)

// execute runs the command tree with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args == nil {
		// nil makes cobra fall back to os.Args.
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// writeSettings saves settings for src/dst and returns the file path.
func writeSettings(t *testing.T, src, dst string) string {
	t.Helper()

	s := config.Default()
	s.SourceDir = src
	s.BackupDir = dst
	path := filepath.Join(t.TempDir(), "backup_config.json")
	require.NoError(t, config.Save(s, path))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvConfig, config.EnvSource, config.EnvDest, config.EnvMode, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "autobackup dev\n", out)
}

func TestRootShowsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "history")
	assert.NotContains(t, out, "--worker")
}

func TestWorkerFlagIsHidden(t *testing.T) {
	cmd := newRootCmd()
	flag := cmd.Flags().Lookup("worker")
	require.NotNil(t, flag)
	assert.True(t, flag.Hidden)
}

func TestConfigInitValidateShow(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	path := filepath.Join(dir, "cfg", "backup_config.json")

	out, err := execute(t, "config", "init",
		"--source", src,
		"--dest", dst,
		"--mode", "periodic",
		"--time", "30",
		"--output", path,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Settings written to "+path)

	out, err = execute(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings OK (periodic mode, "+src+" -> "+dst+")")

	out, err = execute(t, "--config", path, "config", "show", "--format", "json")
	require.NoError(t, err)

	var shown config.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, src, shown.SourceDir)
	assert.Equal(t, dst, shown.BackupDir)
	assert.Equal(t, config.ModePeriodic, shown.Mode)
	assert.Equal(t, 30.0, shown.WaitTime)
	assert.Equal(t, config.DefaultFormat, shown.Format)

	out, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+path)
	assert.Contains(t, out, "mode: periodic")
	assert.Contains(t, out, "$top_folder")

	out, err = execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "1. "+path+" [found]")
	assert.Contains(t, out, "Active settings file: "+path)
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "backup_config.json")
	args := []string{"config", "init", "--source", filepath.Join(dir, "a"), "--dest", filepath.Join(dir, "b"), "--output", path}

	_, err := execute(t, args...)
	require.NoError(t, err)

	_, err = execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, append(args, "--force")...)
	assert.NoError(t, err)
}

func TestConfigInitRejectsInvalidSettings(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "backup_config.json")

	_, err := execute(t, "config", "init",
		"--source", dir,
		"--dest", filepath.Join(dir, "inside"),
		"--output", path,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrBackupInsideSource)
	assert.NoFileExists(t, path)
}

func TestHistoryWithoutLedger(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := writeSettings(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"))

	out, err := execute(t, "--config", path, "history")
	require.NoError(t, err)
	assert.Equal(t, "No backups recorded.\n", out)
}

func TestHistory(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	path := writeSettings(t, src, dst)

	l, err := ledger.New(ledger.Config{Path: filepath.Join(dst, ledger.FileName)}, logger.Noop())
	require.NoError(t, err)

	at := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	records := []backup.Result{
		{TopFolder: "Proj", Version: "Proj-2025-03-04_v1", Source: filepath.Join(src, "Proj", "a.txt"), Size: 100},
		{TopFolder: "Proj", Version: "Proj-2025-03-04_v2", Source: filepath.Join(src, "Proj", "a.txt"), Size: 300},
		{TopFolder: "Root", Version: "Root-2025-03-04_v1", Source: filepath.Join(src, "root.txt"), Size: 50},
	}
	for i, r := range records {
		r.Status = backup.StatusCopied
		r.Dest = filepath.Join(dst, r.TopFolder, r.Version, filepath.Base(r.Source))
		r.CompletedAt = at.Add(time.Duration(i) * time.Minute)
		require.NoError(t, l.Record(r))
	}
	require.NoError(t, l.Close())

	t.Run("simple", func(t *testing.T) {
		out, err := execute(t, "--config", path, "history", "--format", "simple")
		require.NoError(t, err)
		assert.Contains(t, out, filepath.Join(src, "root.txt")+" -> "+filepath.Join(dst, "Root", "Root-2025-03-04_v1", "root.txt"))
		assert.Less(t, bytes.Index([]byte(out), []byte("Root-")), bytes.Index([]byte(out), []byte("Proj-")))
	})

	t.Run("filter and limit", func(t *testing.T) {
		out, err := execute(t, "--config", path, "history", "--format", "json", "--top", "Proj", "--limit", "1")
		require.NoError(t, err)

		var entries []ledger.Entry
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "Proj-2025-03-04_v2", entries[0].Version)
	})

	t.Run("stats", func(t *testing.T) {
		out, err := execute(t, "--config", path, "history", "--stats", "--format", "json")
		require.NoError(t, err)

		var stats aggregator.Statistics
		require.NoError(t, json.Unmarshal([]byte(out), &stats))
		assert.Equal(t, 3, stats.Count)
		assert.Equal(t, 2, stats.TopFolderCount)
		assert.Equal(t, 3, stats.VersionCount)
		assert.Equal(t, int64(450), stats.TotalBytes)
	})

	t.Run("top folders", func(t *testing.T) {
		out, err := execute(t, "--config", path, "history", "--folders", "1", "--format", "json")
		require.NoError(t, err)

		var folders []aggregator.FolderStats
		require.NoError(t, json.Unmarshal([]byte(out), &folders))
		require.Len(t, folders, 1)
		assert.Equal(t, "Proj", folders[0].TopFolder)
	})

	t.Run("grouped", func(t *testing.T) {
		out, err := execute(t, "--config", path, "history", "--group-by", "top_folder", "--format", "simple")
		require.NoError(t, err)
		assert.Contains(t, out, "Proj")
		assert.Contains(t, out, "Root")
	})

	t.Run("bad dimension", func(t *testing.T) {
		_, err := execute(t, "--config", path, "history", "--group-by", "model")
		assert.ErrorContains(t, err, "unknown dimension")
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := execute(t, "--config", path, "history", "--format", "xml")
		assert.ErrorContains(t, err, "unknown format")
	})
}

// recordMany writes n copied results for top folder Proj into the ledger at dst.
func recordMany(t *testing.T, l ledger.Ledger, src, dst string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		version := fmt.Sprintf("Proj-%d", i+1)
		require.NoError(t, l.Record(backup.Result{
			Status:    backup.StatusCopied,
			Source:    filepath.Join(src, "Proj", "a.txt"),
			Dest:      filepath.Join(dst, "Proj", version, "a.txt"),
			TopFolder: "Proj",
			Version:   version,
			Size:      10,
		}))
	}
}

func TestHistoryLimitAppliesToListOnly(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	path := writeSettings(t, src, dst)

	l, err := ledger.New(ledger.Config{Path: filepath.Join(dst, ledger.FileName)}, logger.Noop())
	require.NoError(t, err)
	recordMany(t, l, src, dst, 60)
	require.NoError(t, l.Close())

	out, err := execute(t, "--config", path, "history", "--format", "json")
	require.NoError(t, err)
	var entries []ledger.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 50, "default limit trims the list")

	out, err = execute(t, "--config", path, "history", "--stats", "--format", "json")
	require.NoError(t, err)
	var stats aggregator.Statistics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 60, stats.Count)
	assert.Equal(t, int64(600), stats.TotalBytes)

	out, err = execute(t, "--config", path, "history", "--folders", "1", "--limit", "5", "--format", "json")
	require.NoError(t, err)
	var folders []aggregator.FolderStats
	require.NoError(t, json.Unmarshal([]byte(out), &folders))
	require.Len(t, folders, 1)
	assert.Equal(t, 60, folders[0].Statistics.Count)
	assert.Equal(t, 60, folders[0].Statistics.VersionCount)
}

func TestHistoryWhileWorkerWrites(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	path := writeSettings(t, src, dst)

	// The worker keeps its ledger open for the whole run.
	l, err := ledger.New(ledger.Config{Path: filepath.Join(dst, ledger.FileName)}, logger.Noop())
	require.NoError(t, err)
	defer l.Close()
	recordMany(t, l, src, dst, 2)

	out, err := execute(t, "--config", path, "history", "--format", "simple")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dst, "Proj", "Proj-2", "a.txt"))

	recordMany(t, l, src, dst, 1)
}
