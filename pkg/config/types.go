// Package config provides the worker settings for autobackup.
//
// Settings are loaded with the following precedence:
// 1. Environment variables (highest priority)
// 2. Settings file (backup_config.json, or YAML with a .yaml/.yml extension)
// 3. Default values (lowest priority)
//
// Example usage:
//
//	s, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Mirroring %s into %s\n", s.SourceDir, s.BackupDir)
package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// Mode selects the change-detection strategy.
type Mode string

// Supported modes.
const (
	ModeEvent    Mode = "event"
	ModePeriodic Mode = "periodic"
)

// Default values applied when a key is missing from the settings file.
const (
	DefaultFormat    = "$top_folder-$date_v$count"
	DefaultMode      = ModeEvent
	DefaultWaitTime  = 5.0
	DefaultWorkers   = 1
	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
)

// MaxWaitTime is the largest time_value, in seconds, a time.Duration can hold.
const MaxWaitTime = float64(math.MaxInt64 / int64(time.Second))

// ForbiddenChars are the characters a format may not contain.
const ForbiddenChars = `<>:"/\|?*`

// Settings is the validated record handed to the worker.
//
// Invariants (see Validate):
// - SourceDir and BackupDir are non-empty and distinct
// - BackupDir is not inside SourceDir
// - Format contains none of ForbiddenChars
// - Mode is event or periodic
// - WaitTime is finite, within MaxWaitTime, >= 0, and > 0 in periodic mode
// - Workers > 0.
type Settings struct {
	// Directory tree to watch.
	SourceDir string `json:"source_dir" yaml:"source_dir"`

	// Root of the versioned backup tree.
	BackupDir string `json:"backup_dir" yaml:"backup_dir"`

	// Version folder naming template.
	Format string `json:"format" yaml:"format"`

	// Change-detection strategy.
	Mode Mode `json:"mode" yaml:"mode"`

	// Debounce delay (event mode) or scan interval (periodic mode), in seconds.
	WaitTime float64 `json:"time_value" yaml:"time_value"`

	// Concurrent backups per periodic scan pass.
	Workers int `json:"workers" yaml:"workers"`

	// Record every backup in the ledger database.
	Ledger bool `json:"ledger" yaml:"ledger"`

	// Console log level (debug, info, warn, error).
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Console log format (text, json, auto).
	LogFormat string `json:"log_format" yaml:"log_format"`
}

// Wait returns WaitTime as a duration.
func (s *Settings) Wait() time.Duration {
	return time.Duration(s.WaitTime * float64(time.Second))
}

// Normalize makes both directories absolute and clean.
func (s *Settings) Normalize() error {
	for _, dir := range []*string{&s.SourceDir, &s.BackupDir} {
		if strings.TrimSpace(*dir) == "" {
			*dir = ""
			continue
		}
		abs, err := filepath.Abs(expandHome(strings.TrimSpace(*dir)))
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", *dir, err)
		}
		*dir = abs
	}
	return nil
}

// Validate checks that the settings satisfy all invariants.
//
// Every returned error wraps ErrConfigInvalid and the specific cause.
//
// Thread-safety: This method is read-only and thread-safe.
func (s *Settings) Validate() error {
	if err := s.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return nil
}

func (s *Settings) validate() error {
	if s.SourceDir == "" {
		return ErrNoSource
	}
	if s.BackupDir == "" {
		return ErrNoBackup
	}

	src := filepath.Clean(s.SourceDir)
	dst := filepath.Clean(s.BackupDir)
	if src == dst {
		return ErrSameDirs
	}
	if rel, err := filepath.Rel(src, dst); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ErrBackupInsideSource
	}

	if err := ValidateFormat(s.Format); err != nil {
		return err
	}

	if math.IsNaN(s.WaitTime) || math.IsInf(s.WaitTime, 0) || s.WaitTime > MaxWaitTime {
		return ErrInvalidWaitTime
	}

	switch s.Mode {
	case ModeEvent:
		if s.WaitTime < 0 {
			return ErrInvalidWaitTime
		}
	case ModePeriodic:
		if s.WaitTime <= 0 {
			return ErrInvalidWaitTime
		}
	default:
		return ErrInvalidMode
	}

	if s.Workers <= 0 {
		return ErrInvalidWorkers
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[s.LogLevel] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"auto": true,
	}
	if !validFormats[s.LogFormat] {
		return ErrInvalidLogFormat
	}

	return nil
}

// ValidateFormat rejects templates containing reserved filename characters.
func ValidateFormat(format string) error {
	if strings.ContainsAny(format, ForbiddenChars) {
		return ErrForbiddenChars
	}
	return nil
}

// Default returns settings with every optional key at its default.
//
// SourceDir and BackupDir are left empty: they have no sensible default.
func Default() *Settings {
	return &Settings{
		Format:    DefaultFormat,
		Mode:      DefaultMode,
		WaitTime:  DefaultWaitTime,
		Workers:   DefaultWorkers,
		Ledger:    true,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}
