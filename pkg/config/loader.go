package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up when no path is given.
const FileName = "backup_config.json"

// Environment variables consulted by the loader.
const (
	EnvConfig   = "AUTOBACKUP_CONFIG"
	EnvSource   = "AUTOBACKUP_SOURCE"
	EnvDest     = "AUTOBACKUP_DEST"
	EnvMode     = "AUTOBACKUP_MODE"
	EnvLogLevel = "AUTOBACKUP_LOG_LEVEL"
)

// Loader provides methods for loading settings.
type Loader interface {
	// Load resolves the settings file, merges it over the defaults, applies
	// environment overrides, normalizes paths and validates the result.
	//
	// Returns ErrConfigMissing when no settings file exists, or an error
	// wrapping ErrConfigInvalid when validation fails.
	Load() (*Settings, error)

	// LoadFromFile decodes a single settings file without defaults,
	// environment overrides or validation.
	LoadFromFile(path string) (*Settings, error)

	// Path returns the settings file Load would read, or "" if none exists.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// fileSettings mirrors Settings with pointer fields so that a missing key
// can be told apart from an explicit zero value.
type fileSettings struct {
	SourceDir *string  `json:"source_dir" yaml:"source_dir"`
	BackupDir *string  `json:"backup_dir" yaml:"backup_dir"`
	Format    *string  `json:"format" yaml:"format"`
	Mode      *string  `json:"mode" yaml:"mode"`
	WaitTime  *float64 `json:"time_value" yaml:"time_value"`
	Workers   *int     `json:"workers" yaml:"workers"`
	Ledger    *bool    `json:"ledger" yaml:"ledger"`
	LogLevel  *string  `json:"log_level" yaml:"log_level"`
	LogFormat *string  `json:"log_format" yaml:"log_format"`
}

// NewLoader creates a new settings loader.
//
// If configPath is empty, the settings file is searched for in:
// 1. $AUTOBACKUP_CONFIG
// 2. ./backup_config.json
// 3. backup_config.json next to the executable.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Settings, error) {
	path := l.Path()
	if path == "" {
		if l.configPath != "" {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, l.configPath)
		}
		return nil, ErrConfigMissing
	}

	fs, err := l.decode(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
	}

	s := l.merge(Default(), fs)
	s = l.applyEnvVars(s)

	if err := s.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Settings, error) {
	fs, err := l.decode(path)
	if err != nil {
		return nil, err
	}
	return l.merge(&Settings{}, fs), nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	for _, path := range SearchPaths(l.configPath) {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}

	return ""
}

// SearchPaths returns the settings file candidates in order of precedence.
// An explicit configPath is the only candidate.
func SearchPaths(configPath string) []string {
	candidates := []string{configPath}
	if configPath == "" {
		candidates = []string{
			os.Getenv(EnvConfig),
			FileName,
			executableDirFile(),
		}
	}

	paths := make([]string, 0, len(candidates))
	for _, path := range candidates {
		if path != "" {
			paths = append(paths, expandHome(path))
		}
	}
	return paths
}

// decode reads a settings file as YAML or JSON depending on its extension.
func (l *loader) decode(path string) (*fileSettings, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var fs fileSettings
	if isYAML(path) {
		err = yaml.Unmarshal(data, &fs)
	} else {
		err = json.Unmarshal(data, &fs)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSyntax, err)
	}

	return &fs, nil
}

// merge copies every key present in the file over base.
//
// An empty format counts as missing, so the default template applies.
func (l *loader) merge(base *Settings, fs *fileSettings) *Settings {
	result := *base

	if fs.SourceDir != nil {
		result.SourceDir = *fs.SourceDir
	}
	if fs.BackupDir != nil {
		result.BackupDir = *fs.BackupDir
	}
	if fs.Format != nil && strings.TrimSpace(*fs.Format) != "" {
		result.Format = strings.TrimSpace(*fs.Format)
	}
	if fs.Mode != nil && *fs.Mode != "" {
		result.Mode = Mode(strings.ToLower(*fs.Mode))
	}
	if fs.WaitTime != nil {
		result.WaitTime = *fs.WaitTime
	}
	if fs.Workers != nil {
		result.Workers = *fs.Workers
	}
	if fs.Ledger != nil {
		result.Ledger = *fs.Ledger
	}
	if fs.LogLevel != nil && *fs.LogLevel != "" {
		result.LogLevel = strings.ToLower(*fs.LogLevel)
	}
	if fs.LogFormat != nil && *fs.LogFormat != "" {
		result.LogFormat = strings.ToLower(*fs.LogFormat)
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the settings.
//
// Supported environment variables:
//   - AUTOBACKUP_SOURCE: source directory
//   - AUTOBACKUP_DEST: backup directory
//   - AUTOBACKUP_MODE: event or periodic
//   - AUTOBACKUP_LOG_LEVEL: console log level
func (l *loader) applyEnvVars(s *Settings) *Settings {
	result := *s

	if src := os.Getenv(EnvSource); src != "" {
		result.SourceDir = src
	}
	if dst := os.Getenv(EnvDest); dst != "" {
		result.BackupDir = dst
	}
	if mode := os.Getenv(EnvMode); mode != "" {
		result.Mode = Mode(strings.ToLower(mode))
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		result.LogLevel = strings.ToLower(level)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads settings.
//
// Equivalent to:
//
//	return NewLoader(path).Load()
func Load(path string) (*Settings, error) {
	return NewLoader(path).Load()
}

// Save writes the settings to path as JSON, or YAML for .yaml/.yml paths.
//
// Settings are validated first, so a format with forbidden characters is
// never persisted. Parent directories are created as needed.
func Save(s *Settings, path string) error {
	if err := s.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// executableDirFile returns FileName next to the running executable.
func executableDirFile() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), FileName)
}

// expandHome expands a leading ~ or ~/ to the user's home directory.
// Other users' homes (~user) are left alone.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
