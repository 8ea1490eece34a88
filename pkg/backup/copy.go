package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyFile copies src into dir/name, replacing any existing file.
//
// The data is written to a temporary file in dir and renamed into place, so
// a reader never sees a half-written backup. Permission bits and the
// modification time of src are carried over.
//
// Returns the destination path and the FileInfo of src taken at open time.
func copyFile(src, dir, name string) (string, os.FileInfo, error) {
	in, err := os.Open(src) // nolint:gosec
	if err != nil {
		return "", nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close() // nolint:errcheck

	info, err := in.Stat()
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat source: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()        // nolint:errcheck
			_ = os.Remove(tmpPath) // nolint:errcheck
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return "", nil, fmt.Errorf("failed to copy data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", nil, fmt.Errorf("failed to sync backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to close backup: %w", err)
	}

	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return "", nil, fmt.Errorf("failed to copy permissions: %w", err)
	}
	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		return "", nil, fmt.Errorf("failed to copy modification time: %w", err)
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", nil, fmt.Errorf("failed to move backup into place: %w", err)
	}
	committed = true

	return dest, info, nil
}
