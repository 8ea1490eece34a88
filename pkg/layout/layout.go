// Package layout maps source files onto the backup tree.
//
// A changed file under the source root is split into a top-level folder,
// a middle path and a file name. Backups land in
//
//	<backup_dir>/<top_folder>/<version>/<middle_path>/<filename>
//
// and the number of existing <version> directories drives $count.
package layout

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// RootFolder is the top folder used for files directly under the source root.
const RootFolder = "Root"

// Location is a changed file decomposed relative to the source root.
type Location struct {
	// TopFolder is the first path segment, or RootFolder.
	TopFolder string

	// MiddlePath holds the segments between the top folder and the file,
	// joined with the OS separator. Empty when there are none.
	MiddlePath string

	// Filename is the last path segment.
	Filename string
}

// Decompose splits changedPath relative to sourceRoot.
//
// Returns a *PathError wrapping ErrOutsideRoot when changedPath is not a
// strict descendant of sourceRoot.
func Decompose(sourceRoot, changedPath string) (Location, error) {
	rel, err := filepath.Rel(sourceRoot, changedPath)
	if err != nil {
		return Location{}, &PathError{Root: sourceRoot, Path: changedPath, Err: errors.Join(ErrOutsideRoot, err)}
	}

	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return Location{}, &PathError{Root: sourceRoot, Path: changedPath, Err: ErrOutsideRoot}
	}

	segments := strings.Split(rel, string(filepath.Separator))
	if len(segments) == 1 {
		return Location{
			TopFolder: RootFolder,
			Filename:  segments[0],
		}, nil
	}

	return Location{
		TopFolder:  segments[0],
		MiddlePath: filepath.Join(segments[1 : len(segments)-1]...),
		Filename:   segments[len(segments)-1],
	}, nil
}

// CountVersions returns the number of directories directly under
// backupDir/topFolder.
//
// A missing top folder counts as zero with a nil error. Listing failures
// also count as zero, but the error is returned so callers can report it.
// Entries that cannot be classified are not counted.
func CountVersions(backupDir, topFolder string) (int, error) {
	entries, err := os.ReadDir(filepath.Join(backupDir, topFolder))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			count++
		}
	}

	return count, nil
}
