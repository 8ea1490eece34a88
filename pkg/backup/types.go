// Package backup copies changed source files into the versioned backup tree.
//
// The Executor handles one Change at a time: it decomposes the path,
// allocates a version folder for the file's top-level folder, and copies the
// file there. Version allocation is serialized per top-level folder so that
// concurrent changes never observe the same count. Failures are reported in
// the Result and logged; they never propagate to the caller.
//
// Example usage:
//
//	exec, err := backup.New(backup.Config{
//	    SourceDir: "/src",
//	    BackupDir: "/bak",
//	    Format:    "$top_folder-$count",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res := exec.Execute(ctx, backup.Change{Path: "/src/Proj/a.txt", Kind: backup.KindCreated})
//	// res.Dest == "/bak/Proj/Proj-1/a.txt"
package backup

import (
	"time"
)

// Kind describes why a file is being backed up.
type Kind uint8

// Change kinds.
const (
	KindCreated Kind = iota + 1
	KindModified
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Change is a single file change produced by a scheduler.
type Change struct {
	// Path is the absolute path of the changed file.
	Path string

	// Kind is the change type.
	Kind Kind

	// Time is when the change was observed.
	Time time.Time
}

// Status is the outcome of one Execute call.
type Status uint8

// Execution outcomes.
const (
	// StatusCopied means the file was written to Dest.
	StatusCopied Status = iota + 1

	// StatusSkipped means there was nothing to do: the source vanished,
	// is a directory, or the context was cancelled before work began.
	StatusSkipped

	// StatusFailed means the backup was attempted and Err explains why it failed.
	StatusFailed
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusCopied:
		return "copied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what Execute did with a Change.
type Result struct {
	Status Status

	// Source is the changed file.
	Source string

	// Dest is the written backup file. Empty unless Status is StatusCopied.
	Dest string

	// TopFolder and Version locate the version folder that received the file.
	TopFolder string
	Version   string

	// Size and ModTime describe the copied source file.
	Size    int64
	ModTime time.Time

	// CompletedAt is when the copy finished.
	CompletedAt time.Time

	// Err is set when Status is StatusFailed.
	Err error
}

// Recorder persists successful backups.
type Recorder interface {
	Record(res Result) error
}

// Config contains executor configuration.
type Config struct {
	// SourceDir is the watched source root.
	SourceDir string

	// BackupDir is the root of the backup tree.
	BackupDir string

	// Format is the version folder naming template.
	Format string

	// Now is the clock used for template time variables. Default: time.Now.
	Now func() time.Time

	// Recorder, if set, receives every successful Result.
	Recorder Recorder
}
