// Package template expands version-folder naming templates.
//
// A template is a literal string with $-prefixed variables:
//
//	$date        current date, YYYY-MM-DD
//	$time        current time, HH-MM-SS
//	$timestamp   YYYYMMDD_HHMMSS
//	$count       existing version count + 1
//	$top_folder  top-level folder of the changed file
//	$filename    base name of the changed file, with extension
//	$name        base name without extension
//
// Substitution is a single left-to-right pass: replacement text is never
// re-scanned, and unknown $tokens are left as they are. There is no escape
// syntax, so a literal "$date" cannot appear in a folder name.
//
// Example usage:
//
//	name := template.Expand("$top_folder-$date_v$count", "Proj", "/src/Proj/a.txt", 0)
//	// "Proj-2026-10-18_v1"
package template

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Recognised variable keywords, without the leading $.
const (
	VarDate      = "date"
	VarTime      = "time"
	VarTimestamp = "timestamp"
	VarCount     = "count"
	VarTopFolder = "top_folder"
	VarFilename  = "filename"
	VarName      = "name"
)

// Time layouts for the clock variables.
const (
	dateLayout      = "2006-01-02"
	timeLayout      = "15-04-05"
	timestampLayout = "20060102_150405"
)

// Variables returns the recognised keywords in display order.
func Variables() []string {
	return []string{VarName, VarFilename, VarTime, VarDate, VarTimestamp, VarCount, VarTopFolder}
}

// Expander expands templates against a clock.
type Expander struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Expand substitutes every recognised variable in format.
//
// existingCount is the number of version folders that already exist for
// topFolder; $count renders it 1-based.
func (e Expander) Expand(format, topFolder, sourcePath string, existingCount int) string {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	filename := filepath.Base(sourcePath)
	name := stem(filename)

	// strings.Replacer tries the pairs in argument order at each position,
	// so $timestamp must precede $time.
	r := strings.NewReplacer(
		"$"+VarTimestamp, now.Format(timestampLayout),
		"$"+VarTime, now.Format(timeLayout),
		"$"+VarDate, now.Format(dateLayout),
		"$"+VarCount, strconv.Itoa(existingCount+1),
		"$"+VarTopFolder, topFolder,
		"$"+VarFilename, filename,
		"$"+VarName, name,
	)

	return r.Replace(format)
}

// stem drops the last extension of filename. Leading dots belong to the
// name, so ".bashrc" stays ".bashrc" and ".config.yaml" becomes ".config".
func stem(filename string) string {
	rest := strings.TrimLeft(filename, ".")
	dots := filename[:len(filename)-len(rest)]
	return dots + strings.TrimSuffix(rest, filepath.Ext(rest))
}

// Expand is a convenience wrapper using the wall clock.
func Expand(format, topFolder, sourcePath string, existingCount int) string {
	return Expander{}.Expand(format, topFolder, sourcePath, existingCount)
}
