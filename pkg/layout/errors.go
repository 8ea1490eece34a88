package layout

import (
	"errors"
	"fmt"
)

// ErrOutsideRoot is returned when a changed path is not inside the source root.
var ErrOutsideRoot = errors.New("path is outside the source root")

// PathError records a path that could not be decomposed against a root.
type PathError struct {
	Root string
	Path string
	Err  error
}

// Error implements error.
func (e *PathError) Error() string {
	return fmt.Sprintf("decompose %s (root %s): %v", e.Path, e.Root, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PathError) Unwrap() error {
	return e.Err
}
