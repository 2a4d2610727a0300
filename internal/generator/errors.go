package generator

import (
	"errors"
	"fmt"
)

// ErrDuplicateDestination is reported when two sources would be copied to
// the same package path.
var ErrDuplicateDestination = errors.New("duplicate destination in package")

// BuildError reports an I/O failure while staging or packing the book.
type BuildError struct {
	Op   string // copy, read, write, stage, archive
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
