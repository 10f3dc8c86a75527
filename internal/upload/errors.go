package upload

import (
	"errors"
	"fmt"
)

// ErrIsDirectory is the cause of an IoError for a subdirectory inside a document folder.
var ErrIsDirectory = errors.New("is a directory")

// IoError reports a local filesystem failure while preparing a document.
type IoError struct {
	Op   string // "read", "list" or "open"
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}
