package archive

import (
	"errors"
	"fmt"
)

var ErrMalformedArchive = errors.New("archive: malformed archive")

// NodeError records where in the object graph resolution failed.
type NodeError struct {
	Path string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("archive: at %s: %v", e.Path, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
