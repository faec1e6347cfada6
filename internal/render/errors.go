package render

import (
	"errors"
	"fmt"
)

var (
	ErrInconsistentDocument = errors.New("render: attribute runs do not cover text")
	ErrMissingAttachment    = errors.New("render: missing attachment")
	ErrNoPayload            = errors.New("render: blob has no version payload")
)

// RunError points at the attribute run that broke a render.
type RunError struct {
	Index int
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("render: run %d: %v", e.Index, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
