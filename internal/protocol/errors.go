package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/notesctl/internal/protocol/wire"
)

var (
	ErrTruncated           = wire.ErrTruncated
	ErrInvalidEncoding     = errors.New("protocol: invalid utf-8 in string field")
	ErrUnsupportedWireType = errors.New("protocol: unsupported wire type")
	ErrFieldTypeMismatch   = errors.New("protocol: field type mismatch")
)

// FieldError locates a decode failure inside a (possibly nested) message.
type FieldError struct {
	Schema string
	Tag    uint64
	Offset int
	Err    error
}

func (e *FieldError) Error() string {
	if e.Tag == 0 {
		return fmt.Sprintf("protocol: schema=%s offset=%d: %v", e.Schema, e.Offset, e.Err)
	}
	return fmt.Sprintf("protocol: schema=%s field=%d offset=%d: %v", e.Schema, e.Tag, e.Offset, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
