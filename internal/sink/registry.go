package sink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSinkExists      = errors.New("sink already exists")
	ErrSinkNil         = errors.New("sink is nil")
	ErrInvalidMetadata = errors.New("invalid sink metadata")
)

// Registry stores sinks by stable identifier.
type Registry struct {
	items map[string]Sink
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Sink)}
}

// ValidateMetadata checks required metadata fields and id format.
func ValidateMetadata(meta Metadata) error {
	id := strings.TrimSpace(meta.ID)
	name := strings.TrimSpace(meta.Name)
	desc := strings.TrimSpace(meta.Description)
	if id == "" || name == "" || desc == "" {
		return fmt.Errorf("%w: id, name, and description are required", ErrInvalidMetadata)
	}
	if !isValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidMetadata, id)
	}
	return nil
}

// Register adds a sink to the registry.
func (r *Registry) Register(s Sink) error {
	if s == nil {
		return ErrSinkNil
	}
	meta := s.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if _, ok := r.items[meta.ID]; ok {
		return fmt.Errorf("%w: %s", ErrSinkExists, meta.ID)
	}
	r.items[meta.ID] = s
	return nil
}

// Resolve returns a sink by id.
func (r *Registry) Resolve(id string) (Sink, bool) {
	s, ok := r.items[id]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.items)
}

// ListMetadata returns deterministic metadata ordering by id.
func (r *Registry) ListMetadata() []Metadata {
	list := make([]Metadata, 0, len(r.items))
	for _, s := range r.items {
		list = append(list, s.Metadata())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// WriteAll hands rec to every sink in id order. Every sink is tried; the
// failures are joined.
func (r *Registry) WriteAll(ctx context.Context, rec Record) error {
	var errs []error
	for _, meta := range r.ListMetadata() {
		if err := r.items[meta.ID].Write(ctx, rec); err != nil {
			errs = append(errs, &WriteError{Sink: meta.ID, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins the failures.
func (r *Registry) Close() error {
	var errs []error
	for _, meta := range r.ListMetadata() {
		if err := r.items[meta.ID].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: close: %w", meta.ID, err))
		}
	}
	return errors.Join(errs...)
}

// WriteError ties a failed write to its sink.
type WriteError struct {
	Sink string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: write: %v", e.Sink, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func isValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if i == 0 || i == len(id)-1 {
			if isSep {
				return false
			}
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
