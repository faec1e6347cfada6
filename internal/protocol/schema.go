package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// FieldKind declares how a known field's raw value is interpreted.
//
// Primitive kinds (varint, double, bytes, float) are descriptive: the
// decoder stores whatever primitive the wire type produced. Only
// KindString and KindMessage change the stored value.
type FieldKind uint8

const (
	KindVarint FieldKind = iota
	KindDouble
	KindBytes
	KindFloat
	KindString
	KindMessage
)

func (k FieldKind) String() string {
	switch k {
	case KindVarint:
		return "varint"
	case KindDouble:
		return "double"
	case KindBytes:
		return "bytes"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindMessage:
		return "message"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// FieldSpec declares a known field within a message schema.
type FieldSpec struct {
	Name     string
	Repeated bool
	Kind     FieldKind
	Message  *Schema
}

// Schema maps field tags to field specs. It is immutable once built.
type Schema struct {
	name   string
	fields map[uint64]FieldSpec
	byName map[string]uint64
}

// NewSchema validates and copies fields into an immutable schema.
func NewSchema(name string, fields map[uint64]FieldSpec) (*Schema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("protocol: schema name is required")
	}
	s := &Schema{
		name:   name,
		fields: make(map[uint64]FieldSpec, len(fields)),
		byName: make(map[string]uint64, len(fields)),
	}
	for tag, spec := range fields {
		if tag == 0 {
			return nil, fmt.Errorf("protocol: schema=%s: field tag 0 is reserved", name)
		}
		if strings.TrimSpace(spec.Name) == "" {
			return nil, fmt.Errorf("protocol: schema=%s field=%d: name is required", name, tag)
		}
		if spec.Kind == KindMessage && spec.Message == nil {
			return nil, fmt.Errorf("protocol: schema=%s field=%d: message kind without schema", name, tag)
		}
		if spec.Kind != KindMessage && spec.Message != nil {
			return nil, fmt.Errorf("protocol: schema=%s field=%d: schema given for %s kind", name, tag, spec.Kind)
		}
		if prev, dup := s.byName[spec.Name]; dup {
			return nil, fmt.Errorf("protocol: schema=%s: field name %q used by tags %d and %d", name, spec.Name, prev, tag)
		}
		s.fields[tag] = spec
		s.byName[spec.Name] = tag
	}
	return s, nil
}

// MustSchema is NewSchema for package-level schema tables.
func MustSchema(name string, fields map[uint64]FieldSpec) *Schema {
	s, err := NewSchema(name, fields)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string {
	return s.name
}

// Lookup returns the spec for tag.
func (s *Schema) Lookup(tag uint64) (FieldSpec, bool) {
	spec, ok := s.fields[tag]
	return spec, ok
}

// Field returns the tag and spec of the field called name.
func (s *Schema) Field(name string) (uint64, FieldSpec, bool) {
	tag, ok := s.byName[name]
	if !ok {
		return 0, FieldSpec{}, false
	}
	return tag, s.fields[tag], true
}

// Tags returns known tags in ascending order.
func (s *Schema) Tags() []uint64 {
	tags := make([]uint64, 0, len(s.fields))
	for tag := range s.fields {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
