package protocol

import (
	"fmt"
	"unicode/utf8"

	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/protocol/wire"
)

// Decode parses buf as a message described by schema.
//
// Unknown tags, and known tags whose wire type cannot carry the declared
// kind, are read past and dropped. A repeated field collects every
// occurrence in order; any other field keeps its last occurrence. Only a
// structurally broken stream is an error.
func Decode(buf []byte, schema *Schema) (*Message, error) {
	if schema == nil {
		return nil, fmt.Errorf("protocol: decode with nil schema")
	}
	msg := NewMessage()
	for pos := 0; pos < len(buf); {
		start := pos
		word, next, err := wire.ReadVarint(buf, pos)
		if err != nil {
			return nil, &FieldError{Schema: schema.name, Offset: start, Err: err}
		}
		tag, wireType := wire.SplitTag(word)
		raw, next, err := readRaw(buf, next, wireType)
		if err != nil {
			return nil, &FieldError{Schema: schema.name, Tag: tag, Offset: start, Err: err}
		}
		pos = next

		spec, ok := schema.fields[tag]
		if !ok {
			continue
		}
		val, fits, err := interpret(raw, spec)
		if err != nil {
			return nil, &FieldError{Schema: schema.name, Tag: tag, Offset: start, Err: err}
		}
		if !fits {
			logs.Debugf("protocol.Decode schema=%s field=%d offset=%d: %s field %q carried %s, dropped",
				schema.name, tag, start, spec.Kind, spec.Name, raw.Type)
			continue
		}
		if spec.Repeated {
			msg.Append(spec.Name, val)
		} else {
			msg.Set(spec.Name, val)
		}
	}
	return msg, nil
}

func readRaw(buf []byte, pos int, wireType uint8) (Value, int, error) {
	switch wireType {
	case wire.TypeVarint:
		v, next, err := wire.ReadVarint(buf, pos)
		return Value{Type: ValueUint, Uint: v}, next, err
	case wire.TypeFixed64:
		v, next, err := wire.ReadFixed64Double(buf, pos)
		return Value{Type: ValueDouble, Float: v}, next, err
	case wire.TypeBytes:
		v, next, err := wire.ReadLengthDelimited(buf, pos)
		return Value{Type: ValueBytes, Bytes: v}, next, err
	case wire.TypeFixed32:
		v, next, err := wire.ReadFixed32Float(buf, pos)
		return Value{Type: ValueFloat, Float: float64(v)}, next, err
	default:
		return Value{}, pos, fmt.Errorf("%w: %d", ErrUnsupportedWireType, wireType)
	}
}

// interpret converts raw to the declared kind of spec. fits is false when
// the wire type cannot carry that kind; the occurrence is then dropped like
// an unknown tag.
func interpret(raw Value, spec FieldSpec) (val Value, fits bool, err error) {
	switch spec.Kind {
	case KindMessage:
		if raw.Type != ValueBytes {
			return Value{}, false, nil
		}
		sub, err := Decode(raw.Bytes, spec.Message)
		if err != nil {
			return Value{}, true, err
		}
		return Nested(sub), true, nil
	case KindString:
		if raw.Type != ValueBytes {
			return Value{}, false, nil
		}
		if !utf8.Valid(raw.Bytes) {
			return Value{}, true, ErrInvalidEncoding
		}
		return String(string(raw.Bytes)), true, nil
	default:
		if raw.Type == ValueBytes {
			return Bytes(raw.Bytes), true, nil
		}
		return raw, true, nil
	}
}
