package protocol

import (
	"fmt"

	"github.com/danmuck/notesctl/internal/protocol/wire"
)

// Encode serializes msg using schema, fields in ascending tag order. Fields
// of msg that the schema does not name are skipped. Encode is the inverse
// of Decode for messages Decode produced.
func Encode(msg *Message, schema *Schema) ([]byte, error) {
	if schema == nil {
		return nil, fmt.Errorf("protocol: encode with nil schema")
	}
	var out []byte
	for _, tag := range schema.Tags() {
		spec := schema.fields[tag]
		for _, v := range msg.List(spec.Name) {
			var err error
			out, err = appendValue(out, tag, spec, v)
			if err != nil {
				return nil, fmt.Errorf("protocol: encode schema=%s field=%d: %w", schema.name, tag, err)
			}
		}
	}
	return out, nil
}

func appendValue(dst []byte, tag uint64, spec FieldSpec, v Value) ([]byte, error) {
	switch v.Type {
	case ValueUint:
		return wire.AppendUint(dst, tag, v.Uint), nil
	case ValueDouble:
		return wire.AppendDouble(dst, tag, v.Float), nil
	case ValueFloat:
		return wire.AppendFloat(dst, tag, float32(v.Float)), nil
	case ValueBytes:
		return wire.AppendBytes(dst, tag, v.Bytes), nil
	case ValueString:
		return wire.AppendString(dst, tag, v.Str), nil
	case ValueMessage:
		if spec.Kind != KindMessage {
			return nil, ErrFieldTypeMismatch
		}
		sub, err := Encode(v.Msg, spec.Message)
		if err != nil {
			return nil, err
		}
		return wire.AppendBytes(dst, tag, sub), nil
	default:
		return nil, ErrFieldTypeMismatch
	}
}
