package protocol

import "fmt"

// ValueType identifies which member of a Value is populated.
type ValueType uint8

const (
	ValueUint ValueType = iota + 1
	ValueDouble
	ValueFloat
	ValueBytes
	ValueString
	ValueMessage
)

func (t ValueType) String() string {
	switch t {
	case ValueUint:
		return "uint"
	case ValueDouble:
		return "double"
	case ValueFloat:
		return "float"
	case ValueBytes:
		return "bytes"
	case ValueString:
		return "string"
	case ValueMessage:
		return "message"
	default:
		return fmt.Sprintf("value(%d)", uint8(t))
	}
}

// Value is one decoded field value.
type Value struct {
	Type  ValueType
	Uint  uint64
	Float float64
	Bytes []byte
	Str   string
	Msg   *Message
}

func Uint(v uint64) Value     { return Value{Type: ValueUint, Uint: v} }
func Double(v float64) Value  { return Value{Type: ValueDouble, Float: v} }
func Float(v float32) Value   { return Value{Type: ValueFloat, Float: float64(v)} }
func String(v string) Value   { return Value{Type: ValueString, Str: v} }
func Nested(m *Message) Value { return Value{Type: ValueMessage, Msg: m} }
func Bytes(v []byte) Value {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Value{Type: ValueBytes, Bytes: buf}
}

// AsUint returns the value as an unsigned integer.
func (v Value) AsUint() (uint64, error) {
	if v.Type != ValueUint {
		return 0, fmt.Errorf("%w: want uint, got %s", ErrFieldTypeMismatch, v.Type)
	}
	return v.Uint, nil
}

// AsFloat returns the value as a float; varints are widened.
func (v Value) AsFloat() (float64, error) {
	switch v.Type {
	case ValueDouble, ValueFloat:
		return v.Float, nil
	case ValueUint:
		return float64(v.Uint), nil
	default:
		return 0, fmt.Errorf("%w: want float, got %s", ErrFieldTypeMismatch, v.Type)
	}
}

// AsString returns string values, and bytes values verbatim.
func (v Value) AsString() (string, error) {
	switch v.Type {
	case ValueString:
		return v.Str, nil
	case ValueBytes:
		return string(v.Bytes), nil
	default:
		return "", fmt.Errorf("%w: want string, got %s", ErrFieldTypeMismatch, v.Type)
	}
}

// AsBytes returns bytes values, and string values as bytes.
func (v Value) AsBytes() ([]byte, error) {
	switch v.Type {
	case ValueBytes:
		return v.Bytes, nil
	case ValueString:
		return []byte(v.Str), nil
	default:
		return nil, fmt.Errorf("%w: want bytes, got %s", ErrFieldTypeMismatch, v.Type)
	}
}

func (v Value) AsMessage() (*Message, error) {
	if v.Type != ValueMessage || v.Msg == nil {
		return nil, fmt.Errorf("%w: want message, got %s", ErrFieldTypeMismatch, v.Type)
	}
	return v.Msg, nil
}

// Message is a decoded value tree keyed by field name. Field order is the
// order in which names were first seen.
type Message struct {
	order    []string
	values   map[string][]Value
	repeated map[string]bool
}

func NewMessage() *Message {
	return &Message{
		values:   make(map[string][]Value),
		repeated: make(map[string]bool),
	}
}

// Set stores a single-valued field; the last call wins.
func (m *Message) Set(name string, v Value) *Message {
	if _, ok := m.values[name]; !ok {
		m.order = append(m.order, name)
	}
	m.values[name] = []Value{v}
	m.repeated[name] = false
	return m
}

// Append adds v to a repeated field, creating it on first use.
func (m *Message) Append(name string, v Value) *Message {
	if _, ok := m.values[name]; !ok {
		m.order = append(m.order, name)
	}
	m.values[name] = append(m.values[name], v)
	m.repeated[name] = true
	return m
}

func (m *Message) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Names returns field names in first-seen order.
func (m *Message) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Message) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[name]
	return ok
}

func (m *Message) IsRepeated(name string) bool {
	if m == nil {
		return false
	}
	return m.repeated[name]
}

// Get returns a single-valued field, or the first element of a repeated one.
func (m *Message) Get(name string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	vals := m.values[name]
	if len(vals) == 0 {
		return Value{}, false
	}
	return vals[0], true
}

// List returns every value of name in encounter order.
func (m *Message) List(name string) []Value {
	if m == nil {
		return nil
	}
	return m.values[name]
}

func (m *Message) Uint(name string) (uint64, bool) {
	v, ok := m.Get(name)
	if !ok {
		return 0, false
	}
	u, err := v.AsUint()
	return u, err == nil
}

func (m *Message) Float(name string) (float64, bool) {
	v, ok := m.Get(name)
	if !ok {
		return 0, false
	}
	f, err := v.AsFloat()
	return f, err == nil
}

func (m *Message) Text(name string) (string, bool) {
	v, ok := m.Get(name)
	if !ok {
		return "", false
	}
	s, err := v.AsString()
	return s, err == nil
}

func (m *Message) Blob(name string) ([]byte, bool) {
	v, ok := m.Get(name)
	if !ok {
		return nil, false
	}
	b, err := v.AsBytes()
	return b, err == nil
}

func (m *Message) Message(name string) (*Message, bool) {
	v, ok := m.Get(name)
	if !ok {
		return nil, false
	}
	sub, err := v.AsMessage()
	return sub, err == nil
}

// Messages returns the nested messages of a repeated field, skipping
// values of any other type.
func (m *Message) Messages(name string) []*Message {
	vals := m.List(name)
	out := make([]*Message, 0, len(vals))
	for _, v := range vals {
		if v.Type == ValueMessage && v.Msg != nil {
			out = append(out, v.Msg)
		}
	}
	return out
}
