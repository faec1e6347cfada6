package archive

import (
	"bytes"
	"fmt"

	"github.com/danmuck/notesctl/internal/protocol"
)

// Kind identifies the shape of a resolved Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindUint
	KindBytes
	KindText
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindUint:
		return "uint"
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an archive node with every CRDT wrapper removed.
//
// KindText carries attributed text (a decoded string message) as found in
// table cells.
type Value struct {
	Kind  Kind
	Str   string
	Uint  uint64
	Bytes []byte
	Text  *protocol.Message
	Map   *Map
	List  []Value
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func UintValue(n uint64) Value   { return Value{Kind: KindUint, Uint: n} }
func BytesValue(b []byte) Value  { return Value{Kind: KindBytes, Bytes: b} }
func TextValue(m *protocol.Message) Value {
	return Value{Kind: KindText, Text: m}
}
func MapValue(m *Map) Value      { return Value{Kind: KindMap, Map: m} }
func ListValue(vs []Value) Value { return Value{Kind: KindList, List: vs} }

// IsScalar reports whether v can be used as a map key.
func (v Value) IsScalar() bool {
	return v.Kind == KindString || v.Kind == KindUint || v.Kind == KindBytes
}

// Key returns the map key form of a scalar value.
func (v Value) Key() (Key, bool) {
	switch v.Kind {
	case KindString:
		return Key{Kind: KindString, Str: v.Str}, true
	case KindUint:
		return Key{Kind: KindUint, Uint: v.Uint}, true
	case KindBytes:
		return Key{Kind: KindBytes, Str: string(v.Bytes)}, true
	default:
		return Key{}, false
	}
}

// Equal is deep equality. Text values compare by identity.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNone:
		return true
	case KindString:
		return v.Str == o.Str
	case KindUint:
		return v.Uint == o.Uint
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	case KindText:
		return v.Text == o.Text
	case KindMap:
		return v.Map.Equal(o.Map)
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Key is a scalar map key. Bytes keys hold their raw bytes in Str.
type Key struct {
	Kind Kind
	Str  string
	Uint uint64
}

func StringKey(s string) Key { return Key{Kind: KindString, Str: s} }
func BytesKey(b []byte) Key  { return Key{Kind: KindBytes, Str: string(b)} }

func (k Key) Value() Value {
	switch k.Kind {
	case KindUint:
		return UintValue(k.Uint)
	case KindBytes:
		return BytesValue([]byte(k.Str))
	default:
		return StringValue(k.Str)
	}
}

// Map is an insertion-ordered mapping. A repeated key keeps its first
// position and its last value.
type Map struct {
	keys []Key
	vals map[Key]Value
}

func NewMap() *Map {
	return &Map{vals: make(map[Key]Value)}
}

func (m *Map) Put(k Key, v Value) {
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

func (m *Map) Get(k Key) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[k]
	return v, ok
}

func (m *Map) Has(k Key) bool {
	_, ok := m.Get(k)
	return ok
}

// Field is Get with a string key.
func (m *Map) Field(name string) (Value, bool) {
	return m.Get(StringKey(name))
}

func (m *Map) Keys() []Key {
	if m == nil {
		return nil
	}
	return append([]Key(nil), m.keys...)
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	if m == nil {
		return true
	}
	for _, k := range m.keys {
		ov, ok := o.Get(k)
		if !ok || !m.vals[k].Equal(ov) {
			return false
		}
	}
	return true
}
