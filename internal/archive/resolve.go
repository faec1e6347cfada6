package archive

import (
	"fmt"
	"sort"

	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/protocol"
	"github.com/danmuck/notesctl/internal/protocol/schema"
)

const (
	DefaultMaxDepth = 256

	TypeUUID   = "com.apple.CRDT.NSUUID"
	TypeString = "com.apple.CRDT.NSString"

	keyUUIDIndex = "UUIDIndex"
	keySelf      = "self"
)

// Resolver flattens one archive (the data message of a table blob).
// A Resolver is not safe for concurrent use.
type Resolver struct {
	MaxDepth int

	objects   []*protocol.Message
	keyItems  []string
	typeItems []string
	uuidItems [][]byte
	unknown   map[string]int
}

func NewResolver(data *protocol.Message) *Resolver {
	r := &Resolver{
		MaxDepth: DefaultMaxDepth,
		objects:  data.Messages(schema.FieldObject),
		unknown:  make(map[string]int),
	}
	for _, v := range data.List(schema.FieldKeyItem) {
		s, _ := v.AsString()
		r.keyItems = append(r.keyItems, s)
	}
	for _, v := range data.List(schema.FieldTypeItem) {
		s, _ := v.AsString()
		r.typeItems = append(r.typeItems, s)
	}
	for _, v := range data.List(schema.FieldUUIDItem) {
		b, _ := v.AsBytes()
		r.uuidItems = append(r.uuidItems, b)
	}
	return r
}

// Resolve flattens the data message of a table archive.
func Resolve(data *protocol.Message) (Value, error) {
	return NewResolver(data).Resolve()
}

// Resolve returns the flattened root object.
func (r *Resolver) Resolve() (Value, error) {
	if len(r.objects) == 0 {
		return Value{}, &NodeError{Path: "object", Err: fmt.Errorf("%w: empty object list", ErrMalformedArchive)}
	}
	return r.coerce(r.objects[0], 0, "object[0]")
}

// UnknownTypes lists custom type names that resolved to a generic map.
func (r *Resolver) UnknownTypes() []string {
	out := make([]string, 0, len(r.unknown))
	for name := range r.unknown {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Resolver) coerce(msg *protocol.Message, depth int, path string) (Value, error) {
	if depth > r.MaxDepth {
		return Value{}, &NodeError{Path: path, Err: fmt.Errorf("%w: depth limit %d exceeded", ErrMalformedArchive, r.MaxDepth)}
	}
	node, err := Classify(msg)
	if err != nil {
		return Value{}, &NodeError{Path: path, Err: err}
	}

	switch n := node.(type) {
	case Scalar:
		return n.Value, nil
	case ObjectIndex:
		if n.Index >= uint64(len(r.objects)) {
			return Value{}, &NodeError{Path: path, Err: fmt.Errorf("%w: object index %d out of range (%d objects)", ErrMalformedArchive, n.Index, len(r.objects))}
		}
		return r.coerce(r.objects[n.Index], depth+1, fmt.Sprintf("object[%d]", n.Index))
	case RegisterLatest:
		return r.coerce(n.Contents, depth+1, path+".contents")
	case Dictionary:
		m, err := r.dictionary(n, depth, path)
		if err != nil {
			return Value{}, err
		}
		return MapValue(m), nil
	case OrderedSet:
		return r.orderedSet(n, depth, path)
	case Custom:
		return r.custom(n, depth, path)
	default:
		return Value{}, &NodeError{Path: path, Err: fmt.Errorf("%w: unhandled variant %s", ErrMalformedArchive, node.variant())}
	}
}

func (r *Resolver) dictionary(d Dictionary, depth int, path string) (*Map, error) {
	out := NewMap()
	for i, e := range d.Entries {
		at := fmt.Sprintf("%s.element[%d]", path, i)
		k, err := r.coerce(e.Key, depth+1, at+".key")
		if err != nil {
			return nil, err
		}
		key, ok := k.Key()
		if !ok {
			return nil, &NodeError{Path: at, Err: fmt.Errorf("%w: %s dictionary key", ErrMalformedArchive, k.Kind)}
		}
		v, err := r.coerce(e.Value, depth+1, at+".value")
		if err != nil {
			return nil, err
		}
		out.Put(key, v)
	}
	return out, nil
}

func (r *Resolver) orderedSet(s OrderedSet, depth int, path string) (Value, error) {
	elements, err := r.dictionary(s.Elements, depth, path+".elements")
	if err != nil {
		return Value{}, err
	}
	contents, err := r.dictionary(s.Contents, depth, path+".ordering.contents")
	if err != nil {
		return Value{}, err
	}
	out := make([]Value, 0, len(s.Attachments))
	for _, a := range s.Attachments {
		key := BytesKey(a.UUID)
		if !elements.Has(key) {
			continue
		}
		v, ok := contents.Get(key)
		if !ok || containsValue(out, v) {
			continue
		}
		out = append(out, v)
	}
	return ListValue(out), nil
}

func containsValue(vs []Value, v Value) bool {
	for _, have := range vs {
		if have.Equal(v) {
			return true
		}
	}
	return false
}

func (r *Resolver) custom(c Custom, depth int, path string) (Value, error) {
	m := NewMap()
	for i, e := range c.Entries {
		if e.Key >= uint64(len(r.keyItems)) {
			return Value{}, &NodeError{Path: fmt.Sprintf("%s.mapEntry[%d]", path, i), Err: fmt.Errorf("%w: key item %d out of range", ErrMalformedArchive, e.Key)}
		}
		v, err := r.coerce(e.Value, depth+1, fmt.Sprintf("%s.%s", path, r.keyItems[e.Key]))
		if err != nil {
			return Value{}, err
		}
		m.Put(StringKey(r.keyItems[e.Key]), v)
	}
	if c.Type >= uint64(len(r.typeItems)) {
		return Value{}, &NodeError{Path: path, Err: fmt.Errorf("%w: type item %d out of range", ErrMalformedArchive, c.Type)}
	}

	switch typ := r.typeItems[c.Type]; typ {
	case TypeUUID:
		idx, ok := m.Field(keyUUIDIndex)
		if !ok || idx.Kind != KindUint || idx.Uint >= uint64(len(r.uuidItems)) {
			return Value{}, &NodeError{Path: path, Err: fmt.Errorf("%w: bad %s index", ErrMalformedArchive, TypeUUID)}
		}
		return BytesValue(r.uuidItems[idx.Uint]), nil
	case TypeString:
		self, ok := m.Field(keySelf)
		if !ok {
			return Value{}, &NodeError{Path: path, Err: fmt.Errorf("%w: %s without self", ErrMalformedArchive, TypeString)}
		}
		return self, nil
	default:
		if !knownContainer(typ) {
			if r.unknown[typ] == 0 {
				logs.Debugf("archive.Resolve unknown custom type=%q path=%s", typ, path)
			}
			r.unknown[typ]++
		}
		return MapValue(m), nil
	}
}

// knownContainer lists custom types that are expected to stay generic maps.
func knownContainer(typ string) bool {
	return typ == "com.apple.notes.ICTable"
}
