package archive

import (
	"fmt"

	"github.com/danmuck/notesctl/internal/protocol"
	"github.com/danmuck/notesctl/internal/protocol/schema"
)

// Node is one archive variant. The set of implementations is closed.
type Node interface {
	variant() string
}

type ObjectIndex struct {
	Index uint64
}

type RegisterLatest struct {
	Contents *protocol.Message
}

type Entry struct {
	Key   *protocol.Message
	Value *protocol.Message
}

type Dictionary struct {
	Entries []Entry
}

type SetAttachment struct {
	Index uint64
	UUID  []byte
}

type OrderedSet struct {
	Attachments []SetAttachment
	Contents    Dictionary
	Elements    Dictionary
}

type CustomEntry struct {
	Key   uint64
	Value *protocol.Message
}

type Custom struct {
	Type    uint64
	Entries []CustomEntry
}

// Scalar is a leaf: stringValue, unsignedIntegerValue or attributed text.
type Scalar struct {
	Value Value
}

func (ObjectIndex) variant() string    { return schema.FieldObjectIndex }
func (RegisterLatest) variant() string { return schema.FieldRegisterLatest }
func (Dictionary) variant() string     { return schema.FieldDictionary }
func (OrderedSet) variant() string     { return schema.FieldOrderedSet }
func (Custom) variant() string         { return schema.FieldCustom }
func (Scalar) variant() string         { return "scalar" }

var variantFields = []string{
	schema.FieldObjectIndex,
	schema.FieldRegisterLatest,
	schema.FieldDictionary,
	schema.FieldOrderedSet,
	schema.FieldCustom,
	schema.FieldStringValue,
	schema.FieldUnsignedInteger,
	schema.FieldString,
}

// Classify turns a decoded archive node into its variant. The node must
// populate exactly one variant field.
func Classify(node *protocol.Message) (Node, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrMalformedArchive)
	}
	present := ""
	for _, name := range variantFields {
		if !node.Has(name) {
			continue
		}
		if present != "" {
			return nil, fmt.Errorf("%w: node has both %s and %s", ErrMalformedArchive, present, name)
		}
		present = name
	}
	if present == "" {
		return nil, fmt.Errorf("%w: node has no known variant (fields %v)", ErrMalformedArchive, node.Names())
	}

	switch present {
	case schema.FieldObjectIndex:
		idx, _ := node.Uint(present)
		return ObjectIndex{Index: idx}, nil
	case schema.FieldStringValue:
		s, _ := node.Text(present)
		return Scalar{Value: StringValue(s)}, nil
	case schema.FieldUnsignedInteger:
		n, _ := node.Uint(present)
		return Scalar{Value: UintValue(n)}, nil
	case schema.FieldString:
		text, _ := node.Message(present)
		return Scalar{Value: TextValue(text)}, nil
	case schema.FieldRegisterLatest:
		reg, _ := node.Message(present)
		contents, ok := reg.Message(schema.FieldContents)
		if !ok {
			return nil, fmt.Errorf("%w: registerLatest without contents", ErrMalformedArchive)
		}
		return RegisterLatest{Contents: contents}, nil
	case schema.FieldDictionary:
		dict, _ := node.Message(present)
		return classifyDictionary(dict), nil
	case schema.FieldOrderedSet:
		set, _ := node.Message(present)
		return classifyOrderedSet(set), nil
	default:
		c, _ := node.Message(present)
		typ, _ := c.Uint(schema.FieldType)
		out := Custom{Type: typ}
		for _, e := range c.Messages(schema.FieldMapEntry) {
			key, _ := e.Uint(schema.FieldKey)
			val, _ := e.Message(schema.FieldValue)
			out.Entries = append(out.Entries, CustomEntry{Key: key, Value: val})
		}
		return out, nil
	}
}

func classifyDictionary(dict *protocol.Message) Dictionary {
	var out Dictionary
	if dict == nil {
		return out
	}
	for _, e := range dict.Messages(schema.FieldElement) {
		key, _ := e.Message(schema.FieldKey)
		val, _ := e.Message(schema.FieldValue)
		out.Entries = append(out.Entries, Entry{Key: key, Value: val})
	}
	return out
}

func classifyOrderedSet(set *protocol.Message) OrderedSet {
	var out OrderedSet
	elements, _ := set.Message(schema.FieldElements)
	out.Elements = classifyDictionary(elements)
	ordering, ok := set.Message(schema.FieldOrdering)
	if !ok {
		return out
	}
	contents, _ := ordering.Message(schema.FieldContents)
	out.Contents = classifyDictionary(contents)
	if array, ok := ordering.Message(schema.FieldArray); ok {
		for _, a := range array.Messages(schema.FieldAttachments) {
			idx, _ := a.Uint(schema.FieldIndex)
			uuid, _ := a.Blob(schema.FieldUUID)
			out.Attachments = append(out.Attachments, SetAttachment{Index: idx, UUID: uuid})
		}
	}
	return out
}
