// Package schema holds the field layouts of the note body, drawing and
// table messages. Tag numbers match the stored format and must not change.
package schema

import "github.com/danmuck/notesctl/internal/protocol"

// Field names shared by the renderers.
const (
	FieldVersion = "version"
	FieldData    = "data"

	FieldString        = "string"
	FieldAttributeRun  = "attributeRun"
	FieldLength        = "length"
	FieldParagraph     = "paragraphStyle"
	FieldStyle         = "style"
	FieldIndent        = "indent"
	FieldTodo          = "todo"
	FieldTodoUUID      = "todoUUID"
	FieldDone          = "done"
	FieldFontHints     = "fontHints"
	FieldUnderline     = "underline"
	FieldStrikethrough = "strikethrough"
	FieldLink          = "link"
	FieldAttachment    = "attachmentInfo"
	FieldAttachmentID  = "attachmentIdentifier"
	FieldTypeUTI       = "typeUTI"

	FieldInks       = "inks"
	FieldColor      = "color"
	FieldRed        = "red"
	FieldGreen      = "green"
	FieldBlue       = "blue"
	FieldAlpha      = "alpha"
	FieldIdentifier = "identifier"
	FieldStrokes    = "strokes"
	FieldInkIndex   = "inkIndex"
	FieldPoints     = "points"
	FieldHidden     = "hidden"
	FieldTransform  = "transform"
	FieldBounds     = "bounds"
	FieldOriginX    = "originX"
	FieldOriginY    = "originY"
	FieldWidth      = "width"
	FieldHeight     = "height"

	FieldUnsignedInteger = "unsignedIntegerValue"
	FieldStringValue     = "stringValue"
	FieldObjectIndex     = "objectIndex"
	FieldElement         = "element"
	FieldKey             = "key"
	FieldValue           = "value"
	FieldObject          = "object"
	FieldRegisterLatest  = "registerLatest"
	FieldContents        = "contents"
	FieldDictionary      = "dictionary"
	FieldCustom          = "custom"
	FieldType            = "type"
	FieldMapEntry        = "mapEntry"
	FieldOrderedSet      = "orderedSet"
	FieldOrdering        = "ordering"
	FieldArray           = "array"
	FieldAttachments     = "attachments"
	FieldIndex           = "index"
	FieldUUID            = "uuid"
	FieldElements        = "elements"
	FieldKeyItem         = "keyItem"
	FieldTypeItem        = "typeItem"
	FieldUUIDItem        = "uuidItem"
)

func field(name string, kind protocol.FieldKind) protocol.FieldSpec {
	return protocol.FieldSpec{Name: name, Kind: kind}
}

func repeated(name string, kind protocol.FieldKind) protocol.FieldSpec {
	return protocol.FieldSpec{Name: name, Kind: kind, Repeated: true}
}

func message(name string, s *protocol.Schema) protocol.FieldSpec {
	return protocol.FieldSpec{Name: name, Kind: protocol.KindMessage, Message: s}
}

func repeatedMessage(name string, s *protocol.Schema) protocol.FieldSpec {
	return protocol.FieldSpec{Name: name, Kind: protocol.KindMessage, Message: s, Repeated: true}
}

// versioned wraps data in the `version[].data` envelope every top-level
// blob uses.
func versioned(name string, data *protocol.Schema) *protocol.Schema {
	version := protocol.MustSchema(name+".version", map[uint64]protocol.FieldSpec{
		3: message(FieldData, data),
	})
	return protocol.MustSchema(name, map[uint64]protocol.FieldSpec{
		2: repeatedMessage(FieldVersion, version),
	})
}

var (
	todo = protocol.MustSchema("todo", map[uint64]protocol.FieldSpec{
		1: field(FieldTodoUUID, protocol.KindBytes),
		2: field(FieldDone, protocol.KindVarint),
	})
	paragraphStyle = protocol.MustSchema("paragraphStyle", map[uint64]protocol.FieldSpec{
		1: field(FieldStyle, protocol.KindVarint),
		4: field(FieldIndent, protocol.KindVarint),
		5: message(FieldTodo, todo),
	})
	attachmentInfo = protocol.MustSchema("attachmentInfo", map[uint64]protocol.FieldSpec{
		1: field(FieldAttachmentID, protocol.KindString),
		2: field(FieldTypeUTI, protocol.KindString),
	})
	attributeRun = protocol.MustSchema("attributeRun", map[uint64]protocol.FieldSpec{
		1:  field(FieldLength, protocol.KindVarint),
		2:  message(FieldParagraph, paragraphStyle),
		5:  field(FieldFontHints, protocol.KindVarint),
		6:  field(FieldUnderline, protocol.KindVarint),
		7:  field(FieldStrikethrough, protocol.KindVarint),
		9:  field(FieldLink, protocol.KindString),
		12: message(FieldAttachment, attachmentInfo),
	})

	// String is attributed text: the raw string plus its attribute runs.
	String = protocol.MustSchema("string", map[uint64]protocol.FieldSpec{
		2: field(FieldString, protocol.KindString),
		5: repeatedMessage(FieldAttributeRun, attributeRun),
	})

	// Document is a note body.
	Document = versioned("document", String)
)

var (
	color = protocol.MustSchema("color", map[uint64]protocol.FieldSpec{
		1: field(FieldRed, protocol.KindFloat),
		2: field(FieldGreen, protocol.KindFloat),
		3: field(FieldBlue, protocol.KindFloat),
		4: field(FieldAlpha, protocol.KindFloat),
	})
	ink = protocol.MustSchema("ink", map[uint64]protocol.FieldSpec{
		1: message(FieldColor, color),
		2: field(FieldIdentifier, protocol.KindString),
	})
	transform = protocol.MustSchema("transform", map[uint64]protocol.FieldSpec{
		1: field("a", protocol.KindFloat),
		2: field("b", protocol.KindFloat),
		3: field("c", protocol.KindFloat),
		4: field("d", protocol.KindFloat),
		5: field("tx", protocol.KindFloat),
		6: field("ty", protocol.KindFloat),
	})
	stroke = protocol.MustSchema("stroke", map[uint64]protocol.FieldSpec{
		3:  field(FieldInkIndex, protocol.KindVarint),
		5:  field(FieldPoints, protocol.KindBytes),
		9:  field(FieldHidden, protocol.KindVarint),
		10: message(FieldTransform, transform),
	})
	bounds = protocol.MustSchema("bounds", map[uint64]protocol.FieldSpec{
		1: field(FieldOriginX, protocol.KindFloat),
		2: field(FieldOriginY, protocol.KindFloat),
		3: field(FieldWidth, protocol.KindFloat),
		4: field(FieldHeight, protocol.KindFloat),
	})
	drawingData = protocol.MustSchema("drawing.data", map[uint64]protocol.FieldSpec{
		4: repeatedMessage(FieldInks, ink),
		5: repeatedMessage(FieldStrokes, stroke),
		8: message(FieldBounds, bounds),
	})

	// Drawing is a handwriting attachment.
	Drawing = versioned("drawing", drawingData)
)

var (
	// OID is a scalar archive node.
	OID = protocol.MustSchema("oid", map[uint64]protocol.FieldSpec{
		2: field(FieldUnsignedInteger, protocol.KindVarint),
		4: field(FieldStringValue, protocol.KindString),
		6: field(FieldObjectIndex, protocol.KindVarint),
	})
	dictionaryElement = protocol.MustSchema("dictionary.element", map[uint64]protocol.FieldSpec{
		1: message(FieldKey, OID),
		2: message(FieldValue, OID),
	})
	// Dictionary is an archive key/value list.
	Dictionary = protocol.MustSchema("dictionary", map[uint64]protocol.FieldSpec{
		1: repeatedMessage(FieldElement, dictionaryElement),
	})
	registerLatest = protocol.MustSchema("registerLatest", map[uint64]protocol.FieldSpec{
		2: message(FieldContents, OID),
	})
	mapEntry = protocol.MustSchema("custom.mapEntry", map[uint64]protocol.FieldSpec{
		1: field(FieldKey, protocol.KindVarint),
		2: message(FieldValue, OID),
	})
	custom = protocol.MustSchema("custom", map[uint64]protocol.FieldSpec{
		1: field(FieldType, protocol.KindVarint),
		3: repeatedMessage(FieldMapEntry, mapEntry),
	})
	orderingAttachment = protocol.MustSchema("ordering.attachment", map[uint64]protocol.FieldSpec{
		1: field(FieldIndex, protocol.KindVarint),
		2: field(FieldUUID, protocol.KindBytes),
	})
	orderingArray = protocol.MustSchema("ordering.array", map[uint64]protocol.FieldSpec{
		1: message(FieldContents, String),
		2: repeatedMessage(FieldAttachments, orderingAttachment),
	})
	ordering = protocol.MustSchema("ordering", map[uint64]protocol.FieldSpec{
		1: message(FieldArray, orderingArray),
		2: message(FieldContents, Dictionary),
	})
	orderedSet = protocol.MustSchema("orderedSet", map[uint64]protocol.FieldSpec{
		1: message(FieldOrdering, ordering),
		2: message(FieldElements, Dictionary),
	})
	// Object is one node of the flat archive object list.
	Object = protocol.MustSchema("object", map[uint64]protocol.FieldSpec{
		1:  message(FieldRegisterLatest, registerLatest),
		6:  message(FieldDictionary, Dictionary),
		10: message(FieldString, String),
		13: message(FieldCustom, custom),
		16: message(FieldOrderedSet, orderedSet),
	})
	tableData = protocol.MustSchema("table.data", map[uint64]protocol.FieldSpec{
		3: repeatedMessage(FieldObject, Object),
		4: repeated(FieldKeyItem, protocol.KindString),
		5: repeated(FieldTypeItem, protocol.KindString),
		6: repeated(FieldUUIDItem, protocol.KindBytes),
	})

	// Table is a table attachment archive.
	Table = versioned("table", tableData)
)

// Data returns the payload of the first version of a decoded top-level
// blob, or false when the blob has no version envelope.
func Data(msg *protocol.Message) (*protocol.Message, bool) {
	versions := msg.Messages(FieldVersion)
	if len(versions) == 0 {
		return nil, false
	}
	return versions[0].Message(FieldData)
}
