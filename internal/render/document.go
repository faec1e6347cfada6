package render

import (
	"github.com/danmuck/notesctl/internal/protocol"
	"github.com/danmuck/notesctl/internal/protocol/schema"
)

// Paragraph style codes.
const (
	StyleBody       = -1
	StyleHeading    = 0
	StyleSubheading = 1
	StyleMonospaced = 4
	StyleDashedList = 100
	StyleBulletList = 101
	StyleNumbered   = 102
	StyleChecklist  = 103
)

const (
	maskBold          = 1
	maskItalic        = 2
	maskUnderline     = 4
	maskStrikethrough = 8
)

type Todo struct {
	UUID []byte
	Done bool
}

type ParagraphStyle struct {
	Style  int
	Indent int
	Todo   *Todo
}

type AttachmentRef struct {
	ID      string
	TypeUTI string
}

// AttributeRun formats Length UTF-16 code units of a Document's text.
type AttributeRun struct {
	Length        int
	Paragraph     *ParagraphStyle
	FontHints     int
	Underline     bool
	Strikethrough bool
	Link          string
	Attachment    *AttachmentRef
}

func (r AttributeRun) style() int {
	if r.Paragraph == nil {
		return StyleBody
	}
	return r.Paragraph.Style
}

func (r AttributeRun) indent() int {
	if r.Paragraph == nil {
		return 0
	}
	return r.Paragraph.Indent
}

func (r AttributeRun) done() bool {
	return r.Paragraph != nil && r.Paragraph.Todo != nil && r.Paragraph.Todo.Done
}

// mask is the inline formatting bitmask: bold 1, italic 2, underline 4,
// strikethrough 8.
func (r AttributeRun) mask() int {
	m := r.FontHints
	if r.Underline {
		m += maskUnderline
	}
	if r.Strikethrough {
		m += maskStrikethrough
	}
	return m
}

// Document is attributed text: a note body or a table cell.
type Document struct {
	Text string
	Runs []AttributeRun
}

// DocumentFromMessage reads a message decoded with schema.String.
func DocumentFromMessage(m *protocol.Message) Document {
	var doc Document
	if m == nil {
		return doc
	}
	doc.Text, _ = m.Text(schema.FieldString)
	for _, rm := range m.Messages(schema.FieldAttributeRun) {
		doc.Runs = append(doc.Runs, runFromMessage(rm))
	}
	return doc
}

func runFromMessage(m *protocol.Message) AttributeRun {
	var run AttributeRun
	n, _ := m.Uint(schema.FieldLength)
	run.Length = int(n)
	if ps, ok := m.Message(schema.FieldParagraph); ok {
		p := &ParagraphStyle{Style: StyleBody}
		if s, ok := ps.Uint(schema.FieldStyle); ok {
			p.Style = int(s)
		}
		indent, _ := ps.Uint(schema.FieldIndent)
		p.Indent = int(indent)
		if todo, ok := ps.Message(schema.FieldTodo); ok {
			uuid, _ := todo.Blob(schema.FieldTodoUUID)
			done, _ := todo.Uint(schema.FieldDone)
			p.Todo = &Todo{UUID: uuid, Done: done != 0}
		}
		run.Paragraph = p
	}
	hints, _ := m.Uint(schema.FieldFontHints)
	run.FontHints = int(hints)
	if u, _ := m.Uint(schema.FieldUnderline); u != 0 {
		run.Underline = true
	}
	if s, _ := m.Uint(schema.FieldStrikethrough); s != 0 {
		run.Strikethrough = true
	}
	run.Link, _ = m.Text(schema.FieldLink)
	if info, ok := m.Message(schema.FieldAttachment); ok {
		id, _ := info.Text(schema.FieldAttachmentID)
		uti, _ := info.Text(schema.FieldTypeUTI)
		run.Attachment = &AttachmentRef{ID: id, TypeUTI: uti}
	}
	return run
}
