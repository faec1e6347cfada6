package render

import (
	"strings"
	"unicode/utf8"

	"github.com/danmuck/notesctl/internal/markup"
	"github.com/danmuck/notesctl/internal/protocol/schema"
	"github.com/danmuck/notesctl/internal/protocol/wire"
)

const DefaultCSS = `
.underline { text-decoration: underline; }
.strikethrough { text-decoration: line-through; }
.todo { list-style-type: none; margin-left: -20px; }
.dashitem { list-style-type: none; }
.dashitem:before { content: "-"; text-indent: -5px }
`

// Note decodes a decompressed note body and renders it.
func Note(body []byte, attachments *AttachmentMap) (*markup.Node, error) {
	data, err := payload(body, schema.Document)
	if err != nil {
		return nil, err
	}
	return Text(DocumentFromMessage(data), attachments)
}

// Basic renders the plain text of a body that does not decode, one
// paragraph per line. The second result is false when no text was found.
func Basic(body []byte) (*markup.Node, bool) {
	root := markup.Element("div")
	raw, ok := locate(body, 2, 3, 2)
	if !ok || !utf8.Valid(raw) {
		return root, false
	}
	for _, line := range strings.Split(string(raw), "\n") {
		root.Append(markup.Element("p", markup.Text(line)))
	}
	return root, true
}

// locate follows nested length-delimited fields by tag, reading only as far
// as needed. Anything malformed after the target is never looked at.
func locate(buf []byte, tags ...uint64) ([]byte, bool) {
	for _, want := range tags {
		found := false
		for pos := 0; pos < len(buf) && !found; {
			word, next, err := wire.ReadVarint(buf, pos)
			if err != nil {
				return nil, false
			}
			tag, wt := wire.SplitTag(word)
			switch wt {
			case wire.TypeVarint:
				_, next, err = wire.ReadVarint(buf, next)
			case wire.TypeFixed64:
				_, next, err = wire.ReadFixed64Double(buf, next)
			case wire.TypeFixed32:
				_, next, err = wire.ReadFixed32Float(buf, next)
			case wire.TypeBytes:
				var v []byte
				v, next, err = wire.ReadLengthDelimited(buf, next)
				if err == nil && tag == want {
					buf, found = v, true
				}
			default:
				return nil, false
			}
			if err != nil {
				return nil, false
			}
			pos = next
		}
		if !found {
			return nil, false
		}
	}
	return buf, true
}

// Envelope wraps a rendered note in a standalone html document. The root
// div becomes the section.
func Envelope(note *markup.Node, css string) *markup.Node {
	section := markup.Element("section", note.Children...)
	for _, a := range note.Attrs() {
		section.Set(a.Key, a.Val)
	}
	return markup.Element("html",
		markup.Element("head", markup.Element("style", markup.Text(css))),
		markup.Element("body", section),
	)
}
