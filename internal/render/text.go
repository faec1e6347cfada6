package render

import (
	"fmt"
	"unicode/utf16"

	"github.com/danmuck/notesctl/internal/markup"
)

// Text renders attributed text into a div of blocks.
//
// attachments may be nil; every referenced attachment then renders as a
// placeholder link.
func Text(doc Document, attachments *AttachmentMap) (*markup.Node, error) {
	units := utf16.Encode([]rune(doc.Text))
	total := 0
	for i, run := range doc.Runs {
		if run.Length < 0 {
			return nil, &RunError{Index: i, Err: fmt.Errorf("%w: negative length %d", ErrInconsistentDocument, run.Length)}
		}
		if run.Length > len(units)-total {
			return nil, &RunError{Index: i, Err: fmt.Errorf("%w: run of %d units overruns text of %d", ErrInconsistentDocument, run.Length, len(units))}
		}
		total += run.Length
	}
	if total != len(units) {
		return nil, fmt.Errorf("%w: runs cover %d units, text has %d", ErrInconsistentDocument, total, len(units))
	}
	if attachments == nil {
		attachments = NewAttachmentMap("")
	}

	tr := textRenderer{root: markup.Element("div"), attachments: attachments}
	pos := 0
	for _, run := range doc.Runs {
		chunk := string(utf16.Decode(units[pos : pos+run.Length]))
		pos += run.Length
		for _, frag := range fragments(chunk) {
			tr.fragment(run, frag)
		}
	}
	return tr.root, nil
}

// fragments splits s into "\n" and maximal newline-free pieces.
func fragments(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' {
			continue
		}
		if i > start {
			out = append(out, s[start:i])
		}
		out = append(out, "\n")
		start = i + 1
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// textRenderer holds the state of one Text call: the root and the block
// currently receiving inline content (nil when the next fragment opens one).
type textRenderer struct {
	root        *markup.Node
	open        *markup.Node
	attachments *AttachmentMap
}

func (tr *textRenderer) fragment(run AttributeRun, frag string) {
	if tr.open == nil {
		tr.open = tr.openBlock(run)
	}
	if frag == "\n" {
		tr.open = nil
		return
	}

	if run.Attachment != nil {
		tr.open.Append(tr.attachments.Lookup(run.Attachment.ID))
		return
	}
	node := markup.Text(frag)
	if run.Link != "" {
		node = markup.Element("a", node).Set("href", run.Link)
	}
	mask := run.mask()
	if mask&maskBold != 0 {
		node = markup.Element("b", node)
	}
	if mask&maskItalic != 0 {
		node = markup.Element("em", node)
	}
	if mask&maskUnderline != 0 {
		node = markup.Element("u", node)
	}
	if mask&maskStrikethrough != 0 {
		node = markup.Element("strike", node)
	}
	tr.open.Append(node)
}

func (tr *textRenderer) openBlock(run AttributeRun) *markup.Node {
	style := run.style()
	switch style {
	case StyleHeading:
		return tr.appendBlock("h1")
	case StyleSubheading:
		return tr.appendBlock("h2")
	case StyleMonospaced:
		if last := tr.root.LastChild(); last != nil && last.Tag == "pre" {
			last.Append(markup.Text("\n"))
			return last
		}
		return tr.appendBlock("pre")
	case StyleDashedList, StyleBulletList, StyleNumbered, StyleChecklist:
		li := tr.listItem(style, run.indent())
		if style == StyleChecklist {
			box := markup.Element("input").Set("type", "checkbox")
			if run.done() {
				box.Set("checked", "")
			}
			li.Append(box)
		}
		return li
	default:
		return tr.appendBlock("p")
	}
}

func (tr *textRenderer) appendBlock(tag string) *markup.Node {
	block := markup.Element(tag)
	tr.root.Append(block)
	return block
}

// listItem appends an li at nesting depth indent. Nested lists sit directly
// inside their parent list. Existing lists of the same kind along the last
// child chain are reused; missing levels are created.
func (tr *textRenderer) listItem(style, indent int) *markup.Node {
	tag := "ul"
	if style == StyleNumbered {
		tag = "ol"
	}
	parent := tr.root
	levels := indent + 1
	for levels > 0 {
		last := parent.LastChild()
		if last == nil || last.Tag != tag {
			break
		}
		parent = last
		levels--
	}
	for ; levels > 0; levels-- {
		list := markup.Element(tag)
		parent.Append(list)
		parent = list
	}
	li := markup.Element("li")
	parent.Append(li)
	return li
}
