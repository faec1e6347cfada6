// Package markup is the output tree shared by every renderer.
package markup

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Attr struct {
	Key string
	Val string
}

// Node is an element or, when Tag is empty, a literal text fragment.
// Attribute keys are unique and keep their first insertion position.
type Node struct {
	Tag      string
	Text     string
	Children []*Node
	attrs    []Attr
}

func Element(tag string, children ...*Node) *Node {
	return &Node{Tag: tag, Children: children}
}

func Text(s string) *Node {
	return &Node{Text: s}
}

func (n *Node) IsText() bool {
	return n.Tag == ""
}

// Set assigns an attribute, replacing any previous value for key.
func (n *Node) Set(key, val string) *Node {
	for i := range n.attrs {
		if n.attrs[i].Key == key {
			n.attrs[i].Val = val
			return n
		}
	}
	n.attrs = append(n.attrs, Attr{Key: key, Val: val})
	return n
}

func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) Attrs() []Attr {
	return append([]Attr(nil), n.attrs...)
}

func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// LastChild returns the last child, or nil.
func (n *Node) LastChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// TextContent concatenates every text fragment below n.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.walkText(&b)
	return b.String()
}

func (n *Node) walkText(b *strings.Builder) {
	if n.IsText() {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Children {
		c.walkText(b)
	}
}

// Find returns every element below n (n included) with the given tag, in
// document order.
func (n *Node) Find(tag string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.Tag == tag {
			out = append(out, cur)
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Render serializes n as HTML.
func Render(w io.Writer, n *Node) error {
	return html.Render(w, toHTML(n))
}

func RenderString(n *Node) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// toHTML builds a fresh html tree; a markup node may appear more than once
// in its source tree, html nodes may not.
func toHTML(n *Node) *html.Node {
	if n.IsText() {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	out := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	for _, a := range n.attrs {
		out.Attr = append(out.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	for _, c := range n.Children {
		out.AppendChild(toHTML(c))
	}
	return out
}
