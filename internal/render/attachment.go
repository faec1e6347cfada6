package render

import (
	"fmt"
	"path"

	"github.com/danmuck/notesctl/internal/archive"
	"github.com/danmuck/notesctl/internal/markup"
	"github.com/danmuck/notesctl/internal/protocol"
	"github.com/danmuck/notesctl/internal/protocol/schema"
)

const (
	UTIDrawing  = "com.apple.drawing"
	UTIDrawing2 = "com.apple.drawing.2"
	UTITable    = "com.apple.notes.table"
	UTIURL      = "public.url"

	DefaultUser = "none"
)

// AttachmentKind is the closed set of ways an attachment is rendered.
type AttachmentKind uint8

const (
	AttachmentDrawing AttachmentKind = iota + 1
	AttachmentTable
	AttachmentURL
	AttachmentImage
	AttachmentFile
	AttachmentFallback
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentDrawing:
		return "drawing"
	case AttachmentTable:
		return "table"
	case AttachmentURL:
		return "url"
	case AttachmentImage:
		return "image"
	case AttachmentFile:
		return "file"
	case AttachmentFallback:
		return "fallback"
	default:
		return fmt.Sprintf("attachment(%d)", uint8(k))
	}
}

var imageTypes = map[string]bool{
	"public.tiff": true,
	"public.jpeg": true,
	"public.png":  true,
}

// Attachment is one attachment row. Data is the decompressed mergeable
// payload for drawings and tables.
type Attachment struct {
	ID       string
	TypeUTI  string
	Data     []byte
	MediaID  string
	FileName string
	URL      string
	Title    string
}

// Kind classifies a.
func (a Attachment) Kind() AttachmentKind {
	switch {
	case (a.TypeUTI == UTIDrawing || a.TypeUTI == UTIDrawing2) && len(a.Data) > 0:
		return AttachmentDrawing
	case a.TypeUTI == UTITable && len(a.Data) > 0:
		return AttachmentTable
	case a.TypeUTI == UTIURL:
		return AttachmentURL
	case a.FileName != "" && imageTypes[a.TypeUTI]:
		return AttachmentImage
	case a.FileName != "":
		return AttachmentFile
	default:
		return AttachmentFallback
	}
}

// AttachmentMap holds the rendered attachments of one rendering pass.
// Each identifier is resolved once. Put, Resolve and Lookup are not safe
// for concurrent use; Build is. A forked map reads through to its parent.
type AttachmentMap struct {
	user    string
	parent  *AttachmentMap
	nodes   map[string]*markup.Node
	missing []string

	// Exists reports whether a container-relative file is present. Nil
	// means nothing is.
	Exists func(path string) bool
}

func NewAttachmentMap(user string) *AttachmentMap {
	if user == "" {
		user = DefaultUser
	}
	return &AttachmentMap{user: user, nodes: make(map[string]*markup.Node)}
}

// ContainerRoot is the notes group container of the map's user.
func (m *AttachmentMap) ContainerRoot() string {
	return "/Users/" + m.user + "/Library/Group Containers/group.com.apple.notes"
}

func (m *AttachmentMap) Put(id string, node *markup.Node) {
	m.nodes[id] = node
}

func (m *AttachmentMap) Len() int {
	n := len(m.nodes)
	if m.parent != nil {
		n += m.parent.Len()
	}
	return n
}

// Fork returns an empty map layered over m. Lookups fall through to m and
// misses are recorded on the fork only, so one shared map can serve many
// notes while m is no longer written.
func (m *AttachmentMap) Fork() *AttachmentMap {
	return &AttachmentMap{
		user:   m.user,
		parent: m,
		nodes:  make(map[string]*markup.Node),
		Exists: m.Exists,
	}
}

func (m *AttachmentMap) get(id string) (*markup.Node, bool) {
	for cur := m; cur != nil; cur = cur.parent {
		if node, ok := cur.nodes[id]; ok {
			return node, true
		}
	}
	return nil, false
}

// Lookup returns the node for id, or a placeholder link when id was never
// resolved. Placeholder lookups are recorded in Missing.
func (m *AttachmentMap) Lookup(id string) *markup.Node {
	if node, ok := m.get(id); ok {
		return node
	}
	m.missing = append(m.missing, id)
	return m.Placeholder(id)
}

// Missing lists identifiers looked up without an entry.
func (m *AttachmentMap) Missing() []string {
	return append([]string(nil), m.missing...)
}

// Placeholder links to where the attachment's media would live.
func (m *AttachmentMap) Placeholder(id string) *markup.Node {
	target := fileURL(path.Join(m.ContainerRoot(), "Media", id, "missing.txt"))
	return markup.Element("a", markup.Text(target)).Set("href", target)
}

// Resolve renders a and stores the result under a.ID. A failed drawing or
// table stores a placeholder and returns the error.
func (m *AttachmentMap) Resolve(a Attachment) (AttachmentKind, error) {
	if _, ok := m.get(a.ID); ok {
		return a.Kind(), nil
	}
	node, kind, err := m.Build(a)
	m.nodes[a.ID] = node
	return kind, err
}

// Build renders a without storing it. On failure the node is the
// placeholder for a.ID.
func (m *AttachmentMap) Build(a Attachment) (*markup.Node, AttachmentKind, error) {
	kind := a.Kind()
	node, err := m.render(kind, a)
	if err != nil {
		return m.Placeholder(a.ID), kind, fmt.Errorf("render: attachment %s (%s): %w", a.ID, kind, err)
	}
	return node, kind, nil
}

func (m *AttachmentMap) render(kind AttachmentKind, a Attachment) (*markup.Node, error) {
	switch kind {
	case AttachmentDrawing:
		data, err := payload(a.Data, schema.Drawing)
		if err != nil {
			return nil, err
		}
		return Drawing(SketchFromMessage(data)), nil
	case AttachmentTable:
		data, err := payload(a.Data, schema.Table)
		if err != nil {
			return nil, err
		}
		root, err := archive.Resolve(data)
		if err != nil {
			return nil, err
		}
		grid, err := GridFromValue(root)
		if err != nil {
			return nil, err
		}
		return Table(grid)
	case AttachmentURL:
		return markup.Element("a", markup.Text(a.Title)).Set("href", a.URL), nil
	case AttachmentImage:
		return markup.Element("img").Set("src", m.mediaURL(a)), nil
	case AttachmentFile:
		return markup.Element("a", markup.Text(a.FileName)).Set("href", m.mediaURL(a)), nil
	default:
		fallback := path.Join(m.ContainerRoot(), "FallbackImages", a.ID+".jpg")
		if m.Exists != nil && m.Exists(fallback) {
			return markup.Element("img").Set("src", fileURL(fallback)), nil
		}
		return m.Placeholder(a.ID), nil
	}
}

func (m *AttachmentMap) mediaURL(a Attachment) string {
	return fileURL(path.Join(m.ContainerRoot(), "Media", a.MediaID, a.FileName))
}

func payload(blob []byte, s *protocol.Schema) (*protocol.Message, error) {
	msg, err := protocol.Decode(blob, s)
	if err != nil {
		return nil, err
	}
	data, ok := schema.Data(msg)
	if !ok {
		return nil, ErrNoPayload
	}
	return data, nil
}

func fileURL(p string) string {
	return "file://" + p
}
