package render

import (
	"strings"
	"testing"

	"github.com/danmuck/notesctl/internal/markup"
	"github.com/danmuck/notesctl/internal/protocol"
	"github.com/danmuck/notesctl/internal/protocol/schema"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
)

func TestMissingAttachmentPlaceholder(t *testing.T) {
	testlog.Start(t)
	doc := Document{
		Text: "￼",
		Runs: []AttributeRun{{Length: 1, Attachment: &AttachmentRef{ID: "ABC-123"}}},
	}
	m := NewAttachmentMap("")
	root, err := Text(doc, m)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	links := root.Find("a")
	if len(links) != 1 {
		t.Fatalf("expected placeholder link, got %q", html(t, root))
	}
	want := "file:///Users/none/Library/Group Containers/group.com.apple.notes/Media/ABC-123/missing.txt"
	if href, _ := links[0].Attr("href"); href != want {
		t.Fatalf("unexpected href %q", href)
	}
	if missing := m.Missing(); len(missing) != 1 || missing[0] != "ABC-123" {
		t.Fatalf("unexpected missing %v", missing)
	}
}

func TestAttachmentKinds(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		a    Attachment
		want AttachmentKind
	}{
		{Attachment{TypeUTI: UTIDrawing, Data: []byte{1}}, AttachmentDrawing},
		{Attachment{TypeUTI: UTIDrawing2, Data: []byte{1}}, AttachmentDrawing},
		{Attachment{TypeUTI: UTITable, Data: []byte{1}}, AttachmentTable},
		{Attachment{TypeUTI: UTITable}, AttachmentFallback},
		{Attachment{TypeUTI: UTIURL, URL: "https://x"}, AttachmentURL},
		{Attachment{TypeUTI: "public.jpeg", FileName: "a.jpg"}, AttachmentImage},
		{Attachment{TypeUTI: "com.adobe.pdf", FileName: "a.pdf"}, AttachmentFile},
		{Attachment{TypeUTI: "public.jpeg"}, AttachmentFallback},
	}
	for i, tc := range cases {
		if got := tc.a.Kind(); got != tc.want {
			t.Fatalf("case %d: kind=%s want %s", i, got, tc.want)
		}
	}
}

func TestResolveMediaAttachments(t *testing.T) {
	testlog.Start(t)
	m := NewAttachmentMap("dan")
	m.Exists = func(p string) bool { return strings.HasSuffix(p, "FallbackImages/fb.jpg") }
	inputs := []Attachment{
		{ID: "url", TypeUTI: UTIURL, URL: "https://example.com", Title: "Example"},
		{ID: "img", TypeUTI: "public.png", MediaID: "M1", FileName: "p.png"},
		{ID: "pdf", TypeUTI: "com.adobe.pdf", MediaID: "M2", FileName: "doc.pdf"},
		{ID: "fb", TypeUTI: "public.jpeg"},
		{ID: "gone", TypeUTI: "public.jpeg"},
	}
	for _, a := range inputs {
		if _, err := m.Resolve(a); err != nil {
			t.Fatalf("resolve %s: %v", a.ID, err)
		}
	}
	want := map[string]string{
		"url":  `<a href="https://example.com">Example</a>`,
		"img":  `<img src="file:///Users/dan/Library/Group Containers/group.com.apple.notes/Media/M1/p.png"/>`,
		"pdf":  `<a href="file:///Users/dan/Library/Group Containers/group.com.apple.notes/Media/M2/doc.pdf">doc.pdf</a>`,
		"fb":   `<img src="file:///Users/dan/Library/Group Containers/group.com.apple.notes/FallbackImages/fb.jpg"/>`,
		"gone": `<a href="file:///Users/dan/Library/Group Containers/group.com.apple.notes/Media/gone/missing.txt">file:///Users/dan/Library/Group Containers/group.com.apple.notes/Media/gone/missing.txt</a>`,
	}
	for id, wantHTML := range want {
		got, err := renderLookup(m, id)
		if err != nil {
			t.Fatalf("render %s: %v", id, err)
		}
		if got != wantHTML {
			t.Fatalf("%s:\n got %q\nwant %q", id, got, wantHTML)
		}
	}
}

func TestResolveIsMemoized(t *testing.T) {
	testlog.Start(t)
	m := NewAttachmentMap("")
	a := Attachment{ID: "u", TypeUTI: UTIURL, URL: "https://a", Title: "a"}
	if _, err := m.Resolve(a); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	first := m.Lookup("u")
	a.Title = "changed"
	if _, err := m.Resolve(a); err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if m.Lookup("u") != first {
		t.Fatalf("attachment rendered twice")
	}
}

func TestForkReadsThroughToParent(t *testing.T) {
	testlog.Start(t)
	base := NewAttachmentMap("dan")
	if _, err := base.Resolve(Attachment{ID: "u", TypeUTI: UTIURL, URL: "https://a", Title: "a"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	shared := base.Lookup("u")

	left, right := base.Fork(), base.Fork()
	if left.Lookup("u") != shared || right.Lookup("u") != shared {
		t.Fatalf("fork should return the parent's node")
	}
	left.Lookup("nope")
	if len(left.Missing()) != 1 || len(right.Missing()) != 0 || len(base.Missing()) != 0 {
		t.Fatalf("misses leaked across forks: left=%v right=%v base=%v", left.Missing(), right.Missing(), base.Missing())
	}
	if _, err := left.Resolve(Attachment{ID: "f", TypeUTI: "com.adobe.pdf", MediaID: "M", FileName: "x.pdf"}); err != nil {
		t.Fatalf("resolve on fork: %v", err)
	}
	if _, ok := base.get("f"); ok {
		t.Fatalf("fork wrote into parent")
	}
	if left.Len() != 2 || base.Len() != 1 {
		t.Fatalf("unexpected sizes left=%d base=%d", left.Len(), base.Len())
	}
	if got := left.ContainerRoot(); !strings.Contains(got, "/Users/dan/") {
		t.Fatalf("fork lost user: %s", got)
	}
}

func TestBuildDoesNotStore(t *testing.T) {
	testlog.Start(t)
	m := NewAttachmentMap("")
	node, kind, err := m.Build(Attachment{ID: "u", TypeUTI: UTIURL, URL: "https://a", Title: "a"})
	if err != nil || kind != AttachmentURL || node == nil {
		t.Fatalf("build: node=%v kind=%s err=%v", node, kind, err)
	}
	if m.Len() != 0 {
		t.Fatalf("build stored a node")
	}
	node, kind, err = m.Build(Attachment{ID: "t", TypeUTI: UTITable, Data: []byte{0x0b}})
	if err == nil || kind != AttachmentTable {
		t.Fatalf("expected table decode error, got kind=%s err=%v", kind, err)
	}
	if len(node.Find("a")) != 1 {
		t.Fatalf("failed build should return a placeholder")
	}
}

func TestResolveBrokenDrawingStoresPlaceholder(t *testing.T) {
	testlog.Start(t)
	m := NewAttachmentMap("")
	if _, err := m.Resolve(Attachment{ID: "d", TypeUTI: UTIDrawing, Data: []byte{0x0b}}); err == nil {
		t.Fatalf("expected decode error")
	}
	if links := m.Lookup("d").Find("a"); len(links) != 1 {
		t.Fatalf("expected placeholder for broken drawing")
	}
	if len(m.Missing()) != 0 {
		t.Fatalf("broken attachment should not count as missing")
	}
}

func TestResolveTableAttachment(t *testing.T) {
	testlog.Start(t)
	blob, err := protocol.Encode(tableFixture(), schema.Table)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	m := NewAttachmentMap("")
	kind, err := m.Resolve(Attachment{ID: "t", TypeUTI: UTITable, Data: blob})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if kind != AttachmentTable {
		t.Fatalf("unexpected kind %s", kind)
	}
	got, _ := renderLookup(m, "t")
	want := "<table><thead><tr><th></th></tr></thead><tr><td><div><p>cell</p></div></td></tr></table>"
	if got != want {
		t.Fatalf("unexpected html\n got %q\nwant %q", got, want)
	}
}

func renderLookup(m *AttachmentMap, id string) (string, error) {
	return markup.RenderString(m.Lookup(id))
}

func nested(m *protocol.Message) protocol.Value { return protocol.Nested(m) }

func objectIndex(i uint64) *protocol.Message {
	return protocol.NewMessage().Set(schema.FieldObjectIndex, protocol.Uint(i))
}

func dictionary(pairs ...*protocol.Message) *protocol.Message {
	d := protocol.NewMessage()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Append(schema.FieldElement, nested(protocol.NewMessage().
			Set(schema.FieldKey, nested(pairs[i])).
			Set(schema.FieldValue, nested(pairs[i+1]))))
	}
	return d
}

func uuidCustom(idx uint64) *protocol.Message {
	entry := protocol.NewMessage().
		Set(schema.FieldKey, protocol.Uint(3)).
		Set(schema.FieldValue, nested(protocol.NewMessage().Set(schema.FieldUnsignedInteger, protocol.Uint(idx))))
	c := protocol.NewMessage().Set(schema.FieldType, protocol.Uint(1)).Append(schema.FieldMapEntry, nested(entry))
	return protocol.NewMessage().Set(schema.FieldCustom, nested(c))
}

func singleSet(uuid string, obj uint64) *protocol.Message {
	array := protocol.NewMessage().Append(schema.FieldAttachments, nested(protocol.NewMessage().
		Set(schema.FieldIndex, protocol.Uint(0)).
		Set(schema.FieldUUID, protocol.Bytes([]byte(uuid)))))
	ordering := protocol.NewMessage().
		Set(schema.FieldArray, nested(array)).
		Set(schema.FieldContents, nested(dictionary(objectIndex(obj), objectIndex(obj))))
	set := protocol.NewMessage().
		Set(schema.FieldOrdering, nested(ordering)).
		Set(schema.FieldElements, nested(dictionary(objectIndex(obj), protocol.NewMessage().Set(schema.FieldUnsignedInteger, protocol.Uint(1)))))
	return protocol.NewMessage().Set(schema.FieldOrderedSet, nested(set))
}

// tableFixture is a one-cell table archive:
// 0 root, 1 columns, 2 rows, 3 cellColumns, 4 column uuid, 5 row uuid,
// 6 cell text, 7 row dictionary of the column.
func tableFixture() *protocol.Message {
	entry := func(key, obj uint64) protocol.Value {
		return nested(protocol.NewMessage().
			Set(schema.FieldKey, protocol.Uint(key)).
			Set(schema.FieldValue, nested(objectIndex(obj))))
	}
	root := protocol.NewMessage().Set(schema.FieldType, protocol.Uint(0)).
		Append(schema.FieldMapEntry, entry(0, 1)).
		Append(schema.FieldMapEntry, entry(1, 2)).
		Append(schema.FieldMapEntry, entry(2, 3))
	cell := protocol.NewMessage().
		Set(schema.FieldString, protocol.String("cell")).
		Append(schema.FieldAttributeRun, nested(protocol.NewMessage().Set(schema.FieldLength, protocol.Uint(4))))

	objects := []*protocol.Message{
		protocol.NewMessage().Set(schema.FieldCustom, nested(root)),
		singleSet("col-1", 4),
		singleSet("row-1", 5),
		protocol.NewMessage().Set(schema.FieldDictionary, nested(dictionary(objectIndex(4), objectIndex(7)))),
		uuidCustom(0),
		uuidCustom(1),
		protocol.NewMessage().Set(schema.FieldString, nested(cell)),
		protocol.NewMessage().Set(schema.FieldDictionary, nested(dictionary(objectIndex(5), objectIndex(6)))),
	}
	data := protocol.NewMessage()
	for _, o := range objects {
		data.Append(schema.FieldObject, nested(o))
	}
	for _, k := range []string{"crColumns", "crRows", "cellColumns", "UUIDIndex"} {
		data.Append(schema.FieldKeyItem, protocol.String(k))
	}
	data.Append(schema.FieldTypeItem, protocol.String("com.apple.notes.ICTable"))
	data.Append(schema.FieldTypeItem, protocol.String("com.apple.CRDT.NSUUID"))
	data.Append(schema.FieldUUIDItem, protocol.Bytes([]byte("col-1")))
	data.Append(schema.FieldUUIDItem, protocol.Bytes([]byte("row-1")))

	version := protocol.NewMessage().Set(schema.FieldData, nested(data))
	return protocol.NewMessage().Append(schema.FieldVersion, nested(version))
}
