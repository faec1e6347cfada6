package schema

import (
	"testing"

	"github.com/danmuck/notesctl/internal/protocol"
	"github.com/danmuck/notesctl/internal/protocol/wire"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
)

func TestLoadBearingTags(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		schema *protocol.Schema
		name   string
		tag    uint64
	}{
		{String, FieldString, 2},
		{String, FieldAttributeRun, 5},
		{attributeRun, FieldLength, 1},
		{attributeRun, FieldParagraph, 2},
		{attributeRun, FieldFontHints, 5},
		{attributeRun, FieldUnderline, 6},
		{attributeRun, FieldStrikethrough, 7},
		{attributeRun, FieldLink, 9},
		{attributeRun, FieldAttachment, 12},
		{paragraphStyle, FieldIndent, 4},
		{drawingData, FieldInks, 4},
		{drawingData, FieldStrokes, 5},
		{drawingData, FieldBounds, 8},
		{stroke, FieldTransform, 10},
		{OID, FieldObjectIndex, 6},
		{Object, FieldOrderedSet, 16},
		{Object, FieldCustom, 13},
		{tableData, FieldUUIDItem, 6},
	}
	for _, tc := range cases {
		tag, _, ok := tc.schema.Field(tc.name)
		if !ok || tag != tc.tag {
			t.Fatalf("%s.%s: tag=%d ok=%v want %d", tc.schema.Name(), tc.name, tag, ok, tc.tag)
		}
	}
}

func TestDocumentDataEnvelope(t *testing.T) {
	testlog.Start(t)
	var str []byte
	str = wire.AppendString(str, 2, "hi")
	run := wire.AppendUint(nil, 1, 2)
	str = wire.AppendBytes(str, 5, run)
	version := wire.AppendBytes(nil, 3, str)
	blob := wire.AppendBytes(nil, 2, version)

	msg, err := protocol.Decode(blob, Document)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := Data(msg)
	if !ok {
		t.Fatalf("expected data envelope")
	}
	if text, _ := data.Text(FieldString); text != "hi" {
		t.Fatalf("unexpected text %q", text)
	}
	runs := data.Messages(FieldAttributeRun)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if n, _ := runs[0].Uint(FieldLength); n != 2 {
		t.Fatalf("unexpected run length %d", n)
	}
}

func TestDataWithoutVersion(t *testing.T) {
	testlog.Start(t)
	if _, ok := Data(protocol.NewMessage()); ok {
		t.Fatalf("expected no data for empty message")
	}
}
