package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/notesctl/internal/protocol/wire"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
)

func noteBody(text string, runs ...[]byte) []byte {
	str := wire.AppendString(nil, 2, text)
	for _, r := range runs {
		str = wire.AppendBytes(str, 5, r)
	}
	var version []byte
	version = wire.AppendUint(version, 1, 0)
	version = wire.AppendBytes(version, 3, str)
	var body []byte
	body = wire.AppendUint(body, 1, 0)
	body = wire.AppendBytes(body, 2, version)
	return body
}

func TestNoteRendersBody(t *testing.T) {
	testlog.Start(t)
	style := wire.AppendUint(nil, 1, StyleHeading)
	run1 := wire.AppendBytes(wire.AppendUint(nil, 1, 6), 2, style)
	run2 := wire.AppendUint(wire.AppendUint(nil, 1, 4), 5, 2)
	root, err := Note(noteBody("Title\nbody", run1, run2), nil)
	if err != nil {
		t.Fatalf("note: %v", err)
	}
	if got := html(t, root); got != "<div><h1>Title</h1><p><em>body</em></p></div>" {
		t.Fatalf("unexpected html %q", got)
	}
}

func TestNoteWithoutVersion(t *testing.T) {
	testlog.Start(t)
	if _, err := Note(wire.AppendUint(nil, 1, 1), nil); !errors.Is(err, ErrNoPayload) {
		t.Fatalf("expected ErrNoPayload, got %v", err)
	}
}

func TestBasicReadsTextBeforeDamage(t *testing.T) {
	testlog.Start(t)
	body := noteBody("line one\nline two")
	// a run header with a length that runs past the end
	body = append(body, 0x2a, 0x7f)
	if _, err := Note(body, nil); err == nil {
		t.Fatalf("expected decode error for damaged body")
	}
	root, ok := Basic(body)
	if !ok {
		t.Fatalf("expected basic text")
	}
	if got := html(t, root); got != "<div><p>line one</p><p>line two</p></div>" {
		t.Fatalf("unexpected html %q", got)
	}
	if _, ok := Basic([]byte{0xff}); ok {
		t.Fatalf("expected no text from garbage")
	}
}

func TestEnvelope(t *testing.T) {
	testlog.Start(t)
	doc := Document{Text: "x", Runs: []AttributeRun{{Length: 1}}}
	root, _ := Text(doc, nil)
	got := html(t, Envelope(root, DefaultCSS))
	if !strings.HasPrefix(got, "<html><head><style>") {
		t.Fatalf("unexpected envelope %q", got)
	}
	if !strings.Contains(got, ".dashitem:before") || !strings.HasSuffix(got, "<body><section><p>x</p></section></body></html>") {
		t.Fatalf("unexpected envelope %q", got)
	}
}
