package render

import (
	"errors"
	"testing"

	"github.com/danmuck/notesctl/internal/archive"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
)

func TestTableLayout(t *testing.T) {
	testlog.Start(t)
	c1, c2 := archive.StringKey("c1"), archive.StringKey("c2")
	r1, r2 := archive.StringKey("r1"), archive.StringKey("r2")
	g := Grid{
		Columns: []archive.Key{c1, c2},
		Rows:    []archive.Key{r1, r2},
		Cells: map[archive.Key]map[archive.Key]Document{
			c1: {r1: {Text: "a", Runs: []AttributeRun{{Length: 1}}}},
			c2: {r2: {Text: "b", Runs: []AttributeRun{{Length: 1, FontHints: 1}}}},
		},
	}
	root, err := Table(g)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	want := "<table><thead><tr><th></th><th></th></tr></thead>" +
		"<tr><td><div><p>a</p></div></td><td></td></tr>" +
		"<tr><td></td><td><div><p><b>b</b></p></div></td></tr></table>"
	if got := html(t, root); got != want {
		t.Fatalf("unexpected html\n got %q\nwant %q", got, want)
	}
}

func TestTableBadCellRendersEmpty(t *testing.T) {
	testlog.Start(t)
	c, r1, r2 := archive.StringKey("c"), archive.StringKey("r1"), archive.StringKey("r2")
	g := Grid{
		Columns: []archive.Key{c},
		Rows:    []archive.Key{r1, r2},
		Cells: map[archive.Key]map[archive.Key]Document{c: {
			r1: {Text: "abc"},
			r2: {Text: "ok", Runs: []AttributeRun{{Length: 2}}},
		}},
	}
	root, err := Table(g)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	want := "<table><thead><tr><th></th></tr></thead>" +
		"<tr><td></td></tr>" +
		"<tr><td><div><p>ok</p></div></td></tr></table>"
	if got := html(t, root); got != want {
		t.Fatalf("unexpected html\n got %q\nwant %q", got, want)
	}
}

func TestGridFromValueRejectsNonMap(t *testing.T) {
	testlog.Start(t)
	if _, err := GridFromValue(archive.StringValue("x")); !errors.Is(err, archive.ErrMalformedArchive) {
		t.Fatalf("expected ErrMalformedArchive, got %v", err)
	}
	m := archive.NewMap()
	m.Put(archive.StringKey("crColumns"), archive.StringValue("oops"))
	if _, err := GridFromValue(archive.MapValue(m)); !errors.Is(err, archive.ErrMalformedArchive) {
		t.Fatalf("expected ErrMalformedArchive for non-list columns, got %v", err)
	}
}
