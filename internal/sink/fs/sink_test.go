package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/notesctl/internal/sink"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
)

func TestSinkWritesFolderLayout(t *testing.T) {
	testlog.Start(t)
	root := filepath.Join(t.TempDir(), "out")
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rec := sink.Record{ID: 7, Title: "Shopping List!", Folder: "Notes", HTML: "<p>milk</p>"}
	if err := s.Write(context.Background(), rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(root, "Notes", "7-shopping-list.html"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != rec.HTML {
		t.Fatalf("unexpected content: %q", raw)
	}
}

func TestSinkKeepsFoldersInsideRoot(t *testing.T) {
	testlog.Start(t)
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, folder := range []string{"../../etc", "..", "/abs", ""} {
		p, err := s.Path(sink.Record{ID: 1, Title: "x", Folder: folder})
		if err != nil {
			t.Fatalf("path for %q: %v", folder, err)
		}
		if !isWithin(p, s.Root()) {
			t.Fatalf("folder %q escaped root: %s", folder, p)
		}
	}
	if _, err := s.resolvePath("../x.html"); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot, got %v", err)
	}
}

func TestSinkHonoursCancelledContext(t *testing.T) {
	testlog.Start(t)
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Write(ctx, sink.Record{ID: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
