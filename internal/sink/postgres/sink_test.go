package postgres

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/danmuck/notesctl/internal/sink"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
)

func TestUpsertStatement(t *testing.T) {
	testlog.Start(t)
	got := Upsert("notes")
	if !strings.Contains(got, "$15)") {
		t.Fatalf("expected 15 parameters: %s", got)
	}
	if !strings.Contains(got, "ON CONFLICT (apple_id) DO UPDATE SET apple_title = EXCLUDED.apple_title") {
		t.Fatalf("unexpected conflict clause: %s", got)
	}
	if strings.Contains(got, "apple_id = EXCLUDED.apple_id") {
		t.Fatalf("primary key must not be updated: %s", got)
	}
	if len(sink.Record{}.Row()) != len(sink.Columns) {
		t.Fatalf("row and columns disagree")
	}
}

func TestOpenRejectsBadTable(t *testing.T) {
	testlog.Start(t)
	for _, table := range []string{"Notes", "1notes", "notes;drop", "a-b"} {
		if _, err := Open(context.Background(), "postgres://unused", table); err == nil {
			t.Fatalf("expected error for table %q", table)
		}
	}
}

func TestSinkAgainstDatabase(t *testing.T) {
	testlog.Start(t)
	url := os.Getenv("NOTESCTL_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("NOTESCTL_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, url, "notes_test")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	defer s.db.ExecContext(ctx, "DROP TABLE notes_test")
	if err := s.Write(ctx, sink.Record{ID: 1, Title: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Write(ctx, sink.Record{ID: 1, Title: "b"}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	var title string
	if err := s.db.QueryRowContext(ctx, "SELECT apple_title FROM notes_test WHERE apple_id = 1").Scan(&title); err != nil {
		t.Fatalf("select: %v", err)
	}
	if title != "b" {
		t.Fatalf("expected upsert to replace title, got %q", title)
	}
}
