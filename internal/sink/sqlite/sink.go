package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/danmuck/notesctl/internal/sink"

	_ "modernc.org/sqlite"
)

const (
	// SinkID is the canonical sink identifier for the SQLite notes table.
	SinkID = "sink.sqlite"
	// Table is the output table name.
	Table = "notes"
)

// Sink upserts notes into a SQLite database file.
type Sink struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// Open creates or opens the database at path and ensures the table exists.
func Open(ctx context.Context, path string) (*Sink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sink.sqlite: missing path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink.sqlite: open: %w", err)
	}
	// SQLite takes one writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, createTable()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink.sqlite: create table: %w", err)
	}
	stmt, err := db.PrepareContext(ctx, upsert())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sink.sqlite: prepare: %w", err)
	}
	return &Sink{db: db, stmt: stmt}, nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "SQLite",
		Description: "Notes table in a local SQLite database",
	}
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	if _, err := s.stmt.ExecContext(ctx, rec.Row()...); err != nil {
		return fmt.Errorf("sink.sqlite: upsert %d: %w", rec.ID, err)
	}
	return nil
}

// DB exposes the handle for callers that read the table back.
func (s *Sink) DB() *sql.DB {
	return s.db
}

func (s *Sink) Close() error {
	s.stmt.Close()
	return s.db.Close()
}

func createTable() string {
	defs := make([]string, 0, len(sink.Columns))
	for i, col := range sink.Columns {
		switch i {
		case 0:
			defs = append(defs, col+" INTEGER PRIMARY KEY")
		default:
			defs = append(defs, col+" TEXT")
		}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", Table, strings.Join(defs, ", "))
}

func upsert() string {
	marks := make([]string, len(sink.Columns))
	sets := make([]string, 0, len(sink.Columns)-1)
	for i, col := range sink.Columns {
		marks[i] = "?"
		if i > 0 {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		Table,
		strings.Join(sink.Columns, ", "),
		strings.Join(marks, ", "),
		sink.Columns[0],
		strings.Join(sets, ", "),
	)
}
