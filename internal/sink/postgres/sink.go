package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/notesctl/internal/sink"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	// SinkID is the canonical sink identifier for the Postgres notes table.
	SinkID = "sink.postgres"
)

// Sink upserts notes into a Postgres table.
type Sink struct {
	db    *sql.DB
	table string
}

// Open connects with the pgx stdlib driver and ensures the table exists.
func Open(ctx context.Context, databaseURL, table string) (*Sink, error) {
	if strings.TrimSpace(table) == "" {
		table = "notes"
	}
	if !isIdent(table) {
		return nil, fmt.Errorf("sink.postgres: invalid table name %q", table)
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("sink.postgres: open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(8)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink.postgres: ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, CreateTable(table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink.postgres: create table: %w", err)
	}
	return &Sink{db: db, table: table}, nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "Postgres",
		Description: "Notes table in a Postgres database",
	}
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	if _, err := s.db.ExecContext(ctx, Upsert(s.table), rec.Row()...); err != nil {
		return fmt.Errorf("sink.postgres: upsert %d: %w", rec.ID, err)
	}
	return nil
}

func (s *Sink) Close() error {
	return s.db.Close()
}

// CreateTable returns the DDL for the notes table.
func CreateTable(table string) string {
	defs := make([]string, 0, len(sink.Columns))
	for i, col := range sink.Columns {
		switch i {
		case 0:
			defs = append(defs, col+" BIGINT PRIMARY KEY")
		default:
			defs = append(defs, col+" TEXT NOT NULL DEFAULT ''")
		}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
}

// Upsert returns the insert statement with positional parameters.
func Upsert(table string) string {
	marks := make([]string, len(sink.Columns))
	sets := make([]string, 0, len(sink.Columns)-1)
	for i, col := range sink.Columns {
		marks[i] = fmt.Sprintf("$%d", i+1)
		if i > 0 {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(sink.Columns, ", "),
		strings.Join(marks, ", "),
		sink.Columns[0],
		strings.Join(sets, ", "),
	)
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
