// Package source reads notes and attachments out of a Notes database copy.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/danmuck/notesctl/internal/logs"
	_ "modernc.org/sqlite"
)

var (
	ErrUnknownLayout = errors.New("source: unrecognized notes database")
	ErrQueryFailed   = errors.New("source: query failed")
)

// Layout is a historical database schema.
type Layout string

const (
	LayoutLegacy     Layout = "legacy"
	LayoutHighSierra Layout = "high-sierra"
	LayoutJoinTable  Layout = "join-table"
)

const VersionNoteStore = "NoteStore"

type AttachmentRecord struct {
	ID       string
	TypeUTI  string
	Data     []byte
	MediaID  string
	FileName string
	URL      string
	Title    string
}

// NoteRecord is one note with every joined attachment row collapsed.
// Body is the compressed body blob; HTML is set instead for legacy
// databases.
type NoteRecord struct {
	ID              int64
	Identifier      string
	Title           string
	Snippet         string
	Folder          string
	Created         time.Time
	Modified        time.Time
	Body            []byte
	HTML            string
	AttachmentIDs   []string
	AttachmentPaths []string
	Account         string
	AccountID       string
	AccountUser     string
	Version         string
	User            string
	Source          string
}

// SQLite is an open, read-only Notes database.
type SQLite struct {
	Path    string
	User    string
	Layout  Layout
	Version string

	db *sql.DB
}

var legacyVersion = regexp.MustCompile(`V[1-7]`)

// Open opens path read-only and detects its layout.
func Open(ctx context.Context, path, user string) (*SQLite, error) {
	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	s := &SQLite{Path: path, User: user, db: db}
	if err := s.detect(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logs.Infof("source.Open path=%s layout=%s version=%s", path, s.Layout, s.Version)
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) detect(ctx context.Context) error {
	name := filepath.Base(s.Path)
	if loc := legacyVersion.FindStringIndex(name); loc != nil && loc[0] > 0 {
		s.Layout, s.Version = LayoutLegacy, name[loc[0]:loc[1]]
		return nil
	}
	if !strings.Contains(name, VersionNoteStore) {
		return fmt.Errorf("%w: %s", ErrUnknownLayout, name)
	}
	s.Version = VersionNoteStore
	join, err := s.hasJoinTable(ctx)
	if err != nil {
		return err
	}
	s.Layout = LayoutHighSierra
	if join {
		s.Layout = LayoutJoinTable
	}
	return nil
}

func (s *SQLite) hasJoinTable(ctx context.Context) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name LIKE '%NOTE%'`)
	if err != nil {
		return false, fmt.Errorf("%w: list tables: %v", ErrQueryFailed, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("%w: list tables: %v", ErrQueryFailed, err)
		}
		if strings.HasPrefix(name, "Z_") && strings.HasSuffix(name, "NOTES") {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Attachments lists every unencrypted attachment with a type. Legacy
// databases have none.
func (s *SQLite) Attachments(ctx context.Context) ([]AttachmentRecord, error) {
	if s.Layout == LayoutLegacy {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, attachmentQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: attachments: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []AttachmentRecord
	for rows.Next() {
		var (
			rec                              AttachmentRecord
			mediaID, fileName, urlStr, title sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Data, &rec.TypeUTI, &mediaID, &fileName, &urlStr, &title); err != nil {
			return nil, fmt.Errorf("%w: attachments: %v", ErrQueryFailed, err)
		}
		rec.MediaID, rec.FileName = mediaID.String, fileName.String
		rec.URL, rec.Title = urlStr.String, title.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: attachments: %v", ErrQueryFailed, err)
	}
	return out, nil
}

// Notes streams notes in id order. An error from fn stops the walk and is
// returned unchanged.
func (s *SQLite) Notes(ctx context.Context, fn func(NoteRecord) error) error {
	switch s.Layout {
	case LayoutLegacy:
		return s.walk(ctx, []string{legacyQuery}, s.scanLegacy, fn)
	case LayoutHighSierra:
		return s.walk(ctx, []string{highSierraQuery}, s.scanHighSierra, fn)
	default:
		return s.walk(ctx, []string{joinQuery(12, 9), joinQuery(11, 8)}, s.scanJoin, fn)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

// rowFunc scans one joined row into a note plus its optional attachment.
type rowFunc func(scanner) (NoteRecord, string, string, error)

func (s *SQLite) walk(ctx context.Context, queries []string, scan rowFunc, fn func(NoteRecord) error) error {
	rows, err := s.query(ctx, queries)
	if err != nil {
		return err
	}
	defer rows.Close()

	var (
		cur     NoteRecord
		pending bool
	)
	flush := func() error {
		if !pending {
			return nil
		}
		pending = false
		return fn(cur)
	}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, attID, attPath, err := scan(rows)
		if err != nil {
			return fmt.Errorf("%w: scan: %v", ErrQueryFailed, err)
		}
		if !pending || rec.ID != cur.ID {
			if err := flush(); err != nil {
				return err
			}
			cur, pending = rec, true
		}
		if attID != "" {
			cur.AttachmentIDs = append(cur.AttachmentIDs, attID)
			cur.AttachmentPaths = append(cur.AttachmentPaths, attPath)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return flush()
}

// query runs the first of queries the database accepts.
func (s *SQLite) query(ctx context.Context, queries []string) (*sql.Rows, error) {
	var errs []error
	for _, q := range queries {
		rows, err := s.db.QueryContext(ctx, q)
		if err == nil {
			return rows, nil
		}
		errs = append(errs, err)
		logs.Debugf("source.query layout=%s attempt=%d err=%v", s.Layout, len(errs), err)
	}
	return nil, fmt.Errorf("%w: %v", ErrQueryFailed, errors.Join(errs...))
}

func (s *SQLite) base(id int64) NoteRecord {
	return NoteRecord{ID: id, Version: s.Version, User: s.User, Source: s.Path}
}

func (s *SQLite) scanHighSierra(r scanner) (NoteRecord, string, string, error) {
	var (
		id                                int64
		body                              []byte
		fileName, attUUID, title, snippet sql.NullString
		noteID, folder, accName, accID    sql.NullString
		created, modified                 sql.NullFloat64
	)
	if err := r.Scan(&id, &body, &fileName, &attUUID, &title, &snippet, &noteID,
		&created, &modified, &folder, &accName, &accID); err != nil {
		return NoteRecord{}, "", "", err
	}
	rec := s.base(id)
	rec.Body, rec.Identifier = body, noteID.String
	rec.Title, rec.Snippet, rec.Folder = title.String, snippet.String, folder.String
	rec.Created, rec.Modified = MacTime(created.Float64), MacTime(modified.Float64)
	rec.Account, rec.AccountID = accName.String, accID.String

	var attPath string
	if attUUID.Valid {
		attPath = "Media/" + attUUID.String + "/" + fileName.String
		if s.User != "" {
			attPath = "/Users/" + s.User + "/Library/Group Containers/group.com.apple.notes/" + attPath
		}
	}
	return rec, attUUID.String, attPath, nil
}

func (s *SQLite) scanJoin(r scanner) (NoteRecord, string, string, error) {
	var (
		id                                 int64
		body                               []byte
		identifier, folder, snippet, title sql.NullString
		accName, accID, attUUID, fileName  sql.NullString
		mediaID                            sql.NullInt64
		created, modified                  sql.NullFloat64
	)
	if err := r.Scan(&id, &body, &identifier, &folder, &created, &modified, &snippet, &title,
		&accID, &accName, &mediaID, &attUUID, &fileName); err != nil {
		return NoteRecord{}, "", "", err
	}
	rec := s.base(id)
	rec.Body, rec.Identifier = body, identifier.String
	rec.Title, rec.Snippet, rec.Folder = title.String, snippet.String, folder.String
	rec.Created, rec.Modified = MacTime(created.Float64), MacTime(modified.Float64)
	rec.Account, rec.AccountID = accName.String, accID.String

	var attPath string
	if mediaID.Valid {
		attPath = fileName.String
	}
	return rec, attUUID.String, attPath, nil
}

func (s *SQLite) scanLegacy(r scanner) (NoteRecord, string, string, error) {
	var (
		id                            int64
		created, edited               sql.NullFloat64
		title, folder, email, accDesc sql.NullString
		username, html, attID         sql.NullString
		fileURL                       []byte
	)
	if err := r.Scan(&id, &created, &edited, &title, &folder, &email, &accDesc, &username,
		&html, &attID, &fileURL); err != nil {
		return NoteRecord{}, "", "", err
	}
	rec := s.base(id)
	rec.Title, rec.Folder, rec.HTML = title.String, folder.String, html.String
	rec.Created, rec.Modified = MacTime(created.Float64), MacTime(edited.Float64)
	rec.Account, rec.AccountID, rec.AccountUser = accDesc.String, email.String, username.String

	var attPath string
	if len(fileURL) > 0 {
		p, err := PlistPath(fileURL)
		if err != nil {
			logs.Warnf("source.scanLegacy note=%d attachment=%s err=%v", id, attID.String, err)
		}
		attPath = p
	}
	return rec, attID.String, attPath, nil
}
