package source

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/notesctl/internal/testutil/testlog"
	"howett.net/plist"
)

const cloudSyncTable = `CREATE TABLE ZICCLOUDSYNCINGOBJECT (
	Z_PK INTEGER PRIMARY KEY, ZIDENTIFIER TEXT, ZMERGEABLEDATA BLOB, ZTYPEUTI TEXT,
	ZMEDIA INTEGER, ZFILENAME TEXT, ZURLSTRING TEXT, ZTITLE TEXT, ZCRYPTOTAG BLOB,
	ZNOTEDATA INTEGER, ZTITLE1 TEXT, ZSNIPPET TEXT, ZCREATIONDATE REAL, ZCREATIONDATE1 REAL,
	ZMODIFICATIONDATE1 REAL, ZFOLDER INTEGER, ZACCOUNT2 INTEGER, ZTITLE2 TEXT, ZNOTE INTEGER,
	ZATTACHMENT1 INTEGER, ZNAME TEXT)`

func fixture(t *testing.T, name string, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer db.Close()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("fixture %q: %v", stmt, err)
		}
	}
	return path
}

func highSierraFixture(t *testing.T) string {
	return fixture(t, "NoteStore.sqlite",
		cloudSyncTable,
		`CREATE TABLE ZICNOTEDATA (Z_PK INTEGER PRIMARY KEY, ZNOTE INTEGER, ZDATA BLOB)`,
		// account 1, folder 2, notes 3 and 4, attachment 5 with media 6, encrypted attachment 7
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZNAME) VALUES (1, 'acct-1', 'iCloud')`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZTITLE2) VALUES (2, 'folder-1', 'Notes')`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZNOTEDATA, ZTITLE1, ZSNIPPET, ZCREATIONDATE1, ZMODIFICATIONDATE1, ZFOLDER, ZACCOUNT2)
			VALUES (3, 'note-a', 10, 'First', 'snip', 86400, 1e18, 2, 1)`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZNOTEDATA, ZTITLE1, ZFOLDER, ZACCOUNT2)
			VALUES (4, 'note-b', 11, 'Second', 2, 1)`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZTYPEUTI, ZMEDIA, ZNOTE, ZMERGEABLEDATA)
			VALUES (5, 'att-1', 'public.png', 6, 3, NULL)`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZFILENAME, ZATTACHMENT1)
			VALUES (6, 'media-1', 'photo.png', 5)`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZTYPEUTI, ZCRYPTOTAG)
			VALUES (7, 'att-locked', 'public.png', x'00')`,
		`INSERT INTO ZICNOTEDATA (Z_PK, ZNOTE, ZDATA) VALUES (10, 3, x'1f8b')`,
		`INSERT INTO ZICNOTEDATA (Z_PK, ZNOTE, ZDATA) VALUES (11, 4, x'789c')`,
	)
}

func collect(t *testing.T, s *SQLite) []NoteRecord {
	t.Helper()
	var out []NoteRecord
	if err := s.Notes(context.Background(), func(rec NoteRecord) error {
		out = append(out, rec)
		return nil
	}); err != nil {
		t.Fatalf("notes: %v", err)
	}
	return out
}

func TestHighSierraLayout(t *testing.T) {
	testlog.Start(t)
	s, err := Open(context.Background(), highSierraFixture(t), "dan")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if s.Layout != LayoutHighSierra || s.Version != VersionNoteStore {
		t.Fatalf("unexpected layout=%s version=%s", s.Layout, s.Version)
	}

	atts, err := s.Attachments(context.Background())
	if err != nil {
		t.Fatalf("attachments: %v", err)
	}
	if len(atts) != 1 || atts[0].ID != "att-1" || atts[0].MediaID != "media-1" || atts[0].FileName != "photo.png" {
		t.Fatalf("unexpected attachments %+v", atts)
	}

	notes := collect(t, s)
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	first := notes[0]
	if first.ID != 3 || first.Title != "First" || first.Folder != "Notes" || first.Account != "iCloud" || first.Identifier != "note-a" {
		t.Fatalf("unexpected note %+v", first)
	}
	if !first.Created.Equal(time.Date(2001, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created %v", first.Created)
	}
	if len(first.AttachmentIDs) != 1 || first.AttachmentPaths[0] != "/Users/dan/Library/Group Containers/group.com.apple.notes/Media/media-1/photo.png" {
		t.Fatalf("unexpected attachment paths %v", first.AttachmentPaths)
	}
	if len(first.Body) != 2 || first.Source == "" || first.User != "dan" {
		t.Fatalf("unexpected passthrough %+v", first)
	}
	if len(notes[1].AttachmentIDs) != 0 {
		t.Fatalf("second note has attachments %v", notes[1].AttachmentIDs)
	}
}

func TestJoinTableLayout(t *testing.T) {
	testlog.Start(t)
	path := fixture(t, "NoteStore.sqlite",
		cloudSyncTable,
		`CREATE TABLE ZICNOTEDATA (Z_PK INTEGER PRIMARY KEY, ZNOTE INTEGER, ZDATA BLOB)`,
		`CREATE TABLE Z_11NOTES (Z_11FOLDERS INTEGER, Z_8NOTES INTEGER)`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZTITLE2) VALUES (1, 'Work')`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZTITLE1, ZCREATIONDATE) VALUES (2, 'n2', 'Todo', 60)`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZNOTE, ZMEDIA) VALUES (3, 'att-x', 2, 4)`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZIDENTIFIER, ZNOTE) VALUES (5, 'att-y', 2)`,
		`INSERT INTO ZICCLOUDSYNCINGOBJECT (Z_PK, ZFILENAME) VALUES (4, 'scan.pdf')`,
		`INSERT INTO ZICNOTEDATA (Z_PK, ZNOTE, ZDATA) VALUES (9, 2, x'00')`,
		`INSERT INTO Z_11NOTES VALUES (1, 2)`,
	)
	s, err := Open(context.Background(), path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if s.Layout != LayoutJoinTable {
		t.Fatalf("unexpected layout %s", s.Layout)
	}
	notes := collect(t, s)
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	n := notes[0]
	if n.Title != "Todo" || n.Folder != "Work" || n.Identifier != "n2" {
		t.Fatalf("unexpected note %+v", n)
	}
	if len(n.AttachmentIDs) != 2 {
		t.Fatalf("expected 2 attachment rows, got %v", n.AttachmentIDs)
	}
	paths := map[string]string{}
	for i, id := range n.AttachmentIDs {
		paths[id] = n.AttachmentPaths[i]
	}
	if paths["att-x"] != "scan.pdf" || paths["att-y"] != "" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestLegacyLayout(t *testing.T) {
	testlog.Start(t)
	fileURL, err := plist.Marshal(map[string]any{
		"$objects": []any{"$null", "root", "/Users/dan/Library/Mail/att.pdf"},
	}, plist.XMLFormat)
	if err != nil {
		t.Fatalf("marshal plist: %v", err)
	}
	path := fixture(t, "NotesV7.storedata",
		`CREATE TABLE ZNOTE (Z_PK INTEGER PRIMARY KEY, ZDATECREATED REAL, ZDATEEDITED REAL, ZTITLE TEXT, ZFOLDER INTEGER)`,
		`CREATE TABLE ZFOLDER (Z_PK INTEGER PRIMARY KEY, ZNAME TEXT, ZPARENT INTEGER, ZACCOUNT INTEGER)`,
		`CREATE TABLE ZACCOUNT (Z_PK INTEGER PRIMARY KEY, ZEMAILADDRESS TEXT, ZACCOUNTDESCRIPTION TEXT, ZUSERNAME TEXT)`,
		`CREATE TABLE ZNOTEBODY (Z_PK INTEGER PRIMARY KEY, ZNOTE INTEGER, ZHTMLSTRING TEXT)`,
		`CREATE TABLE ZATTACHMENT (Z_PK INTEGER PRIMARY KEY, ZNOTE INTEGER, ZCONTENTID TEXT, ZFILEURL BLOB)`,
		`INSERT INTO ZACCOUNT VALUES (1, 'dan@example.com', 'Mail', 'dan')`,
		`INSERT INTO ZFOLDER VALUES (1, 'Root', NULL, 1)`,
		`INSERT INTO ZFOLDER VALUES (2, 'Inbox', 1, NULL)`,
		`INSERT INTO ZNOTE VALUES (1, 0, 120, 'Old', 2)`,
		`INSERT INTO ZNOTEBODY VALUES (1, 1, '<div>old body</div>')`,
	)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen fixture: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO ZATTACHMENT VALUES (1, 1, 'cid-1', ?)`, fileURL); err != nil {
		t.Fatalf("insert attachment: %v", err)
	}
	db.Close()

	s, err := Open(context.Background(), path, "dan")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if s.Layout != LayoutLegacy || s.Version != "V7" {
		t.Fatalf("unexpected layout=%s version=%s", s.Layout, s.Version)
	}
	atts, err := s.Attachments(context.Background())
	if err != nil || atts != nil {
		t.Fatalf("legacy attachments: %v %v", atts, err)
	}
	notes := collect(t, s)
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	n := notes[0]
	if n.HTML != "<div>old body</div>" || n.Folder != "Inbox" || n.AccountID != "dan@example.com" || n.AccountUser != "dan" {
		t.Fatalf("unexpected note %+v", n)
	}
	if !n.Created.IsZero() {
		t.Fatalf("zero timestamp should stay zero, got %v", n.Created)
	}
	if len(n.AttachmentPaths) != 1 || n.AttachmentPaths[0] != "/Users/dan/Library/Mail/att.pdf" {
		t.Fatalf("unexpected attachment paths %v", n.AttachmentPaths)
	}
}

func TestOpenRejectsUnknownName(t *testing.T) {
	testlog.Start(t)
	path := fixture(t, "random.db", `CREATE TABLE x (a INTEGER)`)
	if _, err := Open(context.Background(), path, ""); !errors.Is(err, ErrUnknownLayout) {
		t.Fatalf("expected ErrUnknownLayout, got %v", err)
	}
}

func TestNotesCallbackErrorStops(t *testing.T) {
	testlog.Start(t)
	s, err := Open(context.Background(), highSierraFixture(t), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	stop := errors.New("stop")
	calls := 0
	err = s.Notes(context.Background(), func(NoteRecord) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected stop after one call, got calls=%d err=%v", calls, err)
	}
}

func TestMacTime(t *testing.T) {
	testlog.Start(t)
	if got := MacTime(3600); !got.Equal(time.Date(2001, 1, 1, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("seconds: %v", got)
	}
	if got := MacTime(5e9); !got.Equal(time.Date(2001, 1, 1, 0, 0, 5, 0, time.UTC)) {
		t.Fatalf("nanoseconds: %v", got)
	}
	if !MacTime(0).IsZero() {
		t.Fatalf("zero should map to zero time")
	}
}
