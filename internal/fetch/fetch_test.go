package fetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/danmuck/notesctl/internal/testutil/testlog"
)

func requireCat(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
}

func TestFetchCopiesFile(t *testing.T) {
	testlog.Start(t)
	requireCat(t)
	dir := t.TempDir()
	remote := filepath.Join(dir, "remote", "NoteStore.sqlite")
	if err := os.MkdirAll(filepath.Dir(remote), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(remote, []byte("SQLite format 3\x00"), 0o644); err != nil {
		t.Fatalf("write remote: %v", err)
	}
	if err := os.WriteFile(remote+"-wal", []byte("wal"), 0o644); err != nil {
		t.Fatalf("write wal: %v", err)
	}

	local := filepath.Join(dir, "copy", "NoteStore.sqlite")
	if err := FetchDatabase(context.Background(), LocalRunner{}, remote, local); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	got, err := os.ReadFile(local)
	if err != nil || string(got) != "SQLite format 3\x00" {
		t.Fatalf("unexpected copy %q (%v)", got, err)
	}
	if wal, err := os.ReadFile(local + "-wal"); err != nil || string(wal) != "wal" {
		t.Fatalf("wal sidecar not copied: %q (%v)", wal, err)
	}
	if _, err := os.Stat(local + "-shm"); !os.IsNotExist(err) {
		t.Fatalf("absent sidecar should not be created")
	}
	entries, _ := os.ReadDir(filepath.Dir(local))
	if len(entries) != 2 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestFetchMissingRemoteLeavesNothing(t *testing.T) {
	testlog.Start(t)
	requireCat(t)
	dir := t.TempDir()
	local := filepath.Join(dir, "copy.sqlite")
	if _, err := Fetch(context.Background(), LocalRunner{}, filepath.Join(dir, "nope"), local); err == nil {
		t.Fatalf("expected error for missing remote")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, got %v", entries)
	}
}

func TestJoinCommandEscaping(t *testing.T) {
	testlog.Start(t)
	got := joinCommand("cat", []string{"/Users/a b/NoteStore.sqlite", "quote'v"})
	want := "'cat' '/Users/a b/NoteStore.sqlite' 'quote'\"'\"'v'"
	if got != want {
		t.Fatalf("unexpected joined command\nwant: %s\ngot:  %s", want, got)
	}
}

func TestSSHRunnerValidation(t *testing.T) {
	testlog.Start(t)
	r := SSHRunner{}
	if _, err := r.address(); err == nil {
		t.Fatalf("expected host validation error")
	}
	r.Host = "mac-mini"
	addr, err := r.address()
	if err != nil || addr != "mac-mini:22" {
		t.Fatalf("expected default ssh port, got %q (%v)", addr, err)
	}
	r.Port = "2222"
	if addr, _ := r.address(); addr != "mac-mini:2222" {
		t.Fatalf("unexpected address %q", addr)
	}
	if _, err := r.clientConfig(); err == nil {
		t.Fatalf("expected missing user validation error")
	}
	r.User = "dan"
	if _, err := r.clientConfig(); err == nil {
		t.Fatalf("expected missing key validation error")
	}
}
