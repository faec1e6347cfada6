package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/notesctl/internal/fetch"
	"github.com/danmuck/notesctl/internal/protocol/wire"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
	"github.com/klauspost/compress/gzip"
)

func TestDispatchRejectsUnknownCommands(t *testing.T) {
	testlog.Start(t)
	if err := dispatch(context.Background(), nil, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := dispatch(context.Background(), []string{"convert"}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestParseExportFlagsRootsDefaultsUnderOutput(t *testing.T) {
	testlog.Start(t)
	out := t.TempDir()
	cfg, err := parseExportFlags([]string{"-output", out, "-workers", "3", "-blob", "NoteStore.sqlite"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Input != "NoteStore.sqlite" || cfg.Workers != 3 || !cfg.Blob {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Sinks.FS.Root != filepath.Join(out, "notes") {
		t.Fatalf("unexpected fs root %q", cfg.Sinks.FS.Root)
	}
	if cfg.Manifest != filepath.Join(out, "manifest.toml") {
		t.Fatalf("unexpected manifest %q", cfg.Manifest)
	}
}

func TestParseExportFlagsSelectsLocalSinks(t *testing.T) {
	testlog.Start(t)
	cfg, err := parseExportFlags([]string{"-input", "db.sqlite", "-sinks", "memory,git"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Sinks.FS.Enabled || cfg.Sinks.SQLite.Enabled {
		t.Fatalf("expected default sinks disabled")
	}
	if got := strings.Join(cfg.Sinks.Enabled(), ","); got != "sink.memory,sink.git" {
		t.Fatalf("unexpected enabled sinks %q", got)
	}

	if _, err := parseExportFlags([]string{"-input", "db.sqlite", "-sinks", "kafka"}); err == nil {
		t.Fatalf("expected remote sink to be rejected on the command line")
	}
	if _, err := parseExportFlags([]string{"-output", "x"}); err == nil {
		t.Fatalf("expected missing input to fail")
	}
}

func TestParseExportFlagsOverridesConfigFile(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "export.toml")
	body := "input = \"from-file.sqlite\"\nuser = \"alice\"\nworkers = 2\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := parseExportFlags([]string{"-config", path, "-workers", "5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Input != "from-file.sqlite" || cfg.User != "alice" || cfg.Workers != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParseServeFlags(t *testing.T) {
	testlog.Start(t)
	cfg, err := parseServeFlags([]string{"-addr", "127.0.0.1:9000", "-user", "bob"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.User != "bob" || cfg.MaxBodyBytes != 32<<20 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := parseServeFlags([]string{"-tls-cert", "a.crt"}); err == nil {
		t.Fatalf("expected half tls pair to fail")
	}
	if _, err := parseServeFlags([]string{"-addr", " "}); err == nil {
		t.Fatalf("expected blank addr to fail")
	}
}

func TestParseFetchFlagsPicksRunner(t *testing.T) {
	testlog.Start(t)
	opts, err := parseFetchFlags([]string{"-remote", "/tmp/a.sqlite", "-local", "b.sqlite"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := opts.runner().(fetch.LocalRunner); !ok {
		t.Fatalf("expected local runner")
	}

	opts, err = parseFetchFlags([]string{"-host", "mac.local", "-ssh-user", "alice", "-key", "id_ed25519", "-timeout", "3s"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r, ok := opts.runner().(fetch.SSHRunner)
	if !ok {
		t.Fatalf("expected ssh runner")
	}
	if r.Host != "mac.local" || r.Timeout != 3*time.Second || opts.Remote != defaultRemoteStore {
		t.Fatalf("unexpected runner: %+v", r)
	}

	if _, err := parseFetchFlags([]string{"-host", "mac.local"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestRenderCommandWritesEnvelope(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	text := "from a file"
	run := wire.AppendUint(nil, 1, uint64(len(text)))
	str := wire.AppendBytes(wire.AppendString(nil, 2, text), 5, run)
	version := wire.AppendBytes(wire.AppendUint(nil, 1, 0), 3, str)
	note := wire.AppendBytes(wire.AppendUint(nil, 1, 0), 2, version)

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	if _, err := w.Write(note); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	input := filepath.Join(dir, "note.gz")
	if err := os.WriteFile(input, gz.Bytes(), 0o600); err != nil {
		t.Fatalf("write blob: %v", err)
	}

	var stdout bytes.Buffer
	if err := dispatch(context.Background(), []string{"render", "-input", input}, &stdout); err != nil {
		t.Fatalf("render: %v", err)
	}
	got := stdout.String()
	if !strings.Contains(got, "<html>") || !strings.Contains(got, text) {
		t.Fatalf("unexpected output %q", got)
	}

	if _, err := parseRenderFlags([]string{"-kind", "video", input}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestConfigCommandWritesAndValidatesTemplates(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	for _, kind := range []string{"export", "serve"} {
		path := filepath.Join(dir, kind+".toml")
		var stdout bytes.Buffer
		if err := dispatch(context.Background(), []string{"config", "-kind", kind, "-output", path}, &stdout); err != nil {
			t.Fatalf("%s write: %v", kind, err)
		}
		if err := dispatch(context.Background(), []string{"config", "-kind", kind, "-validate", "-input", path}, &stdout); err != nil {
			t.Fatalf("%s validate: %v", kind, err)
		}
		if err := dispatch(context.Background(), []string{"config", "-kind", kind, "-output", path}, &stdout); err == nil {
			t.Fatalf("%s: expected existing file to be kept", kind)
		}
	}
}
