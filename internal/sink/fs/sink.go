package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/notesctl/internal/sink"
)

const (
	// SinkID is the canonical sink identifier for per-note HTML files.
	SinkID = "sink.fs"
)

var ErrOutsideRoot = errors.New("sink.fs: path escapes root")

// Sink writes each note to <root>/<folder>/<id>-<slug>.html.
type Sink struct {
	root string
}

// New constructs a file sink rooted at root, creating it if needed.
func New(root string) (*Sink, error) {
	if strings.TrimSpace(root) == "" {
		root = filepath.Join("out", "notes")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sink.fs: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("sink.fs: create root: %w", err)
	}
	return &Sink{root: abs}, nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "Files",
		Description: "One HTML file per note, grouped by folder",
	}
}

// Root returns the absolute output directory.
func (s *Sink) Root() string {
	return s.root
}

// Path returns where rec is written.
func (s *Sink) Path(rec sink.Record) (string, error) {
	name := fmt.Sprintf("%d-%s.html", rec.ID, rec.Slug())
	return s.resolvePath(filepath.Join(folderDir(rec.Folder), name))
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.Path(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("sink.fs: mkdir: %w", err)
	}
	if err := os.WriteFile(p, []byte(rec.HTML), 0o644); err != nil {
		return fmt.Errorf("sink.fs: write %s: %w", p, err)
	}
	return nil
}

func (s *Sink) Close() error {
	return nil
}

// folderDir keeps folder names as a single path element.
func folderDir(folder string) string {
	folder = strings.TrimSpace(folder)
	folder = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, folder)
	if folder == "" || folder == "." || folder == ".." {
		return "_"
	}
	return folder
}

func (s *Sink) resolvePath(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: absolute path %q", ErrOutsideRoot, rel)
	}
	p := filepath.Clean(filepath.Join(s.root, rel))
	if !isWithin(p, s.root) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	return p, nil
}

func isWithin(path string, root string) bool {
	p := filepath.Clean(path)
	r := filepath.Clean(root)
	if p == r {
		return true
	}
	return strings.HasPrefix(p, r+string(os.PathSeparator))
}
