package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/notesctl/internal/sink"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	// SinkID is the canonical sink identifier for the git history sink.
	SinkID = "sink.git"
)

// Sink writes <id>.html into a repository and commits once per changed
// note. Writes are serialized.
type Sink struct {
	mu     sync.Mutex
	dir    string
	author string
	email  string
	repo   *git.Repository
}

// Open opens the repository at dir, initializing it on a main branch when
// absent.
func Open(dir, author, email string) (*Sink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("sink.git: missing directory")
	}
	if author == "" {
		author = "notesctl"
	}
	if email == "" {
		email = "notesctl@localhost"
	}
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sink.git: create dir: %w", err)
		}
		repo, err = git.PlainInit(dir, false)
		if err == nil {
			err = repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main")))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("sink.git: open repo: %w", err)
	}
	return &Sink{dir: dir, author: author, email: email, repo: repo}, nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "Git",
		Description: "Commit history of exported notes",
	}
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	name := rec.Key() + ".html"
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(rec.HTML), 0o644); err != nil {
		return fmt.Errorf("sink.git: write %s: %w", name, err)
	}
	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("sink.git: open worktree: %w", err)
	}
	if _, err := wt.Add(name); err != nil {
		return fmt.Errorf("sink.git: add %s: %w", name, err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("sink.git: status: %w", err)
	}
	if status.IsClean() {
		return nil
	}
	when := rec.Modified
	if when.IsZero() {
		when = time.Now()
	}
	_, err = wt.Commit(commitMessage(rec), &git.CommitOptions{
		Author: &object.Signature{Name: s.author, Email: s.email, When: when},
	})
	if err != nil {
		return fmt.Errorf("sink.git: commit %s: %w", name, err)
	}
	return nil
}

// Repository exposes the underlying repository for history queries.
func (s *Sink) Repository() *git.Repository {
	return s.repo
}

func (s *Sink) Close() error {
	return nil
}

func commitMessage(rec sink.Record) string {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = "untitled"
	}
	msg := fmt.Sprintf("Export note %d: %s", rec.ID, title)
	if rec.Folder != "" {
		msg += "\n\nFolder: " + rec.Folder
	}
	return msg
}
