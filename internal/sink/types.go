package sink

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Metadata is the identity and display data of a sink.
type Metadata struct {
	ID          string
	Name        string
	Description string
}

// Status of a rendered note.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Record is one rendered note plus the metadata passed through from the
// source.
type Record struct {
	ID              int64     `json:"id"`
	Identifier      string    `json:"identifier,omitempty"`
	Title           string    `json:"title"`
	Snippet         string    `json:"snippet,omitempty"`
	Folder          string    `json:"folder,omitempty"`
	Created         time.Time `json:"created"`
	Modified        time.Time `json:"modified"`
	HTML            string    `json:"html"`
	Text            string    `json:"text,omitempty"`
	AttachmentIDs   []string  `json:"attachment_ids,omitempty"`
	AttachmentPaths []string  `json:"attachment_paths,omitempty"`
	Account         string    `json:"account,omitempty"`
	AccountID       string    `json:"account_id,omitempty"`
	AccountUser     string    `json:"account_user,omitempty"`
	Version         string    `json:"version,omitempty"`
	User            string    `json:"user,omitempty"`
	Source          string    `json:"source,omitempty"`
	Status          string    `json:"status"`
}

// Key is the stable string id used by keyed stores.
func (r Record) Key() string {
	return fmt.Sprintf("%d", r.ID)
}

// Slug is a filesystem and URL safe form of the title.
func (r Record) Slug() string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(r.Title) {
		switch {
		case c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)):
			b.WriteRune(c)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 48 {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "note"
	}
	return slug
}

// Sink receives rendered notes. Write may be called from several
// goroutines unless the exporter is told otherwise.
type Sink interface {
	Metadata() Metadata
	Write(ctx context.Context, rec Record) error
	Close() error
}
