package meili

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/notesctl/internal/sink"
	meili "github.com/meilisearch/meilisearch-go"
)

const (
	// SinkID is the canonical sink identifier for the search index.
	SinkID = "sink.meili"
)

// Document is the indexed shape of a note.
type Document struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Folder   string `json:"folder"`
	Snippet  string `json:"snippet"`
	Text     string `json:"text"`
	Account  string `json:"account"`
	Modified int64  `json:"modified"`
	Status   string `json:"status"`
}

// DocumentFromRecord maps a record to its index document.
func DocumentFromRecord(rec sink.Record) Document {
	doc := Document{
		ID:      rec.ID,
		Title:   rec.Title,
		Folder:  rec.Folder,
		Snippet: rec.Snippet,
		Text:    rec.Text,
		Account: rec.Account,
		Status:  rec.Status,
	}
	if !rec.Modified.IsZero() {
		doc.Modified = rec.Modified.Unix()
	}
	return doc
}

// Sink adds each note to a Meilisearch index.
type Sink struct {
	client meili.ServiceManager
	index  string
}

// New creates a client for url and makes a best effort to create and
// configure the index.
func New(url, apiKey, index string) *Sink {
	if strings.TrimSpace(index) == "" {
		index = "notes"
	}
	return &Sink{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		index:  index,
	}
}

// Configure creates the index and sets filterable and searchable
// attributes.
func (s *Sink) Configure(ctx context.Context) error {
	if _, err := s.client.CreateIndexWithContext(ctx, &meili.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	}); err != nil {
		return fmt.Errorf("sink.meili: create index %s: %w", s.index, err)
	}
	idx := s.client.Index(s.index)
	filterable := []interface{}{"folder", "account", "status"}
	if _, err := idx.UpdateFilterableAttributesWithContext(ctx, &filterable); err != nil {
		return fmt.Errorf("sink.meili: filterable attrs: %w", err)
	}
	searchable := []string{"title", "text", "snippet"}
	if _, err := idx.UpdateSearchableAttributesWithContext(ctx, &searchable); err != nil {
		return fmt.Errorf("sink.meili: searchable attrs: %w", err)
	}
	return nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "Meilisearch",
		Description: "Full text index of note titles and bodies",
	}
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	docs := []Document{DocumentFromRecord(rec)}
	if _, err := s.client.Index(s.index).AddDocumentsWithContext(ctx, docs, nil); err != nil {
		return fmt.Errorf("sink.meili: index %d: %w", rec.ID, err)
	}
	return nil
}

func (s *Sink) Close() error {
	return nil
}
