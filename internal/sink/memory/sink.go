package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/danmuck/notesctl/internal/sink"
)

const (
	// SinkID is the canonical sink identifier for in-process note storage.
	SinkID = "sink.memory"
)

// Sink keeps the latest rendering of each note in memory.
type Sink struct {
	mu    sync.RWMutex
	store map[int64]sink.Record
}

// New constructs an empty memory sink.
func New() *Sink {
	return &Sink{store: make(map[int64]sink.Record)}
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "Memory",
		Description: "In-process note store backing the HTTP API",
	}
}

func (s *Sink) Write(_ context.Context, rec sink.Record) error {
	s.mu.Lock()
	s.store[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *Sink) Close() error {
	return nil
}

// Get returns one note by id.
func (s *Sink) Get(id int64) (sink.Record, bool) {
	s.mu.RLock()
	rec, ok := s.store[id]
	s.mu.RUnlock()
	return rec, ok
}

// List returns all notes ordered by id, optionally filtered by folder.
func (s *Sink) List(folder string) []sink.Record {
	s.mu.RLock()
	out := make([]sink.Record, 0, len(s.store))
	for _, rec := range s.store {
		if folder != "" && rec.Folder != folder {
			continue
		}
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}
