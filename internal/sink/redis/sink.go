package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danmuck/notesctl/internal/sink"
	"github.com/redis/go-redis/v9"
)

const (
	// SinkID is the canonical sink identifier for the redis note cache.
	SinkID = "sink.redis"
)

// Sink stores each note as JSON under <prefix><id> and keeps a sorted
// index of ids by modification time under <prefix>index.
type Sink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Dial parses redisURL and checks the connection.
func Dial(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*Sink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("sink.redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("sink.redis: connect: %w", err)
	}
	return NewWithClient(client, prefix, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Sink {
	if prefix == "" {
		prefix = "notes:"
	}
	return &Sink{client: client, prefix: prefix, ttl: ttl}
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "Redis",
		Description: "JSON note cache with a modification-time index",
	}
}

func (s *Sink) key(id string) string {
	return s.prefix + id
}

func (s *Sink) indexKey() string {
	return s.prefix + "index"
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink.redis: marshal %d: %w", rec.ID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(rec.Key()), b, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(rec.Modified.Unix()),
		Member: rec.Key(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sink.redis: store %d: %w", rec.ID, err)
	}
	return nil
}

// Get loads one note back.
func (s *Sink) Get(ctx context.Context, id int64) (sink.Record, error) {
	var rec sink.Record
	raw, err := s.client.Get(ctx, s.key(fmt.Sprintf("%d", id))).Bytes()
	if err != nil {
		return rec, fmt.Errorf("sink.redis: get %d: %w", id, err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("sink.redis: decode %d: %w", id, err)
	}
	return rec, nil
}

// Recent returns up to n note ids, most recently modified first.
func (s *Sink) Recent(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.client.ZRevRange(ctx, s.indexKey(), 0, n-1).Result()
}

func (s *Sink) Close() error {
	return s.client.Close()
}
