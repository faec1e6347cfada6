package minio

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/notesctl/internal/sink"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// SinkID is the canonical sink identifier for object storage.
	SinkID = "sink.minio"
)

// Options configures the object store connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	Secure    bool
}

// Sink uploads each note as <prefix><id>.html.
type Sink struct {
	client *minio.Client
	bucket string
	prefix string
}

// New builds a client. It does not contact the server; see EnsureBucket.
func New(opts Options) (*Sink, error) {
	if strings.TrimSpace(opts.Endpoint) == "" || strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("sink.minio: endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.Secure,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("sink.minio: client: %w", err)
	}
	return &Sink{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Sink) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("sink.minio: bucket exists %s: %w", s.bucket, err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("sink.minio: make bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "Object store",
		Description: "HTML objects in an S3 compatible bucket",
	}
}

// ObjectName returns the key rec is stored under.
func (s *Sink) ObjectName(rec sink.Record) string {
	return s.prefix + rec.Key() + ".html"
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	body := []byte(rec.HTML)
	_, err := s.client.PutObject(ctx, s.bucket, s.ObjectName(rec), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/html; charset=utf-8",
		UserMetadata: map[string]string{
			"note-title":  rec.Title,
			"note-folder": rec.Folder,
			"note-status": rec.Status,
		},
	})
	if err != nil {
		return fmt.Errorf("sink.minio: put %s: %w", s.ObjectName(rec), err)
	}
	return nil
}

func (s *Sink) Close() error {
	return nil
}
