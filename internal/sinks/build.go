// Package sinks opens the sinks named by an export configuration.
package sinks

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/notesctl/internal/config"
	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/sink"
	fssink "github.com/danmuck/notesctl/internal/sink/fs"
	gitsink "github.com/danmuck/notesctl/internal/sink/git"
	kafkasink "github.com/danmuck/notesctl/internal/sink/kafka"
	meilisink "github.com/danmuck/notesctl/internal/sink/meili"
	"github.com/danmuck/notesctl/internal/sink/memory"
	miniosink "github.com/danmuck/notesctl/internal/sink/minio"
	mysqlsink "github.com/danmuck/notesctl/internal/sink/mysql"
	pdfsink "github.com/danmuck/notesctl/internal/sink/pdf"
	pgsink "github.com/danmuck/notesctl/internal/sink/postgres"
	redissink "github.com/danmuck/notesctl/internal/sink/redis"
	sqlitesink "github.com/danmuck/notesctl/internal/sink/sqlite"
)

// Build opens every enabled sink and registers it together with extra.
// Any failure closes what was already opened.
func Build(ctx context.Context, cfg config.SinksConfig, extra ...sink.Sink) (*sink.Registry, error) {
	reg := sink.NewRegistry()
	fail := func(err error) (*sink.Registry, error) {
		return nil, errors.Join(err, reg.Close())
	}
	add := func(s sink.Sink) error {
		if err := reg.Register(s); err != nil {
			return errors.Join(err, s.Close())
		}
		logs.Infof("sinks.Build open sink=%s", s.Metadata().ID)
		return nil
	}

	for _, s := range extra {
		if err := add(s); err != nil {
			return fail(err)
		}
	}
	for _, open := range openers(ctx, cfg) {
		if !open.enabled {
			continue
		}
		s, err := open.fn()
		if err != nil {
			return fail(fmt.Errorf("open %s: %w", open.id, err))
		}
		if err := add(s); err != nil {
			return fail(err)
		}
	}
	return reg, nil
}

type opener struct {
	id      string
	enabled bool
	fn      func() (sink.Sink, error)
}

func openers(ctx context.Context, cfg config.SinksConfig) []opener {
	return []opener{
		{fssink.SinkID, cfg.FS.Enabled, func() (sink.Sink, error) {
			return fssink.New(cfg.FS.Root)
		}},
		{memory.SinkID, cfg.Memory.Enabled, func() (sink.Sink, error) {
			return memory.New(), nil
		}},
		{sqlitesink.SinkID, cfg.SQLite.Enabled, func() (sink.Sink, error) {
			return sqlitesink.Open(ctx, cfg.SQLite.Path)
		}},
		{pgsink.SinkID, cfg.Postgres.Enabled, func() (sink.Sink, error) {
			return pgsink.Open(ctx, cfg.Postgres.URL, cfg.Postgres.Table)
		}},
		{mysqlsink.SinkID, cfg.MySQL.Enabled, func() (sink.Sink, error) {
			return mysqlsink.Open(ctx, cfg.MySQL.DSN)
		}},
		{miniosink.SinkID, cfg.Minio.Enabled, func() (sink.Sink, error) {
			s, err := miniosink.New(miniosink.Options{
				Endpoint:  cfg.Minio.Endpoint,
				AccessKey: cfg.Minio.AccessKey,
				SecretKey: cfg.Minio.SecretKey,
				Bucket:    cfg.Minio.Bucket,
				Prefix:    cfg.Minio.Prefix,
				Region:    cfg.Minio.Region,
				Secure:    cfg.Minio.Secure,
			})
			if err != nil {
				return nil, err
			}
			return s, s.EnsureBucket(ctx)
		}},
		{meilisink.SinkID, cfg.Meili.Enabled, func() (sink.Sink, error) {
			s := meilisink.New(cfg.Meili.URL, cfg.Meili.APIKey, cfg.Meili.Index)
			if err := s.Configure(ctx); err != nil {
				logs.Warnf("sinks.Build sink=%s configure err=%v", meilisink.SinkID, err)
			}
			return s, nil
		}},
		{redissink.SinkID, cfg.Redis.Enabled, func() (sink.Sink, error) {
			return redissink.Dial(ctx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL)
		}},
		{kafkasink.SinkID, cfg.Kafka.Enabled, func() (sink.Sink, error) {
			return kafkasink.Dial(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		}},
		{gitsink.SinkID, cfg.Git.Enabled, func() (sink.Sink, error) {
			return gitsink.Open(cfg.Git.Dir, cfg.Git.Author, cfg.Git.Email)
		}},
		{pdfsink.SinkID, cfg.PDF.Enabled, func() (sink.Sink, error) {
			return pdfsink.Open(cfg.PDF.Dir, cfg.PDF.Timeout)
		}},
	}
}
