package main

import (
	"context"
	"io"

	"github.com/danmuck/notesctl/internal/config"
	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/observability"
	"github.com/danmuck/notesctl/internal/server"
	"github.com/danmuck/notesctl/internal/sink/memory"
)

func parseServeFlags(args []string) (config.ServeConfig, error) {
	fs := newFlagSet("serve")
	path := fs.String("config", "", "serve config file (TOML)")
	addr := fs.String("addr", ":8088", "listen address")
	user := fs.String("user", "", "account name used for attachment paths")
	exportPath := fs.String("export", "", "export config run into the note store at startup")
	maxBody := fs.Int64("max-body", 32<<20, "largest accepted request body in bytes")
	token := fs.String("token", "", "bearer token required on /v1 routes")
	certFile := fs.String("tls-cert", "", "TLS certificate file")
	keyFile := fs.String("tls-key", "", "TLS key file")
	if err := fs.Parse(args); err != nil {
		return config.ServeConfig{}, err
	}

	cfg := config.ServeConfig{
		Addr:         *addr,
		User:         *user,
		Export:       *exportPath,
		MaxBodyBytes: *maxBody,
		Token:        *token,
		TLSCert:      *certFile,
		TLSKey:       *keyFile,
	}
	if *path != "" {
		loaded, err := config.LoadServeConfig(*path)
		if err != nil {
			return config.ServeConfig{}, err
		}
		cfg = loaded
		if isSet(fs, "addr") {
			cfg.Addr = *addr
		}
		if isSet(fs, "user") {
			cfg.User = *user
		}
		if isSet(fs, "export") {
			cfg.Export = *exportPath
		}
		if isSet(fs, "max-body") {
			cfg.MaxBodyBytes = *maxBody
		}
		if isSet(fs, "token") {
			cfg.Token = *token
		}
		if isSet(fs, "tls-cert") {
			cfg.TLSCert = *certFile
		}
		if isSet(fs, "tls-key") {
			cfg.TLSKey = *keyFile
		}
	}
	if err := config.ValidateServeConfig(cfg); err != nil {
		return config.ServeConfig{}, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, args []string, _ io.Writer) error {
	cfg, err := parseServeFlags(args)
	if err != nil {
		return err
	}

	store := memory.New()
	if cfg.Export != "" {
		exportCfg, err := config.LoadExportConfig(cfg.Export)
		if err != nil {
			return err
		}
		// The store is handed in directly; a second memory sink would
		// collide on its id.
		exportCfg.Sinks.Memory.Enabled = false
		summary, err := export(ctx, exportCfg, store)
		if err != nil {
			return err
		}
		logs.Infof("serve: loaded %d notes from %s", summary.Notes, exportCfg.Input)
	}

	srv := server.New(cfg, store, observability.InitLogger(server.ServiceName))
	logs.Infof("serve: listening on %s", cfg.Addr)
	return srv.Serve(ctx)
}
