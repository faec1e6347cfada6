package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/notesctl/internal/config"
	"github.com/danmuck/notesctl/internal/logging"
	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/notes"
	"github.com/danmuck/notesctl/internal/sink"
	"github.com/danmuck/notesctl/internal/sinks"
	"github.com/danmuck/notesctl/internal/source"
)

// parseExportFlags loads the config file when one is named and lets any
// explicit flag override it.
func parseExportFlags(args []string) (config.ExportConfig, error) {
	fs := newFlagSet("export")
	path := fs.String("config", "", "export config file (TOML)")
	input := fs.String("input", "", "path to NoteStore.sqlite or NotesVx.storedata")
	user := fs.String("user", "", "account name used for attachment paths")
	output := fs.String("output", "out", "output directory")
	css := fs.String("css", "", "stylesheet embedded in every page")
	workers := fs.Int("workers", 0, "parallel decoders (0 = GOMAXPROCS)")
	blob := fs.Bool("blob", false, "dump decompressed bodies to <output>/blob")
	manifest := fs.String("manifest", "", "manifest path (default <output>/manifest.toml)")
	level := fs.String("log-level", "", "trace|debug|info|warn|error")
	sinkList := fs.String("sinks", "", "comma separated local sinks to enable (fs,sqlite,memory,git,pdf)")
	if err := fs.Parse(args); err != nil {
		return config.ExportConfig{}, err
	}
	if fs.NArg() > 0 && *input == "" {
		*input = fs.Arg(0)
	}

	var cfg config.ExportConfig
	if *path != "" {
		loaded, err := config.LoadExportConfig(*path)
		if err != nil {
			return config.ExportConfig{}, err
		}
		cfg = loaded
	} else {
		cfg = exportDefaults(*output)
	}

	if isSet(fs, "input") || fs.NArg() > 0 {
		cfg.Input = *input
	}
	if isSet(fs, "user") {
		cfg.User = *user
	}
	if isSet(fs, "output") && *path != "" {
		cfg.Output = *output
	}
	if isSet(fs, "css") {
		cfg.CSSPath = *css
	}
	if isSet(fs, "workers") {
		cfg.Workers = *workers
	}
	if isSet(fs, "blob") {
		cfg.Blob = *blob
	}
	if isSet(fs, "manifest") {
		cfg.Manifest = *manifest
	}
	if isSet(fs, "log-level") {
		cfg.LogLevel = *level
	}
	if isSet(fs, "sinks") {
		if err := enableLocalSinks(&cfg, *sinkList); err != nil {
			return config.ExportConfig{}, err
		}
	}
	if err := config.ValidateExportConfig(cfg); err != nil {
		return config.ExportConfig{}, err
	}
	return cfg, nil
}

// exportDefaults roots the default sink paths under output.
func exportDefaults(output string) config.ExportConfig {
	cfg := config.DefaultExportConfig()
	cfg.Output = output
	cfg.Manifest = filepath.Join(output, "manifest.toml")
	cfg.Sinks.FS.Root = filepath.Join(output, "notes")
	cfg.Sinks.SQLite.Path = filepath.Join(output, "notes.db")
	cfg.Sinks.Git.Dir = filepath.Join(output, "history")
	cfg.Sinks.PDF.Dir = filepath.Join(output, "pdf")
	return cfg
}

func enableLocalSinks(cfg *config.ExportConfig, list string) error {
	s := &cfg.Sinks
	s.FS.Enabled, s.SQLite.Enabled, s.Memory.Enabled = false, false, false
	s.Git.Enabled, s.PDF.Enabled = false, false
	for _, name := range strings.Split(list, ",") {
		switch strings.TrimSpace(name) {
		case "":
		case "fs":
			s.FS.Enabled = true
		case "sqlite":
			s.SQLite.Enabled = true
		case "memory":
			s.Memory.Enabled = true
		case "git":
			s.Git.Enabled = true
		case "pdf":
			s.PDF.Enabled = true
		default:
			return fmt.Errorf("unknown local sink %q", name)
		}
	}
	return nil
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := parseExportFlags(args)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" && !logging.ApplyLevel(cfg.LogLevel) {
		logs.Warnf("export: ignoring unknown log level %q", cfg.LogLevel)
	}
	summary, err := export(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported %d notes (%d ok, %d partial, %d failed) in %s\n",
		summary.Notes, summary.OK, summary.Partial, summary.Failed, summary.Duration().Round(time.Millisecond))
	return nil
}

// export runs one export and writes its manifest. extra sinks are added
// to the configured ones.
func export(ctx context.Context, cfg config.ExportConfig, extra ...sink.Sink) (notes.Summary, error) {
	src, err := source.Open(ctx, cfg.Input, cfg.User)
	if err != nil {
		return notes.Summary{}, err
	}
	defer src.Close()

	reg, err := sinks.Build(ctx, cfg.Sinks, extra...)
	if err != nil {
		return notes.Summary{}, err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logs.Warnf("export: close sinks: %v", err)
		}
	}()

	opts := notes.Options{
		Workers: cfg.Workers,
		User:    cfg.User,
		Exists:  fileExists,
	}
	if cfg.CSSPath != "" {
		css, err := os.ReadFile(cfg.CSSPath)
		if err != nil {
			return notes.Summary{}, fmt.Errorf("read css: %w", err)
		}
		opts.CSS = string(css)
	}
	if cfg.Blob {
		opts.BlobDir = filepath.Join(cfg.Output, "blob")
	}

	summary, err := notes.NewExporter(reg, opts).Run(ctx, src)
	if err != nil {
		return summary, err
	}

	if cfg.Manifest != "" {
		ids := make([]string, 0, reg.Len())
		for _, meta := range reg.ListMetadata() {
			ids = append(ids, meta.ID)
		}
		m := notes.Manifest{
			Source: notes.ManifestSource{
				Path:    cfg.Input,
				Layout:  string(src.Layout),
				Version: src.Version,
				User:    cfg.User,
			},
			Sinks:   ids,
			Options: notes.ManifestOpts{Workers: cfg.Workers, BlobDir: opts.BlobDir, CSSPath: cfg.CSSPath},
			Summary: summary,
		}
		if err := notes.WriteManifest(cfg.Manifest, m); err != nil {
			return summary, err
		}
		logs.Infof("export: manifest written to %s", cfg.Manifest)
	}
	return summary, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
