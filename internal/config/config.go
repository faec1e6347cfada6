package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"
)

// ExportConfig drives one export run.
type ExportConfig struct {
	Input    string
	User     string
	Output   string
	CSSPath  string
	Workers  int
	Blob     bool
	Manifest string
	LogLevel string
	Sinks    SinksConfig
}

type SinksConfig struct {
	FS       FSSink       `toml:"fs"`
	Memory   MemorySink   `toml:"memory"`
	SQLite   SQLiteSink   `toml:"sqlite"`
	Postgres PostgresSink `toml:"postgres"`
	MySQL    MySQLSink    `toml:"mysql"`
	Minio    MinioSink    `toml:"minio"`
	Meili    MeiliSink    `toml:"meili"`
	Redis    RedisSink    `toml:"redis"`
	Kafka    KafkaSink    `toml:"kafka"`
	Git      GitSink      `toml:"git"`
	PDF      PDFSink      `toml:"pdf"`
}

type FSSink struct {
	Enabled bool   `toml:"enabled"`
	Root    string `toml:"root"`
}

type MemorySink struct {
	Enabled bool `toml:"enabled"`
}

type SQLiteSink struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type PostgresSink struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Table   string `toml:"table"`
}

type MySQLSink struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

type MinioSink struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	Secure    bool   `toml:"secure"`
}

type MeiliSink struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
	Index   string `toml:"index"`
}

type RedisSink struct {
	Enabled bool          `toml:"enabled"`
	URL     string        `toml:"url"`
	Prefix  string        `toml:"prefix"`
	TTL     time.Duration `toml:"-"`
}

type KafkaSink struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type GitSink struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	Author  string `toml:"author"`
	Email   string `toml:"email"`
}

type PDFSink struct {
	Enabled bool          `toml:"enabled"`
	Dir     string        `toml:"dir"`
	Timeout time.Duration `toml:"-"`
}

// Enabled lists the ids of the enabled sinks in a fixed order.
func (s SinksConfig) Enabled() []string {
	var out []string
	add := func(on bool, id string) {
		if on {
			out = append(out, id)
		}
	}
	add(s.FS.Enabled, "sink.fs")
	add(s.Memory.Enabled, "sink.memory")
	add(s.SQLite.Enabled, "sink.sqlite")
	add(s.Postgres.Enabled, "sink.postgres")
	add(s.MySQL.Enabled, "sink.mysql")
	add(s.Minio.Enabled, "sink.minio")
	add(s.Meili.Enabled, "sink.meili")
	add(s.Redis.Enabled, "sink.redis")
	add(s.Kafka.Enabled, "sink.kafka")
	add(s.Git.Enabled, "sink.git")
	add(s.PDF.Enabled, "sink.pdf")
	return out
}

// DefaultExportConfig writes HTML files and a SQLite table under ./out.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Output:   "out",
		Manifest: filepath.Join("out", "manifest.toml"),
		LogLevel: "info",
		Sinks: SinksConfig{
			FS:       FSSink{Enabled: true, Root: filepath.Join("out", "notes")},
			SQLite:   SQLiteSink{Enabled: true, Path: filepath.Join("out", "notes.db")},
			Postgres: PostgresSink{Table: "notes"},
			Minio:    MinioSink{Prefix: "notes/", Region: "us-east-1"},
			Meili:    MeiliSink{Index: "notes"},
			Redis:    RedisSink{Prefix: "notes:"},
			Kafka:    KafkaSink{Topic: "notes"},
			Git:      GitSink{Dir: filepath.Join("out", "history"), Author: "notesctl", Email: "notesctl@localhost"},
			PDF:      PDFSink{Dir: filepath.Join("out", "pdf"), Timeout: 30 * time.Second},
		},
	}
}

type fileExport struct {
	Input    string      `toml:"input"`
	User     string      `toml:"user"`
	Output   string      `toml:"output"`
	CSSPath  string      `toml:"css_path"`
	Workers  int         `toml:"workers"`
	Blob     bool        `toml:"blob"`
	Manifest string      `toml:"manifest"`
	LogLevel string      `toml:"log_level"`
	Sinks    SinksConfig `toml:"sinks"`
}

type fileDurations struct {
	Sinks struct {
		Redis struct {
			TTL string `toml:"ttl"`
		} `toml:"redis"`
		PDF struct {
			Timeout string `toml:"timeout"`
		} `toml:"pdf"`
	} `toml:"sinks"`
}

// LoadExportConfig overlays the file at path onto DefaultExportConfig.
// Keys absent from the file keep their defaults.
func LoadExportConfig(path string) (ExportConfig, error) {
	cfg := DefaultExportConfig()

	raw := fileExport{Sinks: cfg.Sinks}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ExportConfig{}, fmt.Errorf("load export config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		known := map[string]bool{"sinks.redis.ttl": true, "sinks.pdf.timeout": true}
		for _, key := range undecoded {
			if !known[key.String()] {
				return ExportConfig{}, fmt.Errorf("load export config: unknown key %q", key.String())
			}
		}
	}

	if meta.IsDefined("input") {
		cfg.Input = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("user") {
		cfg.User = strings.TrimSpace(raw.User)
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("css_path") {
		cfg.CSSPath = strings.TrimSpace(raw.CSSPath)
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("blob") {
		cfg.Blob = raw.Blob
	}
	if meta.IsDefined("manifest") {
		cfg.Manifest = strings.TrimSpace(raw.Manifest)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("sinks") {
		cfg.Sinks = raw.Sinks
		cfg.Sinks.Kafka.Brokers = normalizeList(raw.Sinks.Kafka.Brokers)
	}

	if meta.IsDefined("sinks", "redis", "ttl") || meta.IsDefined("sinks", "pdf", "timeout") {
		var durations fileDurations
		if _, err := toml.DecodeFile(path, &durations); err != nil {
			return ExportConfig{}, fmt.Errorf("load export config: %w", err)
		}
		if meta.IsDefined("sinks", "redis", "ttl") {
			d, err := time.ParseDuration(strings.TrimSpace(durations.Sinks.Redis.TTL))
			if err != nil {
				return ExportConfig{}, fmt.Errorf("parse sinks.redis.ttl: %w", err)
			}
			cfg.Sinks.Redis.TTL = d
		}
		if meta.IsDefined("sinks", "pdf", "timeout") {
			d, err := time.ParseDuration(strings.TrimSpace(durations.Sinks.PDF.Timeout))
			if err != nil {
				return ExportConfig{}, fmt.Errorf("parse sinks.pdf.timeout: %w", err)
			}
			cfg.Sinks.PDF.Timeout = d
		}
	}

	if err := ValidateExportConfig(cfg); err != nil {
		return ExportConfig{}, err
	}
	return cfg, nil
}

func ValidateExportConfig(cfg ExportConfig) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return fmt.Errorf("export config missing input")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("export config workers must be >= 0")
	}
	if cfg.CSSPath != "" {
		if _, err := os.Stat(cfg.CSSPath); err != nil {
			return fmt.Errorf("export config css_path: %w", err)
		}
	}
	return ValidateSinks(cfg.Sinks)
}

// ValidateSinks checks that every enabled sink names its target.
func ValidateSinks(s SinksConfig) error {
	check := func(on bool, id string, fields map[string]string) error {
		if !on {
			return nil
		}
		for name, val := range fields {
			if strings.TrimSpace(val) == "" {
				return fmt.Errorf("%s: %s is required", id, name)
			}
		}
		return nil
	}
	checks := []error{
		check(s.FS.Enabled, "sinks.fs", map[string]string{"root": s.FS.Root}),
		check(s.SQLite.Enabled, "sinks.sqlite", map[string]string{"path": s.SQLite.Path}),
		check(s.Postgres.Enabled, "sinks.postgres", map[string]string{"url": s.Postgres.URL}),
		check(s.MySQL.Enabled, "sinks.mysql", map[string]string{"dsn": s.MySQL.DSN}),
		check(s.Minio.Enabled, "sinks.minio", map[string]string{"endpoint": s.Minio.Endpoint, "bucket": s.Minio.Bucket}),
		check(s.Meili.Enabled, "sinks.meili", map[string]string{"url": s.Meili.URL}),
		check(s.Redis.Enabled, "sinks.redis", map[string]string{"url": s.Redis.URL}),
		check(s.Kafka.Enabled, "sinks.kafka", map[string]string{"topic": s.Kafka.Topic}),
		check(s.Git.Enabled, "sinks.git", map[string]string{"dir": s.Git.Dir}),
		check(s.PDF.Enabled, "sinks.pdf", map[string]string{"dir": s.PDF.Dir}),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if s.Kafka.Enabled && len(s.Kafka.Brokers) == 0 {
		return fmt.Errorf("sinks.kafka: brokers is required")
	}
	if s.Redis.TTL < 0 {
		return fmt.Errorf("sinks.redis: ttl must be >= 0")
	}
	return nil
}

// ServeConfig configures the HTTP service.
type ServeConfig struct {
	Addr         string   `toml:"addr"`
	CorsOrigins  []string `toml:"cors_origins"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
	User         string   `toml:"user"`
	// Export optionally names an export config run at startup into the
	// in-memory note store.
	Export string `toml:"export"`
	// Token, when set, is required as a bearer token on /v1 routes.
	Token   string `toml:"token"`
	TLSCert string `toml:"tls_cert"`
	TLSKey  string `toml:"tls_key"`
}

func LoadServeConfig(path string) (ServeConfig, error) {
	var cfg ServeConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServeConfig{}, err
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	if err := ValidateServeConfig(cfg); err != nil {
		return ServeConfig{}, err
	}
	return cfg, nil
}

func ValidateServeConfig(cfg ServeConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("serve config missing addr")
	}
	if cfg.MaxBodyBytes < 0 {
		return fmt.Errorf("serve config max_body_bytes must be >= 0")
	}
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return fmt.Errorf("serve config needs both tls_cert and tls_key")
	}
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := gotoml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
