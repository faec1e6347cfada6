package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Summary counts the outcome of one export run.
type Summary struct {
	Started            time.Time `toml:"started"`
	Finished           time.Time `toml:"finished"`
	Notes              int       `toml:"notes"`
	OK                 int       `toml:"ok"`
	Partial            int       `toml:"partial"`
	Failed             int       `toml:"failed"`
	Attachments        int       `toml:"attachments"`
	AttachmentFailures int       `toml:"attachment_failures"`
	MissingAttachments int       `toml:"missing_attachments"`
	SinkFailures       int       `toml:"sink_failures"`
}

func (s Summary) Duration() time.Duration {
	if s.Finished.Before(s.Started) {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Manifest records what a run read, where it wrote and how it went.
type Manifest struct {
	Source  ManifestSource `toml:"source"`
	Sinks   []string       `toml:"sinks"`
	Options ManifestOpts   `toml:"options"`
	Summary Summary        `toml:"summary"`
}

type ManifestSource struct {
	Path    string `toml:"path"`
	Layout  string `toml:"layout"`
	Version string `toml:"version"`
	User    string `toml:"user"`
}

type ManifestOpts struct {
	Workers int    `toml:"workers"`
	BlobDir string `toml:"blob_dir,omitempty"`
	CSSPath string `toml:"css_path,omitempty"`
}

// WriteManifest writes m as TOML to path.
func WriteManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("notes: manifest dir: %w", err)
	}
	raw, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("notes: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("notes: write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("notes: read manifest: %w", err)
	}
	if err := toml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("notes: decode manifest: %w", err)
	}
	return m, nil
}
