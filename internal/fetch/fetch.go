// Package fetch copies a notes database off a local or remote host so an
// export can run against a private copy.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/notesctl/internal/logs"
)

// Sidecars are the SQLite journal files that travel with a database.
var Sidecars = []string{"-wal", "-shm"}

// Fetch streams remote into local through `cat`. The file appears at
// local only once the copy is complete.
func Fetch(ctx context.Context, r Runner, remote, local string) (int64, error) {
	if strings.TrimSpace(remote) == "" || strings.TrimSpace(local) == "" {
		return 0, fmt.Errorf("fetch: remote and local paths are required")
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return 0, fmt.Errorf("fetch: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(local), filepath.Base(local)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("fetch: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	counter := &countingWriter{w: tmp}
	var stderr bytes.Buffer
	runErr := r.RunStreaming(ctx, "cat", []string{remote}, counter, &stderr)
	closeErr := tmp.Close()
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return 0, fmt.Errorf("fetch: cat %s: %w: %s", remote, runErr, msg)
		}
		return 0, fmt.Errorf("fetch: cat %s: %w", remote, runErr)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("fetch: close temp file: %w", closeErr)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return 0, fmt.Errorf("fetch: rename: %w", err)
	}
	logs.Infof("fetch.Fetch ok remote=%q local=%q bytes=%d", remote, local, counter.n)
	return counter.n, nil
}

// FetchDatabase fetches a database and whichever sidecar files exist.
func FetchDatabase(ctx context.Context, r Runner, remote, local string) error {
	if _, err := Fetch(ctx, r, remote, local); err != nil {
		return err
	}
	for _, suffix := range Sidecars {
		if _, err := Fetch(ctx, r, remote+suffix, local+suffix); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logs.Debugf("fetch.FetchDatabase skip sidecar=%q err=%v", remote+suffix, err)
		}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
