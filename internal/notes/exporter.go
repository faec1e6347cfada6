package notes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/markup"
	"github.com/danmuck/notesctl/internal/observability"
	"github.com/danmuck/notesctl/internal/render"
	"github.com/danmuck/notesctl/internal/sink"
	"github.com/danmuck/notesctl/internal/source"
	"golang.org/x/sync/errgroup"
)

// DefaultTitle replaces a missing note title.
const DefaultTitle = "New Note"

// Source is what the exporter reads from.
type Source interface {
	Attachments(ctx context.Context) ([]source.AttachmentRecord, error)
	Notes(ctx context.Context, fn func(source.NoteRecord) error) error
}

// Options tune one export run.
type Options struct {
	// Workers bounds parallel decoding. Zero means GOMAXPROCS.
	Workers int
	// User names the account whose container paths attachments link to.
	User string
	// CSS is embedded in every envelope. Empty means render.DefaultCSS.
	CSS string
	// BlobDir receives decompressed bodies as <BlobDir>/<id> when set.
	BlobDir string
	// Exists reports whether a file under the notes container is present.
	Exists func(path string) bool
}

// Exporter renders every note of a source into a set of sinks.
type Exporter struct {
	opts  Options
	sinks *sink.Registry

	writeMu sync.Mutex
	mu      sync.Mutex
	summary Summary
}

func NewExporter(sinks *sink.Registry, opts Options) *Exporter {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.CSS == "" {
		opts.CSS = render.DefaultCSS
	}
	if sinks == nil {
		sinks = sink.NewRegistry()
	}
	return &Exporter{opts: opts, sinks: sinks}
}

// Run exports every note. Per note failures are logged and counted in the
// summary; only source query failures and cancellation end the run early.
func (e *Exporter) Run(ctx context.Context, src Source) (Summary, error) {
	e.mu.Lock()
	e.summary = Summary{Started: time.Now()}
	e.mu.Unlock()

	if e.opts.BlobDir != "" {
		if err := os.MkdirAll(e.opts.BlobDir, 0o755); err != nil {
			return e.finish(), fmt.Errorf("notes: blob dir: %w", err)
		}
	}

	base, err := e.attachments(ctx, src)
	if err != nil {
		return e.finish(), err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	err = src.Notes(gctx, func(rec source.NoteRecord) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			out := e.renderNote(base.Fork(), rec)
			e.write(gctx, out)
			return gctx.Err()
		})
		return nil
	})
	waitErr := g.Wait()
	summary := e.finish()
	if err != nil {
		return summary, fmt.Errorf("notes: read notes: %w", err)
	}
	if waitErr != nil {
		return summary, waitErr
	}
	logs.Infof(
		"notes.Exporter.Run complete notes=%d ok=%d partial=%d failed=%d attachments=%d sink_failures=%d",
		summary.Notes, summary.OK, summary.Partial, summary.Failed, summary.Attachments, summary.SinkFailures,
	)
	return summary, nil
}

// attachments decodes every attachment in parallel and returns the shared
// base map. Failed attachments are stored as placeholders.
func (e *Exporter) attachments(ctx context.Context, src Source) (*render.AttachmentMap, error) {
	base := render.NewAttachmentMap(e.opts.User)
	base.Exists = e.opts.Exists

	rows, err := src.Attachments(ctx)
	if err != nil {
		return nil, fmt.Errorf("notes: read attachments: %w", err)
	}
	nodes := make([]*markup.Node, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			a := attachmentFromRecord(row)
			var (
				node *markup.Node
				kind render.AttachmentKind
			)
			data, err := Decompress(row.Data)
			if err != nil {
				a.Data = row.Data
				kind = a.Kind()
				node = base.Placeholder(row.ID)
			} else {
				a.Data = data
				node, kind, err = base.Build(a)
			}
			if err != nil {
				logs.Warnf("notes.Exporter.attachments id=%q kind=%s err=%v", row.ID, kind, err)
			}
			observability.RecordAttachment(kind.String(), err == nil, time.Since(start))
			e.count(func(s *Summary) {
				s.Attachments++
				if err != nil {
					s.AttachmentFailures++
				}
			})
			nodes[i] = node
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, row := range rows {
		base.Put(row.ID, nodes[i])
	}
	logs.Debugf("notes.Exporter.attachments resolved=%d", base.Len())
	return base, nil
}

func attachmentFromRecord(row source.AttachmentRecord) render.Attachment {
	return render.Attachment{
		ID:       row.ID,
		TypeUTI:  row.TypeUTI,
		MediaID:  row.MediaID,
		FileName: row.FileName,
		URL:      row.URL,
		Title:    row.Title,
	}
}

// renderNote never fails: a broken body yields a partial or empty
// rendering with the matching status.
func (e *Exporter) renderNote(m *render.AttachmentMap, rec source.NoteRecord) sink.Record {
	start := time.Now()
	out := recordFromNote(rec)
	out.Status = sink.StatusOK

	var root *markup.Node
	switch {
	case rec.Body == nil && rec.HTML != "":
		out.HTML = rec.HTML
	default:
		root, out.Status = e.renderBody(m, rec)
	}

	if root != nil {
		out.Text = root.TextContent()
		html, err := markup.RenderString(render.Envelope(root, e.opts.CSS))
		if err != nil {
			logs.Errf("notes.Exporter.renderNote id=%d serialize err=%v", rec.ID, err)
			out.Status = sink.StatusFailed
		}
		out.HTML = html
	}

	observability.RecordNote(out.Status, time.Since(start))
	e.count(func(s *Summary) {
		s.Notes++
		switch out.Status {
		case sink.StatusOK:
			s.OK++
		case sink.StatusPartial:
			s.Partial++
		default:
			s.Failed++
		}
	})
	return out
}

func (e *Exporter) renderBody(m *render.AttachmentMap, rec source.NoteRecord) (*markup.Node, string) {
	body, err := Decompress(rec.Body)
	if err != nil {
		logs.Warnf("notes.Exporter.renderNote id=%d err=%v", rec.ID, err)
		return markup.Element("div"), sink.StatusFailed
	}
	e.dumpBlob(rec.ID, body)
	if len(body) == 0 {
		return markup.Element("div"), sink.StatusOK
	}

	status := sink.StatusOK
	root, err := render.Note(body, m)
	if err != nil {
		basic, ok := render.Basic(body)
		logs.Warnf("notes.Exporter.renderNote id=%d fallback=basic found_text=%t err=%v", rec.ID, ok, err)
		root, status = basic, sink.StatusPartial
		if !ok {
			status = sink.StatusFailed
		}
	}
	if missing := m.Missing(); len(missing) > 0 {
		for _, id := range missing {
			logs.Warnf("notes.Exporter.renderNote id=%d attachment=%q err=%v", rec.ID, id, render.ErrMissingAttachment)
		}
		e.count(func(s *Summary) { s.MissingAttachments += len(missing) })
		if status == sink.StatusOK {
			status = sink.StatusPartial
		}
	}
	return root, status
}

func (e *Exporter) dumpBlob(id int64, body []byte) {
	if e.opts.BlobDir == "" || body == nil {
		return
	}
	p := filepath.Join(e.opts.BlobDir, fmt.Sprintf("%d", id))
	if err := os.WriteFile(p, body, 0o644); err != nil {
		logs.Warnf("notes.Exporter.dumpBlob id=%d err=%v", id, err)
	}
}

// write hands rec to every sink. Writes are serialized across workers.
func (e *Exporter) write(ctx context.Context, rec sink.Record) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	for _, meta := range e.sinks.ListMetadata() {
		s, _ := e.sinks.Resolve(meta.ID)
		start := time.Now()
		err := s.Write(ctx, rec)
		observability.RecordSinkWrite(meta.ID, time.Since(start), err == nil)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logs.Errf("notes.Exporter.write sink=%s id=%d err=%v", meta.ID, rec.ID, err)
			e.count(func(s *Summary) { s.SinkFailures++ })
		}
	}
}

func (e *Exporter) count(fn func(*Summary)) {
	e.mu.Lock()
	fn(&e.summary)
	e.mu.Unlock()
}

func (e *Exporter) finish() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.summary.Finished = time.Now()
	return e.summary
}

func recordFromNote(rec source.NoteRecord) sink.Record {
	return sink.Record{
		ID:              rec.ID,
		Identifier:      rec.Identifier,
		Title:           CleanTitle(rec.Title),
		Snippet:         rec.Snippet,
		Folder:          rec.Folder,
		Created:         rec.Created,
		Modified:        rec.Modified,
		AttachmentIDs:   rec.AttachmentIDs,
		AttachmentPaths: rec.AttachmentPaths,
		Account:         rec.Account,
		AccountID:       rec.AccountID,
		AccountUser:     rec.AccountUser,
		Version:         rec.Version,
		User:            rec.User,
		Source:          rec.Source,
	}
}

var lineBreakers = strings.NewReplacer(
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
	"\u2028", " ",
	"\u2029", " ",
	"\v", " ",
	"\f", " ",
)

// CleanTitle removes line breaks from a title and substitutes DefaultTitle
// for an empty one.
func CleanTitle(title string) string {
	title = strings.TrimSpace(lineBreakers.Replace(title))
	if title == "" {
		return DefaultTitle
	}
	return title
}
