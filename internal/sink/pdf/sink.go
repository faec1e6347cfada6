package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/danmuck/notesctl/internal/sink"
)

const (
	// SinkID is the canonical sink identifier for printed notes.
	SinkID = "sink.pdf"
)

var ErrBrowserMissing = fmt.Errorf("sink.pdf: chromium not installed")

// Sink prints each note to <dir>/<id>.pdf with headless Chrome. One
// browser is shared by all writes; each write opens its own tab.
type Sink struct {
	dir     string
	timeout time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// LookBrowser reports the first chromium style binary on PATH.
func LookBrowser() (string, error) {
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrBrowserMissing
}

// Open starts the browser and creates dir.
func Open(dir string, timeout time.Duration) (*Sink, error) {
	browser, err := LookBrowser()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink.pdf: create dir: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(browser),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("sink.pdf: start browser: %w", err)
	}
	return &Sink{
		dir:           dir,
		timeout:       timeout,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "PDF",
		Description: "Printed PDF of each note via headless Chrome",
	}
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var data []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(DataURL(rec.HTML)),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11.0).
				WithMarginTop(0.5).
				WithMarginBottom(0.5).
				WithMarginLeft(0.5).
				WithMarginRight(0.5).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("sink.pdf: print %d: %w", rec.ID, err)
	}
	out := filepath.Join(s.dir, rec.Key()+".pdf")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("sink.pdf: write %s: %w", out, err)
	}
	return nil
}

func (s *Sink) Close() error {
	s.browserCancel()
	s.allocCancel()
	return nil
}

// DataURL percent-encodes html into a data: URL. Spaces become %20.
func DataURL(html string) string {
	var b strings.Builder
	b.WriteString("data:text/html;charset=utf-8,")
	for i := 0; i < len(html); i++ {
		c := html[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
