package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/markup"
	"github.com/danmuck/notesctl/internal/notes"
	"github.com/danmuck/notesctl/internal/render"
)

type renderOptions struct {
	Input    string
	Output   string
	Kind     string
	User     string
	CSSPath  string
	Envelope bool
}

func parseRenderFlags(args []string) (renderOptions, error) {
	fs := newFlagSet("render")
	opts := renderOptions{}
	fs.StringVar(&opts.Input, "input", "", "blob file, compressed or raw")
	fs.StringVar(&opts.Output, "output", "", "output file (default stdout)")
	fs.StringVar(&opts.Kind, "kind", "note", "note|drawing|table")
	fs.StringVar(&opts.User, "user", "", "account name used for attachment paths")
	fs.StringVar(&opts.CSSPath, "css", "", "stylesheet for the envelope")
	fs.BoolVar(&opts.Envelope, "envelope", true, "wrap the fragment in a full HTML page")
	if err := fs.Parse(args); err != nil {
		return renderOptions{}, err
	}
	if opts.Input == "" && fs.NArg() > 0 {
		opts.Input = fs.Arg(0)
	}
	if opts.Input == "" {
		return renderOptions{}, fmt.Errorf("%w: render needs -input", errUsage)
	}
	switch opts.Kind {
	case "note", "drawing", "table":
	default:
		return renderOptions{}, fmt.Errorf("%w: unknown render kind %q", errUsage, opts.Kind)
	}
	return opts, nil
}

func runRender(_ context.Context, args []string, stdout io.Writer) error {
	opts, err := parseRenderFlags(args)
	if err != nil {
		return err
	}
	blob, err := os.ReadFile(opts.Input)
	if err != nil {
		return err
	}
	node, err := renderBlob(opts, blob)
	if err != nil {
		return err
	}
	if opts.Envelope {
		css := render.DefaultCSS
		if opts.CSSPath != "" {
			b, err := os.ReadFile(opts.CSSPath)
			if err != nil {
				return fmt.Errorf("read css: %w", err)
			}
			css = string(b)
		}
		node = render.Envelope(node, css)
	}
	out, err := markup.RenderString(node)
	if err != nil {
		return err
	}

	if opts.Output == "" {
		_, err = io.WriteString(stdout, out)
		return err
	}
	return os.WriteFile(opts.Output, []byte(out), 0o644)
}

func renderBlob(opts renderOptions, blob []byte) (*markup.Node, error) {
	if notes.IsCompressed(blob) {
		var err error
		if blob, err = notes.Decompress(blob); err != nil {
			return nil, err
		}
	}
	attachments := render.NewAttachmentMap(opts.User)
	switch opts.Kind {
	case "drawing":
		node, _, err := attachments.Build(render.Attachment{ID: opts.Input, TypeUTI: render.UTIDrawing, Data: blob})
		return node, err
	case "table":
		node, _, err := attachments.Build(render.Attachment{ID: opts.Input, TypeUTI: render.UTITable, Data: blob})
		return node, err
	}
	node, err := render.Note(blob, attachments)
	if err == nil {
		return node, nil
	}
	basic, ok := render.Basic(blob)
	if !ok {
		return nil, err
	}
	logs.Warnf("render: %s fell back to plain text: %v", opts.Input, err)
	return basic, nil
}
