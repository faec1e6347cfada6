// Command notesctl exports an Apple Notes database to HTML and a set of
// storage sinks, renders single blobs, and serves the renderers over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/notesctl/internal/logging"
	"github.com/danmuck/notesctl/internal/logs"
)

const usage = `usage: notesctl <command> [flags]

commands:
  export   render every note of a database into the configured sinks
  render   render one note, drawing or table blob to HTML
  serve    run the HTTP render service
  fetch    copy a notes database from a local or remote path
  config   write or validate a config template
`

var errUsage = errors.New("usage")

type command struct {
	name string
	run  func(ctx context.Context, args []string, stdout io.Writer) error
}

var commands = []command{
	{name: "export", run: runExport},
	{name: "render", run: runRender},
	{name: "serve", run: runServe},
	{name: "fetch", run: runFetch},
	{name: "config", run: runConfig},
}

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		logs.Errf("notesctl: %v", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, args[1:], stdout)
		}
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// isSet reports whether name was given on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
