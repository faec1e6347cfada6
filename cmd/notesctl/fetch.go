package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/notesctl/internal/fetch"
)

type fetchOptions struct {
	Remote   string
	Local    string
	Host     string
	Port     string
	User     string
	KeyPath  string
	Known    string
	Insecure bool
	Timeout  time.Duration
}

const defaultRemoteStore = "Library/Group Containers/group.com.apple.notes/NoteStore.sqlite"

func parseFetchFlags(args []string) (fetchOptions, error) {
	fs := newFlagSet("fetch")
	opts := fetchOptions{}
	fs.StringVar(&opts.Remote, "remote", defaultRemoteStore, "database path on the source host")
	fs.StringVar(&opts.Local, "local", "NoteStore.sqlite", "local destination")
	fs.StringVar(&opts.Host, "host", "", "SSH host; empty copies from the local machine")
	fs.StringVar(&opts.Port, "port", "22", "SSH port")
	fs.StringVar(&opts.User, "ssh-user", "", "SSH user")
	fs.StringVar(&opts.KeyPath, "key", "", "SSH private key")
	fs.StringVar(&opts.Known, "known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")
	fs.BoolVar(&opts.Insecure, "insecure", false, "skip host key verification")
	fs.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "SSH dial timeout")
	if err := fs.Parse(args); err != nil {
		return fetchOptions{}, err
	}
	if opts.Remote == "" || opts.Local == "" {
		return fetchOptions{}, fmt.Errorf("%w: fetch needs -remote and -local", errUsage)
	}
	if opts.Host != "" && (opts.User == "" || opts.KeyPath == "") {
		return fetchOptions{}, fmt.Errorf("%w: ssh fetch needs -ssh-user and -key", errUsage)
	}
	return opts, nil
}

func (o fetchOptions) runner() fetch.Runner {
	if o.Host == "" {
		return fetch.LocalRunner{}
	}
	return fetch.SSHRunner{
		Host:                        o.Host,
		Port:                        o.Port,
		User:                        o.User,
		KeyPath:                     o.KeyPath,
		KnownHostsPath:              o.Known,
		InsecureSkipHostKeyChecking: o.Insecure,
		Timeout:                     o.Timeout,
	}
}

func runFetch(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFetchFlags(args)
	if err != nil {
		return err
	}
	if err := fetch.FetchDatabase(ctx, opts.runner(), opts.Remote, opts.Local); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "fetched %s to %s\n", opts.Remote, opts.Local)
	return nil
}
