package main

import (
	"context"
	"fmt"
	"io"

	"github.com/danmuck/notesctl/internal/config"
)

func runConfig(_ context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("config")
	kind := fs.String("kind", "export", "config kind: export|serve")
	output := fs.String("output", "", "output path for config template")
	validate := fs.Bool("validate", false, "validate an existing config file")
	input := fs.String("input", "", "config path for validation")
	force := fs.Bool("force", false, "overwrite existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultConfigPath(*kind)
		}
		switch *kind {
		case "export":
			if _, err := config.LoadExportConfig(path); err != nil {
				return err
			}
		case "serve":
			if _, err := config.LoadServeConfig(path); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown kind: %s", *kind)
		}
		fmt.Fprintf(stdout, "validated %s config at %s\n", *kind, path)
		return nil
	}

	target := *output
	if target == "" {
		target = defaultConfigPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s config template to %s\n", *kind, target)
	return nil
}

func defaultConfigPath(kind string) string {
	return kind + ".toml"
}
