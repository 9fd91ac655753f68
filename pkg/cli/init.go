package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stanza-build/stanza/pkg/manifest"
)

const manifestTemplate = `[package]
name = "%s"
version = "0.1.0"
description = ""
authors = ["Your Name <you@example.com>"]
license = "MIT"

python = ["~3.6"]

include = ["%s/**/*.py"]

[dependencies]

[dev-dependencies]
`

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Create a stanza.toml manifest in the project root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runInit(name, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing manifest")

	return cmd
}

func runInit(name string, force bool) error {
	path := manifestPath()

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", manifest.FileName)
	}

	if name == "" {
		abs, err := filepath.Abs(projectRoot)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}

	content := fmt.Sprintf(manifestTemplate, name, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	printSuccess(fmt.Sprintf("Created %s for %s", manifest.FileName, name))
	return nil
}
