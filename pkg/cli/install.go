package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stanza-build/stanza/pkg/installer"
	"github.com/stanza-build/stanza/pkg/manifest"
)

func newInstallCmd() *cobra.Command {
	var noDev bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the project's dependencies",
		Long: `Install dependencies from the locked manifest when one exists,
falling back to stanza.toml otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), installer.NewReporting(newLogger()), noDev)
		},
	}

	cmd.Flags().BoolVar(&noDev, "no-dev", false, "do not install dev dependencies")

	return cmd
}

// runInstall selects the manifest (lock preferred, silent fallback)
// and delegates to the installer
func runInstall(ctx context.Context, delegate installer.Installer, noDev bool) error {
	m, locked, err := manifest.LoadDir(projectRoot)
	if err != nil {
		return err
	}

	if locked {
		printInfo("Installing from locked manifest")
	} else {
		printInfo("Installing from " + manifest.FileName)
	}

	if err := delegate.Install(ctx, m, !noDev); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("Installed dependencies for %s", m.Name))
	return nil
}
