package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stanza-build/stanza/internal/watch"
	"github.com/stanza-build/stanza/pkg/builder"
	"github.com/stanza-build/stanza/pkg/logger"
	"github.com/stanza-build/stanza/pkg/manifest"
	"github.com/stanza-build/stanza/pkg/notifier"
	"github.com/stanza-build/stanza/pkg/state"
)

func newBuildCmd() *cobra.Command {
	var universal bool
	var watchMode bool
	var noNotify bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the source and binary archives",
		Long: `Build the project's source archive and, from it, the binary
archive. With --watch the build re-runs whenever the tree changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), universal, watchMode, noNotify)
		},
	}

	cmd.Flags().BoolVar(&universal, "universal", false, "build a py2/py3 universal wheel")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "rebuild on file changes")
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "disable desktop notifications in watch mode")

	return cmd
}

func runBuild(ctx context.Context, universal, watchMode, noNotify bool) error {
	log := newLogger()

	m, err := manifest.Load(manifestPath())
	if err != nil {
		return err
	}

	states := state.NewManager(m.BaseDir, log)
	b := builder.New(log, nil, states)
	opts := builder.Options{Universal: universal}

	if !watchMode {
		if err := b.Build(ctx, m, opts); err != nil {
			printError(fmt.Sprintf("Build failed: %v", err))
			return err
		}
		printSuccess(fmt.Sprintf("Built %s", m.Archive()))
		return nil
	}

	return runWatchBuild(ctx, log, b, opts, noNotify)
}

// runWatchBuild builds once, then rebuilds on every settled change
// batch until interrupted. The manifest is reloaded per build so
// edits to it take effect.
func runWatchBuild(ctx context.Context, log logger.Logger, b *builder.Builder, opts builder.Options, noNotify bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notify := notifier.New(!noNotify && viper.GetBool("notifications"), log)

	buildOnce := func() {
		m, err := manifest.Load(manifestPath())
		if err != nil {
			printError(fmt.Sprintf("Manifest error: %v", err))
			return
		}

		started := time.Now()
		if err := b.Build(ctx, m, opts); err != nil {
			printError(fmt.Sprintf("Build failed: %v", err))
			notify.NotifyBuildFailure(m.Name, err)
			return
		}
		printSuccess(fmt.Sprintf("Built %s", m.Archive()))
		notify.NotifyBuildSuccess(m.Name, time.Since(started))
	}

	buildOnce()

	w, err := watch.New(log, viper.GetDuration("settling"))
	if err != nil {
		return err
	}
	defer w.Close()

	sg, ctx := watch.NewSafeGroup(ctx, log)
	sg.Go(func() error {
		return w.Run(ctx, projectRoot, func(changed []string) {
			log.Info("Change detected", logger.WithField("files", len(changed)))
			buildOnce()
		})
	})

	if err := sg.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
