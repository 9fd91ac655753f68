// Package builder orchestrates source and binary archive builds
package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/stanza-build/stanza/pkg/crawler"
	"github.com/stanza-build/stanza/pkg/descriptor"
	"github.com/stanza-build/stanza/pkg/logger"
	"github.com/stanza-build/stanza/pkg/state"
	"github.com/stanza-build/stanza/pkg/types"
)

const (
	setupFile          = "setup.py"
	manifestFile       = "MANIFEST.in"
	readmeFallbackFile = "README.rst"
	distDir            = "dist"
)

// Options control a single build invocation
type Options struct {
	// Universal requests a py2/py3 universal wheel
	Universal bool
}

// Builder runs the full build pipeline: descriptor composition,
// transient file materialization, sdist and wheel invocations.
// It holds no per-build state; two concurrent builds against the same
// project root are unsafe because both materialize the same transient
// paths, and callers must serialize them.
type Builder struct {
	logger logger.Logger
	runner CommandRunner
	states *state.Manager
}

// New creates a builder. A nil runner uses the real tools.
func New(log logger.Logger, runner CommandRunner, states *state.Manager) *Builder {
	if runner == nil {
		runner = NewExecRunner(log)
	}
	return &Builder{
		logger: log,
		runner: runner,
		states: states,
	}
}

// Build crawls the project, composes the descriptor, materializes the
// build-tool inputs, runs the source-archive build and then the
// binary-archive build. Transient files are removed whether or not the
// source-archive step succeeds, and its original error is what the
// caller sees.
func (b *Builder) Build(ctx context.Context, m *types.Manifest, opts Options) error {
	started := time.Now()
	receipt := &state.Receipt{
		ID:        uuid.New().String(),
		Project:   m.Name,
		Version:   m.Version,
		Archive:   m.Archive(),
		Universal: opts.Universal,
		StartedAt: started,
	}

	err := b.build(ctx, m, opts)

	receipt.FinishedAt = time.Now()
	receipt.Duration = receipt.FinishedAt.Sub(started)
	if err != nil {
		receipt.Status = state.BuildFailed
		receipt.Error = err.Error()
	} else {
		receipt.Status = state.BuildSucceeded
	}
	if b.states != nil {
		if recordErr := b.states.Record(receipt); recordErr != nil {
			b.logger.Warn("Failed to record build receipt",
				logger.WithField("error", recordErr))
		}
	}

	return err
}

func (b *Builder) build(ctx context.Context, m *types.Manifest, opts Options) error {
	crawl, err := crawler.New(m.BaseDir).Crawl(m.Include, m.Exclude, m.Ignore)
	if err != nil {
		return err
	}

	desc, err := descriptor.Build(m, crawl)
	if err != nil {
		return err
	}

	b.logger.Info("Composed build descriptor",
		logger.WithField("packages", len(desc.Packages)),
		logger.WithField("modules", len(desc.PyModules)),
		logger.WithField("data_files", len(crawl.DataFiles)))

	if err := b.sdist(ctx, m, desc, crawl); err != nil {
		return err
	}

	return b.wheel(ctx, m, opts)
}

// sdist materializes the transient inputs and runs the source-archive
// build. Cleanup is deferred so it runs on every path out.
func (b *Builder) sdist(ctx context.Context, m *types.Manifest, desc *types.BuildDescriptor, crawl *crawler.Result) error {
	transient, err := b.materialize(m, desc, crawl)
	defer b.cleanup(transient)
	if err != nil {
		return err
	}

	log := b.logger.WithScope("sdist")
	log.Info("Building source archive", logger.WithField("archive", m.Archive()))

	if err := b.runner.Run(ctx, m.BaseDir, "python", setupFile, "sdist"); err != nil {
		return err
	}

	log.Success("Source archive built")
	return nil
}

// materialize writes the composed build-tool inputs to the project
// root, returning every path it created so cleanup can remove them.
func (b *Builder) materialize(m *types.Manifest, desc *types.BuildDescriptor, crawl *crawler.Result) ([]string, error) {
	var created []string

	setupPath := filepath.Join(m.BaseDir, setupFile)
	if err := os.WriteFile(setupPath, []byte(EncodeSetup(desc)), 0644); err != nil {
		return created, fmt.Errorf("failed to write %s: %w", setupFile, err)
	}
	created = append(created, setupPath)

	manifestPath := filepath.Join(m.BaseDir, manifestFile)
	if err := os.WriteFile(manifestPath, []byte(EncodeManifest(crawl.DataFiles)), 0644); err != nil {
		return created, fmt.Errorf("failed to write %s: %w", manifestFile, err)
	}
	created = append(created, manifestPath)

	// A markdown readme needs an rst fallback, unless the project
	// already ships a converted one.
	if m.HasMarkdownReadme() {
		readmePath := filepath.Join(m.BaseDir, readmeFallbackFile)
		if _, err := os.Stat(readmePath); os.IsNotExist(err) {
			if err := os.WriteFile(readmePath, []byte(desc.LongDescription), 0644); err != nil {
				return created, fmt.Errorf("failed to write %s: %w", readmeFallbackFile, err)
			}
			created = append(created, readmePath)
		}
	}

	return created, nil
}

// cleanup removes the transient files. Removal failures are logged and
// never replace the build error; a file already gone counts as removed.
func (b *Builder) cleanup(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn("Failed to remove transient file",
				logger.WithField("path", path),
				logger.WithField("error", err))
		}
	}
}

// wheel builds the binary archive from the already-produced source
// archive, with index lookups and dependency resolution disabled.
func (b *Builder) wheel(ctx context.Context, m *types.Manifest, opts Options) error {
	log := b.logger.WithScope("wheel")
	log.Info("Building binary archive", logger.WithField("archive", m.Archive()))

	args := []string{
		"wheel",
		"--no-index",
		"--no-deps",
		"--wheel-dir", distDir,
		filepath.Join(distDir, m.Archive()),
	}
	if opts.Universal {
		args = append(args, "--build-option=--universal")
	}

	if err := b.runner.Run(ctx, m.BaseDir, "pip", args...); err != nil {
		return err
	}

	log.Success("Binary archive built")
	return nil
}
