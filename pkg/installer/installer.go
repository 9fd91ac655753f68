// Package installer defines the dependency installer contract.
// Resolution, lock-file solving and network access live behind this
// interface; stanza only selects the manifest and delegates.
package installer

import (
	"context"

	"github.com/stanza-build/stanza/pkg/logger"
	"github.com/stanza-build/stanza/pkg/types"
)

// Installer installs a manifest's dependencies. When dev is true the
// dev-dependency group is installed as well.
type Installer interface {
	Install(ctx context.Context, m *types.Manifest, dev bool) error
}

// ReportingInstaller is the default delegate: it reports what would be
// installed without performing resolution.
type ReportingInstaller struct {
	logger logger.Logger
}

// NewReporting creates a reporting-only installer
func NewReporting(log logger.Logger) *ReportingInstaller {
	return &ReportingInstaller{logger: log.WithScope("install")}
}

// Install logs the requirement set selected for installation
func (i *ReportingInstaller) Install(_ context.Context, m *types.Manifest, dev bool) error {
	deps := append([]types.Dependency{}, m.Dependencies...)
	if dev {
		deps = append(deps, m.DevDependencies...)
	}

	for _, dep := range deps {
		i.logger.Info("Requires " + dep.NormalizedName())
	}
	i.logger.Info("Delegating installation",
		logger.WithField("requirements", len(deps)),
		logger.WithField("dev", dev))

	return nil
}
