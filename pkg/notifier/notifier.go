// Package notifier provides desktop notifications for build results
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/stanza-build/stanza/pkg/logger"
)

// BuildNotifier sends desktop notifications for watch-mode builds
type BuildNotifier struct {
	enabled bool
	logger  logger.Logger
}

// New creates a build notifier
func New(enabled bool, log logger.Logger) *BuildNotifier {
	return &BuildNotifier{
		enabled: enabled,
		logger:  log,
	}
}

// NotifyBuildSuccess notifies that a build succeeded
func (n *BuildNotifier) NotifyBuildSuccess(project string, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "✅ Build Succeeded"
	message := fmt.Sprintf("%s built in %s", project, formatDuration(duration))

	n.send(title, message)
}

// NotifyBuildFailure notifies that a build failed
func (n *BuildNotifier) NotifyBuildFailure(project string, err error) {
	if !n.enabled {
		return
	}

	title := "❌ Build Failed"
	message := fmt.Sprintf("%s: %v", project, err)

	n.send(title, message)
}

func (n *BuildNotifier) send(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
