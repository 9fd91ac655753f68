package builder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/stanza-build/stanza/pkg/logger"
)

// CommandRunner abstracts external tool invocation so tests can
// substitute a fake
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) error
}

// ToolInvocationError reports a failed external archive tool run
type ToolInvocationError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("%s invocation failed: %v", e.Tool, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// ExecRunner runs tools as child processes
type ExecRunner struct {
	logger logger.Logger
}

// NewExecRunner creates a runner backed by os/exec
func NewExecRunner(log logger.Logger) *ExecRunner {
	return &ExecRunner{logger: log}
}

// Run executes the tool in dir, capturing combined output for the
// error report
func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	r.logger.Debug(fmt.Sprintf("Executing %s", name),
		logger.WithField("args", args),
		logger.WithField("dir", dir))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return &ToolInvocationError{
			Tool:   name,
			Args:   args,
			Output: output.String(),
			Err:    err,
		}
	}

	return nil
}
