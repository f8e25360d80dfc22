// Package runner executes external commands for the orchestrator.
package runner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/stacksave/stacksave/internal/logging"
)

// Runner executes one external command in a working directory. The command
// either succeeds or fails; output is treated as opaque and only surfaced in
// the log when the command fails. Implementations must never panic past the
// caller - the caller decides whether a failure stops the workflow.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) error
}

// ExecRunner runs commands through os/exec, logging every invocation and
// every failure to the run's log sink.
type ExecRunner struct {
	logger *logging.Logger
	dryRun bool
}

// New creates an ExecRunner.
func New(logger *logging.Logger, dryRun bool) *ExecRunner {
	return &ExecRunner{logger: logger, dryRun: dryRun}
}

// Run executes argv with dir as working directory and reports only
// success/failure. Engine-emitted diagnostics are logged as opaque text.
func (r *ExecRunner) Run(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	display := strings.Join(argv, " ")
	if r.dryRun {
		r.logger.Skip("dry-run: would run %q in %s", display, dir)
		return nil
	}

	r.logger.Info("running %q in %s", display, dir)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed != "" {
			r.logger.Error("command %q failed: %v: %s", display, err, trimmed)
		} else {
			r.logger.Error("command %q failed: %v", display, err)
		}
		return fmt.Errorf("run %q: %w", display, err)
	}
	return nil
}
