// Package restic wraps the restic command-line tool, the content-addressed
// backup engine behind every snapshot taken by stacksave.
package restic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/stacksave/stacksave/internal/logging"
)

// settleDelay is observed between consecutive engine invocations: restic
// serializes its index locks and back-to-back calls have been seen to
// contend.
const settleDelay = 400 * time.Millisecond

// Snapshot represents one restic snapshot as emitted by `restic snapshots --json`.
type Snapshot struct {
	ID       string    `json:"id"`
	ShortID  string    `json:"short_id"`
	Time     time.Time `json:"time"`
	Hostname string    `json:"hostname"`
	Tags     []string  `json:"tags"`
	Paths    []string  `json:"paths"`
}

// outputFunc runs one external command with extra environment entries and
// returns its stdout. Injectable for tests.
type outputFunc func(ctx context.Context, env []string, argv []string) ([]byte, error)

// Engine invokes restic against a single repository with a resolved
// credential. All calls are sequential; Engine is not safe for concurrent
// use.
type Engine struct {
	logger   *logging.Logger
	repo     string
	password string
	dryRun   bool

	sleep  func(time.Duration)
	output outputFunc
	called bool
}

// New creates an Engine for the given repository and credential.
func New(logger *logging.Logger, repo, password string, dryRun bool) *Engine {
	return &Engine{
		logger:   logger,
		repo:     repo,
		password: password,
		dryRun:   dryRun,
		sleep:    time.Sleep,
		output:   execOutput,
	}
}

func execOutput(ctx context.Context, env []string, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, err
	}
	return out, nil
}

// run executes one restic verb. It observes the settle delay between
// consecutive invocations and skips execution entirely in dry-run mode.
func (e *Engine) run(ctx context.Context, args ...string) ([]byte, error) {
	if e.dryRun {
		e.logger.Skip("dry-run: would run restic %s", strings.Join(args, " "))
		return nil, nil
	}

	if e.called {
		e.sleep(settleDelay)
	}
	e.called = true

	env := []string{
		"RESTIC_REPOSITORY=" + e.repo,
		"RESTIC_PASSWORD=" + e.password,
	}
	return e.output(ctx, env, append([]string{"restic"}, args...))
}

// Backup snapshots path into the repository under the given tag.
func (e *Engine) Backup(ctx context.Context, tag, path string) error {
	e.logger.Step("backing up %s (tag %s)", path, tag)
	if _, err := e.run(ctx, "backup", "--tag", tag, path); err != nil {
		e.logger.Error("backup of %s failed: %v", path, err)
		if logPath := e.logger.GetLogFilePath(); logPath != "" {
			fmt.Fprintf(os.Stderr, "Backup of %s failed, see %s for details\n", path, logPath)
		}
		return fmt.Errorf("backup %s: %w", path, err)
	}
	return nil
}

// Check verifies repository integrity.
func (e *Engine) Check(ctx context.Context) error {
	e.logger.Step("checking repository integrity")
	if _, err := e.run(ctx, "check"); err != nil {
		e.logger.Error("repository check failed: %v", err)
		return fmt.Errorf("repository check: %w", err)
	}
	return nil
}

// ForgetPreview performs a dry-run retention evaluation under a
// keep-within-weekly / keep-within-monthly policy. Informational only.
func (e *Engine) ForgetPreview(ctx context.Context, weeklyDays, monthlyMonths int) error {
	e.logger.Step("previewing retention (weekly %dd, monthly %dm)", weeklyDays, monthlyMonths)
	out, err := e.run(ctx, "forget", "--dry-run",
		"--keep-within-weekly", fmt.Sprintf("%dd", weeklyDays),
		"--keep-within-monthly", fmt.Sprintf("%dm", monthlyMonths))
	if err != nil {
		return fmt.Errorf("retention preview: %w", err)
	}
	if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
		e.logger.Debug("retention preview:\n%s", trimmed)
	}
	return nil
}

// Snapshots lists the repository's snapshots. Read-only; runs even in
// dry-run mode.
func (e *Engine) Snapshots(ctx context.Context) ([]Snapshot, error) {
	env := []string{
		"RESTIC_REPOSITORY=" + e.repo,
		"RESTIC_PASSWORD=" + e.password,
	}
	out, err := e.output(ctx, env, []string{"restic", "snapshots", "--json"})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var snapshots []Snapshot
	if err := json.Unmarshal(out, &snapshots); err != nil {
		return nil, fmt.Errorf("parse snapshot list: %w", err)
	}
	return snapshots, nil
}
