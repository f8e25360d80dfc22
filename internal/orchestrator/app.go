package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/stacksave/stacksave/internal/config"
)

// snapshotTempDir is the per-application scratch directory for
// command-snapshot workflows. Created and removed within a single run.
const snapshotTempDir = ".backup-tmp"

// runSuspendCycle executes the stop -> backup -> start workflow. Each step
// runs at most once; failures are captured per step and joined into the
// application's result. Once the stop command has been issued, the start
// command is attempted on every exit path: a stopped service must never stay
// down because of an unrelated backup error.
func (o *Orchestrator) runSuspendCycle(ctx context.Context, engine Engine, app *config.AppSpec) error {
	stopErr := o.runner.Run(ctx, app.Path, app.StopCommand())
	if stopErr != nil {
		o.logger.Error("stop of %s failed, attempting backup anyway: %v", app.Name, stopErr)
	}

	// The main backup is always attempted, even after a failed stop: the
	// operator needs backup attempts to be visible when shutdown misbehaves.
	mainErr := engine.Backup(ctx, app.Name, app.Path)

	var extraErrs []error
	if stopErr == nil && mainErr == nil {
		for _, path := range app.AdditionalPaths {
			// A failing additional path does not block the next one.
			if err := engine.Backup(ctx, app.Name, path); err != nil {
				extraErrs = append(extraErrs, err)
			}
		}
	} else if len(app.AdditionalPaths) > 0 {
		o.logger.Skip("skipping %d additional path(s) for %s", len(app.AdditionalPaths), app.Name)
	}

	startErr := o.runner.Run(ctx, app.Path, app.StartCommand())
	if startErr != nil {
		o.logger.Error("start of %s failed, stack may be down: %v", app.Name, startErr)
	}

	errs := append([]error{stopErr, mainErr, startErr}, extraErrs...)
	return errors.Join(errs...)
}

// runCommandSnapshot executes the live-dump workflow: prepare a temp
// directory, run the snapshot command inside it, back the directory up, then
// remove it. The temp directory is removed on every exit path after it has
// been created.
func (o *Orchestrator) runCommandSnapshot(ctx context.Context, engine Engine, app *config.AppSpec) error {
	tmp := filepath.Join(app.Path, snapshotTempDir)

	if err := o.prepareTemp(tmp); err != nil {
		// Nothing was created, nothing to clean up.
		return err
	}

	if err := o.runner.Run(ctx, tmp, app.SnapshotCmd); err != nil {
		// No backup is taken of a partial or empty snapshot.
		o.removeTemp(tmp)
		return err
	}

	backupErr := engine.Backup(ctx, app.Name, tmp)
	o.removeTemp(tmp)
	return backupErr
}

// prepareTemp creates a fresh temp directory, discarding any leftover from a
// previous interrupted run.
func (o *Orchestrator) prepareTemp(tmp string) error {
	if o.dryRun {
		o.logger.Skip("dry-run: would create %s", tmp)
		return nil
	}
	if err := o.fs.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clear stale snapshot directory %s: %w", tmp, err)
	}
	if err := o.fs.MkdirAll(tmp, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory %s: %w", tmp, err)
	}
	return nil
}

// removeTemp removes the temp directory. Removal failure is a warning, not
// fatal.
func (o *Orchestrator) removeTemp(tmp string) {
	if o.dryRun {
		return
	}
	if err := o.fs.RemoveAll(tmp); err != nil {
		o.logger.Warning("could not remove snapshot directory %s: %v", tmp, err)
	}
}
