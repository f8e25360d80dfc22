// Package orchestrator sequences the backup run: resolve the repository
// credential once, back up each declared application with its strategy, back
// up the flat additional paths, then verify the repository and preview
// retention pruning.
package orchestrator

import (
	"context"
	"time"

	"github.com/stacksave/stacksave/internal/config"
	"github.com/stacksave/stacksave/internal/logging"
	"github.com/stacksave/stacksave/internal/runner"
	"github.com/stacksave/stacksave/internal/types"
)

// Orchestrator drives one backup run. It is single-threaded: one external
// command runs to completion before the next step is considered.
type Orchestrator struct {
	cfg    *config.Config
	logger *logging.Logger
	dryRun bool

	fs        FS
	runner    runner.Runner
	secrets   SecretSource
	clock     Clock
	newEngine func(password string) Engine
}

// RunStats summarizes one run for the final report and the metrics export.
type RunStats struct {
	Start time.Time
	End   time.Time

	AppsTotal   int
	AppsFailed  int
	ExtraTotal  int
	ExtraFailed int
}

// Failures reports the number of failed workflow units.
func (s *RunStats) Failures() int {
	return s.AppsFailed + s.ExtraFailed
}

// Run executes the full backup sequence and returns the process exit code.
//
// Applications run in declared order, independently of prior applications'
// outcomes. Only two failures are fatal: secret resolution (aborts before
// any backup) and the final integrity check. Per-application failures change
// the exit code only under the strict-exit policy.
func (o *Orchestrator) Run(ctx context.Context) (types.ExitCode, *RunStats) {
	stats := &RunStats{Start: o.clock.Now()}
	defer func() { stats.End = o.clock.Now() }()

	secret, err := o.secrets.Resolve(ctx, o.cfg)
	if err != nil {
		o.logger.Critical("secret resolution failed: %v", err)
		return types.ExitSecretError, stats
	}
	o.logger.Debug("repository credential resolved via method %q", o.cfg.SecretsMethod)

	engine := o.newEngine(secret)

	for i := range o.cfg.DockerApps {
		app := &o.cfg.DockerApps[i]
		stats.AppsTotal++

		o.logger.Step("application %s (%s)", app.Name, app.Mode())

		var appErr error
		switch app.Mode() {
		case types.ModeCommandSnapshot:
			appErr = o.runCommandSnapshot(ctx, engine, app)
		default:
			appErr = o.runSuspendCycle(ctx, engine, app)
		}

		if appErr != nil {
			stats.AppsFailed++
			o.logger.Error("application %s finished with errors: %v", app.Name, appErr)
		}
	}

	for _, extra := range o.cfg.AdditionalBackups {
		stats.ExtraTotal++
		if err := engine.Backup(ctx, extra.Name, extra.Path); err != nil {
			stats.ExtraFailed++
		}
	}

	if err := engine.Check(ctx); err != nil {
		o.logger.Critical("repository integrity check failed: %v", err)
		return types.ExitVerificationError, stats
	}

	// Retention preview is informational; its outcome never affects the
	// exit status.
	if err := engine.ForgetPreview(ctx, o.cfg.KeepWithinWeeklyDays, o.cfg.KeepWithinMonthlyMonths); err != nil {
		o.logger.Warning("retention preview failed: %v", err)
	}

	if o.cfg.StrictExit && stats.Failures() > 0 {
		o.logger.Error("%d backup unit(s) failed (strict exit)", stats.Failures())
		return types.ExitBackupError, stats
	}
	return types.ExitSuccess, stats
}
