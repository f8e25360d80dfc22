package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/stacksave/stacksave/internal/checks"
	"github.com/stacksave/stacksave/internal/cli"
	"github.com/stacksave/stacksave/internal/config"
	"github.com/stacksave/stacksave/internal/logging"
	"github.com/stacksave/stacksave/internal/metrics"
	"github.com/stacksave/stacksave/internal/orchestrator"
	"github.com/stacksave/stacksave/internal/restic"
	"github.com/stacksave/stacksave/internal/secrets"
	"github.com/stacksave/stacksave/internal/tui"
	"github.com/stacksave/stacksave/internal/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	bootstrap := logging.NewBootstrapLogger()

	defer func() {
		if r := recover(); r != nil {
			bootstrap.Error("PANIC: %v", r)
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(types.ExitPanicError.Int())
		}
	}()

	// Handle SIGINT (Ctrl+C) and SIGTERM via context cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		bootstrap.Warning("received signal %v, shutting down", sig)
		cancel()
	}()

	args := cli.Parse()

	if args.ShowVersion {
		cli.ShowVersion()
		return types.ExitSuccess.Int()
	}
	if args.ShowHelp {
		cli.ShowHelp()
		return types.ExitSuccess.Int()
	}

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		bootstrap.Error("Configuration error: %v", err)
		return types.ExitConfigError.Int()
	}

	logger := logging.New(args.LogLevel, true)
	logging.SetDefaultLogger(logger)

	if args.Snapshots {
		return browseSnapshots(ctx, logger, cfg).Int()
	}

	checker := checks.NewChecker(logger, cfg)
	if err := checks.Failed(checker.RunAll()); err != nil {
		logger.Critical("%v", err)
		return types.ExitEnvironmentError.Int()
	}

	logPath, closeLog, err := logging.OpenDailyLog(logger, cfg.LogPath, time.Now())
	if err != nil {
		bootstrap.Error("Cannot open log sink: %v", err)
		return types.ExitGenericError.Int()
	}
	defer closeLog()
	bootstrap.FlushTo(logger)

	runID := uuid.NewString()
	logger.Info("starting backup run %s (log %s)", runID, logPath)
	if args.DryRun {
		logger.Info("dry-run mode: no commands will be executed")
	}

	orch := orchestrator.New(cfg, args.DryRun, orchestrator.Deps{Logger: logger})
	exitCode, stats := orch.Run(ctx)

	exportMetrics(logger, cfg, runID, exitCode, stats)
	printSummary(logger, runID, exitCode, stats)

	return exitCode.Int()
}

// browseSnapshots resolves the credential and opens the interactive snapshot
// browser instead of running a backup.
func browseSnapshots(ctx context.Context, logger *logging.Logger, cfg *config.Config) types.ExitCode {
	secret, err := secrets.NewResolver(logger).Resolve(ctx, cfg)
	if err != nil {
		logger.Critical("secret resolution failed: %v", err)
		return types.ExitSecretError
	}

	engine := restic.New(logger, cfg.ResticRepo, secret, false)
	snapshots, err := engine.Snapshots(ctx)
	if err != nil {
		logger.Error("%v", err)
		return types.ExitGenericError
	}
	if len(snapshots) == 0 {
		logger.Info("repository has no snapshots")
		return types.ExitSuccess
	}

	if err := tui.BrowseSnapshots(snapshots); err != nil {
		logger.Error("snapshot browser failed: %v", err)
		return types.ExitGenericError
	}
	return types.ExitSuccess
}

func exportMetrics(logger *logging.Logger, cfg *config.Config, runID string, exitCode types.ExitCode, stats *orchestrator.RunStats) {
	if cfg.MetricsDir == "" {
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	exporter := metrics.NewExporter(cfg.MetricsDir, logger)
	err = exporter.Export(&metrics.RunMetrics{
		RunID:       runID,
		Hostname:    hostname,
		StartTime:   stats.Start,
		EndTime:     stats.End,
		ExitCode:    exitCode.Int(),
		AppsTotal:   stats.AppsTotal,
		AppsFailed:  stats.AppsFailed,
		ExtraTotal:  stats.ExtraTotal,
		ExtraFailed: stats.ExtraFailed,
	})
	if err != nil {
		logger.Warning("metrics export failed: %v", err)
	}
}

func printSummary(logger *logging.Logger, runID string, exitCode types.ExitCode, stats *orchestrator.RunStats) {
	logger.Info("run %s finished in %s: %d/%d applications ok, %d/%d additional backups ok, exit: %s",
		runID,
		stats.End.Sub(stats.Start).Round(time.Second),
		stats.AppsTotal-stats.AppsFailed, stats.AppsTotal,
		stats.ExtraTotal-stats.ExtraFailed, stats.ExtraTotal,
		exitCode)
}
