package orchestrator

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/stacksave/stacksave/internal/config"
	"github.com/stacksave/stacksave/internal/logging"
	"github.com/stacksave/stacksave/internal/restic"
	"github.com/stacksave/stacksave/internal/runner"
	"github.com/stacksave/stacksave/internal/secrets"
)

// FS abstracts the filesystem operations the orchestrator needs, to simplify
// testing.
type FS interface {
	MkdirAll(path string, perm fs.FileMode) error
	RemoveAll(path string) error
}

// Engine is the boundary to the backup engine: one verb to snapshot a path
// under a tag, one to check repository integrity, one to preview retention.
type Engine interface {
	Backup(ctx context.Context, tag, path string) error
	Check(ctx context.Context) error
	ForgetPreview(ctx context.Context, weeklyDays, monthlyMonths int) error
}

// SecretSource resolves the repository credential.
type SecretSource interface {
	Resolve(ctx context.Context, cfg *config.Config) (string, error)
}

// Clock abstracts time acquisition for determinism in tests.
type Clock interface {
	Now() time.Time
}

// Deps groups optional orchestrator dependencies. Zero fields fall back to
// OS-backed defaults.
type Deps struct {
	Logger    *logging.Logger
	FS        FS
	Runner    runner.Runner
	Secrets   SecretSource
	Clock     Clock
	NewEngine func(password string) Engine
}

type osFS struct{}

func (osFS) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }
func (osFS) RemoveAll(path string) error                  { return os.RemoveAll(path) }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// New builds an orchestrator for the given configuration with OS-backed
// defaults for any dependency not supplied in deps.
func New(cfg *config.Config, dryRun bool, deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	o := &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		dryRun:    dryRun,
		fs:        deps.FS,
		runner:    deps.Runner,
		secrets:   deps.Secrets,
		clock:     deps.Clock,
		newEngine: deps.NewEngine,
	}

	if o.fs == nil {
		o.fs = osFS{}
	}
	if o.runner == nil {
		o.runner = runner.New(logger, dryRun)
	}
	if o.secrets == nil {
		o.secrets = secrets.NewResolver(logger)
	}
	if o.clock == nil {
		o.clock = realClock{}
	}
	if o.newEngine == nil {
		o.newEngine = func(password string) Engine {
			return restic.New(logger, cfg.ResticRepo, password, dryRun)
		}
	}
	return o
}
