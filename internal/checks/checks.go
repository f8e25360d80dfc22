// Package checks performs pre-backup environment validation.
package checks

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/stacksave/stacksave/internal/config"
	"github.com/stacksave/stacksave/internal/logging"
	"github.com/stacksave/stacksave/internal/types"
)

// Checker validates the environment before any backup step runs.
type Checker struct {
	logger *logging.Logger
	cfg    *config.Config

	lookPath  func(file string) (string, error)
	mkdirAll  func(path string, perm os.FileMode) error
	writeFile func(path string, data []byte, perm os.FileMode) error
	remove    func(path string) error
}

// CheckResult holds the result of a single validation check.
type CheckResult struct {
	Name    string
	Passed  bool
	Message string
}

// NewChecker creates a pre-backup checker with OS-backed defaults.
func NewChecker(logger *logging.Logger, cfg *config.Config) *Checker {
	return &Checker{
		logger:    logger,
		cfg:       cfg,
		lookPath:  exec.LookPath,
		mkdirAll:  os.MkdirAll,
		writeFile: os.WriteFile,
		remove:    os.Remove,
	}
}

// RunAll runs every preflight check and returns the results. Any failed
// check is fatal to the run before the first backup step.
func (c *Checker) RunAll() []CheckResult {
	results := []CheckResult{
		c.checkTool("restic", "backup engine"),
		c.checkLogDir(),
	}

	if c.hasSuspendCycleApps() {
		results = append(results, c.checkTool("docker", "container runtime"))
	}

	for _, res := range results {
		if res.Passed {
			c.logger.Debug("check %s: ok", res.Name)
		} else {
			c.logger.Error("check %s: %s", res.Name, res.Message)
		}
	}
	return results
}

// Failed returns an error describing the first failed check, or nil.
func Failed(results []CheckResult) error {
	for _, res := range results {
		if !res.Passed {
			return fmt.Errorf("preflight check %s failed: %s (%s)",
				res.Name, res.Message, types.ExitEnvironmentError)
		}
	}
	return nil
}

func (c *Checker) checkTool(name, role string) CheckResult {
	if _, err := c.lookPath(name); err != nil {
		return CheckResult{
			Name:    name,
			Message: fmt.Sprintf("%s binary not found on PATH (%s)", name, role),
		}
	}
	return CheckResult{Name: name, Passed: true}
}

// checkLogDir verifies that the log directory exists (creating it if needed)
// and is writable, using a throwaway probe file.
func (c *Checker) checkLogDir() CheckResult {
	result := CheckResult{Name: "log-path"}

	if err := c.mkdirAll(c.cfg.LogPath, 0o755); err != nil {
		result.Message = fmt.Sprintf("cannot create log directory %s: %v", c.cfg.LogPath, err)
		return result
	}

	probe := filepath.Join(c.cfg.LogPath, ".write-probe")
	if err := c.writeFile(probe, []byte("probe"), 0o600); err != nil {
		result.Message = fmt.Sprintf("log directory %s is not writable: %v", c.cfg.LogPath, err)
		return result
	}
	if err := c.remove(probe); err != nil {
		c.logger.Warning("could not remove probe file %s: %v", probe, err)
	}

	result.Passed = true
	return result
}

func (c *Checker) hasSuspendCycleApps() bool {
	for i := range c.cfg.DockerApps {
		if c.cfg.DockerApps[i].Mode() == types.ModeSuspendCycle {
			return true
		}
	}
	return false
}
