package checks

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stacksave/stacksave/internal/config"
	"github.com/stacksave/stacksave/internal/logging"
	"github.com/stacksave/stacksave/internal/types"
)

func testChecker(cfg *config.Config) *Checker {
	c := NewChecker(logging.New(types.LogLevelNone, false), cfg)
	c.lookPath = func(string) (string, error) { return "/usr/bin/tool", nil }
	c.mkdirAll = func(string, os.FileMode) error { return nil }
	c.writeFile = func(string, []byte, os.FileMode) error { return nil }
	c.remove = func(string) error { return nil }
	return c
}

func TestAllChecksPass(t *testing.T) {
	cfg := &config.Config{
		LogPath:    "/var/log/stacksave",
		DockerApps: []config.AppSpec{{Name: "web", Path: "/srv/web"}},
	}
	if err := Failed(testChecker(cfg).RunAll()); err != nil {
		t.Errorf("Failed = %v, want nil", err)
	}
}

func TestMissingRestic(t *testing.T) {
	cfg := &config.Config{LogPath: "/var/log/stacksave"}
	c := testChecker(cfg)
	c.lookPath = func(name string) (string, error) {
		if name == "restic" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	err := Failed(c.RunAll())
	if err == nil || !strings.Contains(err.Error(), "restic") {
		t.Errorf("err = %v, want restic failure", err)
	}
}

func TestDockerOnlyRequiredForSuspendCycleApps(t *testing.T) {
	noDocker := func(name string) (string, error) {
		if name == "docker" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	// Only command-snapshot apps: docker is not needed.
	cfg := &config.Config{
		LogPath:    "/var/log/stacksave",
		DockerApps: []config.AppSpec{{Name: "db", Path: "/srv/db", SnapshotCmd: []string{"dump"}}},
	}
	c := testChecker(cfg)
	c.lookPath = noDocker
	if err := Failed(c.RunAll()); err != nil {
		t.Errorf("Failed = %v, want nil without suspend-cycle apps", err)
	}

	// A suspend-cycle app makes docker mandatory.
	cfg.DockerApps = append(cfg.DockerApps, config.AppSpec{Name: "web", Path: "/srv/web"})
	c2 := testChecker(cfg)
	c2.lookPath = noDocker
	err := Failed(c2.RunAll())
	if err == nil || !strings.Contains(err.Error(), "docker") {
		t.Errorf("err = %v, want docker failure", err)
	}
}

func TestUnwritableLogDir(t *testing.T) {
	cfg := &config.Config{LogPath: "/var/log/stacksave"}
	c := testChecker(cfg)
	c.writeFile = func(string, []byte, os.FileMode) error {
		return errors.New("read-only filesystem")
	}

	err := Failed(c.RunAll())
	if err == nil || !strings.Contains(err.Error(), "log-path") {
		t.Errorf("err = %v, want log-path failure", err)
	}
}
