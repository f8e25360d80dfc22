// Package config loads and validates the stacksave YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stacksave/stacksave/internal/types"
)

// Secret resolution methods.
const (
	MethodGPG       = "gpg"
	MethodPass      = "pass"
	MethodBitwarden = "bitwarden"
	MethodAge       = "age"
)

// Default lifecycle commands for compose stacks. The stop side carries the
// 300s drain timeout; the start side waits for the stack to become healthy
// within the same window.
var (
	defaultStopCmd  = []string{"docker", "compose", "down", "--timeout", "300"}
	defaultStartCmd = []string{"docker", "compose", "up", "-d", "--wait", "--wait-timeout", "300"}
)

// Config holds the full configuration for one run.
type Config struct {
	LogPath    string `yaml:"log-path"`
	ResticRepo string `yaml:"restic-repo"`

	SecretsMethod string           `yaml:"secrets-method"`
	GPG           GPGSecrets       `yaml:"gpg"`
	Pass          PassSecrets      `yaml:"pass"`
	Bitwarden     BitwardenSecrets `yaml:"bitwarden"`
	Age           AgeSecrets       `yaml:"age"`

	DockerApps        []AppSpec          `yaml:"docker-apps"`
	AdditionalBackups []AdditionalBackup `yaml:"additional-backups"`

	// StrictExit aggregates per-application/per-path failures into a
	// non-zero process exit. Default false: backups are best-effort and
	// only secret resolution / integrity check failures are fatal.
	StrictExit bool `yaml:"strict-exit"`

	// MetricsDir enables the node_exporter textfile export when set.
	MetricsDir string `yaml:"metrics-dir"`

	// Retention preview policy (restic forget --dry-run).
	KeepWithinWeeklyDays    int `yaml:"keep-within-weekly"`
	KeepWithinMonthlyMonths int `yaml:"keep-within-monthly"`
}

// GPGSecrets configures the gpg secret method: a gpg-encrypted secrets file
// decrypted with a passphrase file.
type GPGSecrets struct {
	SecretsFile    string `yaml:"secrets-file"`
	PassphraseFile string `yaml:"passphrase-file"`
}

// PassSecrets configures the password-store secret method.
type PassSecrets struct {
	Entry string `yaml:"entry"`
}

// BitwardenSecrets configures the vault secret method. The session token is
// taken from BW_SESSION or, failing that, read from SessionFile.
type BitwardenSecrets struct {
	Item        string `yaml:"item"`
	SessionFile string `yaml:"session-file"`
}

// AgeSecrets configures the age secret method: an age-encrypted secrets file
// decrypted with a passphrase file (scrypt identity).
type AgeSecrets struct {
	SecretsFile    string `yaml:"secrets-file"`
	PassphraseFile string `yaml:"passphrase-file"`
}

// AppSpec declares one backup target application.
type AppSpec struct {
	Name            string   `yaml:"name"`
	Path            string   `yaml:"path"`
	StartCmd        []string `yaml:"start_cmd"`
	StopCmd         []string `yaml:"stop_cmd"`
	SnapshotCmd     []string `yaml:"snapshot_cmd"`
	AdditionalPaths []string `yaml:"additional_paths"`
}

// Mode derives the backup strategy: command-snapshot when a snapshot command
// is declared, suspend-cycle otherwise.
func (a *AppSpec) Mode() types.BackupMode {
	if len(a.SnapshotCmd) > 0 {
		return types.ModeCommandSnapshot
	}
	return types.ModeSuspendCycle
}

// StopCommand returns the stop command, defaulted if absent.
func (a *AppSpec) StopCommand() []string {
	if len(a.StopCmd) > 0 {
		return a.StopCmd
	}
	return defaultStopCmd
}

// StartCommand returns the start command, defaulted if absent.
func (a *AppSpec) StartCommand() []string {
	if len(a.StartCmd) > 0 {
		return a.StartCmd
	}
	return defaultStartCmd
}

// AdditionalBackup is a bare (name, path) pair backed up with no lifecycle.
type AdditionalBackup struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Load reads, parses, defaults and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.SecretsMethod == "" {
		cfg.SecretsMethod = MethodGPG
	}
	if cfg.LogPath == "" {
		cfg.LogPath = "/var/log/stacksave"
	}
	if cfg.KeepWithinWeeklyDays == 0 {
		cfg.KeepWithinWeeklyDays = 30
	}
	if cfg.KeepWithinMonthlyMonths == 0 {
		cfg.KeepWithinMonthlyMonths = 12
	}
}

// Validate checks the configuration for pre-flight errors.
func (c *Config) Validate() error {
	if c.ResticRepo == "" {
		return fmt.Errorf("restic-repo cannot be empty")
	}

	switch c.SecretsMethod {
	case MethodGPG:
		if c.GPG.SecretsFile == "" || c.GPG.PassphraseFile == "" {
			return fmt.Errorf("secrets-method %q requires gpg.secrets-file and gpg.passphrase-file", MethodGPG)
		}
	case MethodPass:
		if c.Pass.Entry == "" {
			return fmt.Errorf("secrets-method %q requires pass.entry", MethodPass)
		}
	case MethodBitwarden:
		if c.Bitwarden.Item == "" {
			return fmt.Errorf("secrets-method %q requires bitwarden.item", MethodBitwarden)
		}
	case MethodAge:
		if c.Age.SecretsFile == "" {
			return fmt.Errorf("secrets-method %q requires age.secrets-file", MethodAge)
		}
	default:
		return fmt.Errorf("unknown secrets-method %q", c.SecretsMethod)
	}

	seen := make(map[string]bool, len(c.DockerApps))
	for i := range c.DockerApps {
		app := &c.DockerApps[i]
		if app.Name == "" {
			return fmt.Errorf("docker-apps[%d]: name cannot be empty", i)
		}
		if app.Path == "" {
			return fmt.Errorf("docker-apps[%d] (%s): path cannot be empty", i, app.Name)
		}
		// Duplicate names would silently merge restic tags.
		if seen[app.Name] {
			return fmt.Errorf("docker-apps: duplicate name %q", app.Name)
		}
		seen[app.Name] = true

		// An application is never both suspend-cycle and command-snapshot.
		if len(app.SnapshotCmd) > 0 && (len(app.StartCmd) > 0 || len(app.StopCmd) > 0) {
			return fmt.Errorf("docker-apps: %s declares both snapshot_cmd and start_cmd/stop_cmd", app.Name)
		}
		if len(app.SnapshotCmd) > 0 && len(app.AdditionalPaths) > 0 {
			return fmt.Errorf("docker-apps: %s declares additional_paths, which only apply in suspend-cycle mode", app.Name)
		}
	}

	for i, extra := range c.AdditionalBackups {
		if extra.Name == "" || extra.Path == "" {
			return fmt.Errorf("additional-backups[%d]: name and path are required", i)
		}
	}

	if c.KeepWithinWeeklyDays < 0 || c.KeepWithinMonthlyMonths < 0 {
		return fmt.Errorf("retention windows cannot be negative")
	}
	return nil
}
