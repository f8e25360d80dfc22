// Package secrets resolves the restic repository credential from one of the
// configured secret backends. Exactly one backend is active per run; all of
// them must produce a single non-empty secret string or the run aborts
// before any backup is attempted.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"

	"github.com/stacksave/stacksave/internal/config"
	"github.com/stacksave/stacksave/internal/logging"
)

// passwordKey is the line extracted from decrypted secrets files.
const passwordKey = "RESTIC_LOCAL_PWD"

// Resolution failures. All of them are fatal to the run.
var (
	ErrMissingFile   = errors.New("secrets file missing")
	ErrToolNotFound  = errors.New("secret lookup tool not found")
	ErrEntryNotFound = errors.New("secret entry not found")
	ErrNoSession     = errors.New("no vault session token")
	ErrItemNotFound  = errors.New("vault item not found")
	ErrEmptySecret   = errors.New("resolved secret is empty")
)

// Resolver produces the repository credential for the configured method.
// External tool calls and filesystem access are injectable for tests.
type Resolver struct {
	logger *logging.Logger

	output       func(ctx context.Context, argv []string) ([]byte, error)
	lookPath     func(file string) (string, error)
	getenv       func(key string) string
	readFile     func(path string) ([]byte, error)
	stat         func(path string) (fs.FileInfo, error)
	openFile     func(path string) (*os.File, error)
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
}

// NewResolver creates a Resolver with OS-backed defaults.
func NewResolver(logger *logging.Logger) *Resolver {
	return &Resolver{
		logger: logger,
		output: func(ctx context.Context, argv []string) ([]byte, error) {
			return exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
		},
		lookPath:     exec.LookPath,
		getenv:       os.Getenv,
		readFile:     os.ReadFile,
		stat:         os.Stat,
		openFile:     os.Open,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

// Resolve dispatches to the configured secret method and returns the
// credential. Resolution is idempotent: it has no side effects beyond
// reading the backing store.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.Config) (string, error) {
	var (
		secret string
		err    error
	)

	switch cfg.SecretsMethod {
	case config.MethodGPG:
		secret, err = r.resolveGPG(ctx, cfg.GPG)
	case config.MethodPass:
		secret, err = r.resolvePass(ctx, cfg.Pass)
	case config.MethodBitwarden:
		secret, err = r.resolveBitwarden(ctx, cfg.Bitwarden)
	case config.MethodAge:
		secret, err = r.resolveAge(cfg.Age)
	default:
		return "", fmt.Errorf("unknown secrets-method %q", cfg.SecretsMethod)
	}
	if err != nil {
		return "", err
	}

	if secret == "" {
		return "", fmt.Errorf("method %s: %w", cfg.SecretsMethod, ErrEmptySecret)
	}
	return secret, nil
}

// resolveGPG decrypts the secrets file with the passphrase file as key
// material and extracts the credential line.
func (r *Resolver) resolveGPG(ctx context.Context, cfg config.GPGSecrets) (string, error) {
	for _, path := range []string{cfg.SecretsFile, cfg.PassphraseFile} {
		if err := r.requireFile(path); err != nil {
			return "", err
		}
	}

	out, err := r.output(ctx, []string{
		"gpg", "--batch", "--quiet", "--decrypt",
		"--passphrase-file", cfg.PassphraseFile,
		"--pinentry-mode", "loopback",
		cfg.SecretsFile,
	})
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", cfg.SecretsFile, err)
	}

	return extractPassword(string(out))
}

// resolvePass looks up the configured entry in the password store.
func (r *Resolver) resolvePass(ctx context.Context, cfg config.PassSecrets) (string, error) {
	if _, err := r.lookPath("pass"); err != nil {
		return "", fmt.Errorf("pass: %w", ErrToolNotFound)
	}

	out, err := r.output(ctx, []string{"pass", "show", cfg.Entry})
	if err != nil {
		return "", fmt.Errorf("pass entry %q: %w", cfg.Entry, ErrEntryNotFound)
	}

	// The first line of a pass entry holds the secret.
	secret, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(secret), nil
}

// resolveBitwarden looks up an item in the vault, gated by an unlock session
// token taken from BW_SESSION or the configured session file. The item's
// notes field is preferred; the password field is the fallback.
func (r *Resolver) resolveBitwarden(ctx context.Context, cfg config.BitwardenSecrets) (string, error) {
	session := strings.TrimSpace(r.getenv("BW_SESSION"))
	if session == "" && cfg.SessionFile != "" {
		data, err := r.readFile(cfg.SessionFile)
		if err == nil {
			session = strings.TrimSpace(string(data))
		}
	}
	if session == "" {
		return "", fmt.Errorf("bitwarden item %q: %w", cfg.Item, ErrNoSession)
	}

	for _, field := range []string{"notes", "password"} {
		out, err := r.output(ctx, []string{"bw", "get", field, cfg.Item, "--session", session})
		if err != nil {
			continue
		}
		if secret := strings.TrimSpace(string(out)); secret != "" {
			return secret, nil
		}
	}
	return "", fmt.Errorf("bitwarden item %q: %w", cfg.Item, ErrItemNotFound)
}

// requireFile checks that path exists and audits its permissions: secret
// material should be mode 0600 or 0400. A loose mode is a warning, never a
// failure.
func (r *Resolver) requireFile(path string) error {
	info, err := r.stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, ErrMissingFile)
	}

	if perm := info.Mode().Perm(); perm != 0o600 && perm != 0o400 {
		r.logger.Warning("secret file %s has mode %04o, expected 0600 or 0400", path, perm)
	}
	return nil
}

// extractPassword pulls the credential out of a decrypted KEY=value document.
func extractPassword(text string) (string, error) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if value, ok := strings.CutPrefix(line, passwordKey+"="); ok {
			return strings.TrimSpace(value), nil
		}
	}
	return "", fmt.Errorf("no %s entry in decrypted secrets", passwordKey)
}
