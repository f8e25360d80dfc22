package secrets

import (
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"

	"github.com/stacksave/stacksave/internal/config"
)

// resolveAge decrypts an age-encrypted secrets file with a passphrase
// (scrypt identity) and extracts the credential line. The passphrase comes
// from the configured passphrase file; when that file is absent and stdin is
// a terminal, the operator is prompted instead.
func (r *Resolver) resolveAge(cfg config.AgeSecrets) (string, error) {
	if err := r.requireFile(cfg.SecretsFile); err != nil {
		return "", err
	}

	passphrase, err := r.agePassphrase(cfg.PassphraseFile)
	if err != nil {
		return "", err
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", fmt.Errorf("derive age identity: %w", err)
	}

	f, err := r.openFile(cfg.SecretsFile)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cfg.SecretsFile, ErrMissingFile)
	}
	defer f.Close()

	plain, err := age.Decrypt(f, identity)
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", cfg.SecretsFile, err)
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read decrypted secrets: %w", err)
	}

	return extractPassword(string(data))
}

func (r *Resolver) agePassphrase(path string) (string, error) {
	if path != "" {
		if err := r.requireFile(path); err == nil {
			data, err := r.readFile(path)
			if err != nil {
				return "", fmt.Errorf("read passphrase file: %w", err)
			}
			return strings.TrimSpace(string(data)), nil
		}
	}

	if !r.isTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("age passphrase file %q: %w", path, ErrMissingFile)
	}

	fmt.Fprint(os.Stderr, "Enter age passphrase: ")
	pw, err := r.readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return strings.TrimSpace(string(pw)), nil
}
