package secrets

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"

	"github.com/stacksave/stacksave/internal/config"
)

func writeAgeSecrets(t *testing.T, dir, passphrase, content string) string {
	t.Helper()

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		t.Fatal(err)
	}
	// Low work factor keeps the test fast; decryption honors whatever the
	// header declares.
	recipient.SetWorkFactor(10)

	path := filepath.Join(dir, "secrets.age")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	w, err := age.Encrypt(f, recipient)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveAgeRoundtrip(t *testing.T) {
	dir := t.TempDir()
	secretsFile := writeAgeSecrets(t, dir, "correct horse", "RESTIC_LOCAL_PWD=age-secret\n")

	passFile := filepath.Join(dir, "passphrase")
	if err := os.WriteFile(passFile, []byte("correct horse\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		SecretsMethod: config.MethodAge,
		Age:           config.AgeSecrets{SecretsFile: secretsFile, PassphraseFile: passFile},
	}

	secret, err := testResolver().Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if secret != "age-secret" {
		t.Errorf("secret = %q, want age-secret", secret)
	}
}

func TestResolveAgeWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	secretsFile := writeAgeSecrets(t, dir, "correct horse", "RESTIC_LOCAL_PWD=age-secret\n")

	passFile := filepath.Join(dir, "passphrase")
	if err := os.WriteFile(passFile, []byte("wrong horse"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		SecretsMethod: config.MethodAge,
		Age:           config.AgeSecrets{SecretsFile: secretsFile, PassphraseFile: passFile},
	}

	if _, err := testResolver().Resolve(context.Background(), cfg); err == nil {
		t.Error("expected decryption failure with wrong passphrase")
	}
}

func TestResolveAgeMissingPassphraseNoTTY(t *testing.T) {
	dir := t.TempDir()
	secretsFile := writeAgeSecrets(t, dir, "correct horse", "RESTIC_LOCAL_PWD=age-secret\n")

	cfg := &config.Config{
		SecretsMethod: config.MethodAge,
		Age: config.AgeSecrets{
			SecretsFile:    secretsFile,
			PassphraseFile: filepath.Join(dir, "absent"),
		},
	}

	_, err := testResolver().Resolve(context.Background(), cfg)
	if !errors.Is(err, ErrMissingFile) {
		t.Errorf("err = %v, want ErrMissingFile", err)
	}
}

func TestResolveAgePromptsWhenTerminal(t *testing.T) {
	dir := t.TempDir()
	secretsFile := writeAgeSecrets(t, dir, "correct horse", "RESTIC_LOCAL_PWD=age-secret\n")

	r := testResolver()
	r.isTerminal = func(int) bool { return true }
	r.readPassword = func(int) ([]byte, error) { return []byte("correct horse"), nil }

	cfg := &config.Config{
		SecretsMethod: config.MethodAge,
		Age:           config.AgeSecrets{SecretsFile: secretsFile},
	}

	secret, err := r.Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if secret != "age-secret" {
		t.Errorf("secret = %q, want age-secret", secret)
	}
}
