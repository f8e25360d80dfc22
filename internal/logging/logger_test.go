package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stacksave/stacksave/internal/types"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(types.LogLevelWarning, false)
	logger.SetOutput(&buf)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warning("visible warning")
	logger.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "visible warning") || !strings.Contains(out, "visible error") {
		t.Errorf("expected warning and error in output: %q", out)
	}
}

func TestLoggerCounters(t *testing.T) {
	logger := New(types.LogLevelDebug, false)
	logger.SetOutput(&bytes.Buffer{})

	if logger.HasWarnings() || logger.HasErrors() {
		t.Fatal("fresh logger should have no counters set")
	}

	logger.Warning("w")
	if !logger.HasWarnings() {
		t.Error("HasWarnings = false after a warning")
	}
	logger.Error("e")
	if !logger.HasErrors() {
		t.Error("HasErrors = false after an error")
	}
}

func TestLoggerFileOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	logger := New(types.LogLevelInfo, true)
	logger.SetOutput(&bytes.Buffer{})
	if err := logger.OpenLogFile(logPath); err != nil {
		t.Fatalf("OpenLogFile: %v", err)
	}

	logger.Info("first line")
	logger.Error("second line")
	if err := logger.CloseLogFile(); err != nil {
		t.Fatalf("CloseLogFile: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.Contains(content, "first line") || !strings.Contains(content, "second line") {
		t.Errorf("log file missing lines: %q", content)
	}
	// File output carries timestamps but never ANSI colors.
	if strings.Contains(content, "\033[") {
		t.Errorf("log file contains color codes: %q", content)
	}
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		if !strings.HasPrefix(line, "[") {
			t.Errorf("line not timestamped: %q", line)
		}
	}
}

func TestLoggerFatalUsesExitFunc(t *testing.T) {
	logger := New(types.LogLevelInfo, false)
	logger.SetOutput(&bytes.Buffer{})

	var captured int
	logger.SetExitFunc(func(code int) { captured = code })
	logger.Fatal(types.ExitConfigError, "boom")

	if captured != types.ExitConfigError.Int() {
		t.Errorf("exit code = %d, want %d", captured, types.ExitConfigError.Int())
	}
}

func TestDailyLogPath(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	got := DailyLogPath("/var/log/stacksave", now)
	want := "/var/log/stacksave/Backup-2026-08-30.log"
	if got != want {
		t.Errorf("DailyLogPath = %q, want %q", got, want)
	}
}

func TestOpenDailyLogCreatesDirectoryAndAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	logger := New(types.LogLevelInfo, false)
	logger.SetOutput(&bytes.Buffer{})

	logPath, cleanup, err := OpenDailyLog(logger, dir, now)
	if err != nil {
		t.Fatalf("OpenDailyLog: %v", err)
	}
	logger.Info("run one")
	cleanup()

	// A second run on the same day appends to the same file.
	logger2 := New(types.LogLevelInfo, false)
	logger2.SetOutput(&bytes.Buffer{})
	logPath2, cleanup2, err := OpenDailyLog(logger2, dir, now)
	if err != nil {
		t.Fatalf("second OpenDailyLog: %v", err)
	}
	logger2.Info("run two")
	cleanup2()

	if logPath != logPath2 {
		t.Errorf("paths differ for same day: %q vs %q", logPath, logPath2)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "run one") || !strings.Contains(string(data), "run two") {
		t.Errorf("daily log did not append both runs: %q", string(data))
	}
}

func TestBootstrapFlush(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "boot.log")

	bootstrap := NewBootstrapLogger()
	bootstrap.Info("early message")
	bootstrap.Error("early failure")

	logger := New(types.LogLevelInfo, false)
	logger.SetOutput(&bytes.Buffer{})
	if err := logger.OpenLogFile(logPath); err != nil {
		t.Fatal(err)
	}
	bootstrap.FlushTo(logger)
	// A second flush must not duplicate entries.
	bootstrap.FlushTo(logger)
	logger.CloseLogFile()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if got := strings.Count(content, "early message"); got != 1 {
		t.Errorf("early message appears %d times, want 1", got)
	}
	if !strings.Contains(content, "early failure") {
		t.Errorf("flushed log missing error entry: %q", content)
	}
}
