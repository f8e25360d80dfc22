package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DailyLogPath returns the path of the day's log file under dir:
// {dir}/Backup-YYYY-MM-DD.log. One append-only file per calendar day.
func DailyLogPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("Backup-%s.log", now.Format("2006-01-02")))
}

// OpenDailyLog ensures dir exists and attaches the day's log file to the
// given logger. It returns the log path and a cleanup function that closes
// the file.
func OpenDailyLog(logger *Logger, dir string, now time.Time) (string, func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create log directory: %w", err)
	}

	logPath := DailyLogPath(dir, now)
	if err := logger.OpenLogFile(logPath); err != nil {
		return "", nil, err
	}

	cleanup := func() {
		_ = logger.CloseLogFile()
	}
	return logPath, cleanup, nil
}
