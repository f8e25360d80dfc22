package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/stacksave/stacksave/internal/types"
)

type bootstrapEntry struct {
	level   types.LogLevel
	message string
}

// BootstrapLogger accumulates log lines produced before the main logger is
// ready (argument parsing, config loading) so they can be replayed into the
// daily log file once it is open.
type BootstrapLogger struct {
	mu      sync.Mutex
	entries []bootstrapEntry
	flushed bool
}

// NewBootstrapLogger creates a new bootstrap logger.
func NewBootstrapLogger() *BootstrapLogger {
	return &BootstrapLogger{}
}

// Info records an early informational message and prints it to stdout.
func (b *BootstrapLogger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(msg)
	b.record(types.LogLevelInfo, msg)
}

// Warning records an early warning (printed to stderr).
func (b *BootstrapLogger) Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, msg)
	b.record(types.LogLevelWarning, msg)
}

// Error records an early error (printed to stderr).
func (b *BootstrapLogger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, msg)
	b.record(types.LogLevelError, msg)
}

func (b *BootstrapLogger) record(level types.LogLevel, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flushed {
		return
	}
	b.entries = append(b.entries, bootstrapEntry{level: level, message: message})
}

// FlushTo replays the buffered entries into the given logger's log file and
// marks the bootstrap logger as flushed. Entries are written with AppendRaw so
// they are not duplicated on the console.
func (b *BootstrapLogger) FlushTo(logger *Logger) {
	if logger == nil {
		return
	}
	b.mu.Lock()
	entries := b.entries
	b.entries = nil
	b.flushed = true
	b.mu.Unlock()

	for _, e := range entries {
		logger.AppendRaw(fmt.Sprintf("(early) %-8s %s", e.level.String(), e.message))
	}
}
