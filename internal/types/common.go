// Package types defines shared application data types.
package types

// BackupMode represents the strategy used to back up one application.
type BackupMode string

const (
	// ModeSuspendCycle - stop the stack, back up its on-disk state, restart it.
	ModeSuspendCycle BackupMode = "suspend-cycle"

	// ModeCommandSnapshot - run a live dump command into a temp directory and back that up.
	ModeCommandSnapshot BackupMode = "command-snapshot"
)

// String returns the string representation of the backup mode.
func (m BackupMode) String() string {
	return string(m)
}

// LogLevel represents the logging level.
type LogLevel int

const (
	// LogLevelDebug - Debug logs (maximum detail)
	LogLevelDebug LogLevel = 5

	// LogLevelInfo - General information
	LogLevelInfo LogLevel = 4

	// LogLevelWarning - Warnings
	LogLevelWarning LogLevel = 3

	// LogLevelError - Errors
	LogLevelError LogLevel = 2

	// LogLevelCritical - Critical errors
	LogLevelCritical LogLevel = 1

	// LogLevelNone - No logs
	LogLevelNone LogLevel = 0
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARNING"
	case LogLevelError:
		return "ERROR"
	case LogLevelCritical:
		return "CRITICAL"
	case LogLevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}
