package types

// ExitCode represents the application's exit codes.
type ExitCode int

const (
	// ExitSuccess - Execution completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGenericError - Unspecified generic error.
	ExitGenericError ExitCode = 1

	// ExitConfigError - Configuration error.
	ExitConfigError ExitCode = 2

	// ExitEnvironmentError - Required external tool missing or unusable.
	ExitEnvironmentError ExitCode = 3

	// ExitSecretError - Repository credential could not be resolved.
	ExitSecretError ExitCode = 4

	// ExitBackupError - One or more backups failed (strict exit policy).
	ExitBackupError ExitCode = 5

	// ExitVerificationError - Repository integrity check failed.
	ExitVerificationError ExitCode = 6

	// ExitPanicError - Unhandled panic caught.
	ExitPanicError ExitCode = 7
)

// String returns a human-readable description of the exit code.
func (e ExitCode) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitGenericError:
		return "generic error"
	case ExitConfigError:
		return "configuration error"
	case ExitEnvironmentError:
		return "environment error"
	case ExitSecretError:
		return "secret resolution error"
	case ExitBackupError:
		return "backup error"
	case ExitVerificationError:
		return "verification error"
	case ExitPanicError:
		return "panic error"
	default:
		return "unknown error"
	}
}

// Int returns the exit code as an integer.
func (e ExitCode) Int() int {
	return int(e)
}
