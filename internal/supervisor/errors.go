package supervisor

import (
	"errors"
	"time"
)

// Exit codes reserved by the supervisor so operators can tell its own
// failures apart from handler exit codes.
const (
	// ExitInstallRootMissing: expected install directory absent at startup.
	ExitInstallRootMissing = 3
	// ExitStartupTimeout: inference server never became ready.
	ExitStartupTimeout = 4
	// ExitVolumeMissing: mounted volume required but absent.
	ExitVolumeMissing = 5
)

// installRootMissingError signals the fail-fast startup precondition:
// the inference server's install root does not exist.
type installRootMissingError struct{ path string }

func (e installRootMissingError) Error() string {
	return "install root does not exist: " + e.path
}

// IsInstallRootMissing reports whether err is the missing-install-root guard.
func IsInstallRootMissing(err error) bool {
	var e installRootMissingError
	return errors.As(err, &e)
}

// startupTimeoutError signals that readiness was never observed within the
// configured wait.
type startupTimeoutError struct {
	baseURL string
	wait    time.Duration
}

func (e startupTimeoutError) Error() string {
	return "inference server not ready at " + e.baseURL + " within " + e.wait.String()
}

// IsStartupTimeout reports whether err indicates a readiness timeout.
func IsStartupTimeout(err error) bool {
	var e startupTimeoutError
	return errors.As(err, &e)
}

// serverExitedError signals the inference server died before readiness.
type serverExitedError struct {
	err  error
	tail string
}

func (e serverExitedError) Error() string {
	msg := "inference server exited before becoming ready"
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	if e.tail != "" {
		msg += "\nstderr tail:\n" + e.tail
	}
	return msg
}

func (e serverExitedError) Unwrap() error { return e.err }

// IsServerExited reports whether err indicates an early server exit.
func IsServerExited(err error) bool {
	var e serverExitedError
	return errors.As(err, &e)
}

// volumeMissingError signals a deployment that requires the mounted volume
// started without one.
type volumeMissingError struct{ path string }

func (e volumeMissingError) Error() string {
	return "required volume not mounted: " + e.path
}

// IsVolumeMissing reports whether err is the missing-volume guard.
func IsVolumeMissing(err error) bool {
	var e volumeMissingError
	return errors.As(err, &e)
}
