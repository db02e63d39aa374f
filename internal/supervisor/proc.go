package supervisor

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// watch starts a goroutine delivering cmd.Wait's result exactly once.
func watch(cmd *exec.Cmd) <-chan error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	return done
}

// stopProcess asks a child to terminate: SIGTERM, a grace period, then
// SIGKILL. done must be the channel from watch for the same command.
// Returns the child's wait error once it is gone.
func stopProcess(cmd *exec.Cmd, done <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	// Already reaped (its done value was consumed elsewhere): signalling
	// would hit a dead pid and the channel will never deliver again.
	if cmd.ProcessState != nil {
		return nil
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
	}
	_ = cmd.Process.Kill()
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		return errors.New("child did not exit after kill")
	}
}

// exitCode maps a wait error to the process exit code the container should
// surface: 0 on clean exit, the child's own code as-is, 1 for anything the
// OS could not attribute.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if c := ee.ExitCode(); c >= 0 {
			return c
		}
		// killed by signal: no code to propagate
		return 1
	}
	return 1
}
