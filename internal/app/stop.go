package app

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
)

// stopWithDone implements the SIGTERM-then-SIGKILL shutdown sequence
// against a done channel that already has a goroutine calling cmd.Wait
// (set up in process.Start). Mirrors the shutdown sequence used across the
// retrieved process-supervision corpus: signal, grace period, escalate,
// bounded drain.
func stopWithDone(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string, logger hclog.Logger) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		drain(done, killDrainTimeout, name, logger)
		return
	}

	grace := termGracePeriod
	if grace > timeout {
		grace = timeout
	}
	killTimer := time.AfterFunc(grace, func() {
		_ = cmd.Process.Kill()
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(timeout)
	defer totalTimer.Stop()

	select {
	case <-done:
		return
	case <-totalTimer.C:
		drain(done, killDrainTimeout, name, logger)
	}
}

func drain(done <-chan error, timeout time.Duration, name string, logger hclog.Logger) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		logger.Warn("timed out waiting for process to exit after kill", "name", name)
	}
}
