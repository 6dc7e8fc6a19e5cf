//go:build linux

package app

import (
	"os/exec"

	"golang.org/x/sys/unix"
)

// applyNice sets the started process's scheduling priority. Errors are
// ignored: priority is best-effort, not a correctness requirement for the
// supervisor core.
func applyNice(cmd *exec.Cmd, nice int) {
	if cmd.Process == nil {
		return
	}
	_ = unix.Setpriority(unix.PRIO_PROCESS, cmd.Process.Pid, nice)
}
