//go:build !linux

package app

import "os/exec"

// applyNice is a no-op off Linux; this adapter's process-priority support
// is POSIX/Linux-specific, matching the rest of the corpus's Linux-only
// scheduling code (e.g. base_linux.go/base_other.go split).
func applyNice(cmd *exec.Cmd, nice int) {}
