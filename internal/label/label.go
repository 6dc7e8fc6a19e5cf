// Package label implements the security-label PID resolution backing
// supervisor.LabelSource, reading the current security context out of
// procfs the same way the rest of the corpus reaches into /proc for
// process-level attributes (e.g. /proc/self/oom_score_adj in the
// teacher's driver).
package label

import (
	"fmt"
	"os"
	"strings"
)

// Source reads a PID's security label from /proc/<pid>/attr/current, the
// standard Linux LSM interface SMACK and SELinux both expose. The label
// is expected to carry the "app.<name>" convention spec §4.1 resolves
// against.
type Source struct {
	// procPath allows tests to point at a fake procfs tree.
	procPath string
}

// New returns a Source reading the real /proc filesystem.
func New() *Source {
	return &Source{procPath: "/proc"}
}

// newAt is used by tests to read from a temporary directory instead of
// the real /proc.
func newAt(root string) *Source {
	return &Source{procPath: root}
}

// Lookup implements supervisor.LabelSource.
func (s *Source) Lookup(pid int) (string, error) {
	path := fmt.Sprintf("%s/%d/attr/current", s.procPath, pid)
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read security label for pid %d: %w", pid, err)
	}
	return strings.TrimRight(string(raw), "\x00\n"), nil
}
