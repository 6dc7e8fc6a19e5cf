package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// logFiles holds the stdout/stderr handles a process uses when the client
// has not overridden them via SetStdout/SetStderr (spec §4.8 default:
// "stdout,stderr <- log").
type logFiles struct {
	stdout *os.File
	stderr *os.File
}

func newLogFiles(dataDir, name string) (*logFiles, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log dir: %w", err)
	}
	stdout, err := os.Create(filepath.Join(dataDir, name+"-stdout.log"))
	if err != nil {
		return nil, fmt.Errorf("create stdout log: %w", err)
	}
	stderr, err := os.Create(filepath.Join(dataDir, name+"-stderr.log"))
	if err != nil {
		_ = stdout.Close()
		return nil, fmt.Errorf("create stderr log: %w", err)
	}
	return &logFiles{stdout: stdout, stderr: stderr}, nil
}

func (l *logFiles) close() {
	if l.stdout != nil {
		_ = l.stdout.Close()
	}
	if l.stderr != nil {
		_ = l.stderr.Close()
	}
}
