// Package app provides the concrete Application adapter the daemon wires
// into internal/supervisor. The core only ever sees the narrow
// supervisor.Application / supervisor.Process interfaces; everything here
// is replaceable.
package app

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/legatoproject/go-supervisor/internal/supervisor"
)

// termGracePeriod and killDrainTimeout mirror the SIGTERM-then-SIGKILL
// shutdown sequence used for process supervision across the retrieved
// corpus: send SIGTERM, give the process a grace period, escalate to
// SIGKILL, then bound the final wait.
const (
	termGracePeriod  = 5 * time.Second
	killDrainTimeout = 10 * time.Second
)

// priorityNice maps the public priority vocabulary from spec §4.8 to a
// POSIX nice value. rt1..rt32 are accepted by SetPriority but are not in
// this map: a process with an rt priority starts with no nice value
// applied and no real-time scheduling policy.
var priorityNice = map[string]int{
	"idle":   19,
	"low":    10,
	"medium": 0,
	"high":   -10,
}

// process is the concrete supervisor.Process: one OS-level process object,
// either a member of an application's configured process list or an
// ad-hoc one created via the §4.8 facility.
type process struct {
	mu sync.Mutex

	name     string
	dataDir  string
	unit     *unitLauncher // nil until Start
	cmd      *exec.Cmd
	done     chan error
	priority string
	fault    supervisor.FaultAction

	configuredArgv []string
	argvOverride   []string
	argvCleared    bool

	execPath string
	env      []string

	stdinFD, stdoutFD, stderrFD int

	logger hclog.Logger

	// pidSeq gives every process object a stable identity for the
	// uniqueness invariant even before it has an OS PID.
	pidSeq uintptr
}

var processIDCounter uintptr

func newProcess(name, dataDir, execPath string, configuredArgv, env []string, logger hclog.Logger) *process {
	processIDCounter++
	return &process{
		name:           name,
		dataDir:        dataDir,
		execPath:       execPath,
		configuredArgv: configuredArgv,
		env:            env,
		stdinFD:        -1,
		stdoutFD:       -1,
		stderrFD:       -1,
		logger:         logger.Named("process." + name),
		pidSeq:         processIDCounter,
	}
}

func (p *process) ID() uintptr { return p.pidSeq }

func (p *process) SetStdin(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stdinFD = fd
	return nil
}

func (p *process) SetStdout(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stdoutFD = fd
	return nil
}

func (p *process) SetStderr(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stderrFD = fd
	return nil
}

// AddArg appends to argv; the first call on a configured process discards
// the configured argv (spec §4.8).
func (p *process) AddArg(arg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.argvCleared && p.argvOverride == nil {
		p.argvOverride = []string{}
	}
	p.argvCleared = true
	p.argvOverride = append(p.argvOverride, arg)
}

// ClearArgs deletes the override argv; configured argv (if any) is used at
// start (spec §4.8).
func (p *process) ClearArgs() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.argvOverride = nil
	p.argvCleared = false
}

func (p *process) SetPriority(priority string) error {
	if _, ok := priorityNice[priority]; !ok && !isRealtimePriority(priority) {
		return supervisor.ErrInvalidArgument
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priority = priority
	return nil
}

func (p *process) ClearPriority() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priority = ""
}

func isRealtimePriority(s string) bool {
	if len(s) < 3 || s[:2] != "rt" {
		return false
	}
	n := 0
	for _, c := range s[2:] {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n >= 1 && n <= 32
}

func (p *process) SetFaultAction(action supervisor.FaultAction) error {
	if action < supervisor.FaultIgnore || action > supervisor.FaultReboot {
		return supervisor.ErrInvalidArgument
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fault = action
	return nil
}

func (p *process) ClearFaultAction() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fault = supervisor.FaultIgnore
}

func (p *process) argv() []string {
	if p.argvCleared {
		return p.argvOverride
	}
	return p.configuredArgv
}

// Start launches the process, defaulting stdin to /dev/null and
// stdout/stderr to a per-process log file when not overridden (spec
// §4.8).
func (p *process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.Command(p.execPath, p.argv()...)
	cmd.Env = p.env

	stdin, err := p.resolveStdin()
	if err != nil {
		return fmt.Errorf("resolve stdin: %w", err)
	}
	cmd.Stdin = stdin

	logFiles, err := newLogFiles(p.dataDir, p.name)
	if err != nil {
		return fmt.Errorf("create log files: %w", err)
	}
	cmd.Stdout = p.resolveOutput(p.stdoutFD, logFiles.stdout)
	cmd.Stderr = p.resolveOutput(p.stderrFD, logFiles.stderr)

	if _, ok := priorityNice[p.priority]; ok {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}

	if err := cmd.Start(); err != nil {
		logFiles.close()
		return fmt.Errorf("start %s: %w", p.name, err)
	}

	if nice, ok := priorityNice[p.priority]; ok {
		applyNice(cmd, nice)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	p.cmd = cmd
	p.done = done

	// Best-effort: fold the freshly started PID into a transient systemd
	// scope for cgroup accounting. Failure here does not fail Start —
	// the process is already running without cgroup supervision.
	if launcher, err := newUnitLauncher(p.logger); err == nil {
		p.unit = launcher
		if err := p.unit.adopt(p.name, cmd.Process.Pid); err != nil {
			p.logger.Warn("systemd scope adoption failed", "error", err)
		}
	}

	return nil
}

func (p *process) resolveStdin() (*os.File, error) {
	if p.stdinFD >= 0 {
		return os.NewFile(uintptr(p.stdinFD), "stdin"), nil
	}
	return os.Open(os.DevNull)
}

func (p *process) resolveOutput(fd int, fallback *os.File) *os.File {
	if fd >= 0 {
		return os.NewFile(uintptr(fd), "fd")
	}
	return fallback
}

// PID returns the OS pid of the running process, or 0 if not started.
func (p *process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// SignalTerm sends SIGTERM without waiting for exit. Application.Stop uses
// this instead of Kill: spec requires Stop to be non-blocking, with
// completion observed later through SigchildNotify.
func (p *process) SignalTerm() {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
}

// Kill destroys the underlying OS process: SIGTERM, grace period, then
// SIGKILL, matching the teacher corpus's shutdown sequence.
func (p *process) Kill() {
	p.mu.Lock()
	cmd := p.cmd
	done := p.done
	unit := p.unit
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if unit != nil {
		unit.stop(p.name)
	}
	stopWithDone(cmd, done, termGracePeriod+killDrainTimeout, p.name, p.logger)
}
