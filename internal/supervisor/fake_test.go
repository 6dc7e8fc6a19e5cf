package supervisor

import "testing"

// fakeApp is a test double for Application. It behaves like a single
// "last child" process: Stop() marks a pending exit, and the test drives
// SigchildNotify to transition state to STOPPED the way a reaped SIGCHLD
// would.
type fakeApp struct {
	name string
	pids map[int]bool

	state        AppState
	startErr     error
	startCalls   int
	stopCalls    int
	sigchild     FaultAction
	watchdog     WatchdogAction
	watchdogPIDs map[int]bool

	procStates map[string]AppState
	destroyed  bool
}

func newFakeApp(name string, pids ...int) *fakeApp {
	pm := map[int]bool{}
	for _, p := range pids {
		pm[p] = true
	}
	return &fakeApp{
		name:         name,
		pids:         pm,
		state:        StateStopped,
		watchdogPIDs: map[int]bool{},
		procStates:   map[string]AppState{},
	}
}

func (a *fakeApp) Name() string { return a.name }

func (a *fakeApp) Start() error {
	a.startCalls++
	if a.startErr != nil {
		return a.startErr
	}
	a.state = StateRunning
	return nil
}

func (a *fakeApp) Stop() {
	a.stopCalls++
	// Asynchronous: state only flips to STOPPED once the test delivers
	// the corresponding SigchildNotify, mirroring real child reaping.
}

func (a *fakeApp) State() AppState { return a.state }

func (a *fakeApp) HasPID(pid int) bool { return a.pids[pid] }

func (a *fakeApp) SigchildNotify(pid int, status int) FaultAction {
	a.state = StateStopped
	return a.sigchild
}

func (a *fakeApp) WatchdogNotify(procID int) WatchdogAction {
	if !a.watchdogPIDs[procID] {
		return WatchdogNotFound
	}
	return a.watchdog
}

func (a *fakeApp) ProcessState(procName string) AppState {
	if s, ok := a.procStates[procName]; ok {
		return s
	}
	return StateStopped
}

func (a *fakeApp) NewProcess(procName, execPath string) (Process, error) {
	if procName == "" && execPath == "" {
		return nil, ErrMissingExecPath
	}
	id := procName
	if id == "" {
		id = execPath
	}
	return &fakeProcess{id: nextFakeProcID()}, nil
}

func (a *fakeApp) Destroy() { a.destroyed = true }

var fakeProcIDCounter uintptr

func nextFakeProcID() uintptr {
	fakeProcIDCounter++
	return fakeProcIDCounter
}

type fakeProcess struct {
	id       uintptr
	pid      int
	args     []string
	priority string
	fault    FaultAction
	started  bool
	killed   bool
}

func (p *fakeProcess) ID() uintptr { return p.id }
func (p *fakeProcess) PID() int    { return p.pid }

func (p *fakeProcess) SetStdin(fd int) error  { return nil }
func (p *fakeProcess) SetStdout(fd int) error { return nil }
func (p *fakeProcess) SetStderr(fd int) error { return nil }

func (p *fakeProcess) AddArg(arg string) { p.args = append(p.args, arg) }
func (p *fakeProcess) ClearArgs()        { p.args = nil }

func (p *fakeProcess) SetPriority(priority string) error {
	switch priority {
	case "idle", "low", "medium", "high":
		p.priority = priority
		return nil
	}
	return ErrInvalidArgument
}
func (p *fakeProcess) ClearPriority() { p.priority = "" }

func (p *fakeProcess) SetFaultAction(action FaultAction) error {
	p.fault = action
	return nil
}
func (p *fakeProcess) ClearFaultAction() { p.fault = FaultIgnore }

func (p *fakeProcess) Start() error { p.started = true; return nil }
func (p *fakeProcess) Kill()        { p.killed = true }

// fakeConfig is a test double for ConfigStore.
type fakeConfig struct {
	installed map[string]bool
	manual    map[string]bool
	order     []string
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{installed: map[string]bool{}, manual: map[string]bool{}}
}

func (f *fakeConfig) install(name string, manual bool) {
	f.installed[name] = true
	f.manual[name] = manual
	f.order = append(f.order, name)
}

func (f *fakeConfig) AppInstalled(name string) (bool, error) { return f.installed[name], nil }

func (f *fakeConfig) AppChildren() ([]string, error) {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out, nil
}

func (f *fakeConfig) StartManual(name string) (bool, error) { return f.manual[name], nil }

// fakeLabels is a test double for LabelSource.
type fakeLabels struct {
	labels map[int]string
	err    map[int]error
}

func newFakeLabels() *fakeLabels {
	return &fakeLabels{labels: map[int]string{}, err: map[int]error{}}
}

func (l *fakeLabels) Lookup(pid int) (string, error) {
	if err, ok := l.err[pid]; ok {
		return "", err
	}
	return l.labels[pid], nil
}

// fakeReaper is a test double for Reaper.
type fakeReaper struct {
	reaped map[int]bool
}

func newFakeReaper() *fakeReaper { return &fakeReaper{reaped: map[int]bool{}} }

func (r *fakeReaper) Reap(pid int) (int, error) {
	r.reaped[pid] = true
	return 0, nil
}

// fakeResponder is a test double for StopCmdResponder.
type fakeResponder struct {
	responses []interface{}
}

func (r *fakeResponder) RespondOK(cmd interface{}) {
	r.responses = append(r.responses, cmd)
}

// harness wires a Supervisor against an independently addressable set of
// fakeApps so tests can script both sides of the narrow interface.
type harness struct {
	t         *testing.T
	cfg       *fakeConfig
	labels    *fakeLabels
	responder *fakeResponder
	apps      map[string]*fakeApp
	sup       *Supervisor
}
