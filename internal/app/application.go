package app

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/legatoproject/go-supervisor/internal/configtree"
	"github.com/legatoproject/go-supervisor/internal/supervisor"
)

// trackedProcess pairs a launched process object with the bookkeeping the
// Application needs to answer HasPID/State/SigchildNotify: whether it came
// from the app's configured process list, its fault/watchdog policy, and
// whether it has been reaped yet.
type trackedProcess struct {
	proc        *process
	name        string
	configured  bool
	faultAction supervisor.FaultAction
	watchdog    supervisor.WatchdogAction
	exited      bool
}

func (tp *trackedProcess) alive() bool {
	return !tp.exited && tp.proc.PID() != 0
}

// Application is the concrete supervisor.Application: a named group of
// configured processes plus whatever ad-hoc processes have been created
// against it, backed by real OS processes and (best-effort) systemd
// scopes.
type Application struct {
	name    string
	dataDir string
	logger  hclog.Logger
	reader  ConfigReader

	tracked  []*trackedProcess
	stopping bool
}

// New builds an Application for name. dataDir is where log files for its
// processes are written; reader supplies the configured process specs.
func New(name, dataDir string, reader ConfigReader, logger hclog.Logger) *Application {
	return &Application{
		name:    name,
		dataDir: dataDir,
		reader:  reader,
		logger:  logger.Named("app." + name),
	}
}

func (a *Application) Name() string { return a.name }

// Start loads the configured process specs and launches every one of
// them. If any fails to start, the ones already started are killed and
// the error is returned so the caller (Registry.Activate) reports a
// fault.
func (a *Application) Start() error {
	specs, err := a.reader.ProcessSpecs(a.name)
	if err != nil {
		return fmt.Errorf("load process specs for %s: %w", a.name, err)
	}

	a.stopping = false
	a.tracked = a.tracked[:0]

	for _, spec := range specs {
		p := newProcess(spec.Name, a.dataDir, spec.ExecPath, spec.Args, spec.Env, a.logger)
		if spec.Priority != "" {
			_ = p.SetPriority(spec.Priority)
		}
		tp := &trackedProcess{
			proc:        p,
			name:        spec.Name,
			configured:  true,
			faultAction: faultPolicy(spec),
			watchdog:    watchdogPolicy(spec),
		}
		if err := p.Start(); err != nil {
			a.killAllTracked()
			a.tracked = nil
			return fmt.Errorf("start process %s/%s: %w", a.name, spec.Name, err)
		}
		a.tracked = append(a.tracked, tp)
	}

	return nil
}

func (a *Application) killAllTracked() {
	for _, tp := range a.tracked {
		tp.proc.Kill()
	}
}

// Stop asynchronously requests termination of every tracked process.
func (a *Application) Stop() {
	a.stopping = true
	for _, tp := range a.tracked {
		if tp.alive() {
			tp.proc.SignalTerm()
		}
	}
	if len(a.tracked) == 0 {
		// Nothing was ever started; there is nothing to wait for.
		a.stopping = false
	}
}

func (a *Application) State() supervisor.AppState {
	for _, tp := range a.tracked {
		if tp.alive() {
			return supervisor.StateRunning
		}
	}
	return supervisor.StateStopped
}

func (a *Application) HasPID(pid int) bool {
	for _, tp := range a.tracked {
		if tp.alive() && tp.proc.PID() == pid {
			return true
		}
	}
	return false
}

// SigchildNotify marks the tracked process owning pid as exited and
// returns the fault action its policy selects. When the application is
// already in the middle of an application-initiated stop, every death is
// expected and reported as FaultIgnore; otherwise an unexpected death
// that calls for RESTART_APP/STOP_APP/REBOOT also signals the remaining
// siblings to terminate, so the application eventually reaches STOPPED
// as a whole.
func (a *Application) SigchildNotify(pid int, status int) supervisor.FaultAction {
	var dead *trackedProcess
	for _, tp := range a.tracked {
		if tp.proc.PID() == pid {
			dead = tp
			break
		}
	}
	if dead == nil {
		return supervisor.FaultIgnore
	}
	dead.exited = true

	if a.stopping {
		return supervisor.FaultIgnore
	}

	action := dead.faultAction
	if action != supervisor.FaultIgnore {
		a.stopping = true
		for _, tp := range a.tracked {
			if tp != dead && tp.alive() {
				tp.proc.SignalTerm()
			}
		}
	}
	return action
}

// WatchdogNotify reports the configured watchdog action for the tracked
// process with the given OS pid, or WatchdogNotFound if this application
// does not own it.
func (a *Application) WatchdogNotify(procID int) supervisor.WatchdogAction {
	for _, tp := range a.tracked {
		if tp.alive() && tp.proc.PID() == procID {
			return tp.watchdog
		}
	}
	return supervisor.WatchdogNotFound
}

func (a *Application) ProcessState(procName string) supervisor.AppState {
	for _, tp := range a.tracked {
		if tp.configured && tp.name == procName {
			if tp.alive() {
				return supervisor.StateRunning
			}
			return supervisor.StateStopped
		}
	}
	return supervisor.StateStopped
}

// NewProcess builds an ad-hoc process object. When procName matches a
// configured process it inherits that process's exec path, argv and env;
// otherwise execPath is required. The configured spec is read straight
// from the config tree, not from a.tracked, so inheritance works against a
// freshly-materialized Inactive container too (one that has never had
// Start called on it yet).
func (a *Application) NewProcess(procName, execPath string) (supervisor.Process, error) {
	var argv, env []string
	var resolvedExec = execPath
	var resolvedName = procName

	if procName != "" {
		if spec, ok := a.configuredSpec(procName); ok {
			argv = spec.Args
			env = spec.Env
			if resolvedExec == "" {
				resolvedExec = spec.ExecPath
			}
		}
	}

	if resolvedExec == "" {
		return nil, supervisor.ErrMissingExecPath
	}
	if resolvedName == "" {
		// The name becomes part of the per-process log file name, so it
		// must not carry the exec path's directories.
		resolvedName = filepath.Base(resolvedExec)
	}

	p := newProcess(resolvedName, a.dataDir, resolvedExec, argv, env, a.logger)
	a.tracked = append(a.tracked, &trackedProcess{
		proc:        p,
		name:        resolvedName,
		configured:  false,
		faultAction: supervisor.FaultIgnore,
		watchdog:    supervisor.WatchdogIgnore,
	})
	return p, nil
}

// configuredSpec looks up procName in the application's configured process
// list, independent of which processes have actually been started.
func (a *Application) configuredSpec(procName string) (configtree.ProcessSpec, bool) {
	specs, err := a.reader.ProcessSpecs(a.name)
	if err != nil {
		return configtree.ProcessSpec{}, false
	}
	for _, spec := range specs {
		if spec.Name == procName {
			return spec, true
		}
	}
	return configtree.ProcessSpec{}, false
}

// Destroy releases any resources still held once the container is
// permanently removed. The application is already STOPPED by the time the
// core calls this; any process still marked alive here is killed rather
// than left to leak its systemd scope.
func (a *Application) Destroy() {
	for _, tp := range a.tracked {
		if tp.alive() {
			tp.proc.Kill()
		}
	}
	a.tracked = nil
}

var _ supervisor.Application = (*Application)(nil)
var _ ConfigReader = (*configtree.Tree)(nil)
