package supervisor

// Application is the narrow interface the core consumes to drive the
// process-group launcher, priority/env setup, and watchdog registration
// that live outside this package (spec §1, "deliberately out of scope").
// A concrete implementation is provided by internal/app; tests use a fake.
type Application interface {
	// Name returns the application's stable identity.
	Name() string

	// Start launches the application's configured processes.
	Start() error

	// Stop asynchronously requests termination of all of the
	// application's processes. It must not block; completion is observed
	// later as a STOPPED State() once SigchildNotify has reaped the
	// relevant children.
	Stop()

	// State reports the application's current run state.
	State() AppState

	// HasPID reports whether pid belongs to one of this application's
	// top-level (directly launched) processes. Used by
	// Registry.GetActiveByPID and by the orphan-SIGCHLD fallback scan.
	HasPID(pid int) bool

	// SigchildNotify is called after a child of this application has been
	// reaped (status already collected by the caller). It returns the
	// fault action the application's configured policy selects for this
	// death.
	SigchildNotify(pid int, status int) FaultAction

	// WatchdogNotify is called when a watchdog expiry names procID.
	// Implementations that do not own procID return WatchdogNotFound.
	WatchdogNotify(procID int) WatchdogAction

	// ProcessState reports RUNNING/STOPPED for one of the application's
	// configured processes. Unknown proc names are reported STOPPED.
	ProcessState(procName string) AppState

	// NewProcess builds an ad-hoc process object bound to this
	// application. procName, when non-empty and matching a configured
	// process, seeds the returned Process with that process's
	// configured parameters; otherwise execPath is required.
	NewProcess(procName, execPath string) (Process, error)

	// Destroy releases any resources still held by the application once
	// its container is permanently removed (DestroyInactive,
	// ShutdownNext). Called only on an application already STATE_STOPPED;
	// implementations should treat it as final cleanup, not another Stop.
	Destroy()
}

// Process is an ad-hoc (or configured) process object inside an
// application, as mutated by the §4.8 facility. It is the external
// collaborator backing one ProcHandle.
type Process interface {
	// ID uniquely identifies the underlying OS-level process object for
	// the uniqueness invariant in §3 ("at most one handle references any
	// given proc").
	ID() uintptr

	// PID reports the OS process id once started, or 0 before Start. The
	// id is still reported after the process has exited, which is what
	// lets the ad-hoc facility match a reaped pid back to the handle that
	// owns it.
	PID() int

	SetStdin(fd int) error
	SetStdout(fd int) error
	SetStderr(fd int) error

	AddArg(arg string)
	ClearArgs()

	SetPriority(priority string) error
	ClearPriority()

	SetFaultAction(action FaultAction) error
	ClearFaultAction()

	// Start launches this specific process.
	Start() error

	// Kill destroys the underlying OS process. Called when the owning
	// handle is destroyed.
	Kill()
}
