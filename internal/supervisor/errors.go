package supervisor

// Error is a constant, comparable error type. Result codes returned across
// package boundaries are declared as Error values so callers can compare
// them with == while still satisfying the error interface for %w wrapping.
type Error string

func (e Error) Error() string { return string(e) }

// Result codes from spec §6/§7. Every lifecycle command resolves to one of
// these (or a plain nil on success where no code is meaningful).
const (
	// ErrDuplicate is returned by Launch when the application is already Active.
	ErrDuplicate Error = "application already running"

	// ErrNotInstalled is returned when an application name has no config
	// tree entry under apps/<name>.
	ErrNotInstalled Error = "application not installed"

	// ErrNotFound is returned by Stop/query operations for names with no
	// container in the requested set.
	ErrNotFound Error = "application not found"

	// ErrFault surfaces a transient failure from the external Application
	// (e.g. app.Start returning an error).
	ErrFault Error = "application fault"

	// ErrNotAppProcess is returned when a PID does not belong to any
	// application-owned process.
	ErrNotAppProcess Error = "pid is not an application process"

	// ErrOverflow is returned when a result (name, hash) does not fit the
	// caller-provided buffer.
	ErrOverflow Error = "result too large for buffer"

	// ErrLookupFailed is returned when the security label backing PID
	// resolution could not be read at all.
	ErrLookupFailed Error = "security label lookup failed"

	// ErrInvalidName is a client-protocol violation: empty name or a name
	// containing '/'.
	ErrInvalidName Error = "invalid application or process name"

	// ErrUnknownHandle is a client-protocol violation: an ad-hoc process
	// operation referenced a handle that does not exist.
	ErrUnknownHandle Error = "unknown ad-hoc process handle"

	// ErrDuplicateProcess is a client-protocol violation: an ad-hoc create
	// request named a process object some other handle already references.
	ErrDuplicateProcess Error = "process already referenced by a handle"

	// ErrInvalidArgument is a client-protocol violation for malformed
	// mutator input (bad priority string, bad fault-action enum, ...).
	ErrInvalidArgument Error = "invalid argument"

	// ErrMissingExecPath is returned by ad-hoc Create when proc_name does
	// not match a configured process and exec_path was not supplied.
	ErrMissingExecPath Error = "proc_name not configured and exec_path missing"

	// ErrDuplicateStopHandler is returned by AddStopHandler when the
	// handle already has one installed (spec §4.8: "at most one per
	// process").
	ErrDuplicateStopHandler Error = "handle already has a stop handler"

	// ErrFatal is returned by the fault engine when the chosen fault action
	// is REBOOT; the caller (outer supervisor) decides reboot policy.
	ErrFatal Error = "fatal: reboot requested"
)

// AppState mirrors the external Application's reported run state.
type AppState int

const (
	StateStopped AppState = iota
	StateRunning
)

func (s AppState) String() string {
	if s == StateRunning {
		return "RUNNING"
	}
	return "STOPPED"
}

// FaultAction is the policy decision returned by Application.SigchildNotify.
type FaultAction int

const (
	FaultIgnore FaultAction = iota
	FaultRestartApp
	FaultStopApp
	FaultReboot
)

// WatchdogAction is the policy decision returned by Application.WatchdogNotify.
type WatchdogAction int

const (
	WatchdogIgnore WatchdogAction = iota
	WatchdogHandled
	WatchdogRestartApp
	WatchdogStopApp
	WatchdogReboot
	WatchdogNotFound
	WatchdogError
)
