package supervisor

import (
	"strconv"

	"github.com/hashicorp/go-hclog"
)

// ProcHandle is a client-owned reference to a process inside an
// application (spec §3 "Ad-hoc Process Handle").
type ProcHandle struct {
	id            string
	proc          Process
	container     *Container // weak back-reference: relation + lookup, never ownership
	clientSession string

	// pendingStopCmd is the opaque cmd_ref add_stop_handler installed,
	// fired exactly once (then cleared) by NotifyExit when proc reaches
	// STOPPED. Mirrors Container.pendingStopCmd / handlerRespondToStopCmd,
	// scoped to one ad-hoc process instead of a whole application.
	pendingStopCmd interface{}
}

func (h *ProcHandle) ID() string { return h.id }

// AdhocFacility implements spec §4.8: creation, mutation, start, delete,
// and the automatic cleanup triggers (session close, install/uninstall).
type AdhocFacility struct {
	registry  *Registry
	responder StopCmdResponder
	handles   map[string]*ProcHandle
	byProc    map[uintptr]*ProcHandle // uniqueness index: proc -> handle
	logger    hclog.Logger

	nextID int
}

func NewAdhocFacility(registry *Registry, responder StopCmdResponder, logger hclog.Logger) *AdhocFacility {
	return &AdhocFacility{
		registry:  registry,
		responder: responder,
		handles:   make(map[string]*ProcHandle),
		byProc:    make(map[uintptr]*ProcHandle),
		logger:    logger.Named("adhoc"),
	}
}

// handleID generates the next opaque handle identifier. Sequential IDs are
// fine here: handles are never persisted across restarts, and uniqueness
// within one process lifetime is all spec §3 requires.
func (f *AdhocFacility) handleID() string {
	f.nextID++
	return "h" + strconv.Itoa(f.nextID)
}

// Create implements spec §4.8's creation procedure.
func (f *AdhocFacility) Create(appName, procName, execPath, clientSession string) (*ProcHandle, error) {
	if !ValidName(appName) {
		return nil, ErrInvalidName
	}
	if procName == "" && execPath == "" {
		return nil, ErrMissingExecPath
	}

	c, err := f.registry.CreateOrGet(appName)
	if err != nil {
		return nil, err
	}

	proc, err := c.app.NewProcess(procName, execPath)
	if err != nil {
		return nil, err
	}

	if _, exists := f.byProc[proc.ID()]; exists {
		return nil, ErrDuplicateProcess
	}

	h := &ProcHandle{
		id:            f.handleID(),
		proc:          proc,
		container:     c,
		clientSession: clientSession,
	}
	f.handles[h.id] = h
	f.byProc[proc.ID()] = h
	return h, nil
}

func (f *AdhocFacility) get(id string) (*ProcHandle, error) {
	h, ok := f.handles[id]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return h, nil
}

func (f *AdhocFacility) SetStdin(id string, fd int) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	return h.proc.SetStdin(fd)
}

func (f *AdhocFacility) SetStdout(id string, fd int) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	return h.proc.SetStdout(fd)
}

func (f *AdhocFacility) SetStderr(id string, fd int) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	return h.proc.SetStderr(fd)
}

func (f *AdhocFacility) AddArg(id, arg string) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	h.proc.AddArg(arg)
	return nil
}

func (f *AdhocFacility) ClearArgs(id string) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	h.proc.ClearArgs()
	return nil
}

func (f *AdhocFacility) SetPriority(id, priority string) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	return h.proc.SetPriority(priority)
}

func (f *AdhocFacility) ClearPriority(id string) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	h.proc.ClearPriority()
	return nil
}

func (f *AdhocFacility) SetFaultAction(id string, action FaultAction) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	return h.proc.SetFaultAction(action)
}

func (f *AdhocFacility) ClearFaultAction(id string) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	h.proc.ClearFaultAction()
	return nil
}

// AddStopHandler installs at most one stop handler per process, reusing
// the handle identifier itself as the handler ref (spec §4.8). cmdRef is
// opaque to the core and handed back verbatim to the configured
// StopCmdResponder once the watched process reaches STOPPED.
func (f *AdhocFacility) AddStopHandler(id string, cmdRef interface{}) (ref string, err error) {
	h, err := f.get(id)
	if err != nil {
		return "", err
	}
	if h.pendingStopCmd != nil {
		return "", ErrDuplicateStopHandler
	}
	h.pendingStopCmd = cmdRef
	return h.id, nil
}

// RemoveStopHandler clears a previously installed stop handler; safe if
// already cleared.
func (f *AdhocFacility) RemoveStopHandler(ref string) {
	if h, ok := f.handles[ref]; ok {
		h.pendingStopCmd = nil
	}
}

// NotifyExit fires and clears the stop handler of the handle whose process
// has OS pid pid, if one is installed. Called by the fault engine once a
// reaped pid has been attributed to a container, mirroring fireIfStopped's
// one-shot continuation but scoped to a single ad-hoc process rather than
// a whole application (spec §4.8).
func (f *AdhocFacility) NotifyExit(pid int) {
	for _, h := range f.handles {
		if h.pendingStopCmd == nil || h.proc.PID() != pid {
			continue
		}
		cmd := h.pendingStopCmd
		h.pendingStopCmd = nil
		if f.responder != nil {
			f.responder.RespondOK(cmd)
		}
	}
}

// Start ensures the containing application is RUNNING (activating it if
// not) then starts the process (spec §4.8).
func (f *AdhocFacility) Start(id string) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	if h.container.membership == Inactive {
		if err := f.registry.Activate(h.container); err != nil {
			return err
		}
	}
	if err := h.proc.Start(); err != nil {
		return ErrFault
	}
	return nil
}

// Delete destroys the handle and its underlying process (spec §4.8).
func (f *AdhocFacility) Delete(id string) error {
	h, err := f.get(id)
	if err != nil {
		return err
	}
	f.destroy(h)
	return nil
}

func (f *AdhocFacility) destroy(h *ProcHandle) {
	h.proc.Kill()
	delete(f.handles, h.id)
	delete(f.byProc, h.proc.ID())
}

// DestroySession destroys every handle owned by clientSession (spec §4.8:
// "destroyed when its client session closes").
func (f *AdhocFacility) DestroySession(clientSession string) {
	for _, h := range f.snapshot() {
		if h.clientSession == clientSession {
			f.destroy(h)
		}
	}
}

// DestroyForApp destroys every handle referencing appName's application
// (spec §4.8: "destroyed when its containing application is uninstalled").
func (f *AdhocFacility) DestroyForApp(appName string) {
	for _, h := range f.snapshot() {
		if h.container.name == appName {
			f.destroy(h)
		}
	}
}

func (f *AdhocFacility) snapshot() []*ProcHandle {
	out := make([]*ProcHandle, 0, len(f.handles))
	for _, h := range f.handles {
		out = append(out, h)
	}
	return out
}

// Len reports the number of live handles, used by round-trip tests.
func (f *AdhocFacility) Len() int { return len(f.handles) }
