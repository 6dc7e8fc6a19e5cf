package supervisor

import "github.com/hashicorp/go-hclog"

// AllStoppedCallback is invoked exactly once when the shutdown cascade
// (spec §4.7) has drained both sets.
type AllStoppedCallback func()

// Notifier receives a best-effort lifecycle notification. Failures are
// never surfaced to callers; a nil Notifier silently drops everything.
// internal/events provides the concrete implementation.
type Notifier interface {
	Notify(app, kind, message string)
}

// Supervisor is the top-level object wiring together the registry, the
// ad-hoc process facility, and the canonical stop handlers that need more
// than the registry alone (Restart, RespondToStopCmd, ShutdownNext). All
// methods run on a single goroutine; see spec §5.
type Supervisor struct {
	registry *Registry
	adhoc    *AdhocFacility
	labels   LabelSource
	cfg      ConfigStore
	logger   hclog.Logger

	responder StopCmdResponder
	notifier  Notifier

	shuttingDown       bool
	allStoppedCallback AllStoppedCallback
	allStoppedFired    bool
}

// Deps bundles the external collaborators a Supervisor needs.
type Deps struct {
	Config    ConfigStore
	Factory   ApplicationFactory
	Labels    LabelSource
	Responder StopCmdResponder
	Notifier  Notifier
	Logger    hclog.Logger
}

// New constructs a Supervisor with empty Active/Inactive sets.
func New(d Deps) *Supervisor {
	logger := d.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Supervisor{
		registry:  NewRegistry(d.Config, d.Factory, logger),
		labels:    d.Labels,
		cfg:       d.Config,
		responder: d.Responder,
		notifier:  d.Notifier,
		logger:    logger.Named("supervisor"),
	}
	s.adhoc = NewAdhocFacility(s.registry, d.Responder, logger)
	return s
}

func (s *Supervisor) Registry() *Registry { return s.registry }
func (s *Supervisor) Adhoc() *AdhocFacility { return s.adhoc }

func (s *Supervisor) notify(app, kind, message string) {
	if s.notifier != nil {
		s.notifier.Notify(app, kind, message)
	}
}

// handlerRestart implements the "Restart" canonical handler (spec §4.3):
// on success re-install Deactivate and leave the app Active; on failure
// fall back to Deactivate.
func (s *Supervisor) handlerRestart(c *Container) {
	if err := c.app.Start(); err != nil {
		s.logger.Warn("restart failed, deactivating", "app", c.name, "error", err)
		s.registry.Deactivate(c)
		return
	}
	c.stopHandler = s.registry.Deactivate
}

// handlerRespondToStopCmd implements "RespondToStopCmd" (spec §4.3): save
// pending_stop_cmd, Deactivate, then respond OK on the saved command.
func (s *Supervisor) handlerRespondToStopCmd(c *Container) {
	cmd := c.pendingStopCmd
	c.pendingStopCmd = nil
	s.registry.Deactivate(c)
	if s.responder != nil && cmd != nil {
		s.responder.RespondOK(cmd)
	}
}

// handlerShutdownNext implements "ShutdownNext" (spec §4.7): remove c from
// Active, destroy it, then re-enter the cascade.
func (s *Supervisor) handlerShutdownNext(c *Container) {
	s.registry.RemoveActive(c)
	s.adhoc.DestroyForApp(c.name)
	c.app.Destroy()
	s.continueShutdown()
}
