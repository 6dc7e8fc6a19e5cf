package supervisor

// Reaper abstracts waitpid so the fault engine can collect a child's exit
// status without importing syscall directly; the concrete implementation
// lives in cmd/go-supervisord's signal loop.
type Reaper interface {
	// Reap collects the exit status of pid, which must already have
	// exited (the caller observed SIGCHLD). Returns the child's exit status.
	Reap(pid int) (status int, err error)
}

// HandleSigchild implements spec §4.5's fault engine entry point. pid is
// the child that triggered SIGCHLD; reap must not have happened yet — the
// security label is read first, per spec §5's hard ordering constraint.
//
// Returns nil on success, ErrNotAppProcess if the signal should be
// declined (left unreaped, spec §4.5 step 2), or ErrFatal if the chosen
// fault action is REBOOT.
func (s *Supervisor) HandleSigchild(pid int, reaper Reaper) error {
	name, lookupErr := s.ResolveAppNameByPID(pid)

	var c *Container
	if lookupErr == nil {
		c = s.registry.GetActive(name)
	} else {
		// Label unresolved: scan Active for a container that still
		// claims pid (spec §4.5 step 2).
		c = s.registry.GetActiveByPID(pid)
		if c == nil {
			return ErrNotAppProcess
		}
	}

	if c == nil {
		// Label resolved but no active container: orphan reap after
		// deactivation (spec §4.5 step 3).
		_, _ = reaper.Reap(pid)
		return nil
	}

	status, err := reaper.Reap(pid)
	if err != nil {
		s.logger.Error("reap failed", "pid", pid, "error", err)
		return nil
	}

	s.adhoc.NotifyExit(pid)

	action := c.app.SigchildNotify(pid, status)
	switch action {
	case FaultIgnore:
		// no change
	case FaultRestartApp:
		s.notify(c.name, "fault", "process died, restarting application")
		if c.app.State() != StateStopped {
			c.app.Stop()
		}
		c.stopHandler = s.handlerRestart
	case FaultStopApp:
		s.notify(c.name, "fault", "process died, stopping application")
		if c.app.State() != StateStopped {
			c.app.Stop()
		}
		// handler left unchanged (default Deactivate from Activate).
	case FaultReboot:
		s.notify(c.name, "fault", "process died, reboot requested")
		// Core state is left unchanged; the caller decides reboot policy.
		return ErrFatal
	default:
		s.logger.Error("unknown fault action, aborting", "app", c.name, "action", action)
		panic("supervisor: unknown fault action")
	}

	fireIfStopped(c)
	return nil
}
