package supervisor

// HandleWatchdogExpired implements spec §4.6. The daemon's watchdog loop
// calls it when a kicked deadline expires; nothing waits on its outcome.
// This method performs the dispatch and state update.
func (s *Supervisor) HandleWatchdogExpired(procID int) {
	var claimed *Container
	var action WatchdogAction

	for _, c := range s.registry.active {
		action = c.app.WatchdogNotify(procID)
		if action != WatchdogNotFound {
			claimed = c
			break
		}
	}

	if claimed == nil {
		s.logger.Error("watchdog expiry claimed by no application", "proc_id", procID)
		return
	}

	switch action {
	case WatchdogIgnore, WatchdogHandled:
		// no-op
	case WatchdogRestartApp:
		s.notify(claimed.name, "watchdog", "watchdog expired, restarting application")
		s.watchdogRestart(claimed)
	case WatchdogStopApp:
		s.notify(claimed.name, "watchdog", "watchdog expired, stopping application")
		if claimed.app.State() != StateStopped {
			claimed.app.Stop()
		}
	case WatchdogReboot:
		// the underlying decision table falls through to RESTART_APP
		// rather than a real reboot at this layer. Mandated behavior:
		// log critical, then restart.
		s.logger.Error("watchdog requested reboot; full-module reboot not available at this layer, restarting app instead", "app", claimed.name)
		s.notify(claimed.name, "watchdog", "watchdog expired, reboot requested (falling back to restart)")
		s.watchdogRestart(claimed)
	case WatchdogNotFound, WatchdogError:
		// Layer contract violation: the claiming application returned an
		// outcome reserved for "not mine".
		s.logger.Error("watchdog layer contract violation", "app", claimed.name, "action", action)
	default:
		s.logger.Error("unknown watchdog action, aborting", "app", claimed.name, "action", action)
		panic("supervisor: unknown watchdog action")
	}

	fireIfStopped(claimed)
}

func (s *Supervisor) watchdogRestart(c *Container) {
	if c.app.State() != StateStopped {
		c.app.Stop()
	}
	c.stopHandler = s.handlerRestart
}
