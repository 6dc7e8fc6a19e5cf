package supervisor

// Shutdown implements spec §4.7: drain Inactive immediately, then walk
// Active one at a time using the handler slot as a continuation, firing
// allStoppedCallback exactly once when both sets are empty.
func (s *Supervisor) Shutdown(callback AllStoppedCallback) {
	s.shuttingDown = true
	s.allStoppedCallback = callback
	s.allStoppedFired = false

	for _, c := range s.registry.InactiveContainers() {
		s.adhoc.DestroyForApp(c.name)
	}
	s.registry.DestroyAllInactive()
	s.continueShutdown()
}

// continueShutdown is the tail-recursive step described in spec §4.7: peek
// the head of Active, install ShutdownNext, and stop it; ShutdownNext
// re-enters here once the app is confirmed STOPPED.
func (s *Supervisor) continueShutdown() {
	if len(s.registry.active) == 0 {
		if !s.allStoppedFired {
			s.allStoppedFired = true
			s.notify("", "shutdown", "all applications stopped")
			if s.allStoppedCallback != nil {
				s.allStoppedCallback()
			}
		}
		return
	}

	c := s.registry.active[0]
	c.stopHandler = s.handlerShutdownNext
	c.app.Stop()
	fireIfStopped(c)
}

// IsShuttingDown reports whether Shutdown has been called.
func (s *Supervisor) IsShuttingDown() bool { return s.shuttingDown }
