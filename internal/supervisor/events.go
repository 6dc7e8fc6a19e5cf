package supervisor

// HandleInstallEvent and HandleUninstallEvent implement spec §4.8's
// automatic cleanup trigger and resolve the open question in spec §9:
// both events destroy only the Inactive container for name, if any,
// along with its ad-hoc handles. Active containers are untouched by
// design — this repository preserves that observed behavior rather than
// restarting a running application to pick up new bits.
func (s *Supervisor) HandleInstallEvent(name string) {
	s.destroyInactiveAndHandles(name)
	s.notify(name, "installed", "application installed or updated")
}

func (s *Supervisor) HandleUninstallEvent(name string) {
	s.destroyInactiveAndHandles(name)
}

func (s *Supervisor) destroyInactiveAndHandles(name string) {
	if s.registry.GetInactive(name) == nil {
		return
	}
	s.adhoc.DestroyForApp(name)
	s.registry.DestroyInactive(name)
}

// HandleSessionClose implements spec §4.8's session-close cleanup trigger.
func (s *Supervisor) HandleSessionClose(clientSession string) {
	s.adhoc.DestroySession(clientSession)
}
