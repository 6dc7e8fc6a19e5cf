package supervisor

// HashReader resolves an installed application's info.properties app.md5
// value (spec §4.4 get_app_hash). Concrete implementation in
// internal/hashfile.
type HashReader interface {
	Hash(name string) (string, error)
}

// Launch implements spec §4.4 launch(name).
func (s *Supervisor) Launch(name string) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	c, err := s.registry.CreateOrGet(name)
	if err != nil {
		return err
	}
	if c.membership == Active {
		return ErrDuplicate
	}
	if err := s.registry.Activate(c); err != nil {
		return err
	}
	s.notify(name, "launched", "application started")
	return nil
}

// Stop implements spec §4.4 stop(name, cmd_ref). The caller (IPC layer)
// supplies cmdRef and keeps it opaque; it is handed back verbatim to
// StopCmdResponder.RespondOK once the application reaches STOPPED.
func (s *Supervisor) Stop(name string, cmdRef interface{}) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	c := s.registry.GetActive(name)
	if c == nil {
		// Inactive is reported as NOT_FOUND (spec §4.4).
		return ErrNotFound
	}

	c.pendingStopCmd = cmdRef
	c.stopHandler = s.handlerRespondToStopCmd
	c.app.Stop()

	fireIfStopped(c)
	return nil
}

// QueryAppState implements spec §4.4 query_app_state(name).
func (s *Supervisor) QueryAppState(name string) AppState {
	c := s.registry.GetActive(name)
	if c == nil {
		return StateStopped
	}
	if c.app.State() == StateRunning {
		return StateRunning
	}
	return StateStopped
}

// QueryProcState implements spec §4.4 query_proc_state(app_name, proc_name).
func (s *Supervisor) QueryProcState(appName, procName string) AppState {
	c := s.registry.GetActive(appName)
	if c == nil {
		return StateStopped
	}
	return c.app.ProcessState(procName)
}

// ResolveAppNameByPID implements spec §4.4 resolve_app_name(pid), wrapping
// §4.1's ResolveAppName with the supervisor's configured LabelSource.
func (s *Supervisor) ResolveAppNameByPID(pid int) (string, error) {
	if s.labels == nil {
		return "", ErrLookupFailed
	}
	return ResolveAppName(s.labels, pid)
}

// GetAppHash implements spec §4.4 get_app_hash(name).
func (s *Supervisor) GetAppHash(name string, hasher HashReader) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	installed, err := s.cfg.AppInstalled(name)
	if err != nil {
		return "", err
	}
	if !installed {
		return "", ErrNotInstalled
	}
	return hasher.Hash(name)
}

// AutoStart implements spec §4.4 auto_start(): enumerate apps/<name> and
// launch every one whose startManual is not true. Errors are logged, not
// returned — boot must proceed.
func (s *Supervisor) AutoStart() {
	children, err := s.cfg.AppChildren()
	if err != nil {
		s.logger.Error("auto-start: could not enumerate apps", "error", err)
		return
	}
	for _, name := range children {
		manual, err := s.cfg.StartManual(name)
		if err != nil {
			s.logger.Error("auto-start: could not read startManual", "app", name, "error", err)
			continue
		}
		if manual {
			continue
		}
		if err := s.Launch(name); err != nil {
			s.logger.Error("auto-start: launch failed", "app", name, "error", err)
		}
	}
}
