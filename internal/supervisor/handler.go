package supervisor

// fireIfStopped implements the end-of-event check described in spec §4.3:
// after any event that may transition the application to STOPPED, check
// app.State() == STOPPED && handler != nil, and if so fire and clear the
// handler. Every command/event path that can stop an app calls this once,
// at its end, per spec §4.3 and §5 ("happens-before the STOPPED check at
// the end of the same event").
func fireIfStopped(c *Container) {
	if c.app.State() != StateStopped {
		return
	}
	h := c.stopHandler
	if h == nil {
		return
	}
	c.stopHandler = nil
	h(c)
}

// StopCmdResponder is supplied by the IPC layer so RespondToStopCmd can
// deliver a response without the core depending on the transport.
type StopCmdResponder interface {
	RespondOK(cmd interface{})
}
