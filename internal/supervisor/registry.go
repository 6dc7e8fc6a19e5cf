package supervisor

import "github.com/hashicorp/go-hclog"

// Membership encodes which of the two mutually exclusive ordered sets a
// Container belongs to (spec §3).
type Membership int

const (
	Inactive Membership = iota
	Active
)

// StopHandler is the one-shot continuation slot described in spec §4.3. It
// is invoked exactly once, with the handler cleared first, when the
// container's Application reaches StateStopped.
type StopHandler func(c *Container)

// Container is the per-application bookkeeping record owned by the core
// (spec §3). Fields are mutated only from Registry methods and the
// handler dispatch in handler.go, all on the single event-loop goroutine
// (spec §5).
type Container struct {
	name       string
	app        Application
	membership Membership

	stopHandler StopHandler

	// pendingStopCmd holds whatever the IPC layer needs to answer a
	// stop_app command once the handler fires. Opaque to the core.
	pendingStopCmd interface{}
}

func (c *Container) Name() string           { return c.name }
func (c *Container) App() Application       { return c.app }
func (c *Container) Membership() Membership { return c.membership }
func (c *Container) HasHandler() bool       { return c.stopHandler != nil }

// Registry holds the two ordered sets (spec §3's process-wide state, minus
// the ad-hoc process handle map, which lives in adhoc.go next to the
// facility that owns it).
type Registry struct {
	active   []*Container // insertion-ordered
	inactive []*Container

	cfg     ConfigStore
	factory ApplicationFactory
	logger  hclog.Logger
}

// NewRegistry constructs an empty registry bound to the given config tree
// and application factory.
func NewRegistry(cfg ConfigStore, factory ApplicationFactory, logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Registry{cfg: cfg, factory: factory, logger: logger.Named("registry")}
}

// GetActive returns the Active container named name, or nil.
func (r *Registry) GetActive(name string) *Container {
	for _, c := range r.active {
		if c.name == name {
			return c
		}
	}
	return nil
}

// GetInactive returns the Inactive container named name, or nil.
func (r *Registry) GetInactive(name string) *Container {
	for _, c := range r.inactive {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Get returns the container named name from either set, or nil.
func (r *Registry) Get(name string) *Container {
	if c := r.GetActive(name); c != nil {
		return c
	}
	return r.GetInactive(name)
}

// GetActiveByPID linearly scans Active for the container whose Application
// claims pid (spec §4.2). Active/Inactive sizes are small (tens); a linear
// scan is adequate and avoids index staleness across moves (spec §9).
func (r *Registry) GetActiveByPID(pid int) *Container {
	for _, c := range r.active {
		if c.app != nil && c.app.HasPID(pid) {
			return c
		}
	}
	return nil
}

// ActiveContainers returns the Active set in insertion order. Callers must
// not mutate the returned slice.
func (r *Registry) ActiveContainers() []*Container { return r.active }

// InactiveContainers returns the Inactive set. Callers must not mutate the
// returned slice.
func (r *Registry) InactiveContainers() []*Container { return r.inactive }

// CreateOrGet implements spec §4.2: return the existing container from
// either set, or materialize a fresh Inactive one by reading the config
// tree and asking the ApplicationFactory to build its Application.
func (r *Registry) CreateOrGet(name string) (*Container, error) {
	if c := r.Get(name); c != nil {
		return c, nil
	}

	installed, err := r.cfg.AppInstalled(name)
	if err != nil {
		return nil, err
	}
	if !installed {
		return nil, ErrNotInstalled
	}

	app, err := r.factory(name)
	if err != nil {
		return nil, ErrFault
	}

	c := &Container{name: name, app: app, membership: Inactive}
	r.inactive = append(r.inactive, c)
	return c, nil
}

// Activate moves c from Inactive to Active, installs Deactivate as the
// default stop handler, and starts the application (spec §4.2/§4.3).
func (r *Registry) Activate(c *Container) error {
	r.removeFrom(&r.inactive, c)
	c.membership = Active
	r.active = append(r.active, c)
	c.stopHandler = r.Deactivate

	if err := c.app.Start(); err != nil {
		// Container remains in Active with handler cleared; caller
		// interprets the failure (spec §4.2).
		c.stopHandler = nil
		return ErrFault
	}
	return nil
}

// Deactivate moves c from Active to Inactive and clears its handler (spec
// §4.2/§4.3). It is the default stop handler installed on activation
// (which the fault engine's STOP_APP path leaves in place), and is also
// called directly by Restart on start failure.
func (r *Registry) Deactivate(c *Container) {
	r.removeFrom(&r.active, c)
	c.membership = Inactive
	c.stopHandler = nil
	r.inactive = append(r.inactive, c)
	r.logger.Info("stopped", "app", c.name)
}

// DestroyInactive removes name's Inactive container, destroying its
// Application. The caller (Supervisor) is responsible for also dropping
// any ad-hoc handles referencing it first (spec §4.2).
func (r *Registry) DestroyInactive(name string) {
	c := r.GetInactive(name)
	if c == nil {
		return
	}
	c.app.Destroy()
	r.removeFrom(&r.inactive, c)
}

// DestroyAllInactive drains Inactive entirely (spec §4.2).
func (r *Registry) DestroyAllInactive() {
	for _, c := range append([]*Container(nil), r.inactive...) {
		r.DestroyInactive(c.name)
	}
}

// RemoveActive removes c from Active without touching Inactive. Used by
// the ShutdownNext handler, which destroys the container rather than
// recycling it into Inactive.
func (r *Registry) RemoveActive(c *Container) {
	r.removeFrom(&r.active, c)
}

func (r *Registry) removeFrom(set *[]*Container, c *Container) {
	s := *set
	for i, x := range s {
		if x == c {
			*set = append(s[:i], s[i+1:]...)
			return
		}
	}
}
