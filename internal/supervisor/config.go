package supervisor

// ConfigStore is the narrow read-only view the core needs of the
// hierarchical config tree (spec §6). A concrete bbolt-backed
// implementation lives in internal/configtree; tests use an in-memory fake.
type ConfigStore interface {
	// AppInstalled reports whether apps/<name> exists in the tree.
	AppInstalled(name string) (bool, error)

	// AppChildren lists the first-level children of the "apps" node, for
	// auto_start enumeration. Returns an empty slice if "apps" is absent.
	AppChildren() ([]string, error)

	// StartManual reads apps/<name>/startManual, defaulting to false if
	// absent.
	StartManual(name string) (bool, error)
}

// ApplicationFactory builds a new Application for a newly-installed,
// not-yet-seen application name. It is supplied by the daemon wiring
// (cmd/go-supervisord) so internal/supervisor never imports internal/app.
type ApplicationFactory func(name string) (Application, error)
