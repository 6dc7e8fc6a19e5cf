package app

import (
	"context"
	"fmt"

	systemdDbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/hashicorp/go-hclog"
)

// unitLauncher folds an already-started process into a transient systemd
// scope unit, the same StartTransientUnit/StartUnit dbus pattern the
// teacher's CreateMachine used to start an nspawn machine unit — applied
// here to a plain process group instead of a container image.
type unitLauncher struct {
	conn   *systemdDbus.Conn
	logger hclog.Logger
}

func newUnitLauncher(logger hclog.Logger) (*unitLauncher, error) {
	conn, err := systemdDbus.NewSystemConnectionContext(context.Background())
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &unitLauncher{conn: conn, logger: logger.Named("systemd")}, nil
}

// adopt starts a transient scope unit wrapping pid, giving the supervisor
// cgroup-based accounting over processes it did not itself fork inside a
// unit (systemd-run --scope semantics).
func (u *unitLauncher) adopt(name string, pid int) error {
	unitName := scopeUnitName(name)
	props := []systemdDbus.Property{
		systemdDbus.PropPids(uint32(pid)),
		systemdDbus.PropDescription("go-supervisor process: " + name),
	}

	ch := make(chan string, 1)
	_, err := u.conn.StartTransientUnitContext(context.Background(), unitName, "replace", props, ch)
	if err != nil {
		return fmt.Errorf("start transient unit %s: %w", unitName, err)
	}

	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("transient unit %s job result: %s", unitName, result)
		}
	case <-context.Background().Done():
	}
	return nil
}

// stop terminates the scope unit backing name, if one was created.
func (u *unitLauncher) stop(name string) {
	unitName := scopeUnitName(name)
	ch := make(chan string, 1)
	if _, err := u.conn.StopUnitContext(context.Background(), unitName, "replace", ch); err != nil {
		u.logger.Warn("stop transient unit failed", "unit", unitName, "error", err)
		return
	}
	<-ch
}

func scopeUnitName(name string) string {
	return "go-supervisor-" + name + ".scope"
}
