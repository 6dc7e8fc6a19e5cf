package app

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/legatoproject/go-supervisor/internal/configtree"
	"github.com/legatoproject/go-supervisor/internal/supervisor"
)

type fakeReader struct {
	specs map[string][]configtree.ProcessSpec
}

func (f *fakeReader) ProcessSpecs(name string) ([]configtree.ProcessSpec, error) {
	return f.specs[name], nil
}

func testLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

func TestApplicationStartAndState(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{specs: map[string][]configtree.ProcessSpec{
		"demo": {{Name: "main", ExecPath: "/bin/sleep", Args: []string{"5"}}},
	}}
	a := New("demo", dir, reader, testLogger())

	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if a.State() != supervisor.StateRunning {
		t.Fatalf("expected RUNNING after start, got %s", a.State())
	}
	if a.ProcessState("main") != supervisor.StateRunning {
		t.Fatalf("expected main RUNNING")
	}
	if !a.HasPID(a.tracked[0].proc.PID()) {
		t.Fatalf("HasPID should report the launched pid")
	}

	pid := a.tracked[0].proc.PID()
	a.Stop()
	action := a.SigchildNotify(pid, 0)
	if action != supervisor.FaultIgnore {
		t.Fatalf("expected FaultIgnore for an app-initiated stop, got %v", action)
	}
	if a.State() != supervisor.StateStopped {
		t.Fatalf("expected STOPPED after sole process reaped")
	}
}

func TestApplicationUnexpectedDeathSignalsSiblings(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{specs: map[string][]configtree.ProcessSpec{
		"demo": {
			{Name: "a", ExecPath: "/bin/sleep", Args: []string{"5"}, FaultAction: int(supervisor.FaultRestartApp)},
			{Name: "b", ExecPath: "/bin/sleep", Args: []string{"5"}},
		},
	}}
	a := New("demo", dir, reader, testLogger())
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadPID := a.tracked[0].proc.PID()
	action := a.SigchildNotify(deadPID, 1)
	if action != supervisor.FaultRestartApp {
		t.Fatalf("expected FaultRestartApp, got %v", action)
	}

	// Application should now be asking the sibling to terminate; give it a
	// moment, then finish the cascade as the fault engine would.
	time.Sleep(50 * time.Millisecond)
	siblingPID := a.tracked[1].proc.PID()
	second := a.SigchildNotify(siblingPID, 0)
	if second != supervisor.FaultIgnore {
		t.Fatalf("expected sibling death to be reported as FaultIgnore once stopping, got %v", second)
	}
	if a.State() != supervisor.StateStopped {
		t.Fatalf("expected STOPPED once both processes reaped")
	}
}

func TestApplicationNewProcessInheritsConfigured(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{specs: map[string][]configtree.ProcessSpec{
		"demo": {{Name: "main", ExecPath: "/bin/sleep", Args: []string{"1"}}},
	}}
	a := New("demo", dir, reader, testLogger())
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	proc, err := a.NewProcess("main", "")
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	if proc.ID() == a.tracked[0].proc.ID() {
		t.Fatalf("ad-hoc process must be a distinct object from the configured one")
	}
}

// TestApplicationNewProcessInheritsBeforeStart covers the ad-hoc-create-
// against-a-freshly-materialized-container path: NewProcess must inherit
// the configured spec even though Start has never been called and
// a.tracked is still empty.
func TestApplicationNewProcessInheritsBeforeStart(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{specs: map[string][]configtree.ProcessSpec{
		"demo": {{Name: "main", ExecPath: "/bin/sleep", Args: []string{"1"}, Env: []string{"X=1"}}},
	}}
	a := New("demo", dir, reader, testLogger())

	proc, err := a.NewProcess("main", "")
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	tp := a.tracked[len(a.tracked)-1]
	if tp.proc.execPath != "/bin/sleep" {
		t.Fatalf("expected inherited exec path, got %q", tp.proc.execPath)
	}
	if len(tp.proc.configuredArgv) != 1 || tp.proc.configuredArgv[0] != "1" {
		t.Fatalf("expected inherited argv, got %v", tp.proc.configuredArgv)
	}
	_ = proc
}

func TestApplicationDestroyKillsAnyStillAliveProcess(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{specs: map[string][]configtree.ProcessSpec{
		"demo": {{Name: "main", ExecPath: "/bin/sleep", Args: []string{"5"}}},
	}}
	a := New("demo", dir, reader, testLogger())
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	p := a.tracked[0].proc
	a.Destroy()
	if p.cmd.ProcessState == nil {
		t.Fatalf("expected the still-alive process to be killed by Destroy")
	}
	if len(a.tracked) != 0 {
		t.Fatalf("expected tracked processes cleared after Destroy")
	}
}

func TestApplicationNewProcessMissingExecPath(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{specs: map[string][]configtree.ProcessSpec{}}
	a := New("demo", dir, reader, testLogger())
	if _, err := a.NewProcess("unknown", ""); err != supervisor.ErrMissingExecPath {
		t.Fatalf("expected ErrMissingExecPath, got %v", err)
	}
}

func TestFaultPolicyDefaultsOutOfRange(t *testing.T) {
	spec := configtree.ProcessSpec{FaultAction: 99}
	if got := faultPolicy(spec); got != supervisor.FaultIgnore {
		t.Fatalf("expected out-of-range fault action to default to Ignore, got %v", got)
	}
}

func TestWatchdogPolicyDefaultsOutOfRange(t *testing.T) {
	spec := configtree.ProcessSpec{Watchdog: -1}
	if got := watchdogPolicy(spec); got != supervisor.WatchdogIgnore {
		t.Fatalf("expected out-of-range watchdog action to default to Ignore, got %v", got)
	}
}
