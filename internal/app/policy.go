package app

import (
	"github.com/legatoproject/go-supervisor/internal/configtree"
	"github.com/legatoproject/go-supervisor/internal/supervisor"
)

// ConfigReader loads the per-app process specs this adapter needs. A
// *configtree.Tree satisfies it; tests use a fake so policy and fault
// logic can be exercised without a real bbolt file.
type ConfigReader interface {
	ProcessSpecs(name string) ([]configtree.ProcessSpec, error)
}

// faultPolicy turns a configured spec's raw int into a validated
// FaultAction, defaulting to FaultIgnore for anything out of range so a
// malformed config node degrades to "leave it dead" rather than a panic.
func faultPolicy(spec configtree.ProcessSpec) supervisor.FaultAction {
	a := supervisor.FaultAction(spec.FaultAction)
	if a < supervisor.FaultIgnore || a > supervisor.FaultReboot {
		return supervisor.FaultIgnore
	}
	return a
}

// watchdogPolicy is faultPolicy's counterpart for the watchdog vocabulary.
func watchdogPolicy(spec configtree.ProcessSpec) supervisor.WatchdogAction {
	a := supervisor.WatchdogAction(spec.Watchdog)
	if a < supervisor.WatchdogIgnore || a > supervisor.WatchdogError {
		return supervisor.WatchdogIgnore
	}
	return a
}
