// Package configtree implements the read side of spec §6's "tree-shaped
// hierarchical config... accessed via read transactions" on top of
// go.etcd.io/bbolt. Nested buckets model the tree; every read goes
// through a bolt read-only transaction (db.View), mirroring boltdb-backed
// state stores elsewhere in the supervisory/orchestrator corpus (e.g.
// hashicorp/raft-boltdb).
package configtree

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/legatoproject/go-supervisor/internal/supervisor"
)

var (
	appsBucket      = []byte("apps")
	processesBucket = []byte("processes")
)

const startManualKey = "startManual"
const processSpecKey = "spec"

// Tree is a bbolt-backed hierarchical config store. It implements
// supervisor.ConfigStore and additionally exposes the per-app process
// specs the out-of-scope Application layer needs (spec §6:
// "apps/<name>/... application configuration consumed by the external
// Application layer (opaque here)").
type Tree struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt file at path and ensures the
// top-level "apps" bucket exists.
func Open(path string) (*Tree, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open config tree: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(appsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init config tree: %w", err)
	}
	return &Tree{db: db}, nil
}

func (t *Tree) Close() error { return t.db.Close() }

// AppInstalled implements supervisor.ConfigStore.
func (t *Tree) AppInstalled(name string) (bool, error) {
	var installed bool
	err := t.db.View(func(tx *bolt.Tx) error {
		apps := tx.Bucket(appsBucket)
		if apps == nil {
			return nil
		}
		installed = apps.Bucket([]byte(name)) != nil
		return nil
	})
	return installed, err
}

// AppChildren implements supervisor.ConfigStore.
func (t *Tree) AppChildren() ([]string, error) {
	var names []string
	err := t.db.View(func(tx *bolt.Tx) error {
		apps := tx.Bucket(appsBucket)
		if apps == nil {
			return nil
		}
		return apps.ForEach(func(name, v []byte) error {
			if v != nil {
				return nil
			}
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

// StartManual implements supervisor.ConfigStore.
func (t *Tree) StartManual(name string) (bool, error) {
	var manual bool
	err := t.db.View(func(tx *bolt.Tx) error {
		app := appBucket(tx, name)
		if app == nil {
			return nil
		}
		v := app.Get([]byte(startManualKey))
		manual = len(v) == 1 && v[0] == 1
		return nil
	})
	return manual, err
}

// ProcessSpec is the per-process configuration stored under
// apps/<name>/processes/<procName>. It is the concrete shape behind
// spec §6's "opaque" per-app configuration.
type ProcessSpec struct {
	Name        string   `json:"name"`
	ExecPath    string   `json:"execPath"`
	Args        []string `json:"args"`
	Env         []string `json:"env"`
	Priority    string   `json:"priority"`
	FaultAction int      `json:"faultAction"`
	Watchdog    int      `json:"watchdog"`
}

// ProcessSpecs returns every configured process for name, sorted by
// process name (bbolt bucket key order), not in the order they were
// written.
func (t *Tree) ProcessSpecs(name string) ([]ProcessSpec, error) {
	var specs []ProcessSpec
	err := t.db.View(func(tx *bolt.Tx) error {
		app := appBucket(tx, name)
		if app == nil {
			return nil
		}
		procs := app.Bucket(processesBucket)
		if procs == nil {
			return nil
		}
		return procs.ForEach(func(procName, v []byte) error {
			if v != nil {
				return nil
			}
			pb := procs.Bucket(procName)
			raw := pb.Get([]byte(processSpecKey))
			if raw == nil {
				return nil
			}
			var spec ProcessSpec
			if err := json.Unmarshal(raw, &spec); err != nil {
				return fmt.Errorf("decode process spec %s/%s: %w", name, procName, err)
			}
			specs = append(specs, spec)
			return nil
		})
	})
	return specs, err
}

func appBucket(tx *bolt.Tx, name string) *bolt.Bucket {
	apps := tx.Bucket(appsBucket)
	if apps == nil {
		return nil
	}
	return apps.Bucket([]byte(name))
}

// Install writes apps/<name> with the given startManual flag and process
// specs, replacing any prior definition. Used by the daemon's config
// loader and by tests; not part of the read-only ConfigStore surface the
// core depends on.
func (t *Tree) Install(name string, startManual bool, specs []ProcessSpec) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		apps, err := tx.CreateBucketIfNotExists(appsBucket)
		if err != nil {
			return err
		}
		_ = apps.DeleteBucket([]byte(name))
		app, err := apps.CreateBucket([]byte(name))
		if err != nil {
			return err
		}
		manualByte := byte(0)
		if startManual {
			manualByte = 1
		}
		if err := app.Put([]byte(startManualKey), []byte{manualByte}); err != nil {
			return err
		}
		procs, err := app.CreateBucketIfNotExists(processesBucket)
		if err != nil {
			return err
		}
		for _, spec := range specs {
			pb, err := procs.CreateBucketIfNotExists([]byte(spec.Name))
			if err != nil {
				return err
			}
			raw, err := json.Marshal(spec)
			if err != nil {
				return err
			}
			if err := pb.Put([]byte(processSpecKey), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// Uninstall removes apps/<name> entirely.
func (t *Tree) Uninstall(name string) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		apps := tx.Bucket(appsBucket)
		if apps == nil {
			return nil
		}
		return apps.DeleteBucket([]byte(name))
	})
}

var _ supervisor.ConfigStore = (*Tree)(nil)
