package ipc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	msgpack "github.com/hashicorp/go-msgpack/codec"
	"github.com/hashicorp/yamux"

	"github.com/legatoproject/go-supervisor/internal/app"
	"github.com/legatoproject/go-supervisor/internal/configtree"
	"github.com/legatoproject/go-supervisor/internal/supervisor"
)

type fakeConfig struct {
	installed map[string]bool
}

func (f *fakeConfig) AppInstalled(name string) (bool, error) { return f.installed[name], nil }
func (f *fakeConfig) AppChildren() ([]string, error)         { return nil, nil }
func (f *fakeConfig) StartManual(name string) (bool, error)  { return false, nil }

type fakeReader struct {
	specs map[string][]configtree.ProcessSpec
}

func (f *fakeReader) ProcessSpecs(name string) ([]configtree.ProcessSpec, error) {
	return f.specs[name], nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dataDir := t.TempDir()
	reader := &fakeReader{specs: map[string][]configtree.ProcessSpec{
		"demo": {{Name: "main", ExecPath: "/bin/sleep", Args: []string{"5"}}},
	}}
	cfg := &fakeConfig{installed: map[string]bool{"demo": true}}

	sup := supervisor.New(supervisor.Deps{
		Config: cfg,
		Factory: func(name string) (supervisor.Application, error) {
			return app.New(name, dataDir, reader, hclog.NewNullLogger()), nil
		},
		Responder: NewResponder(),
		Logger:    hclog.NewNullLogger(),
	})

	srv := NewServer(sup, nil, nil, hclog.NewNullLogger())
	socket := filepath.Join(t.TempDir(), "test.sock")
	if err := srv.Listen(socket); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	return srv, socket
}

func dial(t *testing.T, socket string) (*yamux.Session, func()) {
	t.Helper()
	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	sess, err := yamux.Client(conn, yamux.DefaultConfig())
	if err != nil {
		t.Fatalf("yamux.Client: %v", err)
	}
	return sess, func() { _ = sess.Close() }
}

func roundTrip(t *testing.T, sess *yamux.Session, req Request) Response {
	t.Helper()
	stream, err := sess.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer stream.Close()

	enc := msgpack.NewEncoder(stream, &mh)
	if err := enc.Encode(&req); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var resp Response
	dec := msgpack.NewDecoder(stream, &mh)
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return resp
}

func TestServerLaunchAndQuery(t *testing.T) {
	srv, socket := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	sess, closeFn := dial(t, socket)
	defer closeFn()

	resp := roundTrip(t, sess, Request{Op: OpLaunch, App: "demo"})
	if !resp.OK {
		t.Fatalf("launch failed: %+v", resp)
	}

	resp = roundTrip(t, sess, Request{Op: OpQueryAppState, App: "demo"})
	if !resp.OK || resp.Value != "RUNNING" {
		t.Fatalf("expected RUNNING, got %+v", resp)
	}

	resp = roundTrip(t, sess, Request{Op: OpLaunch, App: "demo"})
	if resp.OK || resp.Error == "" {
		t.Fatalf("expected duplicate launch to fail, got %+v", resp)
	}
}

func TestServerAdhocCreateStartDelete(t *testing.T) {
	srv, socket := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	sess, closeFn := dial(t, socket)
	defer closeFn()

	resp := roundTrip(t, sess, Request{Op: OpAdhocCreate, App: "demo", ExecPath: "/bin/true"})
	if !resp.OK || resp.Handle == "" {
		t.Fatalf("adhoc create failed: %+v", resp)
	}
	handle := resp.Handle

	resp = roundTrip(t, sess, Request{Op: OpAdhocStart, Handle: handle})
	if !resp.OK {
		t.Fatalf("adhoc start failed: %+v", resp)
	}

	resp = roundTrip(t, sess, Request{Op: OpAdhocDelete, Handle: handle})
	if !resp.OK {
		t.Fatalf("adhoc delete failed: %+v", resp)
	}

	resp = roundTrip(t, sess, Request{Op: OpAdhocDelete, Handle: handle})
	if resp.OK {
		t.Fatalf("expected second delete to fail for unknown handle")
	}
}
