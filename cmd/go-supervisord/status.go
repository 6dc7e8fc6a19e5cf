package main

import (
	"fmt"
	"net"

	msgpack "github.com/hashicorp/go-msgpack/codec"
	"github.com/hashicorp/yamux"
	"github.com/spf13/cobra"

	"github.com/legatoproject/go-supervisor/internal/ipc"
)

func newStatusCmd() *cobra.Command {
	var socketPath string

	cmd := &cobra.Command{
		Use:   "status <app>",
		Short: "Query an application's run state over the daemon's IPC socket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(socketPath, args[0])
		},
	}
	cmd.Flags().StringVar(&socketPath, "socket", "/run/go-supervisord.sock", "client IPC socket path")
	return cmd
}

func runStatus(socketPath, app string) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	sess, err := yamux.Client(conn, yamux.DefaultConfig())
	if err != nil {
		return err
	}
	defer sess.Close()

	stream, err := sess.OpenStream()
	if err != nil {
		return err
	}
	defer stream.Close()

	var mh msgpack.MsgpackHandle
	enc := msgpack.NewEncoder(stream, &mh)
	if err := enc.Encode(&ipc.Request{Op: ipc.OpQueryAppState, App: app}); err != nil {
		return err
	}

	var resp ipc.Response
	dec := msgpack.NewDecoder(stream, &mh)
	if err := dec.Decode(&resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s", resp.Error)
	}
	fmt.Printf("%s: %s\n", app, resp.Value)
	return nil
}
