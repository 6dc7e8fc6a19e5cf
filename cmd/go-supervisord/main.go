// Command go-supervisord runs the application supervisor daemon: it loads
// the config tree, wires the concrete Application adapter, and serves
// client requests over a Unix domain socket until asked to shut down.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "go-supervisord",
		Short: "Application supervisor daemon",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newStatusCmd())
	return root
}
