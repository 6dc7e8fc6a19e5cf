package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/legatoproject/go-supervisor/internal/app"
	"github.com/legatoproject/go-supervisor/internal/configtree"
	"github.com/legatoproject/go-supervisor/internal/events"
	"github.com/legatoproject/go-supervisor/internal/hashfile"
	"github.com/legatoproject/go-supervisor/internal/ipc"
	"github.com/legatoproject/go-supervisor/internal/label"
	"github.com/legatoproject/go-supervisor/internal/supervisor"
	"github.com/legatoproject/go-supervisor/internal/watchdog"
)

func newServeCmd() *cobra.Command {
	var (
		socketPath string
		configPath string
		appsDir    string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the supervisor daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), socketPath, configPath, appsDir, logLevel)
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "/run/go-supervisord.sock", "client IPC socket path")
	cmd.Flags().StringVar(&configPath, "config-db", "/var/lib/go-supervisord/config.db", "bbolt config tree path")
	cmd.Flags().StringVar(&appsDir, "apps-dir", "/opt/apps", "root directory holding per-app info.properties/log data")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	return cmd
}

func runServe(ctx context.Context, socketPath, configPath, appsDir, logLevel string) error {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "go-supervisord",
		Level: hclog.LevelFromString(logLevel),
	})

	tree, err := configtree.Open(configPath)
	if err != nil {
		return err
	}
	defer tree.Close()

	hasher := hashfile.New(appsDir)
	labels := label.New()
	timers := watchdog.New()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.New(ctx, logger)
	responder := ipc.NewResponder()

	sup := supervisor.New(supervisor.Deps{
		Config: tree,
		Factory: func(name string) (supervisor.Application, error) {
			return app.New(name, filepath.Join(appsDir, name), tree, logger), nil
		},
		Labels:    labels,
		Responder: responder,
		Notifier:  bus,
		Logger:    logger,
	})

	server := ipc.NewServer(sup, hasher, timers, logger)
	if err := server.Listen(socketPath); err != nil {
		return err
	}
	defer server.Close()

	sup.AutoStart()

	go runSigchldLoop(ctx, server, sup, logger)
	go runWatchdogLoop(ctx, server, sup, timers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		done := make(chan struct{})
		server.Submit(func() {
			sup.Shutdown(func() { close(done) })
		})
		select {
		case <-done:
		case <-time.After(30 * time.Second):
			logger.Warn("shutdown cascade did not complete within timeout")
		}
		cancel()
	}()

	return server.Run(ctx)
}

// wait4Reaper implements supervisor.Reaper with the blocking, consuming
// form of wait4 — the fault engine calls Reap only after it has already
// resolved the dying process's identity via the non-consuming peek in
// runSigchldLoop.
type wait4Reaper struct{}

func (wait4Reaper) Reap(pid int) (int, error) {
	var ws unix.WaitStatus
	_, err := unix.Wait4(pid, &ws, 0, nil)
	if err != nil {
		return 0, err
	}
	return ws.ExitStatus(), nil
}

func runSigchldLoop(ctx context.Context, server *ipc.Server, sup *supervisor.Supervisor, logger hclog.Logger) {
	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, syscall.SIGCHLD)
	defer signal.Stop(sigCh)

	reaper := wait4Reaper{}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			for {
				var ws unix.WaitStatus
				// WNOWAIT peeks the exited pid without consuming it, so
				// HandleSigchild can resolve the dying process's security
				// label before anything reaps it.
				pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WNOWAIT, nil)
				if err != nil || pid <= 0 {
					break
				}

				var handleErr error
				server.Submit(func() {
					handleErr = sup.HandleSigchild(pid, reaper)
				})

				switch handleErr {
				case nil:
					continue
				case supervisor.ErrNotAppProcess:
					// Not one of ours; leave it unreaped for whoever owns
					// it and stop draining this cycle.
				case supervisor.ErrFatal:
					logger.Error("fault engine requested reboot; exiting")
					os.Exit(1)
				default:
					logger.Error("sigchild handling failed", "pid", pid, "error", handleErr)
				}
				break
			}
		}
	}
}

func runWatchdogLoop(ctx context.Context, server *ipc.Server, sup *supervisor.Supervisor, timers *watchdog.Timers) {
	for {
		select {
		case <-ctx.Done():
			return
		case exp := <-timers.Expired():
			procID := exp.ProcID
			server.Submit(func() {
				sup.HandleWatchdogExpired(procID)
			})
		}
	}
}
