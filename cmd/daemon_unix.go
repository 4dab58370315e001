//go:build !windows

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"

	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/control"
	"github.com/daylog/daylog/internal/metrics"
	"github.com/daylog/daylog/internal/scheduler"
	"github.com/daylog/daylog/internal/store"
	"github.com/daylog/daylog/pkg/logger"
)

const (
	shutdownTimeout = 5 * time.Second
	pollInterval    = 100 * time.Millisecond
	notifyTimeout   = 2 * time.Second
)

var errDaemonRunning = errors.New("daemon already running")

// daemonComponents holds everything run starts, so it can be torn down in
// reverse order however startup ended.
type daemonComponents struct {
	Store         *store.SQLite
	Control       *control.Channel
	Server        *control.Server
	Metrics       *metrics.Prometheus
	MetricsServer *metrics.Server
	Loop          *scheduler.Loop

	pidFile string
	log     logger.Logger
}

// Close releases every component that was started.
func (c *daemonComponents) Close() error {
	var result *multierror.Error
	if c.MetricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := c.MetricsServer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("metrics server: %w", err))
		}
		cancel()
	}
	if c.Server != nil {
		if err := c.Server.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("control server: %w", err))
		}
	}
	if c.Control != nil {
		if err := c.Control.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("control channel: %w", err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("store: %w", err))
		}
	}
	if c.pidFile != "" {
		if err := removePidFile(c.pidFile); err != nil {
			result = multierror.Append(result, fmt.Errorf("pid file: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// initDaemonComponents starts every component in dependency order. On
// error the components started so far are closed.
var initDaemonComponents = func(cfg *config.Config, dry bool, log logger.Logger) (c *daemonComponents, err error) {
	c = &daemonComponents{log: log}
	defer func() {
		if err != nil {
			if cerr := c.Close(); cerr != nil {
				log.Error("cleanup after failed start: %v", cerr)
			}
			c = nil
		}
	}()

	pidFile := pidFilePath(cfg)
	if pid, perr := readPidFile(pidFile); perr == nil && pid != os.Getpid() && isProcessRunning(pid) {
		return c, fmt.Errorf("%w (PID %d in %s)", errDaemonRunning, pid, pidFile)
	}
	if err = writePidFile(pidFile); err != nil {
		return c, fmt.Errorf("write PID file: %w", err)
	}
	c.pidFile = pidFile

	bg := context.Background()
	if c.Store, err = openStore(bg, cfg); err != nil {
		return c, err
	}
	codec, err := newCodec(cfg)
	if err != nil {
		return c, err
	}
	if c.Control, err = control.Install(log); err != nil {
		return c, err
	}
	if c.Server, err = control.Listen(c.Control, control.SocketPath(cfg.Control), log); err != nil {
		return c, err
	}
	go func() {
		if err := c.Server.Serve(); err != nil {
			log.Error("control server: %v", err)
		}
	}()

	c.Metrics = metrics.New(metrics.Namespace, prometheus.NewRegistry())
	if cfg.MetricsAddr != "" {
		if c.MetricsServer, err = metrics.Listen(cfg.MetricsAddr, c.Metrics); err != nil {
			return c, fmt.Errorf("metrics listener: %w", err)
		}
		go func() {
			if err := c.MetricsServer.Serve(); err != nil {
				log.Error("metrics server: %v", err)
			}
		}()
		log.Info("serving metrics on %s", c.MetricsServer.Addr())
	}

	c.Loop, err = scheduler.NewLoop(scheduler.Config{
		Storage:          c.Store,
		Sender:           newDispatcher(cfg, c.Store, codec, dry, log),
		Control:          c.Control,
		Clock:            clock,
		Logger:           log,
		Recorder:         c.Metrics,
		Backoff:          cfg.Backoff(),
		MaxConfigRetries: cfg.MaxConfigRetries,
	})
	return c, err
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	c, err := initDaemonComponents(cfg, dryRun, l)
	if err != nil {
		return err
	}
	l.Info("daemon started (PID %d, control socket %s)", os.Getpid(), c.Server.Path())
	runErr := c.Loop.Run(context.Background())
	if err := c.Close(); err != nil {
		l.Error("shutdown: %v", err)
		if runErr == nil {
			runErr = err
		}
	}
	l.Info("daemon stopped")
	return runErr
}

func reload(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := control.SocketPath(cfg.Control)
	err = control.RequestReload(context.Background(), path, reloadTimeout)
	if err == nil {
		fmt.Fprintln(stdout, "Daemon reloaded.")
		return nil
	}
	if errors.Is(err, control.ErrNotAcknowledged) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pid, perr := readPidFile(pidFilePath(cfg))
	if perr != nil {
		return fmt.Errorf("%w; no PID file either: %v", err, perr)
	}
	if err := signalDaemon(pid, syscall.SIGHUP); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Sent SIGHUP to daemon (PID %d).\n", pid)
	return nil
}

// notifyDaemon asks a running daemon to reload after the user table
// changed. Failure only means no daemon is listening.
func notifyDaemon(cfg *config.Config, log logger.Logger) {
	path := control.SocketPath(cfg.Control)
	if err := control.RequestReload(context.Background(), path, notifyTimeout); err != nil {
		log.Debug("daemon not notified: %v", err)
		return
	}
	fmt.Fprintln(stdout, "Daemon reloaded.")
}

func stop(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pid, err := readPidFile(pidFilePath(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(stdout, "Daemon is not running (PID file not found)")
			return nil
		}
		return fmt.Errorf("read PID file: %w", err)
	}
	fmt.Fprintf(stdout, "Stopping daemon (PID %d)...\n", pid)
	if err := killDaemon(pid); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Daemon stopped successfully")
	return nil
}

// isProcessRunning reports whether pid exists, using signal 0.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func signalDaemon(pid int, sig syscall.Signal) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}
	if err := process.Signal(sig); err != nil {
		return fmt.Errorf("daemon not running (PID %d): %w", pid, err)
	}
	return nil
}

// killDaemon sends SIGTERM and waits for the daemon to exit, falling back
// to SIGKILL after shutdownTimeout.
func killDaemon(pid int) error {
	if !isProcessRunning(pid) {
		return fmt.Errorf("daemon not running (PID %d)", pid)
	}
	if err := signalDaemon(pid, syscall.SIGTERM); err != nil {
		return err
	}
	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		if !isProcessRunning(pid) {
			return nil
		}
		time.Sleep(pollInterval)
	}
	fmt.Fprintln(stdout, "Graceful shutdown timeout, forcing kill...")
	if err := signalDaemon(pid, syscall.SIGKILL); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	return nil
}
