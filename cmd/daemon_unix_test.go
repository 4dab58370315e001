//go:build !windows

package cmd

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/control"
	"github.com/daylog/daylog/pkg/logger"
)

func TestStop_NoPidFile(t *testing.T) {
	e := newTestEnv(t)
	if out := e.mustRun(t, "stop"); !strings.Contains(out, "not running") {
		t.Errorf("stop output = %q", out)
	}
}

func TestStop_StalePidFile(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(e.path("daylog.pid"), []byte("999999999"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.run("stop"); err == nil {
		t.Error("stop of a dead PID succeeded")
	}
}

func TestReload_NoDaemon(t *testing.T) {
	e := newTestEnv(t)
	if err := e.run("reload", "--timeout", "1s"); err == nil {
		t.Error("reload without a daemon succeeded")
	}
}

func TestInitDaemonComponents_RefusesSecondDaemon(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "keygen")
	parent := strconv.Itoa(os.Getppid())
	if err := os.WriteFile(e.path("daylog.pid"), []byte(parent), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(appFs, e.config)
	if err != nil {
		t.Fatal(err)
	}
	_, err = initDaemonComponents(cfg, true, logger.NewNopLogger())
	if !errors.Is(err, errDaemonRunning) {
		t.Fatalf("err = %v, want errDaemonRunning", err)
	}
	data, _ := os.ReadFile(e.path("daylog.pid"))
	if string(data) != parent {
		t.Errorf("PID file overwritten with %q", data)
	}
}

func TestDaemon_ReloadAndTerminate(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "keygen")
	e.mustRun(t, "user", "add", "bob", "bob@example.com", "UTC", "23:00")

	cfg, err := config.Load(appFs, e.config)
	if err != nil {
		t.Fatal(err)
	}
	c, err := initDaemonComponents(cfg, true, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("initDaemonComponents: %v", err)
	}
	pid, err := readPidFile(e.path("daylog.pid"))
	if err != nil || pid != os.Getpid() {
		t.Errorf("PID file = %d, %v; want %d", pid, err, os.Getpid())
	}

	done := make(chan error, 1)
	go func() { done <- c.Loop.Run(context.Background()) }()

	if err := control.RequestReload(context.Background(), e.socket, 5*time.Second); err != nil {
		t.Errorf("RequestReload: %v", err)
	}

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after SIGTERM")
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if _, err := os.Stat(e.path("daylog.pid")); !os.IsNotExist(err) {
		t.Errorf("PID file still present: %v", err)
	}
	if _, err := os.Stat(e.socket); !os.IsNotExist(err) {
		t.Errorf("control socket still present: %v", err)
	}
}
