//go:build !windows

package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSocketPath(t *testing.T) {
	t.Setenv(SocketPathEnv, "")
	if got := SocketPath("/run/daylog.sock"); got != "/run/daylog.sock" {
		t.Errorf("SocketPath(configured) = %q", got)
	}
	if got := SocketPath(""); got != filepath.Join(os.TempDir(), "daylog.sock") {
		t.Errorf("SocketPath(\"\") = %q", got)
	}
	t.Setenv(SocketPathEnv, "/tmp/override.sock")
	if got := SocketPath("/run/daylog.sock"); got != "/tmp/override.sock" {
		t.Errorf("SocketPath with env = %q, want override", got)
	}
}

func startServer(t *testing.T, c *Channel) *Server {
	t.Helper()
	dir, err := os.MkdirTemp("", "dl")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	srv, err := Listen(c, filepath.Join(dir, "c.sock"), nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestServer_ReloadRoundTrip(t *testing.T) {
	c := installTest(t)
	srv := startServer(t, c)

	errc := make(chan error, 1)
	go func() {
		errc <- RequestReload(context.Background(), srv.Path(), 10*time.Second)
	}()

	if res, err := c.WaitUntil(5 * time.Second); err != nil || res != Readable {
		t.Fatalf("WaitUntil = %s, %v; want readable", res, err)
	}
	drained, err := c.Drain()
	if err != nil || !drained.Reload {
		t.Fatalf("Drain = %+v, %v; want reload", drained, err)
	}
	if err := c.Acknowledge(); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("RequestReload = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("client never got the acknowledgement")
	}
}

func TestServer_CloseAbandonsClient(t *testing.T) {
	c := installTest(t)
	srv := startServer(t, c)

	errc := make(chan error, 1)
	go func() {
		errc <- RequestReload(context.Background(), srv.Path(), 10*time.Second)
	}()
	if _, err := c.WaitUntil(5 * time.Second); err != nil {
		t.Fatalf("WaitUntil: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrNotAcknowledged) {
			t.Errorf("RequestReload = %v, want ErrNotAcknowledged", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("client not released on server close")
	}
	if _, err := os.Stat(srv.Path()); !os.IsNotExist(err) {
		t.Errorf("socket file still present after Close: %v", err)
	}
}

func TestRequestReload_NoDaemon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sock")
	if err := RequestReload(context.Background(), path, time.Second); err == nil {
		t.Error("expected error when no daemon is listening")
	}
}
