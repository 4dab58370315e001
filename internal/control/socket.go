package control

import (
	"os"
	"path/filepath"
)

// SocketPathEnv overrides the control socket location.
const SocketPathEnv = "DAYLOG_CONTROL"

// SocketPath returns the control socket path: the environment override if
// set, then the configured path, then daylog.sock in the temp directory.
func SocketPath(configured string) string {
	if path := os.Getenv(SocketPathEnv); path != "" {
		return path
	}
	if configured != "" {
		return configured
	}
	return filepath.Join(os.TempDir(), "daylog.sock")
}
