//go:build !windows

package control

import "os"

// cleanupSocket removes the UNIX socket file.
// Returns an error if removal fails, unless the file doesn't exist.
func cleanupSocket(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
