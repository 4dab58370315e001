package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// writePidFile writes the current process ID to path.
func writePidFile(path string) error {
	return afero.WriteFile(appFs, path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// readPidFile returns the PID stored at path.
func readPidFile(path string) (int, error) {
	data, err := afero.ReadFile(appFs, path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}
	return pid, nil
}

// removePidFile removes path; a missing file is not an error.
func removePidFile(path string) error {
	err := appFs.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
