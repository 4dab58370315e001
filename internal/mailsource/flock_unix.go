//go:build !windows

package mailsource

import "golang.org/x/sys/unix"

// flock takes an exclusive advisory lock, released when the file closes.
func flock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX)
}
