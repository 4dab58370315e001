//go:build windows

package mailsource

// flock is a no-op on windows; the dot lock alone guards the mailbox.
func flock(uintptr) error { return nil }
