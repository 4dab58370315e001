package control

import "errors"

var (
	// ErrClosed is returned when the channel or its peer end has been closed.
	ErrClosed = errors.New("control channel closed")
)

// WaitResult reports why WaitUntil returned.
type WaitResult int

const (
	// Completed means the full duration elapsed with nothing to read.
	Completed WaitResult = iota
	// Readable means at least one marker is waiting to be drained.
	Readable
)

func (r WaitResult) String() string {
	if r == Readable {
		return "readable"
	}
	return "completed"
}

// DrainResult summarises the markers consumed by one Drain call.
type DrainResult struct {
	Markers   int
	Reload    bool
	Terminate bool
}
