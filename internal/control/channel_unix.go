//go:build !windows

package control

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/daylog/daylog/pkg/logger"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

const (
	markerTerminate byte = 'T'
	markerReload    byte = 'R'
	markerAck       byte = 'A'
)

// Channel is the signal-safe wake-up channel of the scheduler loop.
type Channel struct {
	loopFd   int
	notifyFd int

	terminating atomic.Bool

	signals chan os.Signal
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending []chan error
	closed  bool

	log logger.Logger
}

// Install creates the socket pair, registers the terminate and reload
// signals and starts the relays. The caller must Close the channel.
func Install(log logger.Logger) (*Channel, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socketpair: %w", err)
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, fmt.Errorf("set nonblocking: %w", err)
	}
	c := &Channel{
		loopFd:   fds[0],
		notifyFd: fds[1],
		signals:  make(chan os.Signal, 8),
		done:     make(chan struct{}),
		log:      log,
	}
	signal.Notify(c.signals, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	c.wg.Add(2)
	go c.relaySignals()
	go c.relayAcks()
	return c, nil
}

func (c *Channel) relaySignals() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case sig := <-c.signals:
			if sig == syscall.SIGHUP {
				c.send(markerReload)
				continue
			}
			c.terminating.Store(true)
			c.send(markerTerminate)
		}
	}
}

// send writes one marker to the notify end without blocking. A full buffer
// already holds a pending wake-up, so EAGAIN is not an error.
func (c *Channel) send(marker byte) error {
	for {
		err := unix.Sendto(c.notifyFd, []byte{marker}, unix.MSG_DONTWAIT, nil)
		switch {
		case err == nil, errors.Is(err, unix.EAGAIN):
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		default:
			return err
		}
	}
}

// relayAcks reads acknowledgements from the notify end and releases the
// reload requesters registered before them. It exits when the loop end is
// shut down.
func (c *Channel) relayAcks() {
	defer c.wg.Done()
	buf := make([]byte, 16)
	for {
		n, err := unix.Read(c.notifyFd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || n == 0 {
			c.releasePending(ErrClosed)
			return
		}
		for _, b := range buf[:n] {
			if b == markerAck {
				c.releasePending(nil)
			}
		}
	}
}

func (c *Channel) releasePending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- err
	}
}

// RequestReload queues a reload marker and returns a channel that receives
// nil once the loop has acknowledged a reload, or ErrClosed if the channel
// shuts down first.
func (c *Channel) RequestReload() (<-chan error, error) {
	done := make(chan error, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := c.send(markerReload); err != nil {
		return nil, fmt.Errorf("queue reload: %w", err)
	}
	c.pending = append(c.pending, done)
	return done, nil
}

// WaitUntil blocks for at most d or until a marker can be read. A zero or
// negative d only checks for pending markers. Interrupted polls are retried
// with the remaining time.
func (c *Channel) WaitUntil(d time.Duration) (WaitResult, error) {
	deadline := time.Now().Add(d)
	remaining := d
	for {
		fds := []unix.PollFd{{Fd: int32(c.loopFd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, pollMillis(remaining))
		if errors.Is(err, unix.EINTR) {
			remaining = time.Until(deadline)
			continue
		}
		if err != nil {
			return Completed, fmt.Errorf("poll: %w", err)
		}
		if n > 0 {
			return Readable, nil
		}
		remaining = time.Until(deadline)
		if remaining <= 0 {
			return Completed, nil
		}
	}
}

// pollMillis rounds d up to whole milliseconds so a wait never ends early.
func pollMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

// Drain consumes every buffered marker without blocking.
func (c *Channel) Drain() (DrainResult, error) {
	var res DrainResult
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(c.loopFd, buf)
		switch {
		case errors.Is(err, unix.EAGAIN):
			return res, nil
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return res, fmt.Errorf("drain: %w", err)
		case n == 0:
			return res, ErrClosed
		}
		res.Markers += n
		for _, b := range buf[:n] {
			switch b {
			case markerReload:
				res.Reload = true
			case markerTerminate:
				res.Terminate = true
			}
		}
	}
}

// Acknowledge tells reload requesters that the reload has been handled.
func (c *Channel) Acknowledge() error {
	for {
		_, err := unix.Write(c.loopFd, []byte{markerAck})
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("acknowledge: %w", err)
		}
		return nil
	}
}

// Terminating reports whether a terminate signal has been received.
func (c *Channel) Terminating() bool {
	return c.terminating.Load()
}

// Close deregisters the signals, stops both relays and closes the socket
// pair. Waiting reload requesters receive ErrClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	signal.Stop(c.signals)
	close(c.done)

	var result *multierror.Error
	for _, fd := range []int{c.loopFd, c.notifyFd} {
		if err := unix.Shutdown(fd, unix.SHUT_RDWR); err != nil {
			result = multierror.Append(result, fmt.Errorf("shutdown: %w", err))
		}
	}
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fd := range []int{c.loopFd, c.notifyFd} {
		if err := unix.Close(fd); err != nil {
			result = multierror.Append(result, fmt.Errorf("close: %w", err))
		}
	}
	return result.ErrorOrNil()
}
