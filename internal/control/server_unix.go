//go:build !windows

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/daylog/daylog/pkg/logger"
)

const (
	requestReload byte = '?'
	replyDone     byte = '!'
)

// ErrNotAcknowledged is returned by RequestReload when the daemon hung up
// without confirming the reload.
var ErrNotAcknowledged = errors.New("reload not acknowledged")

// Server accepts `daylog reload` clients on a UNIX socket and forwards their
// requests into a Channel.
type Server struct {
	ch   *Channel
	path string
	ln   *net.UnixListener
	log  logger.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// Listen creates the control socket at path, replacing a stale one.
func Listen(ch *Channel, path string, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	_ = os.Remove(path)
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	_ = os.Chmod(path, 0700)
	return &Server{ch: ch, path: path, ln: ln, log: log, done: make(chan struct{})}, nil
}

// Path returns the socket path the server listens on.
func (s *Server) Path() string { return s.path }

// Serve accepts connections until Close is called.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.AcceptUnix()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn *net.UnixConn) {
	defer conn.Close()
	b := make([]byte, 1)
	if _, err := io.ReadFull(conn, b); err != nil {
		s.log.Debug("control client went away: %v", err)
		return
	}
	if b[0] != requestReload {
		s.log.Warning("unknown control request %q", b[0])
		return
	}
	acked, err := s.ch.RequestReload()
	if err != nil {
		s.log.Error("queue reload: %v", err)
		return
	}
	s.log.Info("reload requested over control socket")
	select {
	case err := <-acked:
		if err != nil {
			s.log.Warning("reload abandoned: %v", err)
			return
		}
		_, _ = conn.Write([]byte{replyDone})
	case <-s.done:
	}
}

// Close stops accepting, waits for in-flight clients and removes the socket.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	err := s.ln.Close()
	s.wg.Wait()
	if rmErr := cleanupSocket(s.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// RequestReload asks the daemon listening on path to reload and blocks
// until it has acknowledged, ctx is done or timeout elapses.
func RequestReload(ctx context.Context, path string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", path, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.Write([]byte{requestReload}); err != nil {
		return fmt.Errorf("send reload request: %w", err)
	}
	b := make([]byte, 1)
	if _, err := io.ReadFull(conn, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrNotAcknowledged
		}
		return fmt.Errorf("wait for acknowledgement: %w", err)
	}
	if b[0] != replyDone {
		return ErrNotAcknowledged
	}
	return nil
}
