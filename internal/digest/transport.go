package digest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"gopkg.in/gomail.v2"
)

// Transport delivers a composed message.
type Transport interface {
	Deliver(ctx context.Context, m *gomail.Message) error
}

// Sendmail pipes messages to a sendmail-compatible binary as
// `sendmail -i -f <from> -- <to>...`.
type Sendmail struct {
	Path string
}

// Deliver runs sendmail with the envelope taken from the message headers.
func (s *Sendmail) Deliver(ctx context.Context, m *gomail.Message) error {
	path := s.Path
	if path == "" {
		path = "sendmail"
	}
	send := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		args := append([]string{"-i", "-f", from, "--"}, to...)
		cmd := exec.CommandContext(ctx, path, args...)
		var body bytes.Buffer
		if _, err := msg.WriteTo(&body); err != nil {
			return fmt.Errorf("render message: %w", err)
		}
		cmd.Stdin = &body
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%s: %w: %s", path, err, msg)
			}
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
	return gomail.Send(send, m)
}

// SMTP delivers through an SMTP server.
type SMTP struct {
	dialer *gomail.Dialer
}

// NewSMTP returns an SMTP transport. STARTTLS is used when the server
// offers it.
func NewSMTP(host string, port int, username, password string) *SMTP {
	return &SMTP{dialer: gomail.NewDialer(host, port, username, password)}
}

// Deliver dials the server, sends m and hangs up.
func (s *SMTP) Deliver(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp %s:%d: %w", s.dialer.Host, s.dialer.Port, err)
	}
	return nil
}

// Writer renders messages to an io.Writer instead of sending them. It backs
// the --dry-run flags.
type Writer struct {
	W io.Writer
}

// Deliver writes m followed by a blank line.
func (w *Writer) Deliver(ctx context.Context, m *gomail.Message) error {
	if _, err := m.WriteTo(w.W); err != nil {
		return err
	}
	_, err := io.WriteString(w.W, "\n")
	return err
}
