// Package mailsource reads incoming replies from a maildir or an mbox and
// records what ingest decided to do with each message.
package mailsource

import (
	"errors"
	"fmt"
)

// Action is what happens to a message once ingest has looked at it.
type Action int

const (
	// Remove marks the message as consumed.
	Remove Action = iota
	// Keep marks the message as read but leaves it in the mailbox.
	Keep
	// LeaveUnread leaves the message untouched, to be seen again next run.
	LeaveUnread
)

func (a Action) String() string {
	switch a {
	case Remove:
		return "remove"
	case Keep:
		return "keep"
	case LeaveUnread:
		return "leave-unread"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ErrLocked is returned when an mbox lock cannot be taken.
var ErrLocked = errors.New("mailbox is locked")

// Message is one raw RFC 5322 message.
type Message struct {
	// Key identifies the message within its source.
	Key string
	Raw []byte
}

// Source is a mailbox. Messages returns the unread messages; Finish records
// the action for one of them; Close applies pending changes and releases
// any lock. Close must be called even when Messages fails.
type Source interface {
	Messages() ([]Message, error)
	Finish(m Message, a Action) error
	Close() error
}
