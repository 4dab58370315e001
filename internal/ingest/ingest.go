// Package ingest turns replies to daylog digests into journal entries.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/daylog/daylog/internal/mailsource"
	"github.com/daylog/daylog/internal/msgid"
	"github.com/daylog/daylog/pkg/logger"
	"github.com/hashicorp/go-multierror"
)

// EntryStore is where accepted replies are written.
type EntryStore interface {
	AddEntry(ctx context.Context, username string, date time.Time, body string) error
}

// Outcome classifies one message.
type Outcome int

const (
	// Stored means the reply was saved as an entry.
	Stored Outcome = iota
	// Empty means the reply verified but had nothing left after cleanup.
	Empty
	// Foreign means the message does not reference a daylog digest.
	Foreign
	// Rejected means the message referenced a digest but failed to verify or parse.
	Rejected
	// Failed means storing the entry failed; the message is retried next run.
	Failed
)

func (o Outcome) String() string {
	return [...]string{"stored", "empty", "foreign", "rejected", "failed"}[o]
}

// Stats counts outcomes over one run.
type Stats struct {
	Seen     int
	Stored   int
	Empty    int
	Foreign  int
	Rejected int
	Failed   int
}

func (s *Stats) add(o Outcome) {
	s.Seen++
	switch o {
	case Stored:
		s.Stored++
	case Empty:
		s.Empty++
	case Foreign:
		s.Foreign++
	case Rejected:
		s.Rejected++
	case Failed:
		s.Failed++
	}
}

// Entry is a verified, cleaned reply.
type Entry struct {
	Username string
	Date     time.Time
	Body     string
}

// Ingester verifies replies and stores them.
type Ingester struct {
	codec  *msgid.Codec
	store  EntryStore
	log    logger.Logger
	dryRun bool
}

// New returns an Ingester. In dry-run mode nothing is stored and every
// message is left unread.
func New(codec *msgid.Codec, store EntryStore, log logger.Logger, dryRun bool) *Ingester {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Ingester{codec: codec, store: store, log: log, dryRun: dryRun}
}

// Extract parses raw and returns the entry it carries. It returns
// msgid.ErrForeign when the message does not reference a daylog digest.
func (in *Ingester) Extract(raw []byte) (Entry, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return Entry{}, fmt.Errorf("parse message: %w", err)
	}
	var (
		entry   Entry
		matched bool
		verr    error
	)
	for _, id := range references(msg.Header) {
		if !msgid.IsOurs(id) {
			continue
		}
		username, date, err := in.codec.Verify(id)
		if err != nil {
			verr = err
			continue
		}
		entry = Entry{Username: username, Date: date}
		matched = true
		break
	}
	if !matched {
		if verr != nil {
			return Entry{}, verr
		}
		return Entry{}, msgid.ErrForeign
	}
	text, err := plainText(msg)
	if err != nil {
		return Entry{}, err
	}
	entry.Body = CleanBody(text)
	return entry, nil
}

// Process handles one message and says what should happen to it.
func (in *Ingester) Process(ctx context.Context, raw []byte) (Outcome, mailsource.Action) {
	entry, err := in.Extract(raw)
	switch {
	case errors.Is(err, msgid.ErrForeign):
		return Foreign, mailsource.Keep
	case err != nil:
		in.log.Warning("rejecting reply: %v", err)
		return Rejected, mailsource.Keep
	case entry.Body == "":
		in.log.Info("empty reply from %s for %s", entry.Username, entry.Date.Format("2006-01-02"))
		return Empty, mailsource.Remove
	}
	if in.dryRun {
		in.log.Info("would store entry for %s on %s:\n%s", entry.Username, entry.Date.Format("2006-01-02"), entry.Body)
		return Stored, mailsource.LeaveUnread
	}
	if err := in.store.AddEntry(ctx, entry.Username, entry.Date, entry.Body); err != nil {
		in.log.Error("storing entry for %s: %v", entry.Username, err)
		return Failed, mailsource.LeaveUnread
	}
	in.log.Info("stored entry for %s on %s", entry.Username, entry.Date.Format("2006-01-02"))
	return Stored, mailsource.Remove
}

// Run processes every unread message in src and closes it.
func (in *Ingester) Run(ctx context.Context, src mailsource.Source) (stats Stats, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close mailbox: %w", cerr)).ErrorOrNil()
		}
	}()
	msgs, err := src.Messages()
	if err != nil {
		return stats, err
	}
	var result *multierror.Error
	for _, m := range msgs {
		if ctx.Err() != nil {
			result = multierror.Append(result, ctx.Err())
			break
		}
		outcome, action := in.Process(ctx, m.Raw)
		if in.dryRun {
			action = mailsource.LeaveUnread
		}
		stats.add(outcome)
		in.log.Debug("message %s: %s, %s", m.Key, outcome, action)
		if err := src.Finish(m, action); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return stats, result.ErrorOrNil()
}
