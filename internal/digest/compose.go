package digest

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/daylog/daylog/internal/msgid"
	"github.com/daylog/daylog/internal/scheduler"
	"github.com/jonboulle/clockwork"
	"gopkg.in/gomail.v2"
)

const (
	dateLayout = "2006-01-02"
	longLayout = "Monday, January 2, 2006"
	signature  = "-- \nsent by daylog\n"
)

// Entries is the read side of the journal store.
type Entries interface {
	Entry(ctx context.Context, username string, date time.Time) (string, bool, error)
	OldestEntryDate(ctx context.Context, username string) (time.Time, bool, error)
}

// Composer builds digest messages.
type Composer struct {
	entries    Entries
	codec      *msgid.Codec
	returnAddr string
	hostname   string
	clock      clockwork.Clock
}

// NewComposer returns a Composer. Message-IDs are generated on hostname and
// replies go to returnAddr.
func NewComposer(entries Entries, codec *msgid.Codec, returnAddr, hostname string, clock clockwork.Clock) *Composer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Composer{
		entries:    entries,
		codec:      codec,
		returnAddr: returnAddr,
		hostname:   hostname,
		clock:      clock,
	}
}

// Compose builds u's digest for the given local date.
func (c *Composer) Compose(ctx context.Context, u scheduler.User, date time.Time) (*gomail.Message, error) {
	body, err := c.Body(ctx, u.Username, date)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMessage()
	m.SetDateHeader("Date", c.clock.Now())
	m.SetHeader("Subject", "Daylog for "+date.Format(dateLayout))
	m.SetHeader("From", m.FormatAddress(c.returnAddr, "Daylog"))
	m.SetHeader("To", u.Email)
	m.SetHeader("Message-ID", msgid.Header(c.codec.Generate(u.Username, date), c.hostname))
	m.SetBody("text/plain", body)
	return m, nil
}

type lookback struct {
	label string
	date  time.Time
}

// lookbacks lists the past days quoted in a digest for date, newest first.
func lookbacks(date time.Time, oldest time.Time, hasOldest bool) []lookback {
	var out []lookback
	for w := 1; w <= 3; w++ {
		out = append(out, lookback{plural(w, "week") + " ago", date.AddDate(0, 0, -7*w)})
	}
	for m := 1; m <= 6; m++ {
		if d, ok := monthsAgo(date, m); ok {
			out = append(out, lookback{plural(m, "month") + " ago", d})
		}
	}
	if d, ok := monthsAgo(date, 12); ok {
		out = append(out, lookback{plural(1, "year") + " ago", d})
	}
	if !hasOldest {
		return out
	}
	for y := 2; ; y++ {
		d, ok := monthsAgo(date, 12*y)
		if !ok {
			// Feb 29 only exists every fourth year.
			if firstOfMonth(date).AddDate(-y, 0, 0).Before(firstOfMonth(oldest)) {
				break
			}
			continue
		}
		if d.Before(oldest) {
			break
		}
		out = append(out, lookback{plural(y, "year") + " ago", d})
	}
	return out
}

// monthsAgo returns the same day of the month n months before date,
// reporting false when that month is too short.
func monthsAgo(date time.Time, n int) (time.Time, bool) {
	y, m, d := date.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -n, 0)
	if d > daysIn(first.Year(), first.Month()) {
		return time.Time{}, false
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC), true
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Body renders the plain-text digest for username on date.
func (c *Composer) Body(ctx context.Context, username string, date time.Time) (string, error) {
	y, m, d := date.Date()
	date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	fmt.Fprintf(&b, "What'd you do today, %s?\n", date.Format(longLayout))

	oldest, hasOldest, err := c.entries.OldestEntryDate(ctx, username)
	if err != nil {
		return "", fmt.Errorf("oldest entry for %s: %w", username, err)
	}
	heading := false
	for _, lb := range lookbacks(date, oldest, hasOldest) {
		entry, ok, err := c.entries.Entry(ctx, username, lb.date)
		if err != nil {
			return "", fmt.Errorf("entry for %s on %s: %w", username, lb.date.Format(dateLayout), err)
		}
		if !ok {
			continue
		}
		if !heading {
			b.WriteString("\nHere's what you were doing\n")
			heading = true
		}
		fmt.Fprintf(&b, "\n%s, %s:\n", capitalize(lb.label), lb.date.Format(longLayout))
		for _, line := range strings.Split(strings.TrimRight(entry, "\n"), "\n") {
			b.WriteString("\t" + line + "\n")
		}
	}
	b.WriteString("\n" + signature)
	return b.String(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
