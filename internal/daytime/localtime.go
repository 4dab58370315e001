package daytime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrFormat is returned by Parse for anything that is not a valid "HH:MM".
var ErrFormat = errors.New("invalid time of day")

// LocalTime is a time of day at minute resolution, 00:00 through 23:59.
// The zero value is midnight.
type LocalTime struct {
	hour   uint8
	minute uint8
}

// New returns the LocalTime hour:minute.
func New(hour, minute int) (LocalTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return LocalTime{}, fmt.Errorf("%w: %02d:%02d out of range", ErrFormat, hour, minute)
	}
	return LocalTime{hour: uint8(hour), minute: uint8(minute)}, nil
}

// MustNew is like New but panics on out-of-range input.
func MustNew(hour, minute int) LocalTime {
	t, err := New(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse reads a 24-hour "HH:MM" string. A single-digit hour is accepted,
// minutes must have two digits.
func Parse(s string) (LocalTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return LocalTime{}, fmt.Errorf("%w: %q, expected HH:MM", ErrFormat, s)
	}
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(m)
	return New(hour, minute)
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Of returns the time of day of t in t's location, truncated to the minute.
func Of(t time.Time) LocalTime {
	return LocalTime{hour: uint8(t.Hour()), minute: uint8(t.Minute())}
}

func (t LocalTime) Hour() int   { return int(t.hour) }
func (t LocalTime) Minute() int { return int(t.minute) }

// Succ returns the next minute, wrapping 23:59 to 00:00.
func (t LocalTime) Succ() LocalTime {
	if t.minute < 59 {
		return LocalTime{hour: t.hour, minute: t.minute + 1}
	}
	if t.hour < 23 {
		return LocalTime{hour: t.hour + 1}
	}
	return LocalTime{}
}

// Compare returns -1, 0 or +1 as t is before, equal to or after o.
func (t LocalTime) Compare(o LocalTime) int {
	a, b := t.minutes(), o.minutes()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Before reports whether t is earlier in the day than o.
func (t LocalTime) Before(o LocalTime) bool { return t.Compare(o) < 0 }

// SinceStartOfDay returns the duration from midnight to t.
func (t LocalTime) SinceStartOfDay() time.Duration {
	return time.Duration(t.minutes()) * time.Minute
}

// On returns the instant t on the given date in loc, without any DST
// adjustment beyond what time.Date does.
func (t LocalTime) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, int(t.hour), int(t.minute), 0, 0, loc)
}

func (t LocalTime) minutes() int { return int(t.hour)*60 + int(t.minute) }

// String formats t as "HH:MM".
func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.hour, t.minute)
}

// MarshalText implements encoding.TextMarshaler.
func (t LocalTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *LocalTime) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
