package daytime

import "time"

// Day says which date a WakeTarget falls on relative to the scheduler's
// reference date.
type Day uint8

const (
	Today Day = iota
	Tomorrow
)

func (d Day) String() string {
	if d == Tomorrow {
		return "tomorrow"
	}
	return "today"
}

// WakeTarget is the next moment to act, expressed as a UTC clock reading on
// the reference date (Today) or the day after it (Tomorrow). Every Today
// target orders before every Tomorrow target.
type WakeTarget struct {
	Day  Day
	Time LocalTime
}

// TodayAt returns Today(t).
func TodayAt(t LocalTime) WakeTarget { return WakeTarget{Day: Today, Time: t} }

// TomorrowAt returns Tomorrow(t).
func TomorrowAt(t LocalTime) WakeTarget { return WakeTarget{Day: Tomorrow, Time: t} }

// Compare returns -1, 0 or +1 as w is before, equal to or after o.
func (w WakeTarget) Compare(o WakeTarget) int {
	switch {
	case w.Day < o.Day:
		return -1
	case w.Day > o.Day:
		return 1
	}
	return w.Time.Compare(o.Time)
}

// Before reports whether w orders before o.
func (w WakeTarget) Before(o WakeTarget) bool { return w.Compare(o) < 0 }

// DurationFrom returns how long after clock w falls, where clock is the
// time elapsed since midnight UTC of the reference date. The result is
// negative when w is already in the past.
func (w WakeTarget) DurationFrom(clock time.Duration) time.Duration {
	d := w.Time.SinceStartOfDay() - clock
	if w.Day == Tomorrow {
		d += 24 * time.Hour
	}
	return d
}

// Instant returns the UTC instant w denotes when ref is the reference date.
func (w WakeTarget) Instant(ref time.Time) time.Time {
	midnight := StartOfDay(ref)
	return midnight.Add(w.DurationFrom(0))
}

func (w WakeTarget) String() string {
	return w.Day.String() + " " + w.Time.String()
}

// StartOfDay returns midnight UTC of t's UTC calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
