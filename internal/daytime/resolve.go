package daytime

import (
	"sort"
	"time"
)

// Resolve returns the next WakeTarget for a user who wants to act at send
// in loc, given the scheduler's reference reading utcNow.
//
// The projection date is the UTC calendar date of utcNow. The local
// datetime date@send is converted to UTC; a time skipped by a forward DST
// transition moves one hour later and a repeated time takes the later of
// its two instants. If the UTC time of day of the result is not before
// that of utcNow the target is Today, otherwise the projection is redone
// for the following date and the target is Tomorrow.
func Resolve(send LocalTime, loc *time.Location, utcNow time.Time) WakeTarget {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := utcNow.UTC().Date()
	now := Of(utcNow.UTC())

	at := LocalInstant(y, m, d, send, loc)
	if !Of(at).Before(now) {
		return TodayAt(Of(at))
	}
	at = LocalInstant(y, m, d+1, send, loc)
	return TomorrowAt(Of(at))
}

// LocalInstant converts the wall-clock reading t on the given date in loc to
// a UTC instant. Readings inside a DST gap are moved forward one hour;
// ambiguous readings resolve to the later instant.
func LocalInstant(year int, month time.Month, day int, t LocalTime, loc *time.Location) time.Time {
	naive := time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, time.UTC)
	if c := wallInstants(naive, loc); len(c) > 0 {
		return c[len(c)-1]
	}
	if c := wallInstants(naive.Add(time.Hour), loc); len(c) > 0 {
		return c[len(c)-1]
	}
	// Zones with gaps longer than an hour; let time.Date normalise.
	return t.On(year, month, day, loc).UTC()
}

// transitionProbe bounds how far from the naive reading wallInstants looks
// for the zone offsets that could apply to it.
const transitionProbe = 24 * time.Hour

// wallInstants returns, in ascending order, every UTC instant whose wall
// clock in loc reads the same as naive does in UTC.
func wallInstants(naive time.Time, loc *time.Location) []time.Time {
	seen := make(map[int]bool)
	var out []time.Time
	for probe := -transitionProbe; probe <= transitionProbe; probe += transitionProbe / 4 {
		_, off := naive.Add(probe).In(loc).Zone()
		if seen[off] {
			continue
		}
		seen[off] = true
		inst := naive.Add(-time.Duration(off) * time.Second)
		if _, got := inst.In(loc).Zone(); got == off {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
