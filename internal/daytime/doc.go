// Package daytime models the minute-resolution clock readings daylog
// schedules against. A LocalTime is a wall-clock time of day, a WakeTarget
// is a LocalTime tagged with whether it falls on the scheduler's reference
// date or the day after, and Resolve turns a user's local send time and
// timezone into the next WakeTarget, handling DST gaps and folds.
package daytime
