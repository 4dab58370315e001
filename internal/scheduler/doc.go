// Package scheduler decides when daylog wakes up and whom it sends to.
//
// The Loop runs on a single goroutine. Every iteration it re-reads the user
// list, resolves each user's next wake target against its private reference
// clock, picks the earliest cohort and blocks on the control channel until
// that target or until a signal arrives. After dispatching a cohort the
// reference clock moves to one minute past the target, so the schedule never
// depends on how long sending took.
//
// Nothing is persisted: the plan is recomputed from the live user list on
// every tick.
package scheduler
