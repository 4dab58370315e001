package scheduler

import (
	"time"

	"github.com/daylog/daylog/internal/daytime"
)

// NextCohort resolves every user against ref and returns the users sharing
// the earliest wake target, in input order. It reports false for an empty
// user list. The returned target is never earlier than ref.
func NextCohort(users []User, ref time.Time) (Cohort, bool) {
	var next Cohort
	found := false
	for _, u := range users {
		target := daytime.Resolve(u.SendTime, u.Timezone, ref)
		switch {
		case !found || target.Before(next.Target):
			next = Cohort{Target: target, Users: []User{u}}
			found = true
		case target == next.Target:
			next.Users = append(next.Users, u)
		}
	}
	return next, found
}

// Plan returns every cohort for the next day starting at ref, earliest first.
func Plan(users []User, ref time.Time) []Cohort {
	buckets := make(map[daytime.WakeTarget][]User)
	for _, u := range users {
		target := daytime.Resolve(u.SendTime, u.Timezone, ref)
		buckets[target] = append(buckets[target], u)
	}
	h := &cohortHeap{}
	for target, members := range buckets {
		heapPush(h, Cohort{Target: target, Users: members})
	}
	plan := make([]Cohort, 0, h.Len())
	for h.Len() > 0 {
		plan = append(plan, heapPop(h))
	}
	return plan
}
