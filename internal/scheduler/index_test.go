package scheduler

import (
	"testing"
	"time"

	"github.com/daylog/daylog/internal/daytime"
)

func utcUser(name string, h, m int) User {
	return User{Username: name, Email: name + "@example.com", Timezone: time.UTC, SendTime: daytime.MustNew(h, m)}
}

func names(users []User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Username
	}
	return out
}

func TestNextCohort_Empty(t *testing.T) {
	if _, ok := NextCohort(nil, time.Now()); ok {
		t.Error("NextCohort(nil) reported a cohort")
	}
}

func TestNextCohort_SingleUser(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	u := User{Username: "alice", Timezone: la, SendTime: daytime.MustNew(18, 0)}
	ref := time.Date(2020, 3, 7, 2, 1, 0, 0, time.UTC)

	got, ok := NextCohort([]User{u}, ref)
	if !ok {
		t.Fatal("NextCohort reported no cohort")
	}
	if want := daytime.Resolve(u.SendTime, la, ref); got.Target != want {
		t.Errorf("Target = %s, want %s", got.Target, want)
	}
	if len(got.Users) != 1 || got.Users[0].Username != "alice" {
		t.Errorf("Users = %v, want [alice]", names(got.Users))
	}
}

func TestNextCohort_GroupsAndPicksEarliest(t *testing.T) {
	ref := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)
	users := []User{
		utcUser("late", 20, 0),
		utcUser("bob", 13, 0),
		utcUser("early", 11, 0), // already passed, tomorrow
		utcUser("alice", 13, 0),
	}
	got, ok := NextCohort(users, ref)
	if !ok {
		t.Fatal("NextCohort reported no cohort")
	}
	if got.Target != daytime.TodayAt(daytime.MustNew(13, 0)) {
		t.Errorf("Target = %s, want today 13:00", got.Target)
	}
	if n := names(got.Users); len(n) != 2 || n[0] != "bob" || n[1] != "alice" {
		t.Errorf("Users = %v, want [bob alice]", n)
	}
}

func TestNextCohort_NeverBeforeReference(t *testing.T) {
	users := []User{utcUser("a", 0, 0), utcUser("b", 6, 15), utcUser("c", 23, 59)}
	ref := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3*24*60; i += 7 {
		r := ref.Add(time.Duration(i) * time.Minute)
		c, _ := NextCohort(users, r)
		if c.Target.Instant(r).Before(r) {
			t.Fatalf("NextCohort at %v returned %s, earlier than reference", r, c.Target)
		}
	}
}

func TestPlan(t *testing.T) {
	ref := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)
	users := []User{
		utcUser("d", 9, 0),
		utcUser("a", 12, 0),
		utcUser("b", 18, 30),
		utcUser("c", 18, 30),
	}
	plan := Plan(users, ref)
	want := []struct {
		target string
		count  int
	}{
		{"today 12:00", 1},
		{"today 18:30", 2},
		{"tomorrow 09:00", 1},
	}
	if len(plan) != len(want) {
		t.Fatalf("len(Plan) = %d, want %d", len(plan), len(want))
	}
	for i, w := range want {
		if plan[i].Target.String() != w.target || len(plan[i].Users) != w.count {
			t.Errorf("plan[%d] = %s with %d users, want %s with %d", i, plan[i].Target, len(plan[i].Users), w.target, w.count)
		}
	}
	if len(Plan(nil, ref)) != 0 {
		t.Error("Plan(nil) should be empty")
	}
}
