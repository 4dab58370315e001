package daytime

import (
	"testing"
	"time"
)

func loadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone data for %s unavailable: %v", name, err)
	}
	return loc
}

func TestResolve_LosAngelesSpringForward(t *testing.T) {
	la := loadLocation(t, "America/Los_Angeles")
	send := MustNew(18, 0)

	tests := []struct {
		now  time.Time
		want WakeTarget
	}{
		{time.Date(2020, 3, 7, 0, 0, 0, 0, time.UTC), TodayAt(MustNew(2, 0))},
		{time.Date(2020, 3, 7, 2, 1, 0, 0, time.UTC), TomorrowAt(MustNew(1, 0))},
		{time.Date(2020, 3, 7, 10, 1, 0, 0, time.UTC), TomorrowAt(MustNew(1, 0))},
		{time.Date(2020, 3, 8, 0, 0, 0, 0, time.UTC), TodayAt(MustNew(1, 0))},
	}
	for _, tt := range tests {
		if got := Resolve(send, la, tt.now); got != tt.want {
			t.Errorf("Resolve(18:00 LA, %s) = %s, want %s", tt.now.Format(time.RFC3339), got, tt.want)
		}
	}
}

func TestResolve_DueNowIsToday(t *testing.T) {
	now := time.Date(2021, 6, 1, 9, 15, 0, 0, time.UTC)
	if got := Resolve(MustNew(9, 15), time.UTC, now); got != TodayAt(MustNew(9, 15)) {
		t.Errorf("Resolve at the same minute = %s, want today 09:15", got)
	}
	if got := Resolve(MustNew(9, 14), time.UTC, now); got != TomorrowAt(MustNew(9, 14)) {
		t.Errorf("Resolve a minute late = %s, want tomorrow 09:14", got)
	}
}

func TestResolve_SkippedTimeMovesForward(t *testing.T) {
	la := loadLocation(t, "America/Los_Angeles")
	now := time.Date(2020, 3, 8, 0, 0, 0, 0, time.UTC)
	if got := Resolve(MustNew(2, 30), la, now); got != TodayAt(MustNew(10, 30)) {
		t.Errorf("Resolve(02:30 LA on spring-forward day) = %s, want today 10:30", got)
	}
}

func TestResolve_RepeatedTimeTakesLater(t *testing.T) {
	la := loadLocation(t, "America/Los_Angeles")
	now := time.Date(2020, 11, 1, 0, 0, 0, 0, time.UTC)
	if got := Resolve(MustNew(1, 30), la, now); got != TodayAt(MustNew(9, 30)) {
		t.Errorf("Resolve(01:30 LA on fall-back day) = %s, want today 09:30", got)
	}
}

func TestResolve_NeverBeforeReference(t *testing.T) {
	zones := []string{"UTC", "America/Los_Angeles", "Europe/London", "Asia/Kolkata", "Pacific/Chatham", "Australia/Lord_Howe"}
	start := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range zones {
		loc := loadLocation(t, name)
		for i := 0; i < 24*60; i += 37 {
			send := MustNew(i/60, i%60)
			for day := 0; day < 300; day += 11 {
				ref := start.Add(time.Duration(day)*24*time.Hour + time.Duration(i*13%1440)*time.Minute)
				got := Resolve(send, loc, ref)
				if got.Instant(ref).Before(ref) {
					t.Fatalf("Resolve(%s %s, %v) = %s, earlier than reference", send, name, ref, got)
				}
			}
		}
	}
}

func TestLocalInstant(t *testing.T) {
	la := loadLocation(t, "America/Los_Angeles")
	tests := []struct {
		name string
		y    int
		m    time.Month
		d    int
		send LocalTime
		want time.Time
	}{
		{"plain", 2020, 1, 15, MustNew(18, 0), time.Date(2020, 1, 16, 2, 0, 0, 0, time.UTC)},
		{"gap", 2020, 3, 8, MustNew(2, 0), time.Date(2020, 3, 8, 10, 0, 0, 0, time.UTC)},
		{"fold", 2020, 11, 1, MustNew(1, 0), time.Date(2020, 11, 1, 9, 0, 0, 0, time.UTC)},
		{"month rollover", 2020, 1, 32, MustNew(0, 0), time.Date(2020, 2, 1, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocalInstant(tt.y, tt.m, tt.d, tt.send, la)
			if !got.Equal(tt.want) {
				t.Errorf("LocalInstant = %v, want %v", got, tt.want)
			}
		})
	}
}
