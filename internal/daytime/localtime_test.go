package daytime

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"23:59", "23:59"},
		{"00:00", "00:00"},
		{"7:05", "07:05"},
		{" 18:00 ", "18:00"},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"99:99", "24:00", "12:60", "", "12", "12:5", "ab:cd", "-1:00", "12:00:00", "123:00"} {
		if _, err := Parse(in); !errors.Is(err, ErrFormat) {
			t.Errorf("Parse(%q) error = %v, want ErrFormat", in, err)
		}
	}
}

func TestLocalTime_RoundTrip(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			lt := MustNew(h, m)
			back, err := Parse(lt.String())
			if err != nil {
				t.Fatalf("Parse(%q): %v", lt, err)
			}
			if back != lt {
				t.Fatalf("round trip of %s = %s", lt, back)
			}
		}
	}
}

func TestLocalTime_Succ(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"00:00", "00:01"},
		{"12:59", "13:00"},
		{"23:59", "00:00"},
	}
	for _, tt := range tests {
		got := mustParse(t, tt.in).Succ()
		if got.String() != tt.want {
			t.Errorf("%s.Succ() = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLocalTime_Order(t *testing.T) {
	a, b := mustParse(t, "09:30"), mustParse(t, "10:00")
	if !a.Before(b) || b.Before(a) || a.Compare(a) != 0 {
		t.Errorf("ordering of %s and %s is wrong", a, b)
	}
	if got := mustParse(t, "01:30").SinceStartOfDay(); got != 90*time.Minute {
		t.Errorf("SinceStartOfDay() = %v, want 1h30m", got)
	}
}

func TestLocalTime_UnmarshalText(t *testing.T) {
	var lt LocalTime
	if err := lt.UnmarshalText([]byte("06:45")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if lt.Hour() != 6 || lt.Minute() != 45 {
		t.Errorf("UnmarshalText = %s, want 06:45", lt)
	}
	if err := lt.UnmarshalText([]byte("6pm")); err == nil {
		t.Error("expected error for 6pm")
	}
}

func mustParse(t *testing.T, s string) LocalTime {
	t.Helper()
	lt, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return lt
}
