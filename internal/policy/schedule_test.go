package policy

import (
	"testing"
	"time"
)

func mustSlots(t *testing.T, values ...string) []Slot {
	t.Helper()
	slots, err := ParseSlots(values)
	if err != nil {
		t.Fatalf("parse slots: %v", err)
	}
	return slots
}

func TestParseSlotsRejectsBadInput(t *testing.T) {
	for _, bad := range []string{"9", "25:00", "09:61", "morning"} {
		if _, err := ParseSlots([]string{bad}); err == nil {
			t.Fatalf("ParseSlots(%q) should fail", bad)
		}
	}
}

func TestNextSlot(t *testing.T) {
	slots := mustSlots(t, "09:00", "14:00", "19:00")
	base := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{base.Add(8 * time.Hour), base.Add(9 * time.Hour)},
		{base.Add(9 * time.Hour), base.Add(14 * time.Hour)}, // strictly after
		{base.Add(15 * time.Hour), base.Add(19 * time.Hour)},
		{base.Add(20 * time.Hour), base.AddDate(0, 0, 1).Add(9 * time.Hour)},
	}
	for _, tc := range cases {
		if got := NextSlot(tc.now, slots); !got.Equal(tc.want) {
			t.Fatalf("NextSlot(%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestInWindow(t *testing.T) {
	day := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		hour int
		want bool
	}{
		{7, false},
		{8, true},
		{15, true},
		{22, true},
		{23, false},
	}
	for _, tc := range cases {
		now := day.Add(time.Duration(tc.hour) * time.Hour)
		if got := InWindow(now, 8, 22); got != tc.want {
			t.Fatalf("InWindow(hour=%d) = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestEnoughSpacing(t *testing.T) {
	t0 := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	if !EnoughSpacing(time.Time{}, t0, 30*time.Minute) {
		t.Fatal("no prior publication must allow publishing")
	}
	if EnoughSpacing(t0, t0.Add(29*time.Minute), 30*time.Minute) {
		t.Fatal("29 minutes after t0 must be blocked")
	}
	if !EnoughSpacing(t0, t0.Add(30*time.Minute), 30*time.Minute) {
		t.Fatal("30 minutes after t0 must be allowed")
	}
}
