package policy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Slot is a fixed time of day at which generation runs.
type Slot struct {
	Hour   int
	Minute int
}

func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// ParseSlots parses "HH:MM" strings into sorted slots.
func ParseSlots(values []string) ([]Slot, error) {
	slots := make([]Slot, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("generation slot %q: want HH:MM", value)
		}
		hour, err := strconv.Atoi(parts[0])
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("generation slot %q: bad hour", value)
		}
		minute, err := strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("generation slot %q: bad minute", value)
		}
		slots = append(slots, Slot{Hour: hour, Minute: minute})
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Hour != slots[j].Hour {
			return slots[i].Hour < slots[j].Hour
		}
		return slots[i].Minute < slots[j].Minute
	})
	return slots, nil
}

// NextSlot returns the earliest slot strictly after now; if none remain
// today, the first slot tomorrow.
func NextSlot(now time.Time, slots []Slot) time.Time {
	if len(slots) == 0 {
		return now.Add(24 * time.Hour)
	}
	for _, slot := range slots {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), slot.Hour, slot.Minute, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
	}
	first := slots[0]
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), first.Hour, first.Minute, 0, 0, now.Location())
}

// InWindow reports whether now falls inside the publishing window,
// inclusive on both bounds.
func InWindow(now time.Time, openHour, closeHour int) bool {
	hour := now.Hour()
	return openHour <= hour && hour <= closeHour
}

// EnoughSpacing reports whether the minimum inter-publication spacing has
// elapsed. A zero last-publication time means no prior publication.
func EnoughSpacing(lastPublication time.Time, now time.Time, minSpacing time.Duration) bool {
	if lastPublication.IsZero() {
		return true
	}
	return now.Sub(lastPublication) >= minSpacing
}
