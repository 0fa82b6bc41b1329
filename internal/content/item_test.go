package content

import (
	"testing"
	"time"
)

func TestParseState(t *testing.T) {
	cases := []struct {
		input string
		want  State
		ok    bool
	}{
		{"generated", StateGenerated, true},
		{" Published ", StatePublished, true},
		{"PUBLISH_FAILED", StatePublishFailed, true},
		{"monitored", StateMonitored, true},
		{"", "", false},
		{"archived", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseState(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseState(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAlreadyPublished(t *testing.T) {
	item := &Item{State: StateGenerated}
	if item.AlreadyPublished() {
		t.Fatal("fresh item must not read as published")
	}

	item.PlatformPostID = "123_456"
	if !item.AlreadyPublished() {
		t.Fatal("post id alone must mark the item published")
	}

	item = &Item{State: StateGenerated, Published: true}
	if !item.AlreadyPublished() {
		t.Fatal("publication flag alone must mark the item published")
	}
}

func TestPublishEligibleCooldown(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	attempt := now.Add(-30 * time.Minute)
	item := &Item{State: StatePublishFailed, LastAttemptAt: &attempt}

	if item.PublishEligible(now, time.Hour) {
		t.Fatal("item inside cooldown must not be eligible")
	}
	if !item.PublishEligible(now.Add(31*time.Minute), time.Hour) {
		t.Fatal("item past cooldown must be eligible")
	}
}

func TestPublishEligibleSkipsPublished(t *testing.T) {
	now := time.Now()
	item := &Item{State: StateGenerated, PlatformPostID: "99"}
	if item.PublishEligible(now, time.Hour) {
		t.Fatal("published item must never be eligible again")
	}
	item = &Item{State: StateMonitored}
	if item.PublishEligible(now, time.Hour) {
		t.Fatal("monitored item must not be eligible")
	}
}

func TestMarkPublished(t *testing.T) {
	item := &Item{State: StateGenerated, LastError: "old failure"}
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	item.MarkPublished("123_456", at)

	if item.State != StatePublished {
		t.Fatalf("state = %q, want %q", item.State, StatePublished)
	}
	if !item.Published || item.PlatformPostID != "123_456" {
		t.Fatal("publication fields not set")
	}
	if item.PublishedAt == nil || !item.PublishedAt.Equal(at) {
		t.Fatalf("published_at = %v, want %v", item.PublishedAt, at)
	}
	if item.LastError != "" {
		t.Fatal("last error should be cleared on success")
	}
}

func TestMarkPublishFailed(t *testing.T) {
	item := &Item{State: StateGenerated}
	at := time.Now()
	item.MarkPublishFailed(at, "platform returned 500")

	if item.State != StatePublishFailed {
		t.Fatalf("state = %q, want %q", item.State, StatePublishFailed)
	}
	if item.LastAttemptAt == nil {
		t.Fatal("last attempt timestamp must be recorded")
	}
	if item.LastError != "platform returned 500" {
		t.Fatalf("last error = %q", item.LastError)
	}
}
