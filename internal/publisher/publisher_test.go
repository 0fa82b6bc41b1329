package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"beacon/internal/config"
	"beacon/internal/content"
	"beacon/internal/notify"
	"beacon/internal/services"
)

type memStore struct {
	items      []*content.Item
	updateErr  error
	degraded   bool
	reconciled int
}

func (m *memStore) ReadAll(ctx context.Context) ([]*content.Item, error) { return m.items, nil }

func (m *memStore) Update(ctx context.Context, item *content.Item) error { return m.updateErr }

func (m *memStore) Reconcile(ctx context.Context) (int, error) {
	m.degraded = false
	m.reconciled++
	return 1, nil
}

func (m *memStore) Degraded() bool { return m.degraded }

type stubPlatform struct {
	postID string
	err    error
	calls  int
}

func (s *stubPlatform) Publish(ctx context.Context, message, imageURL string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.postID, nil
}

func fixedTime() time.Time {
	// A Tuesday at noon, well inside the default window.
	return time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC)
}

func newTestPublisher(store *memStore, platform *stubPlatform) *Publisher {
	cfg := config.Default()
	pub := New(store, platform, notify.NewService(&cfg), nil, Options{
		OpenHour:      8,
		CloseHour:     22,
		MinSpacing:    30 * time.Minute,
		RetryCooldown: time.Hour,
	})
	pub.now = fixedTime
	return pub
}

func generatedItem(uid string, createdAt time.Time) *content.Item {
	return &content.Item{RecordUID: uid, Title: "t-" + uid, BodyText: "body", State: content.StateGenerated, CreatedAt: createdAt}
}

func TestTickPublishesOldestEligible(t *testing.T) {
	now := fixedTime()
	store := &memStore{items: []*content.Item{
		generatedItem("uid-1", now.Add(-2*time.Hour)),
		generatedItem("uid-2", now.Add(-1*time.Hour)),
	}}
	platform := &stubPlatform{postID: "post-1"}
	pub := newTestPublisher(store, platform)

	published, err := pub.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !published {
		t.Fatal("tick must publish")
	}
	if platform.calls != 1 {
		t.Fatalf("platform calls = %d, want exactly 1 per tick", platform.calls)
	}
	first := store.items[0]
	if first.State != content.StatePublished || first.PlatformPostID != "post-1" || !first.Published {
		t.Fatalf("first item not marked published: %+v", first)
	}
	if store.items[1].State != content.StateGenerated {
		t.Fatal("only one item may publish per tick")
	}
}

func TestTickSkipsOutsideWindow(t *testing.T) {
	store := &memStore{items: []*content.Item{generatedItem("uid-1", fixedTime())}}
	platform := &stubPlatform{postID: "post-1"}
	pub := newTestPublisher(store, platform)
	pub.now = func() time.Time { return time.Date(2026, 6, 2, 23, 30, 0, 0, time.UTC) }

	published, err := pub.Tick(context.Background())
	if published || !errors.Is(err, services.ErrOutsideWindow) {
		t.Fatalf("published=%v err=%v, want window skip", published, err)
	}
	if platform.calls != 0 {
		t.Fatal("nothing may publish outside the window")
	}
}

func TestTickBoundaryHoursAreInside(t *testing.T) {
	for _, hour := range []int{8, 22} {
		store := &memStore{items: []*content.Item{generatedItem("uid-1", fixedTime())}}
		platform := &stubPlatform{postID: "post-1"}
		pub := newTestPublisher(store, platform)
		pub.now = func() time.Time { return time.Date(2026, 6, 2, hour, 15, 0, 0, time.UTC) }

		published, err := pub.Tick(context.Background())
		if err != nil || !published {
			t.Fatalf("hour %d: published=%v err=%v, window bounds are inclusive", hour, published, err)
		}
	}
}

func TestTickEnforcesSpacing(t *testing.T) {
	now := fixedTime()
	recent := now.Add(-10 * time.Minute)
	publishedItem := &content.Item{
		RecordUID: "uid-done", State: content.StatePublished,
		PlatformPostID: "post-0", Published: true, PublishedAt: &recent,
	}
	store := &memStore{items: []*content.Item{publishedItem, generatedItem("uid-next", now)}}
	platform := &stubPlatform{postID: "post-1"}
	pub := newTestPublisher(store, platform)

	published, err := pub.Tick(context.Background())
	if published || !services.IsSkip(err) {
		t.Fatalf("published=%v err=%v, want spacing skip", published, err)
	}

	// Once enough time has passed, the next item goes out.
	older := now.Add(-31 * time.Minute)
	publishedItem.PublishedAt = &older
	published, err = pub.Tick(context.Background())
	if err != nil || !published {
		t.Fatalf("published=%v err=%v after spacing elapsed", published, err)
	}
}

func TestTickNeverRepublishes(t *testing.T) {
	now := fixedTime()
	// A crash left this record published on the platform but still in the
	// generated state with a post id.
	halfDone := &content.Item{RecordUID: "uid-1", State: content.StateGenerated, PlatformPostID: "post-1", CreatedAt: now}
	flagOnly := &content.Item{RecordUID: "uid-2", State: content.StateGenerated, Published: true, CreatedAt: now}
	store := &memStore{items: []*content.Item{halfDone, flagOnly}}
	platform := &stubPlatform{postID: "post-9"}
	pub := newTestPublisher(store, platform)

	published, err := pub.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if published || platform.calls != 0 {
		t.Fatal("records that already reached the platform must never republish")
	}
}

func TestFailedPublishEntersCooldown(t *testing.T) {
	now := fixedTime()
	store := &memStore{items: []*content.Item{generatedItem("uid-1", now)}}
	platform := &stubPlatform{err: errors.New("api down")}
	pub := newTestPublisher(store, platform)

	if _, err := pub.Tick(context.Background()); err == nil {
		t.Fatal("publish failure must surface")
	}
	item := store.items[0]
	if item.State != content.StatePublishFailed || item.LastError == "" || item.LastAttemptAt == nil {
		t.Fatalf("failure not recorded: %+v", item)
	}

	// Within the cooldown the item is not retried.
	platform.err = nil
	platform.postID = "post-1"
	published, err := pub.Tick(context.Background())
	if err != nil || published {
		t.Fatalf("published=%v err=%v, want cooldown to gate the retry", published, err)
	}

	// After the cooldown it is.
	old := now.Add(-2 * time.Hour)
	item.LastAttemptAt = &old
	published, err = pub.Tick(context.Background())
	if err != nil || !published {
		t.Fatalf("published=%v err=%v, want retry after cooldown", published, err)
	}
}

func TestHeldUpdateBlocksFurtherPublishing(t *testing.T) {
	now := fixedTime()
	store := &memStore{items: []*content.Item{
		generatedItem("uid-1", now.Add(-2*time.Hour)),
		generatedItem("uid-2", now.Add(-1*time.Hour)),
	}}
	platform := &stubPlatform{postID: "post-1"}
	pub := newTestPublisher(store, platform)

	// The publish succeeds but the store update fails: the outcome is held.
	store.updateErr = errors.New("store down")
	published, err := pub.Tick(context.Background())
	if err != nil || !published {
		t.Fatalf("published=%v err=%v, publish itself succeeded", published, err)
	}
	if pub.heldUpdate == nil || pub.heldUpdate.RecordUID != "uid-1" {
		t.Fatalf("held update = %+v, want uid-1", pub.heldUpdate)
	}

	// While the store stays down, no new publish happens.
	published, err = pub.Tick(context.Background())
	if published || err == nil {
		t.Fatalf("published=%v err=%v, held update must block the tick", published, err)
	}
	if platform.calls != 1 {
		t.Fatalf("platform calls = %d, want still 1", platform.calls)
	}

	// Store recovers: the held outcome lands. The tick itself may still be
	// a spacing skip because uid-1 just published.
	store.updateErr = nil
	_, err = pub.Tick(context.Background())
	if err != nil && !services.IsSkip(err) {
		t.Fatalf("tick after recovery: %v", err)
	}
	if pub.heldUpdate != nil {
		t.Fatal("held update must clear once persisted")
	}
}

func TestStatusReportsNextEligible(t *testing.T) {
	now := fixedTime()
	store := &memStore{items: []*content.Item{
		generatedItem("uid-1", now.Add(-2*time.Hour)),
	}}
	platform := &stubPlatform{postID: "post-1"}
	pub := newTestPublisher(store, platform)

	if status := pub.Status(); !status.NextEligible.IsZero() {
		t.Fatalf("next eligible before any publication = %v, want zero", status.NextEligible)
	}

	if _, err := pub.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	status := pub.Status()
	if status.LastOutcome != "published" {
		t.Fatalf("last outcome = %q, want published", status.LastOutcome)
	}
	want := now.Add(30 * time.Minute)
	if !status.NextEligible.Equal(want) {
		t.Fatalf("next eligible = %v, want %v", status.NextEligible, want)
	}

	// The follow-up tick is a spacing skip, recorded without an error.
	_, _ = pub.Tick(context.Background())
	status = pub.Status()
	if status.LastError != "" || status.LastOutcome == "published" {
		t.Fatalf("status after spacing skip = %+v", status)
	}
}

func TestTickReconcilesWhenDegraded(t *testing.T) {
	store := &memStore{degraded: true}
	platform := &stubPlatform{}
	pub := newTestPublisher(store, platform)
	pub.opts.ReconcileFirst = true

	if _, err := pub.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if store.reconciled != 1 {
		t.Fatalf("reconcile calls = %d, want 1", store.reconciled)
	}
}
