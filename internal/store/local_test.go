package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"beacon/internal/content"
)

func openTestLocal(t *testing.T) *Local {
	t.Helper()
	local, err := OpenLocal(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })
	return local
}

func TestLocalAppendAndGet(t *testing.T) {
	local := openTestLocal(t)
	ctx := context.Background()

	item := &content.Item{
		RecordUID: "uid-1",
		Title:     "Spring promo",
		Theme:     "seasonal",
		State:     content.StateGenerated,
		BodyText:  "body",
	}
	if err := local.Append(ctx, item); err != nil {
		t.Fatalf("append: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("append must backfill the row id")
	}

	got, err := local.GetByUID(ctx, "uid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("record not found after append")
	}
	if got.Title != "Spring promo" || got.State != content.StateGenerated {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps must be populated")
	}

	missing, err := local.GetByUID(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatal("missing record must return nil")
	}
}

func TestLocalAppendRequiresUID(t *testing.T) {
	local := openTestLocal(t)
	if err := local.Append(context.Background(), &content.Item{Title: "no uid"}); err == nil {
		t.Fatal("append without uid must fail")
	}
}

func TestLocalListByState(t *testing.T) {
	local := openTestLocal(t)
	ctx := context.Background()

	for i, state := range []content.State{content.StateGenerated, content.StatePublished, content.StateGenerated} {
		item := &content.Item{RecordUID: "uid-" + string(rune('a'+i)), State: state}
		if err := local.Append(ctx, item); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := local.List(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("list all = %d records, want 3", len(all))
	}

	generated, err := local.List(ctx, content.StateGenerated)
	if err != nil {
		t.Fatalf("list generated: %v", err)
	}
	if len(generated) != 2 {
		t.Fatalf("list generated = %d records, want 2", len(generated))
	}
}

func TestLocalUpdateRoundTrip(t *testing.T) {
	local := openTestLocal(t)
	ctx := context.Background()

	item := &content.Item{RecordUID: "uid-1", State: content.StateGenerated}
	if err := local.Append(ctx, item); err != nil {
		t.Fatalf("append: %v", err)
	}

	publishedAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	item.MarkPublished("post-42", publishedAt)
	if err := local.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := local.GetByUID(ctx, "uid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != content.StatePublished || got.PlatformPostID != "post-42" || !got.Published {
		t.Fatalf("publish fields not persisted: %+v", got)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(publishedAt) {
		t.Fatalf("published_at = %v, want %v", got.PublishedAt, publishedAt)
	}
}

func TestLocalPendingSyncLifecycle(t *testing.T) {
	local := openTestLocal(t)
	ctx := context.Background()

	synced := &content.Item{RecordUID: "uid-synced", State: content.StateGenerated}
	pending := &content.Item{RecordUID: "uid-pending", State: content.StateGenerated, PendingSync: true}
	for _, item := range []*content.Item{synced, pending} {
		if err := local.Append(ctx, item); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	list, err := local.PendingSync(ctx)
	if err != nil {
		t.Fatalf("pending sync: %v", err)
	}
	if len(list) != 1 || list[0].RecordUID != "uid-pending" {
		t.Fatalf("pending list = %+v, want only uid-pending", list)
	}

	count, err := local.PendingSyncCount(ctx)
	if err != nil || count != 1 {
		t.Fatalf("pending count = %d (%v), want 1", count, err)
	}

	if err := local.MarkSynced(ctx, "uid-pending"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	count, err = local.PendingSyncCount(ctx)
	if err != nil || count != 0 {
		t.Fatalf("pending count after sync = %d (%v), want 0", count, err)
	}
}

func TestHandledCommentLedger(t *testing.T) {
	local := openTestLocal(t)
	ctx := context.Background()

	handled, err := local.CommentHandled(ctx, "c1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if handled {
		t.Fatal("fresh comment must not be handled")
	}

	if err := local.MarkCommentHandled(ctx, "c1", "post-1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	// Marking twice must not fail or double-count.
	if err := local.MarkCommentHandled(ctx, "c1", "post-1"); err != nil {
		t.Fatalf("re-mark: %v", err)
	}
	if err := local.MarkCommentHandled(ctx, "c2", "post-1"); err != nil {
		t.Fatalf("mark second: %v", err)
	}

	handled, err = local.CommentHandled(ctx, "c1")
	if err != nil || !handled {
		t.Fatalf("c1 handled = %v (%v), want true", handled, err)
	}

	count, err := local.HandledCommentCount(ctx, "post-1")
	if err != nil || count != 2 {
		t.Fatalf("handled count = %d (%v), want 2", count, err)
	}
}

func TestSchemaMismatchDetected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.db")

	local, err := OpenLocal(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := local.db.Exec(`UPDATE schema_version SET version = 99`); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = local.Close()

	if _, err := OpenLocal(path); err == nil {
		t.Fatal("mismatched schema version must fail to open")
	}
}
