package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"beacon/internal/config"
	"beacon/internal/content"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

func TestStartStopLifecycle(t *testing.T) {
	orch, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer orch.Close()

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !orch.Running() {
		t.Fatal("orchestrator must report running after start")
	}

	status := orch.Status(ctx)
	if !status.Running || status.PID <= 0 {
		t.Fatalf("status = %+v", status)
	}
	if status.QuotaLimit != 3 {
		t.Fatalf("quota limit = %d, want default 3", status.QuotaLimit)
	}
	if status.NextSlot.IsZero() {
		t.Fatal("next slot must be scheduled")
	}

	orch.Stop()
	if orch.Running() {
		t.Fatal("orchestrator must report stopped after stop")
	}
	// Stop is idempotent.
	orch.Stop()
}

func TestStartTwiceFails(t *testing.T) {
	orch, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer orch.Close()

	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := orch.Start(context.Background()); err == nil {
		t.Fatal("second start on a running orchestrator must fail")
	}
}

func TestSecondInstanceBlocked(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new first: %v", err)
	}
	defer first.Close()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new second: %v", err)
	}
	defer second.Close()
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("a second instance on the same data directory must be rejected")
	}
}

func TestListItemsFiltersByState(t *testing.T) {
	orch, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer orch.Close()

	ctx := context.Background()
	for _, state := range []content.State{content.StateGenerated, content.StatePublished, content.StateGenerated} {
		if err := orch.records.Append(ctx, &content.Item{Title: "t", State: state}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := orch.ListItems(ctx, nil)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all items = %d, want 3", len(all))
	}

	generated, err := orch.ListItems(ctx, []content.State{content.StateGenerated})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(generated) != 2 {
		t.Fatalf("generated items = %d, want 2", len(generated))
	}
	for _, item := range generated {
		if item.State != content.StateGenerated {
			t.Fatalf("unexpected state %q in filtered listing", item.State)
		}
	}
}

func TestGenerateNowSurfacesMissingCredentials(t *testing.T) {
	orch, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer orch.Close()

	if err := orch.GenerateNow(context.Background()); err == nil {
		t.Fatal("generation without an engine api key must fail")
	}

	items, err := orch.ListItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatal("failed generation must not append a record")
	}
}
