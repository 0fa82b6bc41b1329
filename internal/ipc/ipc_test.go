package ipc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"beacon/internal/config"
	"beacon/internal/content"
	"beacon/internal/ipc"
	"beacon/internal/orchestrator"
)

func startServer(t *testing.T) (*orchestrator.Orchestrator, *ipc.Client) {
	t.Helper()

	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	orch, err := orchestrator.New(&cfg, nil)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	t.Cleanup(func() { orch.Close() })

	srv, err := ipc.NewServer(context.Background(), cfg.SocketPath(), orch, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return orch, client
}

func TestStatusRoundTrip(t *testing.T) {
	_, client := startServer(t)

	resp, err := client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if resp.Running {
		t.Fatal("loops were never started")
	}
	if resp.PID <= 0 || resp.QuotaLimit != 3 || resp.NextSlot == "" {
		t.Fatalf("status = %+v", resp)
	}
	if resp.LocalStorePath == "" || resp.LockPath == "" {
		t.Fatalf("paths missing from status: %+v", resp)
	}
}

func TestStartStopOverRPC(t *testing.T) {
	orch, client := startServer(t)

	start, err := client.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !start.Started {
		t.Fatalf("start = %+v", start)
	}
	if !orch.Running() {
		t.Fatal("loops must be running after start")
	}

	// The loops flip their running flags from their own goroutines.
	deadline := time.After(2 * time.Second)
	for {
		status, err := client.Status()
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status.Running && status.Generation.Running && status.Publication.Running && status.Monitoring.Running {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("loop flags never came up: %+v", status)
		case <-time.After(5 * time.Millisecond):
		}
	}

	// A second start is refused without killing the running loops.
	start, err = client.Start()
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if start.Started || start.Message == "" {
		t.Fatalf("second start = %+v, want refusal with message", start)
	}

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !stop.Stopped {
		t.Fatalf("stop = %+v", stop)
	}
	if orch.Running() {
		t.Fatal("loops must be stopped")
	}

	stop, err = client.Stop()
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if stop.Stopped {
		t.Fatalf("second stop = %+v, want refusal", stop)
	}
}

func TestRecordListFiltersOverRPC(t *testing.T) {
	orch, client := startServer(t)

	ctx := context.Background()
	for _, state := range []content.State{content.StateGenerated, content.StatePublished} {
		item := &content.Item{Title: "t-" + string(state), State: state}
		if state == content.StatePublished {
			item.PlatformPostID = "post-1"
			item.Published = true
		}
		if err := orch.Store().Append(ctx, item); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	resp, err := client.RecordList(nil)
	if err != nil {
		t.Fatalf("record list: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}

	resp, err = client.RecordList([]string{"published", "bogus-state"})
	if err != nil {
		t.Fatalf("filtered record list: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].State != "published" {
		t.Fatalf("filtered items = %+v", resp.Items)
	}
	if resp.Items[0].PlatformPostID != "post-1" {
		t.Fatalf("record fields lost in transit: %+v", resp.Items[0])
	}
}

func TestGenerateSurfacesErrorsOverRPC(t *testing.T) {
	_, client := startServer(t)

	// No generator api key is configured, so the call must fail as an RPC
	// error rather than pretend a draft exists.
	if _, err := client.Generate(); err == nil {
		t.Fatal("generation without credentials must surface an error")
	}
}

func TestSyncWithoutPrimaryIsNoop(t *testing.T) {
	_, client := startServer(t)

	resp, err := client.Sync()
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if resp.Synced != 0 {
		t.Fatalf("synced = %d, want 0 in local-only mode", resp.Synced)
	}
}

func TestNotificationTestIsSentWhenUnconfigured(t *testing.T) {
	_, client := startServer(t)

	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if !resp.Sent {
		t.Fatalf("resp = %+v, noop notifier must report success", resp)
	}
}
