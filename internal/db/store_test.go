package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nexus-app/nexus/internal/remote"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "nexus.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListExecutions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := remote.Result{MachineName: "SIGMA", Command: "uptime", Stdout: "up 3 days", Success: true, DurationMS: 120}
	second := remote.Result{MachineName: "SIGMA", Command: "sleep 60", Stderr: remote.TimeoutMessage, ExitCode: -1, TimedOut: true}

	if err := store.RecordExecution(ctx, first, remote.SourceTool); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordExecution(ctx, second, remote.SourceDirect); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListExecutions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(list))
	}
	if list[0].Command != "sleep 60" || list[1].Command != "uptime" {
		t.Errorf("expected newest first, got %q then %q", list[0].Command, list[1].Command)
	}
	if !list[0].TimedOut || list[0].ExitCode != -1 || list[0].Source != remote.SourceDirect {
		t.Errorf("unexpected record %+v", list[0])
	}
	if !list[1].Success || list[1].Stdout != "up 3 days" || list[1].Source != remote.SourceTool {
		t.Errorf("unexpected record %+v", list[1])
	}
	if list[0].ID == "" || list[0].ID == list[1].ID {
		t.Error("expected distinct ids")
	}
}

func TestListExecutionsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.RecordExecution(ctx, remote.Result{MachineName: "SIGMA", Command: "ls"}, remote.SourceTool); err != nil {
			t.Fatal(err)
		}
	}
	list, err := store.ListExecutions(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3, got %d", len(list))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexus.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		store.Close()
	}
}
