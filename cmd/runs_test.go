package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/runner"
	"github.com/cwbudde/tycho/internal/store"
)

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", CreatedAt: now.AddDate(0, 0, -10)}, // 10 days old
		{ID: "run2", CreatedAt: now.AddDate(0, 0, -5)},  // 5 days old
		{ID: "run3", CreatedAt: now.AddDate(0, 0, -1)},  // 1 day old
		{ID: "run4", CreatedAt: now.AddDate(0, 0, -30)}, // 30 days old
	}

	// Delete runs older than 7 days
	toDelete := selectRunsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	if toDelete[0].ID != "run1" || toDelete[1].ID != "run4" {
		t.Errorf("Expected run1 and run4 to be selected, got %s and %s", toDelete[0].ID, toDelete[1].ID)
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "run2", CreatedAt: now.AddDate(0, 0, -5)},
		{ID: "run3", CreatedAt: now.AddDate(0, 0, -1)},
		{ID: "run4", CreatedAt: now.AddDate(0, 0, -30)},
	}

	// Keep only the newest 2 runs
	toDelete := selectRunsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	for _, info := range toDelete {
		if info.ID != "run1" && info.ID != "run4" {
			t.Errorf("Run %s should be kept", info.ID)
		}
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "run2", CreatedAt: now.AddDate(0, 0, -5)},
		{ID: "run3", CreatedAt: now.AddDate(0, 0, -1)},
	}

	// Age selects run1, count selects run1 and run2; run1 appears once
	toDelete := selectRunsForDeletion(infos, 1, 7)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 runs to delete, got %d", len(toDelete))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "a"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "sub", "b"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != 150 {
		t.Errorf("Expected 150 bytes, got %d", size)
	}
}

func TestOpenStore(t *testing.T) {
	tmpDir := t.TempDir()

	for _, kind := range []string{"fs", "sql"} {
		s, closeStore, err := openStore(kind, filepath.Join(tmpDir, kind))
		if err != nil {
			t.Fatalf("openStore(%s) failed: %v", kind, err)
		}
		if _, err := s.ListRuns(); err != nil {
			t.Errorf("ListRuns on %s store failed: %v", kind, err)
		}
		closeStore()
	}

	if _, _, err := openStore("redis", tmpDir); err == nil {
		t.Error("Expected error for unknown store kind")
	}
}

func saveTestRun(t *testing.T, dir, id string, createdAt time.Time) {
	t.Helper()

	runStore, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	run := &store.Run{
		ID:    id,
		State: store.RunCompleted,
		Config: runner.Config{
			Problem:   runner.ProblemSphere,
			Algorithm: runner.AlgorithmGenetic,
		},
		Outcome: runner.Outcome{
			Problem:     runner.ProblemSphere,
			Algorithm:   runner.AlgorithmGenetic,
			Solution:    "[0.0000, 0.0000]",
			Iterations:  10,
			Termination: opt.TerminationBudget,
		},
		CreatedAt: createdAt,
	}
	if err := runStore.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
}

func withRunsDataDir(t *testing.T, dir string) {
	t.Helper()

	originalDataDir, originalKind := runsDataDir, runsStoreKind
	runsDataDir, runsStoreKind = dir, "fs"
	t.Cleanup(func() { runsDataDir, runsStoreKind = originalDataDir, originalKind })
}

func TestRunsListCommand_NoRuns(t *testing.T) {
	withRunsDataDir(t, t.TempDir())

	if err := runListRuns(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestRunsListAndShowCommand(t *testing.T) {
	tmpDir := t.TempDir()
	saveTestRun(t, tmpDir, "test-run-id", time.Now())
	withRunsDataDir(t, tmpDir)

	if err := runListRuns(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := runShowRun(nil, []string{"test-run-id"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := runShowRun(nil, []string{"missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestRunsCleanCommand_NoFlags(t *testing.T) {
	withRunsDataDir(t, t.TempDir())

	// Reset flags
	keepLast = 0
	olderThanDays = 0

	// Should return error when no flags specified
	if err := runCleanRuns(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestRunsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	saveTestRun(t, tmpDir, "old-run", time.Now().AddDate(0, 0, -30))
	saveTestRun(t, tmpDir, "new-run", time.Now())
	withRunsDataDir(t, tmpDir)

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	defer func() { olderThanDays, forceClean = 0, false }()

	if err := runCleanRuns(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	runStore, _ := store.NewFSStore(tmpDir)
	if _, err := runStore.LoadRun("old-run"); !errors.Is(err, store.ErrNotFound) {
		t.Error("Expected old run to be deleted")
	}
	if _, err := runStore.LoadRun("new-run"); err != nil {
		t.Errorf("Expected new run to be kept: %v", err)
	}
}
