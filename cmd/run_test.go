package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/tycho/internal/runner"
	"github.com/cwbudde/tycho/internal/store"
)

func resetRunFlags(t *testing.T) {
	t.Helper()

	saved := struct {
		cfg                                      runner.Config
		problem, algorithm, metric, out, dir, kd string
		save                                     bool
	}{runConfig, problem, algorithm, metric, outPath, dataDir, storeKind, saveRun}
	t.Cleanup(func() {
		runConfig, problem, algorithm, metric = saved.cfg, saved.problem, saved.algorithm, saved.metric
		outPath, dataDir, storeKind, saveRun = saved.out, saved.dir, saved.kd, saved.save
	})

	runConfig = runner.Config{Seed: 42}
	problem, algorithm, metric, outPath = "", "", "", ""
	dataDir, storeKind, saveRun = t.TempDir(), "fs", false
}

func TestBuildConfig(t *testing.T) {
	resetRunFlags(t)
	problem = "tsp"
	algorithm = "local"
	metric = "haversine"
	runConfig.Cities = 12

	cfg := buildConfig(nil)
	if cfg.Problem != runner.ProblemTSP || cfg.Algorithm != runner.AlgorithmLocal {
		t.Errorf("Unexpected problem/algorithm: %s/%s", cfg.Problem, cfg.Algorithm)
	}
	if cfg.Metric != "haversine" || cfg.Cities != 12 {
		t.Errorf("TSP flags not carried over: %+v", cfg)
	}
	if cfg.Target != nil {
		t.Error("Target should only be set when the flag is given")
	}

	runCmd.Flags().Set("target", "1500")
	defer func() {
		runCmd.Flags().Set("target", "0")
		runCmd.Flags().Lookup("target").Changed = false
	}()
	cfg = buildConfig(runCmd)
	if cfg.Target == nil || *cfg.Target != 1500 {
		t.Errorf("Expected target 1500, got %v", cfg.Target)
	}
}

func TestRunOptimization_SaveAndOut(t *testing.T) {
	resetRunFlags(t)
	problem = "tsp"
	algorithm = "local"
	runConfig.Cities = 8
	runConfig.Iters = 50
	saveRun = true
	outPath = filepath.Join(t.TempDir(), "outcome.json")

	if err := runOptimization(nil, nil); err != nil {
		t.Fatalf("runOptimization failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Outcome file not written: %v", err)
	}
	var outcome runner.Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		t.Fatalf("Failed to parse outcome: %v", err)
	}
	if outcome.Solution == "" || outcome.Objective <= 0 {
		t.Errorf("Unexpected outcome: %+v", outcome)
	}

	runStore, err := store.NewFSStore(dataDir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	infos, err := runStore.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Objective != outcome.Objective {
		t.Errorf("Expected one recorded run with objective %f, got %+v", outcome.Objective, infos)
	}
}

func TestRunOptimization_InvalidConfig(t *testing.T) {
	resetRunFlags(t)
	problem = "sudoku"
	algorithm = "mayfly"

	if err := runOptimization(nil, nil); err == nil {
		t.Error("Expected error for mayfly on sudoku")
	}
}
