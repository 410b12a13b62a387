package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FSStore implements the Store interface using filesystem-based persistence.
// Runs are stored in a directory structure: <baseDir>/jobs/<id>/run.json,
// next to the run's trace.jsonl.
//
// Thread-safety: This implementation uses atomic file operations (rename)
// and does not require locks. Multiple goroutines can safely call methods
// concurrently.
type FSStore struct {
	baseDir string // Root directory for all run data (e.g., "./data")
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store. Trace files live below it.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// jobDir returns the directory path for a given run ID.
func (fs *FSStore) jobDir(id string) string {
	return filepath.Join(fs.baseDir, "jobs", id)
}

// runPath returns the path to the run.json file for a run.
func (fs *FSStore) runPath(id string) string {
	return filepath.Join(fs.jobDir(id), "run.json")
}

// SaveRun atomically saves a run record.
// Uses temp file + rename pattern to ensure atomicity.
func (fs *FSStore) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	jobDir := fs.jobDir(run.ID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	// Write to temporary file first (atomic pattern)
	tempPath := fs.runPath(run.ID) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp run file: %w", err)
	}

	finalPath := fs.runPath(run.ID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename run file: %w", err)
	}

	slog.Debug("Run saved", "run_id", run.ID, "path", finalPath)
	return nil
}

// LoadRun retrieves the run with the given ID.
func (fs *FSStore) LoadRun(id string) (*Run, error) {
	if id == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}

	path := fs.runPath(id)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to deserialize run: %w", err)
	}

	slog.Debug("Run loaded", "run_id", id, "path", path)
	return &run, nil
}

// ListRuns returns summaries of all stored runs, newest first.
func (fs *FSStore) ListRuns() ([]RunInfo, error) {
	jobsDir := filepath.Join(fs.baseDir, "jobs")

	entries, err := os.ReadDir(jobsDir)
	if os.IsNotExist(err) {
		// No runs recorded yet
		return []RunInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	infos := []RunInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		if _, err := os.Stat(fs.runPath(id)); os.IsNotExist(err) {
			continue // Directories holding only a trace
		}

		run, err := fs.LoadRun(id)
		if err != nil {
			slog.Warn("Failed to load run for listing", "run_id", id, "error", err)
			continue // Skip corrupted records
		}

		infos = append(infos, run.ToInfo())
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})

	slog.Debug("Listed runs", "count", len(infos))
	return infos, nil
}

// DeleteRun removes the run record and all associated artifacts.
func (fs *FSStore) DeleteRun(id string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	jobDir := fs.jobDir(id)

	if _, err := os.Stat(jobDir); os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat job directory: %w", err)
	}

	// Remove entire job directory and all contents
	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("failed to remove job directory: %w", err)
	}

	slog.Debug("Run deleted", "run_id", id, "path", jobDir)
	return nil
}
