package server

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/runner"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// JobConfig is an alias to avoid duplication with runner.Config
type JobConfig = runner.Config

// Job represents an optimization job
type Job struct {
	ID     string    `json:"id"`
	State  JobState  `json:"state"`
	Config JobConfig `json:"config"`

	// Fitness is the best fitness most recently reported by the optimizer,
	// in the optimizer's direction. It is updated while the job runs.
	Fitness float64 `json:"fitness"`

	// Objective and InitialObjective are in the problem's natural terms and
	// are set when the job finishes.
	Objective        float64 `json:"objective"`
	InitialObjective float64 `json:"initialObjective"`

	Iterations  int             `json:"iterations"`
	Solution    string          `json:"solution,omitempty"`
	Termination opt.Termination `json:"termination,omitempty"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	Error       string          `json:"error,omitempty"`

	cancel context.CancelFunc
}

// Terminal reports whether the job has finished.
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed || j.State == StateCancelled
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job
}

// GetJob retrieves a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	return job, exists
}

// Snapshot returns a copy of the job that is safe to read while the job
// keeps running.
func (jm *JobManager) Snapshot(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return snapshot(job), true
}

func snapshot(job *Job) Job {
	snap := *job
	snap.cancel = nil
	if job.EndTime != nil {
		end := *job.EndTime
		snap.EndTime = &end
	}
	// Config carries pointers (Target)
	snap.Config = JobConfig{}
	if err := copier.CopyWithOption(&snap.Config, &job.Config, copier.Option{DeepCopy: true}); err != nil {
		slog.Error("Failed to copy job config", "job_id", job.ID, "error", err)
		snap.Config = job.Config
		if job.Config.Target != nil {
			target := *job.Config.Target
			snap.Config.Target = &target
		}
	}
	return snap
}

// ListJobs returns snapshots of all jobs, oldest first
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, snapshot(job))
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].StartTime.Before(jobs[k].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// CancelJob requests cancellation of a pending or running job. It returns
// false when the job does not exist or has already finished.
func (jm *JobManager) CancelJob(id string) bool {
	jm.mu.RLock()
	job, exists := jm.jobs[id]
	var cancel context.CancelFunc
	terminal := true
	if exists {
		cancel = job.cancel
		terminal = job.Terminal()
	}
	jm.mu.RUnlock()

	if terminal {
		return false
	}
	if cancel != nil {
		cancel()
	}
	return true
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, snapshot(job))
		}
	}
	return runningJobs
}
