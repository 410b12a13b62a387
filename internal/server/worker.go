package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/runner"
	"github.com/cwbudde/tycho/internal/store"
)

// runJob executes an optimization job in the background.
// If runStore is not nil the finished run is recorded there. If dataDir is not
// empty every progress event is appended to the job's trace file.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, dataDir string, jobID string) error {
	job, exists := jm.Snapshot(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	cfg := job.Config
	if err := cfg.Validate(); err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	// Check for cancellation before starting expensive operation
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		broadcastFinal(jm, jobID)
		return ctx.Err()
	default:
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.Config = cfg
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "problem", cfg.Problem, "algorithm", cfg.Algorithm)

	var trace *store.TraceWriter
	if dataDir != "" {
		trace, err = store.NewTraceWriter(dataDir, jobID, false)
		if err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
		defer func() {
			if cerr := trace.Close(); cerr != nil {
				slog.Warn("Failed to close trace", "job_id", jobID, "error", cerr)
			}
		}()
	}

	observe := func(ev opt.ProgressEvent) {
		jm.UpdateJob(jobID, func(j *Job) {
			if ev.Iteration > j.Iterations {
				j.Iterations = ev.Iteration
			}
			j.Fitness = ev.BestFitness
		})
		if trace != nil {
			if werr := trace.Write(store.NewTraceEntry(ev)); werr != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", werr)
			}
		}
	}

	start := time.Now()

	// Start progress monitoring goroutine
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	outcome, runErr := runner.Run(ctx, cfg, observe, slog.Default().With("job_id", jobID))
	close(progressDone)
	elapsed := time.Since(start)

	if outcome != nil {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Fitness = outcome.Fitness
			j.Objective = outcome.Objective
			j.InitialObjective = outcome.InitialObjective
			j.Iterations = outcome.Iterations
			j.Solution = outcome.Solution
			j.Termination = outcome.Termination
		})
	}

	switch {
	case runErr == nil:
		endTime := time.Now()
		jm.UpdateJob(jobID, func(j *Job) {
			j.State = StateCompleted
			j.EndTime = &endTime
		})
		slog.Info("Job completed",
			"job_id", jobID,
			"elapsed", elapsed,
			"initial_objective", outcome.InitialObjective,
			"objective", outcome.Objective,
			"termination", outcome.Termination,
		)
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		markJobCancelled(jm, jobID)
	default:
		markJobFailed(jm, jobID, runErr)
	}

	if runStore != nil {
		if err := runStore.SaveRun(store.NewRun(jobID, cfg, outcome, runErr)); err != nil {
			slog.Warn("Failed to record run", "job_id", jobID, "error", err)
		}
	}

	broadcastFinal(jm, jobID)
	return runErr
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.Snapshot(jobID)
			if !exists {
				return
			}
			jm.broadcaster.Broadcast(progressEvent(job))
		}
	}
}

// broadcastFinal sends the job's terminal state to stream subscribers.
func broadcastFinal(jm *JobManager, jobID string) {
	if job, exists := jm.Snapshot(jobID); exists {
		jm.broadcaster.Broadcast(progressEvent(job))
	}
}

func progressEvent(job Job) ProgressEvent {
	return ProgressEvent{
		JobID:       job.ID,
		State:       job.State,
		Iterations:  job.Iterations,
		Fitness:     job.Fitness,
		Objective:   job.Objective,
		Termination: job.Termination,
		Timestamp:   time.Now(),
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		if j.Termination == "" {
			j.Termination = opt.TerminationCancelled
		}
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}
