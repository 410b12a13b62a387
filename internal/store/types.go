package store

import (
	"time"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/runner"
)

// Run states recorded in a Run.
const (
	RunCompleted = "completed"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

// Run is the persisted record of one optimization run: the configuration it
// was started with and the best result it reached.
//
// Only the outcome is stored, not the optimizer's population or search
// state, so a stored run can be inspected but not continued.
type Run struct {
	// ID is the unique identifier of the run (the job ID when the run was
	// started through the server)
	ID string `json:"id"`

	// State is one of RunCompleted, RunCancelled or RunFailed
	State string `json:"state"`

	// Config is the validated configuration the run was started with
	Config runner.Config `json:"config"`

	// Outcome holds the best solution found. It is the zero value for runs
	// that failed before producing one.
	Outcome runner.Outcome `json:"outcome"`

	// Error describes why a failed run stopped
	Error string `json:"error,omitempty"`

	// CreatedAt records when the run finished and was recorded
	CreatedAt time.Time `json:"createdAt"`
}

// RunInfo contains the summary of a run without its rendered solution.
// Used for listing runs efficiently.
type RunInfo struct {
	ID            string           `json:"id"`
	State         string           `json:"state"`
	Problem       runner.Problem   `json:"problem"`
	Algorithm     runner.Algorithm `json:"algorithm"`
	Objective     float64          `json:"objective"`
	Iterations    int              `json:"iterations"`
	Termination   opt.Termination  `json:"termination"`
	ExecutionTime time.Duration    `json:"executionTime"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// NewRun creates a run record from a finished run. runErr is the error
// returned by runner.Run; a cancellation error marks the run cancelled, any
// other error marks it failed.
func NewRun(id string, cfg runner.Config, outcome *runner.Outcome, runErr error) *Run {
	run := &Run{
		ID:        id,
		State:     RunCompleted,
		Config:    cfg,
		CreatedAt: time.Now(),
	}
	if outcome != nil {
		run.Outcome = *outcome
	}
	switch {
	case runErr == nil:
	case outcome != nil && outcome.Termination == opt.TerminationCancelled:
		run.State = RunCancelled
	default:
		run.State = RunFailed
		run.Error = runErr.Error()
	}
	return run
}

// ToInfo converts a full Run to RunInfo (summary only).
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		ID:            r.ID,
		State:         r.State,
		Problem:       r.Config.Problem,
		Algorithm:     r.Config.Algorithm,
		Objective:     r.Outcome.Objective,
		Iterations:    r.Outcome.Iterations,
		Termination:   r.Outcome.Termination,
		ExecutionTime: r.Outcome.ExecutionTime,
		CreatedAt:     r.CreatedAt,
	}
}

// Validate checks if the run has valid data.
// Returns an error if any required field is missing or invalid.
func (r *Run) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	switch r.State {
	case RunCompleted, RunCancelled:
		if r.Outcome.Solution == "" {
			return &ValidationError{Field: "Outcome.Solution", Reason: "cannot be empty for a " + r.State + " run"}
		}
	case RunFailed:
		if r.Error == "" {
			return &ValidationError{Field: "Error", Reason: "cannot be empty for a failed run"}
		}
	default:
		return &ValidationError{Field: "State", Reason: "unknown state " + r.State}
	}
	if r.Config.Problem == "" {
		return &ValidationError{Field: "Config.Problem", Reason: "cannot be empty"}
	}
	if r.Config.Algorithm == "" {
		return &ValidationError{Field: "Config.Algorithm", Reason: "cannot be empty"}
	}
	if r.Outcome.Iterations < 0 {
		return &ValidationError{Field: "Outcome.Iterations", Reason: "cannot be negative"}
	}
	if r.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}
