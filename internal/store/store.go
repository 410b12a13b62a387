package store

// Store defines the interface for run persistence operations.
// Implementations must be thread-safe and handle concurrent access gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Return a *ValidationError if a run fails Validate on save
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun validates and saves a run record.
	// If a record already exists for run.ID, it is overwritten.
	SaveRun(run *Run) error

	// LoadRun retrieves the run with the given ID.
	// Returns ErrNotFound if no run exists for this ID.
	LoadRun(id string) (*Run, error)

	// ListRuns returns summaries of all stored runs, newest first.
	// The returned slice may be empty if no runs exist.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the run and all associated artifacts (such as its
	// progress trace).
	// Returns ErrNotFound if no run exists for this ID.
	DeleteRun(id string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run error.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "run not found: " + e.ID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

var (
	_ Store = (*FSStore)(nil)
	_ Store = (*SQLStore)(nil)
)
