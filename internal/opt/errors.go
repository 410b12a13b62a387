package opt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig matches every *ConfigError.
// Use errors.Is(err, ErrInvalidConfig) to check for configuration problems.
var ErrInvalidConfig = &ConfigError{}

// ErrTerminal is returned when stepping an algorithm that already finished.
var ErrTerminal = errors.New("algorithm already in a terminal state")

// ConfigError reports an invalid option value. It is returned before any
// search work begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration"
	}
	return "invalid configuration: " + e.Field + " " + e.Reason
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

// TrajectoryError wraps the failure of one parallel local search trajectory.
type TrajectoryError struct {
	Index int
	Err   error
}

func (e *TrajectoryError) Error() string {
	return fmt.Sprintf("trajectory %d: %v", e.Index, e.Err)
}

func (e *TrajectoryError) Unwrap() error {
	return e.Err
}

// PartialError is returned by ParallelLocalSearch when some trajectories
// failed. Results of the other trajectories are still valid.
type PartialError struct {
	Failures []*TrajectoryError
}

func (e *PartialError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%d trajectories failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *PartialError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Failed reports whether the trajectory with the given index failed.
func (e *PartialError) Failed(index int) bool {
	for _, f := range e.Failures {
		if f.Index == index {
			return true
		}
	}
	return false
}
