package opt

import (
	"log/slog"
	"math/rand"
	"time"
)

// Fitness scores a candidate. Direction is decided by the caller through
// SearchOptions.Maximize (local search) or by convention (evolution maximizes).
type Fitness[S any] func(S) (float64, error)

// Neighborhood returns the candidates reachable from s by one elementary move.
// An empty slice means s is a local optimum.
type Neighborhood[S any] func(S) ([]S, error)

// Observer receives progress events. It is called synchronously from the
// search loop, so it should return quickly.
type Observer func(ProgressEvent)

// ProgressEvent is emitted after every accepted improving move (local search)
// or after every completed generation (genetic and memetic algorithms).
type ProgressEvent struct {
	Trajectory  int     `json:"trajectory"`
	Iteration   int     `json:"iteration"`
	Fitness     float64 `json:"fitness"`
	BestFitness float64 `json:"bestFitness"`
}

// Termination explains why a search stopped.
type Termination string

const (
	TerminationLocalOptimum Termination = "local_optimum"
	TerminationNoNeighbors  Termination = "no_neighbors"
	TerminationBudget       Termination = "iteration_budget"
	TerminationConverged    Termination = "converged"
	TerminationTarget       Termination = "target_reached"
	TerminationCancelled    Termination = "cancelled"
	TerminationFailed       Termination = "failed"
)

// Result is the outcome of a search or an evolution run.
type Result[S any] struct {
	Solution      S
	Fitness       float64
	Iterations    int
	ExecutionTime time.Duration
	Termination   Termination
}

// SearchOptions configures a local search run.
type SearchOptions struct {
	// MaxIterations bounds the number of accepted moves.
	MaxIterations int

	// Maximize selects the comparison direction for every move decision.
	Maximize bool

	// OnClimb is invoked after each accepted improving move. Optional.
	OnClimb Observer
}

// Validate checks the option values.
func (o SearchOptions) Validate() error {
	if o.MaxIterations <= 0 {
		return &ConfigError{Field: "MaxIterations", Reason: "must be positive"}
	}
	return nil
}

// better reports whether a strictly improves on b in the given direction.
func better(a, b float64, maximize bool) bool {
	if maximize {
		return a > b
	}
	return a < b
}

// BestOf returns the index of the best result in the given direction.
// Failed results are skipped. It returns -1 if no result qualifies.
func BestOf[S any](results []Result[S], maximize bool) int {
	best := -1
	for i, r := range results {
		if r.Termination == TerminationFailed {
			continue
		}
		if best < 0 || better(r.Fitness, results[best].Fitness, maximize) {
			best = i
		}
	}
	return best
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
