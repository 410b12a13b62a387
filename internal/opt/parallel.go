package opt

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// ParallelLocalSearch runs one independent LocalSearch trajectory per initial
// solution on a bounded goroutine pool.
//
// Trajectories share no state; running them with one worker gives the same
// per-trajectory results as running them with many. Choosing the overall
// winner is left to the caller (see BestOf).
type ParallelLocalSearch[S any] struct {
	workers int
	logger  *slog.Logger
}

// NewParallelLocalSearch creates a parallel local search with the given
// degree of parallelism. workers <= 0 uses runtime.GOMAXPROCS(0).
func NewParallelLocalSearch[S any](workers int, logger *slog.Logger) *ParallelLocalSearch[S] {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ParallelLocalSearch[S]{
		workers: workers,
		logger:  loggerOrDefault(logger),
	}
}

// Workers returns the degree of parallelism.
func (p *ParallelLocalSearch[S]) Workers() int {
	return p.workers
}

// Search returns exactly one result per initial solution, in input order.
//
// A failing trajectory does not cancel its siblings. Its slot holds the
// initial solution with TerminationFailed and the returned error is a
// *PartialError naming every failed trajectory. opts.OnClimb is called from
// several goroutines and must be safe for concurrent use.
func (p *ParallelLocalSearch[S]) Search(ctx context.Context, initials []S, fitness Fitness[S], neighbors Neighborhood[S], opts SearchOptions) ([]Result[S], error) {
	if len(initials) == 0 {
		return nil, &ConfigError{Field: "Initials", Reason: "cannot be empty"}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	p.logger.Info("Starting parallel local search",
		"trajectories", len(initials),
		"workers", p.workers,
		"max_iterations", opts.MaxIterations,
	)

	start := time.Now()
	results := make([]Result[S], len(initials))

	var mu sync.Mutex
	var failures []*TrajectoryError

	ls := NewLocalSearch[S](p.logger)
	wp := pool.New().WithMaxGoroutines(p.workers)
	for i := range initials {
		wp.Go(func() {
			res, err := ls.search(ctx, i, initials[i], fitness, neighbors, opts)
			if err != nil && res.Termination != TerminationCancelled {
				res = Result[S]{Solution: initials[i], Termination: TerminationFailed}
			}
			results[i] = res
			if err != nil {
				mu.Lock()
				failures = append(failures, &TrajectoryError{Index: i, Err: err})
				mu.Unlock()
			}
		})
	}
	wp.Wait()

	p.logger.Info("Parallel local search complete",
		"trajectories", len(initials),
		"failed", len(failures),
		"elapsed", time.Since(start),
	)

	if len(failures) > 0 {
		sort.Slice(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })
		return results, &PartialError{Failures: failures}
	}
	return results, nil
}
