package opt

import (
	"context"
	"log/slog"
	"time"
)

// LocalSearch is a steepest-ascent (or descent) hill climber.
//
// Each iteration evaluates the whole neighborhood and moves to its best
// member only if it strictly improves on the current fitness. Ties are never
// accepted, so the search stops on plateaus.
type LocalSearch[S any] struct {
	logger *slog.Logger
}

// NewLocalSearch creates a local search. A nil logger uses slog.Default().
func NewLocalSearch[S any](logger *slog.Logger) *LocalSearch[S] {
	return &LocalSearch[S]{logger: loggerOrDefault(logger)}
}

// Search climbs from initial until a local optimum, an empty neighborhood or
// the iteration budget. Operator errors abort the search and are returned as-is.
// On context cancellation the best state so far is returned with ctx.Err().
func (ls *LocalSearch[S]) Search(ctx context.Context, initial S, fitness Fitness[S], neighbors Neighborhood[S], opts SearchOptions) (Result[S], error) {
	return ls.search(ctx, 0, initial, fitness, neighbors, opts)
}

func (ls *LocalSearch[S]) search(ctx context.Context, trajectory int, initial S, fitness Fitness[S], neighbors Neighborhood[S], opts SearchOptions) (Result[S], error) {
	if err := opts.Validate(); err != nil {
		return Result[S]{}, err
	}
	if fitness == nil {
		return Result[S]{}, &ConfigError{Field: "Fitness", Reason: "cannot be nil"}
	}
	if neighbors == nil {
		return Result[S]{}, &ConfigError{Field: "Neighborhood", Reason: "cannot be nil"}
	}

	start := time.Now()

	current := initial
	currentFitness, err := fitness(current)
	if err != nil {
		return Result[S]{}, err
	}

	result := func(iterations int, reason Termination) Result[S] {
		return Result[S]{
			Solution:      current,
			Fitness:       currentFitness,
			Iterations:    iterations,
			ExecutionTime: time.Since(start),
			Termination:   reason,
		}
	}

	iterations := 0
	for iterations < opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			return result(iterations, TerminationCancelled), err
		}

		candidates, err := neighbors(current)
		if err != nil {
			return Result[S]{}, err
		}
		if len(candidates) == 0 {
			ls.logger.Debug("Empty neighborhood", "trajectory", trajectory, "iteration", iterations)
			return result(iterations, TerminationNoNeighbors), nil
		}

		bestIdx := -1
		var bestFitness float64
		for i, c := range candidates {
			f, err := fitness(c)
			if err != nil {
				return Result[S]{}, err
			}
			if bestIdx < 0 || better(f, bestFitness, opts.Maximize) {
				bestIdx = i
				bestFitness = f
			}
		}

		if !better(bestFitness, currentFitness, opts.Maximize) {
			ls.logger.Debug("Local optimum reached",
				"trajectory", trajectory,
				"iteration", iterations,
				"fitness", currentFitness,
			)
			return result(iterations, TerminationLocalOptimum), nil
		}

		current = candidates[bestIdx]
		currentFitness = bestFitness
		iterations++

		if opts.OnClimb != nil {
			opts.OnClimb(ProgressEvent{
				Trajectory:  trajectory,
				Iteration:   iterations,
				Fitness:     currentFitness,
				BestFitness: currentFitness,
			})
		}
	}

	return result(iterations, TerminationBudget), nil
}
