// Package runner turns a Config into a complete optimization run: it builds
// the problem's operators, drives the selected optimizer and reports the
// outcome in the problem's own terms.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/problem/continuous"
)

// Outcome is the result of one run.
type Outcome struct {
	Problem   Problem   `json:"problem"`
	Algorithm Algorithm `json:"algorithm"`

	// Solution is the best candidate rendered for display.
	Solution string `json:"solution"`

	// Fitness is the best value in the optimizer's direction (maximized for
	// evolution, problem direction for local search). Objective is the same
	// value in the problem's natural terms.
	Fitness   float64 `json:"fitness"`
	Objective float64 `json:"objective"`

	// InitialObjective is the natural objective of the best starting
	// candidate.
	InitialObjective float64 `json:"initialObjective"`

	Iterations    int             `json:"iterations"`
	ExecutionTime time.Duration   `json:"executionTime"`
	Termination   opt.Termination `json:"termination"`

	// Trajectories holds one entry per parallel local search start.
	Trajectories []Trajectory `json:"trajectories,omitempty"`
}

// Trajectory summarizes one parallel local search start.
type Trajectory struct {
	Index       int             `json:"index"`
	Objective   float64         `json:"objective"`
	Iterations  int             `json:"iterations"`
	Termination opt.Termination `json:"termination"`
	Error       string          `json:"error,omitempty"`
}

// Run validates cfg and executes it. observe receives every progress event
// and may be nil. A cancelled ctx stops the run at the next iteration
// boundary; the partial outcome is returned together with ctx.Err().
func Run(ctx context.Context, cfg Config, observe opt.Observer, logger *slog.Logger) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observe == nil {
		observe = func(opt.ProgressEvent) {}
	}

	logger.Info("Starting run",
		"problem", cfg.Problem,
		"algorithm", cfg.Algorithm,
		"iters", cfg.Iters,
		"seed", cfg.Seed,
	)

	var (
		out *Outcome
		err error
	)
	switch cfg.Problem {
	case ProblemSudoku:
		ops, opErr := sudokuOperators(cfg)
		if opErr != nil {
			return nil, opErr
		}
		out, err = solve(ctx, cfg, ops, observe, logger)
	case ProblemTSP:
		ops, opErr := tspOperators(cfg)
		if opErr != nil {
			return nil, opErr
		}
		out, err = solve(ctx, cfg, ops, observe, logger)
	default:
		ops, opErr := continuousOperators(cfg)
		if opErr != nil {
			return nil, opErr
		}
		if cfg.Algorithm == AlgorithmMayfly {
			out, err = runMayfly(ctx, cfg, ops, logger)
		} else {
			out, err = solve(ctx, cfg, ops, observe, logger)
		}
	}
	if out != nil {
		out.Problem = cfg.Problem
		out.Algorithm = cfg.Algorithm
		logger.Info("Run complete",
			"problem", cfg.Problem,
			"algorithm", cfg.Algorithm,
			"objective", out.Objective,
			"iterations", out.Iterations,
			"termination", out.Termination,
			"elapsed", out.ExecutionTime,
		)
	}
	return out, err
}

func solve[S any](ctx context.Context, cfg Config, ops *operators[S], observe opt.Observer, logger *slog.Logger) (*Outcome, error) {
	switch cfg.Algorithm {
	case AlgorithmLocal:
		return runLocal(ctx, cfg, ops, observe, logger)
	case AlgorithmParallel:
		return runParallel(ctx, cfg, ops, observe, logger)
	case AlgorithmGenetic:
		return runGenetic(ctx, cfg, ops, observe, logger)
	case AlgorithmMemetic:
		return runMemetic(ctx, cfg, ops, observe, logger)
	}
	return nil, &opt.ConfigError{Field: "algorithm", Reason: fmt.Sprintf("%q cannot solve %q", cfg.Algorithm, cfg.Problem)}
}

func (o *operators[S]) searchOptions(iters int, observe opt.Observer) opt.SearchOptions {
	return opt.SearchOptions{MaxIterations: iters, Maximize: o.maximize, OnClimb: observe}
}

func (o *operators[S]) outcome(res opt.Result[S], initial float64) *Outcome {
	return &Outcome{
		Solution:         o.render(res.Solution),
		Fitness:          res.Fitness,
		InitialObjective: initial,
		Iterations:       res.Iterations,
		ExecutionTime:    res.ExecutionTime,
		Termination:      res.Termination,
	}
}

func runLocal[S any](ctx context.Context, cfg Config, ops *operators[S], observe opt.Observer, logger *slog.Logger) (*Outcome, error) {
	initial, err := ops.factory(rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, fmt.Errorf("failed to create initial solution: %w", err)
	}
	initialObjective, err := ops.objective(initial)
	if err != nil {
		return nil, err
	}

	res, err := opt.NewLocalSearch[S](logger).Search(ctx, initial, ops.objective, ops.neighborhood, ops.searchOptions(cfg.Iters, observe))
	if err != nil && res.Termination != opt.TerminationCancelled {
		return nil, err
	}
	out := ops.outcome(res, initialObjective)
	out.Objective = res.Fitness
	return out, err
}

func runParallel[S any](ctx context.Context, cfg Config, ops *operators[S], observe opt.Observer, logger *slog.Logger) (*Outcome, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	initials := make([]S, cfg.Restarts)
	for i := range initials {
		s, err := ops.factory(rng)
		if err != nil {
			return nil, fmt.Errorf("failed to create initial solution %d: %w", i, err)
		}
		initials[i] = s
	}
	initialObjective, err := ops.bestObjective(initials)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := opt.NewParallelLocalSearch[S](cfg.Workers, logger).Search(ctx, initials, ops.objective, ops.neighborhood, ops.searchOptions(cfg.Iters, observe))

	var partial *opt.PartialError
	if errors.As(err, &partial) {
		logger.Warn("Some trajectories failed", "failed", len(partial.Failures), "total", len(initials))
	} else if err != nil {
		return nil, err
	}

	best := opt.BestOf(results, ops.maximize)
	if best < 0 {
		return nil, err
	}

	out := ops.outcome(results[best], initialObjective)
	out.Objective = results[best].Fitness
	out.ExecutionTime = time.Since(start)
	for i, r := range results {
		t := Trajectory{Index: i, Objective: r.Fitness, Iterations: r.Iterations, Termination: r.Termination}
		if partial != nil {
			for _, f := range partial.Failures {
				if f.Index == i {
					t.Error = f.Err.Error()
				}
			}
		}
		out.Trajectories = append(out.Trajectories, t)
	}

	if err := ctx.Err(); err != nil {
		out.Termination = opt.TerminationCancelled
		return out, err
	}
	// At least one trajectory survived, which is a usable answer.
	return out, nil
}

func (o *operators[S]) evolutionaryConfig(cfg Config) opt.EvolutionaryConfig {
	ec := opt.EvolutionaryConfig{
		PopulationSize: cfg.PopSize,
		MaxGenerations: cfg.Iters,
		MutationRate:   cfg.MutationRate,
		CrossoverRate:  cfg.CrossoverRate,
		Elitism:        cfg.Elitism,
		Seed:           cfg.Seed,
		Convergence:    opt.DisabledConvergenceConfig(),
	}
	if cfg.Patience > 0 {
		ec.Convergence = opt.DefaultConvergenceConfig()
		ec.Convergence.Patience = cfg.Patience
	}
	if o.target != nil {
		t := *o.target
		if !o.maximize {
			t = -t
		}
		ec.Target = &t
	}
	return ec
}

func (o *operators[S]) geneticConfig(cfg Config, observe opt.Observer, logger *slog.Logger) opt.GeneticConfig[S] {
	gc := opt.GeneticConfig[S]{
		EvolutionaryConfig: o.evolutionaryConfig(cfg),
		Crossover:          o.crossover,
		Mutation:           o.mutation,
		Observer:           observe,
		Logger:             logger,
	}
	if cfg.Workers != 1 {
		gc.Evaluation = opt.EvaluateConcurrently(o.fitness(), cfg.Workers)
	}
	return gc
}

func runGenetic[S any](ctx context.Context, cfg Config, ops *operators[S], observe opt.Observer, logger *slog.Logger) (*Outcome, error) {
	population, err := opt.InitializeWith(ops.factory)(cfg.PopSize, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, fmt.Errorf("failed to create initial population: %w", err)
	}

	ga, err := opt.NewGeneticAlgorithm(population, ops.fitness(), ops.geneticConfig(cfg, observe, logger))
	if err != nil {
		return nil, err
	}
	return evolve(ctx, ga, ops)
}

func runMemetic[S any](ctx context.Context, cfg Config, ops *operators[S], observe opt.Observer, logger *slog.Logger) (*Outcome, error) {
	ma, err := opt.NewMemeticAlgorithm(opt.MemeticConfig[S]{
		GeneticConfig:      ops.geneticConfig(cfg, observe, logger),
		LocalSearchRate:    cfg.LocalSearchRate,
		LocalSearchOptions: opt.SearchOptions{MaxIterations: cfg.LocalSearchIters, Maximize: true},
		IndividualFactory:  ops.factory,
		Objective:          ops.fitness(),
		Neighborhood:       ops.neighborhood,
	})
	if err != nil {
		return nil, err
	}
	out, err := evolve(ctx, ma.GeneticAlgorithm, ops)
	if out != nil {
		logger.Debug("Memetic refinements", "count", ma.Refinements())
	}
	return out, err
}

func evolve[S any](ctx context.Context, ga *opt.GeneticAlgorithm[S], ops *operators[S]) (*Outcome, error) {
	initial, initialBest, err := ops.bestCandidate(ga.Population())
	if err != nil {
		return nil, err
	}

	res, err := ga.Evolve(ctx, 0)
	if err != nil && res.Termination != opt.TerminationCancelled {
		return nil, err
	}

	out := ops.outcome(res, initialBest)
	out.Objective = ops.toObjective(res.Fitness)
	if !ga.Evaluated() {
		// Cancelled before generation 0 was scored: report the initial best.
		out.Solution = ops.render(initial)
		out.Objective = initialBest
		out.Fitness = ops.toFitness(initialBest)
	}
	return out, err
}

func runMayfly(ctx context.Context, cfg Config, ops *operators[[]float64], logger *slog.Logger) (*Outcome, error) {
	fn, err := continuous.Lookup(string(cfg.Problem))
	if err != nil {
		return nil, err
	}
	initial, err := ops.factory(rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, err
	}
	initialObjective, err := ops.objective(initial)
	if err != nil {
		return nil, err
	}

	res, err := opt.NewMayfly(cfg.PopSize, cfg.Seed, logger).Search(ctx, ops.objective, fn.Lower, fn.Upper, cfg.Dim, opt.SearchOptions{MaxIterations: cfg.Iters})
	if err != nil {
		return nil, err
	}
	out := ops.outcome(res, initialObjective)
	out.Objective = res.Fitness
	return out, nil
}
