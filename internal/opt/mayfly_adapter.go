package opt

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/cwbudde/mayfly"
)

// MinMayflyPopulation is the smallest population mayfly v0.1.0 accepts.
const MinMayflyPopulation = 20

// Mayfly wraps the external Mayfly swarm optimizer for continuous problems
// and reports its outcome as a Result.
type Mayfly struct {
	popSize int
	seed    int64
	logger  *slog.Logger
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(popSize int, seed int64, logger *slog.Logger) *Mayfly {
	return &Mayfly{
		popSize: popSize,
		seed:    seed,
		logger:  loggerOrDefault(logger),
	}
}

// Search optimizes a dim-dimensional vector within [lower, upper] in every
// dimension. opts.MaxIterations bounds the swarm iterations; opts.OnClimb is
// not called because the swarm only reports its final best.
func (m *Mayfly) Search(ctx context.Context, fitness Fitness[[]float64], lower, upper float64, dim int, opts SearchOptions) (Result[[]float64], error) {
	if err := opts.Validate(); err != nil {
		return Result[[]float64]{}, err
	}
	if m.popSize < MinMayflyPopulation {
		return Result[[]float64]{}, &ConfigError{Field: "PopulationSize", Reason: fmt.Sprintf("must be at least %d", MinMayflyPopulation)}
	}
	if dim <= 0 {
		return Result[[]float64]{}, &ConfigError{Field: "Dim", Reason: "must be positive"}
	}
	if lower >= upper {
		return Result[[]float64]{}, &ConfigError{Field: "Bounds", Reason: "lower must be below upper"}
	}

	// The swarm minimizes cost and cannot be interrupted, so the first
	// operator error or cancellation turns every later evaluation into +Inf.
	var (
		mu       sync.Mutex
		firstErr error
	)
	failure := func() error {
		mu.Lock()
		defer mu.Unlock()
		return firstErr
	}
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	eval := func(x []float64) float64 {
		if failure() != nil {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			fail(err)
			return math.Inf(1)
		}
		f, err := fitness(x)
		if err != nil {
			fail(err)
			return math.Inf(1)
		}
		if opts.Maximize {
			return -f
		}
		return f
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = opts.MaxIterations
	config.NPop = m.popSize
	config.LowerBound = lower
	config.UpperBound = upper
	config.Rand = rand.New(rand.NewSource(m.seed))

	m.logger.Info("Starting mayfly search", "dim", dim, "population", m.popSize, "max_iterations", opts.MaxIterations)

	start := time.Now()
	result, err := mayfly.Optimize(config)
	if err != nil {
		return Result[[]float64]{}, fmt.Errorf("mayfly optimize: %w", err)
	}
	if err := failure(); err != nil {
		return Result[[]float64]{}, err
	}

	best := append([]float64(nil), result.GlobalBest.Position...)
	bestFitness := result.GlobalBest.Cost
	if opts.Maximize {
		bestFitness = -bestFitness
	}

	m.logger.Info("Mayfly search complete", "best_fitness", bestFitness, "elapsed", time.Since(start))

	return Result[[]float64]{
		Solution:      best,
		Fitness:       bestFitness,
		Iterations:    opts.MaxIterations,
		ExecutionTime: time.Since(start),
		Termination:   TerminationBudget,
	}, nil
}
