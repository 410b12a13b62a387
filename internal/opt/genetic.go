package opt

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"
)

// State is the lifecycle state of an evolutionary algorithm.
type State string

const (
	StateInitialized State = "initialized"
	StateEvolving    State = "evolving"
	StateConverged   State = "converged"
	StateExhausted   State = "exhausted"
)

// Terminal reports whether no further generations can be produced.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateExhausted
}

// EvolutionaryConfig holds the parameters shared by the genetic and memetic
// algorithms.
type EvolutionaryConfig struct {
	PopulationSize int
	MaxGenerations int
	MutationRate   float64
	CrossoverRate  float64

	// Elitism is the number of top individuals copied unchanged into the next
	// generation. Must be smaller than PopulationSize.
	Elitism int

	// TournamentSize is used by the default selection operator (0 = 3).
	TournamentSize int

	// Seed drives every random decision of the algorithm.
	Seed int64

	// Target stops evolution once the best fitness reaches it. Optional.
	Target *float64

	// Convergence stops evolution when the best fitness stagnates.
	Convergence ConvergenceConfig
}

// Validate checks the configuration values.
func (c EvolutionaryConfig) Validate() error {
	if c.PopulationSize <= 0 {
		return &ConfigError{Field: "PopulationSize", Reason: "must be positive"}
	}
	if c.MaxGenerations <= 0 {
		return &ConfigError{Field: "MaxGenerations", Reason: "must be positive"}
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return &ConfigError{Field: "MutationRate", Reason: "must be in [0,1]"}
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return &ConfigError{Field: "CrossoverRate", Reason: "must be in [0,1]"}
	}
	if c.Elitism < 0 {
		return &ConfigError{Field: "Elitism", Reason: "cannot be negative"}
	}
	if c.Elitism >= c.PopulationSize {
		return &ConfigError{Field: "Elitism", Reason: "must be smaller than PopulationSize"}
	}
	if c.TournamentSize < 0 {
		return &ConfigError{Field: "TournamentSize", Reason: "cannot be negative"}
	}
	return c.Convergence.validate()
}

// GeneticConfig configures a GeneticAlgorithm.
type GeneticConfig[S any] struct {
	EvolutionaryConfig

	// Evaluation scores the population. Defaults to EvaluateWith(fitness).
	Evaluation EvaluationOperator[S]

	// Selection picks parents. Defaults to TournamentSelection(TournamentSize).
	Selection SelectionOperator[S]

	Crossover CrossoverOperator[S]
	Mutation  MutationOperator[S]

	// Observer is called once per generation. Optional.
	Observer Observer

	Logger *slog.Logger
}

type refineFunc[S any] func(ctx context.Context, population []S, scores []float64, scored []bool, rng *rand.Rand) error

// GeneticAlgorithm is a generational genetic algorithm that maximizes
// fitness. Minimization problems negate their objective.
//
// It can run to completion with Evolve or be driven one generation at a time
// with Step. It is not safe for concurrent use.
type GeneticAlgorithm[S any] struct {
	cfg    GeneticConfig[S]
	rng    *rand.Rand
	logger *slog.Logger

	population []S
	scores     []float64
	scored     []bool

	generation  int
	state       State
	termination Termination

	best        S
	bestFitness float64
	hasBest     bool

	tracker *ConvergenceTracker
	elapsed time.Duration

	refine refineFunc[S]
}

// NewGeneticAlgorithm creates a genetic algorithm over initialPopulation.
// The population size must match cfg.PopulationSize.
func NewGeneticAlgorithm[S any](initialPopulation []S, fitness Fitness[S], cfg GeneticConfig[S]) (*GeneticAlgorithm[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(initialPopulation) != cfg.PopulationSize {
		return nil, &ConfigError{
			Field:  "InitialPopulation",
			Reason: fmt.Sprintf("has %d individuals, expected %d", len(initialPopulation), cfg.PopulationSize),
		}
	}
	if cfg.Crossover == nil {
		return nil, &ConfigError{Field: "Crossover", Reason: "cannot be nil"}
	}
	if cfg.Mutation == nil {
		return nil, &ConfigError{Field: "Mutation", Reason: "cannot be nil"}
	}
	if cfg.Evaluation == nil {
		if fitness == nil {
			return nil, &ConfigError{Field: "Fitness", Reason: "cannot be nil without an Evaluation operator"}
		}
		cfg.Evaluation = EvaluateWith(fitness)
	}
	if cfg.Selection == nil {
		cfg.Selection = TournamentSelection[S](cfg.TournamentSize)
	}

	population := make([]S, len(initialPopulation))
	copy(population, initialPopulation)

	return &GeneticAlgorithm[S]{
		cfg:        cfg,
		rng:        newRand(cfg.Seed),
		logger:     loggerOrDefault(cfg.Logger),
		population: population,
		scores:     make([]float64, len(population)),
		scored:     make([]bool, len(population)),
		state:      StateInitialized,
		tracker:    NewConvergenceTracker(cfg.Convergence),
	}, nil
}

// State returns the current lifecycle state.
func (ga *GeneticAlgorithm[S]) State() State {
	return ga.state
}

// Generation returns the number of completed generations.
func (ga *GeneticAlgorithm[S]) Generation() int {
	return ga.generation
}

// Best returns the best individual ever evaluated and its fitness.
// Both are zero values until the first Step has evaluated the population.
func (ga *GeneticAlgorithm[S]) Best() (S, float64) {
	return ga.best, ga.bestFitness
}

// BestFitness returns the best fitness ever evaluated.
func (ga *GeneticAlgorithm[S]) BestFitness() float64 {
	return ga.bestFitness
}

// Population returns a copy of the live population.
func (ga *GeneticAlgorithm[S]) Population() []S {
	out := make([]S, len(ga.population))
	copy(out, ga.population)
	return out
}

// Scores returns a copy of the live population's fitness values. They are
// valid once the first Step has completed.
func (ga *GeneticAlgorithm[S]) Scores() []float64 {
	out := make([]float64, len(ga.scores))
	copy(out, ga.scores)
	return out
}

// Result returns the best-ever solution. Termination is empty while the
// algorithm is still evolving.
func (ga *GeneticAlgorithm[S]) Result() Result[S] {
	return Result[S]{
		Solution:      ga.best,
		Fitness:       ga.bestFitness,
		Iterations:    ga.generation,
		ExecutionTime: ga.elapsed,
		Termination:   ga.termination,
	}
}

// Evaluated reports whether the initial population has been scored, which
// is when Best and Result start carrying a real solution.
func (ga *GeneticAlgorithm[S]) Evaluated() bool {
	return ga.hasBest
}

// Evolve runs up to n generations (n <= 0 runs until a terminal state) and
// returns the best-ever result. Operator errors abort the run unchanged.
// A run cancelled before the initial population was scored returns an empty
// Result with TerminationCancelled.
func (ga *GeneticAlgorithm[S]) Evolve(ctx context.Context, n int) (Result[S], error) {
	logStart := ga.logger.Debug
	if ga.state == StateInitialized {
		logStart = ga.logger.Info
	}
	logStart("Starting evolution",
		"population", ga.cfg.PopulationSize,
		"max_generations", ga.cfg.MaxGenerations,
		"generation", ga.generation,
		"steps", n,
	)

	for steps := 0; !ga.state.Terminal() && (n <= 0 || steps < n); steps++ {
		if err := ga.Step(ctx); err != nil {
			if ctx.Err() == nil {
				return Result[S]{}, err
			}
			if !ga.hasBest {
				return Result[S]{ExecutionTime: ga.elapsed, Termination: TerminationCancelled}, err
			}
			res := ga.Result()
			res.Termination = TerminationCancelled
			return res, err
		}
	}

	res := ga.Result()
	logEnd := ga.logger.Debug
	if ga.state.Terminal() {
		logEnd = ga.logger.Info
	}
	logEnd("Evolution complete",
		"generation", ga.generation,
		"state", ga.state,
		"best_fitness", ga.bestFitness,
		"elapsed", ga.elapsed,
	)
	return res, nil
}

// Step advances the algorithm by one generation. The first call also
// evaluates the initial population. A failed step leaves the previous
// generation intact.
func (ga *GeneticAlgorithm[S]) Step(ctx context.Context) error {
	if ga.state.Terminal() {
		return ErrTerminal
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	defer func() { ga.elapsed += time.Since(start) }()

	if ga.state == StateInitialized {
		if err := ga.evaluate(ga.population, ga.scores, ga.scored); err != nil {
			return err
		}
		genBest := ga.updateBest()
		ga.state = StateEvolving
		ga.tracker.Update(ga.bestFitness)
		ga.emit(genBest)
		if ga.targetReached() {
			ga.finish(StateConverged, TerminationTarget)
			return nil
		}
	}

	next, scores, scored, err := ga.breed()
	if err != nil {
		return err
	}

	if ga.refine != nil {
		if err := ga.refine(ctx, next, scores, scored, ga.rng); err != nil {
			return err
		}
	}

	if err := ga.evaluate(next, scores, scored); err != nil {
		return err
	}

	ga.population = next
	ga.scores = scores
	ga.scored = scored
	ga.generation++

	genBest := ga.updateBest()
	converged := ga.tracker.Update(ga.bestFitness)
	ga.emit(genBest)

	ga.logger.Debug("Generation complete",
		"generation", ga.generation,
		"generation_best", genBest,
		"best_fitness", ga.bestFitness,
	)

	switch {
	case ga.targetReached():
		ga.finish(StateConverged, TerminationTarget)
	case ga.generation >= ga.cfg.MaxGenerations:
		ga.finish(StateExhausted, TerminationBudget)
	case converged:
		ga.logger.Debug("Best fitness stagnated", "stale_generations", ga.tracker.StaleCount())
		ga.finish(StateConverged, TerminationConverged)
	}
	return nil
}

func (ga *GeneticAlgorithm[S]) finish(state State, reason Termination) {
	ga.state = state
	ga.termination = reason
	ga.logger.Debug("Evolution reached terminal state",
		"state", state,
		"reason", reason,
		"generation", ga.generation,
	)
}

func (ga *GeneticAlgorithm[S]) targetReached() bool {
	return ga.cfg.Target != nil && ga.hasBest && ga.bestFitness >= *ga.cfg.Target
}

func (ga *GeneticAlgorithm[S]) emit(generationBest float64) {
	if ga.cfg.Observer == nil {
		return
	}
	ga.cfg.Observer(ProgressEvent{
		Iteration:   ga.generation,
		Fitness:     generationBest,
		BestFitness: ga.bestFitness,
	})
}

// evaluate scores every individual whose score is unknown.
func (ga *GeneticAlgorithm[S]) evaluate(population []S, scores []float64, scored []bool) error {
	var idx []int
	var pending []S
	for i, ok := range scored {
		if !ok {
			idx = append(idx, i)
			pending = append(pending, population[i])
		}
	}
	if len(pending) == 0 {
		return nil
	}

	values, err := ga.cfg.Evaluation(pending)
	if err != nil {
		return err
	}
	if len(values) != len(pending) {
		return fmt.Errorf("evaluation returned %d scores for %d individuals", len(values), len(pending))
	}

	for k, i := range idx {
		scores[i] = values[k]
		scored[i] = true
	}
	return nil
}

// updateBest records the generation best and returns its fitness.
func (ga *GeneticAlgorithm[S]) updateBest() float64 {
	bestIdx := 0
	for i := 1; i < len(ga.scores); i++ {
		if ga.scores[i] > ga.scores[bestIdx] {
			bestIdx = i
		}
	}
	if !ga.hasBest || ga.scores[bestIdx] > ga.bestFitness {
		ga.best = ga.population[bestIdx]
		ga.bestFitness = ga.scores[bestIdx]
		ga.hasBest = true
	}
	return ga.scores[bestIdx]
}

// rank returns population indices ordered by descending fitness.
func (ga *GeneticAlgorithm[S]) rank() []int {
	order := make([]int, len(ga.population))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ga.scores[order[a]] > ga.scores[order[b]]
	})
	return order
}

// breed builds the next generation: elites first, then selected, crossed
// and mutated offspring. Offspring that are plain clones keep their parent's
// score.
func (ga *GeneticAlgorithm[S]) breed() ([]S, []float64, []bool, error) {
	n := ga.cfg.PopulationSize
	next := make([]S, 0, n)
	scores := make([]float64, 0, n)
	scored := make([]bool, 0, n)

	for _, i := range ga.rank()[:ga.cfg.Elitism] {
		next = append(next, ga.population[i])
		scores = append(scores, ga.scores[i])
		scored = append(scored, true)
	}

	add := func(child S, score float64, known bool) error {
		if ga.rng.Float64() < ga.cfg.MutationRate {
			mutated, err := ga.cfg.Mutation(child, ga.rng)
			if err != nil {
				return err
			}
			child, known = mutated, false
		}
		next = append(next, child)
		scores = append(scores, score)
		scored = append(scored, known)
		return nil
	}

	for len(next) < n {
		i1, err := ga.cfg.Selection(ga.population, ga.scores, ga.rng)
		if err != nil {
			return nil, nil, nil, err
		}
		i2, err := ga.cfg.Selection(ga.population, ga.scores, ga.rng)
		if err != nil {
			return nil, nil, nil, err
		}

		c1, c2 := ga.population[i1], ga.population[i2]
		s1, s2 := ga.scores[i1], ga.scores[i2]
		known := true
		if ga.rng.Float64() < ga.cfg.CrossoverRate {
			c1, c2, err = ga.cfg.Crossover(c1, c2, ga.rng)
			if err != nil {
				return nil, nil, nil, err
			}
			known = false
		}

		if err := add(c1, s1, known); err != nil {
			return nil, nil, nil, err
		}
		if len(next) < n {
			if err := add(c2, s2, known); err != nil {
				return nil, nil, nil, err
			}
		}
	}

	return next, scores, scored, nil
}
