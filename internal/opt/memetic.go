package opt

import (
	"context"
	"math/rand"
)

// MemeticConfig configures a MemeticAlgorithm: the genetic configuration plus
// the local refinement applied to offspring.
type MemeticConfig[S any] struct {
	GeneticConfig[S]

	// LocalSearchRate is the probability that an individual of a new
	// generation is replaced by its local search result.
	LocalSearchRate float64

	// LocalSearchOptions bounds each refinement. Maximize must be true.
	LocalSearchOptions SearchOptions

	// Initialization builds the first population. Defaults to
	// InitializeWith(IndividualFactory).
	Initialization    InitializationOperator[S]
	IndividualFactory IndividualFactory[S]

	// Objective drives the local search. Without a custom Evaluation it is
	// also the population's fitness, and searched individuals keep the score
	// the search computed.
	Objective    Fitness[S]
	Neighborhood Neighborhood[S]
}

// Validate checks the memetic-specific fields on top of the evolutionary ones.
func (c MemeticConfig[S]) Validate() error {
	if err := c.EvolutionaryConfig.Validate(); err != nil {
		return err
	}
	if c.LocalSearchRate < 0 || c.LocalSearchRate > 1 {
		return &ConfigError{Field: "LocalSearchRate", Reason: "must be in [0,1]"}
	}
	if c.Objective == nil {
		return &ConfigError{Field: "Objective", Reason: "cannot be nil"}
	}
	if c.Initialization == nil && c.IndividualFactory == nil {
		return &ConfigError{Field: "Initialization", Reason: "requires an operator or an IndividualFactory"}
	}
	if c.LocalSearchRate > 0 {
		if c.Neighborhood == nil {
			return &ConfigError{Field: "Neighborhood", Reason: "cannot be nil when LocalSearchRate > 0"}
		}
		if c.LocalSearchOptions.MaxIterations <= 0 {
			return &ConfigError{Field: "LocalSearchOptions.MaxIterations", Reason: "must be positive"}
		}
		if !c.LocalSearchOptions.Maximize {
			return &ConfigError{Field: "LocalSearchOptions.Maximize", Reason: "must be true, evolution maximizes fitness"}
		}
	}
	return nil
}

// MemeticAlgorithm is a GeneticAlgorithm with Lamarckian local refinement:
// refined individuals replace the originals in the population, so their
// improvements are inherited by later offspring.
type MemeticAlgorithm[S any] struct {
	*GeneticAlgorithm[S]

	cfg         MemeticConfig[S]
	ls          *LocalSearch[S]
	refinements int
}

// NewMemeticAlgorithm validates cfg, builds the initial population and
// returns an algorithm ready to Step or Evolve.
//
// The initial population is drawn from its own random source seeded with
// cfg.Seed, so a memetic run with LocalSearchRate 0 replays exactly the
// genetic run over the same initial population.
func NewMemeticAlgorithm[S any](cfg MemeticConfig[S]) (*MemeticAlgorithm[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	init := cfg.Initialization
	if init == nil {
		init = InitializeWith(cfg.IndividualFactory)
	}
	population, err := init(cfg.PopulationSize, newRand(cfg.Seed))
	if err != nil {
		return nil, err
	}

	ga, err := NewGeneticAlgorithm(population, cfg.Objective, cfg.GeneticConfig)
	if err != nil {
		return nil, err
	}

	m := &MemeticAlgorithm[S]{
		GeneticAlgorithm: ga,
		cfg:              cfg,
		ls:               NewLocalSearch[S](ga.logger),
	}
	ga.refine = m.refineGeneration
	return m, nil
}

// Refinements returns how many local searches changed an individual so far.
func (m *MemeticAlgorithm[S]) Refinements() int {
	return m.refinements
}

// refineGeneration runs the local search on a random subset of population.
// Searched individuals take the search's fitness as their score unless a
// custom Evaluation is configured, which may score differently from
// Objective; then refined individuals are left for it to score.
func (m *MemeticAlgorithm[S]) refineGeneration(ctx context.Context, population []S, scores []float64, scored []bool, rng *rand.Rand) error {
	if m.cfg.LocalSearchRate == 0 {
		return nil
	}

	for i := range population {
		if rng.Float64() >= m.cfg.LocalSearchRate {
			continue
		}
		res, err := m.ls.Search(ctx, population[i], m.cfg.Objective, m.cfg.Neighborhood, m.cfg.LocalSearchOptions)
		if err != nil {
			return err
		}
		if res.Iterations > 0 {
			population[i] = res.Solution
			m.refinements++
		}
		switch {
		case m.cfg.Evaluation == nil:
			scores[i], scored[i] = res.Fitness, true
		case res.Iterations > 0:
			scored[i] = false
		}
	}
	return nil
}
