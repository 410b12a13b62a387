package opt

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bits = 24

type bitstring []bool

func oneMax(b bitstring) (float64, error) {
	n := 0
	for _, v := range b {
		if v {
			n++
		}
	}
	return float64(n), nil
}

func randomBits(rng *rand.Rand) (bitstring, error) {
	b := make(bitstring, bits)
	for i := range b {
		b[i] = rng.Intn(4) == 0
	}
	return b, nil
}

func onePointCrossover(a, b bitstring, rng *rand.Rand) (bitstring, bitstring, error) {
	cut := rng.Intn(len(a))
	c1 := append(append(bitstring{}, a[:cut]...), b[cut:]...)
	c2 := append(append(bitstring{}, b[:cut]...), a[cut:]...)
	return c1, c2, nil
}

func flipOne(b bitstring, rng *rand.Rand) (bitstring, error) {
	c := append(bitstring{}, b...)
	i := rng.Intn(len(c))
	c[i] = !c[i]
	return c, nil
}

func randomPopulation(t *testing.T, size int, seed int64) []bitstring {
	t.Helper()
	pop, err := InitializeWith(randomBits)(size, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return pop
}

func testGeneticConfig() GeneticConfig[bitstring] {
	return GeneticConfig[bitstring]{
		EvolutionaryConfig: EvolutionaryConfig{
			PopulationSize: 30,
			MaxGenerations: 40,
			MutationRate:   0.2,
			CrossoverRate:  0.8,
			Elitism:        2,
			Seed:           11,
		},
		Crossover: onePointCrossover,
		Mutation:  flipOne,
	}
}

func TestGeneticAlgorithm_BestEverNeverDecreases(t *testing.T) {
	cfg := testGeneticConfig()
	cfg.Elitism = 0
	cfg.MutationRate = 0.9

	var events []ProgressEvent
	cfg.Observer = func(ev ProgressEvent) { events = append(events, ev) }

	ga, err := NewGeneticAlgorithm(randomPopulation(t, cfg.PopulationSize, 1), oneMax, cfg)
	require.NoError(t, err)

	res, err := ga.Evolve(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, events, cfg.MaxGenerations+1)
	for i, ev := range events {
		assert.Equal(t, i, ev.Iteration)
		assert.GreaterOrEqual(t, ev.BestFitness, ev.Fitness)
		if i > 0 {
			assert.GreaterOrEqual(t, ev.BestFitness, events[i-1].BestFitness)
		}
	}

	assert.Equal(t, cfg.MaxGenerations, res.Iterations)
	assert.Equal(t, TerminationBudget, res.Termination)
	assert.Equal(t, StateExhausted, ga.State())
	assert.Equal(t, events[len(events)-1].BestFitness, res.Fitness)

	f, _ := oneMax(res.Solution)
	assert.Equal(t, res.Fitness, f)
}

func TestGeneticAlgorithm_ElitesCarriedUnchanged(t *testing.T) {
	cfg := testGeneticConfig()
	cfg.Elitism = 4
	cfg.MutationRate = 1

	ga, err := NewGeneticAlgorithm(randomPopulation(t, cfg.PopulationSize, 2), oneMax, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ga.Step(ctx))

	for gen := 0; gen < 5; gen++ {
		before := ga.Population()
		elites := ga.rank()[:cfg.Elitism]

		require.NoError(t, ga.Step(ctx))
		after := ga.Population()

		for k, idx := range elites {
			assert.Equal(t, before[idx], after[k], "generation %d elite %d", ga.Generation(), k)
		}
		assert.Len(t, after, cfg.PopulationSize)
	}
}

func TestGeneticAlgorithm_ClonesAreNotReevaluated(t *testing.T) {
	cfg := testGeneticConfig()
	cfg.MutationRate = 0
	cfg.CrossoverRate = 0
	cfg.MaxGenerations = 5

	calls := 0
	counting := func(b bitstring) (float64, error) {
		calls++
		return oneMax(b)
	}

	ga, err := NewGeneticAlgorithm(randomPopulation(t, cfg.PopulationSize, 3), counting, cfg)
	require.NoError(t, err)

	_, err = ga.Evolve(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, cfg.PopulationSize, calls)
}

func TestGeneticAlgorithm_Deterministic(t *testing.T) {
	run := func() Result[bitstring] {
		ga, err := NewGeneticAlgorithm(randomPopulation(t, 30, 4), oneMax, testGeneticConfig())
		require.NoError(t, err)
		res, err := ga.Evolve(context.Background(), 0)
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.Solution, b.Solution)
	assert.Equal(t, a.Fitness, b.Fitness)
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestGeneticAlgorithm_TargetReached(t *testing.T) {
	cfg := testGeneticConfig()
	cfg.MaxGenerations = 500
	target := 18.0
	cfg.Target = &target

	ga, err := NewGeneticAlgorithm(randomPopulation(t, cfg.PopulationSize, 5), oneMax, cfg)
	require.NoError(t, err)

	res, err := ga.Evolve(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, StateConverged, ga.State())
	assert.Equal(t, TerminationTarget, res.Termination)
	assert.GreaterOrEqual(t, res.Fitness, target)
	assert.Less(t, res.Iterations, cfg.MaxGenerations)
}

func TestGeneticAlgorithm_Convergence(t *testing.T) {
	cfg := testGeneticConfig()
	cfg.MaxGenerations = 1000
	cfg.Convergence = ConvergenceConfig{Enabled: true, Patience: 3, Threshold: 0}

	flat := func(bitstring) (float64, error) { return 1, nil }
	ga, err := NewGeneticAlgorithm(randomPopulation(t, cfg.PopulationSize, 6), flat, cfg)
	require.NoError(t, err)

	res, err := ga.Evolve(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, TerminationConverged, res.Termination)
	assert.Equal(t, 3, res.Iterations)
}

func TestGeneticAlgorithm_SteppedEvolution(t *testing.T) {
	cfg := testGeneticConfig()
	cfg.MaxGenerations = 5

	ga, err := NewGeneticAlgorithm(randomPopulation(t, cfg.PopulationSize, 7), oneMax, cfg)
	require.NoError(t, err)
	assert.Equal(t, StateInitialized, ga.State())

	ctx := context.Background()
	res, err := ga.Evolve(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, ga.Generation())
	assert.Equal(t, StateEvolving, ga.State())
	assert.Empty(t, res.Termination)

	_, err = ga.Evolve(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, ga.Generation())

	assert.ErrorIs(t, ga.Step(ctx), ErrTerminal)
}

func TestGeneticAlgorithm_OperatorErrorKeepsGeneration(t *testing.T) {
	cfg := testGeneticConfig()
	cfg.MutationRate = 1

	fail := false
	cfg.Mutation = func(b bitstring, rng *rand.Rand) (bitstring, error) {
		if fail {
			return nil, errBoom
		}
		return flipOne(b, rng)
	}

	ga, err := NewGeneticAlgorithm(randomPopulation(t, cfg.PopulationSize, 8), oneMax, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ga.Step(ctx))
	before := ga.Population()

	fail = true
	_, err = ga.Evolve(ctx, 0)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, ga.Generation())
	assert.Equal(t, before, ga.Population())
}

func TestGeneticAlgorithm_CancelledBeforeEvaluation(t *testing.T) {
	ga, err := NewGeneticAlgorithm(randomPopulation(t, 30, 1), oneMax, testGeneticConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := ga.Evolve(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, TerminationCancelled, res.Termination)
	assert.Nil(t, res.Solution)
	assert.Zero(t, res.Iterations)
	assert.False(t, ga.Evaluated())
	assert.Equal(t, StateInitialized, ga.State())
}

func TestGeneticAlgorithm_CancelledKeepsBestEver(t *testing.T) {
	ga, err := NewGeneticAlgorithm(randomPopulation(t, 30, 1), oneMax, testGeneticConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, ga.Step(ctx))
	cancel()

	res, err := ga.Evolve(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, ga.Evaluated())
	assert.Equal(t, TerminationCancelled, res.Termination)
	assert.Equal(t, 1, res.Iterations)

	best, fitness := ga.Best()
	assert.Equal(t, best, res.Solution)
	assert.Equal(t, fitness, res.Fitness)
	f, _ := oneMax(res.Solution)
	assert.Equal(t, f, res.Fitness)
}

func TestGeneticAlgorithm_InvalidConfig(t *testing.T) {
	pop := randomPopulation(t, 30, 9)

	tests := []struct {
		name   string
		mutate func(*GeneticConfig[bitstring])
		field  string
	}{
		{"zero population", func(c *GeneticConfig[bitstring]) { c.PopulationSize = 0 }, "PopulationSize"},
		{"zero generations", func(c *GeneticConfig[bitstring]) { c.MaxGenerations = 0 }, "MaxGenerations"},
		{"mutation rate", func(c *GeneticConfig[bitstring]) { c.MutationRate = 1.5 }, "MutationRate"},
		{"crossover rate", func(c *GeneticConfig[bitstring]) { c.CrossoverRate = -0.1 }, "CrossoverRate"},
		{"elitism too large", func(c *GeneticConfig[bitstring]) { c.Elitism = 30 }, "Elitism"},
		{"negative elitism", func(c *GeneticConfig[bitstring]) { c.Elitism = -1 }, "Elitism"},
		{"population mismatch", func(c *GeneticConfig[bitstring]) { c.PopulationSize = 31; c.Elitism = 0 }, "InitialPopulation"},
		{"missing crossover", func(c *GeneticConfig[bitstring]) { c.Crossover = nil }, "Crossover"},
		{"missing mutation", func(c *GeneticConfig[bitstring]) { c.Mutation = nil }, "Mutation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testGeneticConfig()
			tt.mutate(&cfg)

			_, err := NewGeneticAlgorithm(pop, oneMax, cfg)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestTournamentSelection_PrefersFitter(t *testing.T) {
	pop := []int{0, 1, 2, 3}
	scores := []float64{1, 5, 3, 2}
	rng := rand.New(rand.NewSource(1))
	selectParent := TournamentSelection[int](4)

	wins := 0
	for i := 0; i < 200; i++ {
		idx, err := selectParent(pop, scores, rng)
		require.NoError(t, err)
		if idx == 1 {
			wins++
		}
	}
	assert.Greater(t, wins, 100)

	_, err := selectParent(pop, scores[:2], rng)
	assert.Error(t, err)
}

func TestEvaluateConcurrently_PreservesOrder(t *testing.T) {
	pop := make([]int, 100)
	for i := range pop {
		pop[i] = i
	}
	square := func(x int) (float64, error) { return float64(x * x), nil }

	scores, err := EvaluateConcurrently(square, 4)(pop)
	require.NoError(t, err)
	for i, s := range scores {
		assert.Equal(t, float64(i*i), s)
	}

	failing := func(x int) (float64, error) {
		if x == 50 {
			return 0, errBoom
		}
		return 0, nil
	}
	_, err = EvaluateConcurrently(failing, 4)(pop)
	assert.ErrorIs(t, err, errBoom)
}
