package sudoku

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/tycho/internal/opt"
)

const solution = `
534 678 912
672 195 348
198 342 567
859 761 423
426 853 791
713 924 856
961 537 284
287 419 635
345 286 179
`

func TestFitness_Solved(t *testing.T) {
	g, err := Parse(solution)
	require.NoError(t, err)

	f, err := Fitness(g)
	require.NoError(t, err)
	assert.Equal(t, float64(MaxFitness), f)
	assert.True(t, IsSolved(g))
	assert.True(t, DefaultPuzzle().Respects(g))
}

func TestFitness_CountsConflicts(t *testing.T) {
	g, err := Parse(solution)
	require.NoError(t, err)

	// Swapping two cells of a row keeps the row intact and breaks two
	// columns and, across boxes, two boxes.
	g[0][0], g[0][8] = g[0][8], g[0][0]
	f, _ := Fitness(g)
	assert.Less(t, f, float64(MaxFitness))
	assert.False(t, IsSolved(g))

	assert.False(t, IsSolved(DefaultPuzzle().Clues()))
}

func TestParse(t *testing.T) {
	g, err := Parse(DefaultPuzzle().Clues().String())
	require.NoError(t, err)
	assert.Equal(t, DefaultPuzzle().Clues(), g)

	_, err = Parse("123")
	assert.Error(t, err)
	_, err = Parse(solution + "1")
	assert.Error(t, err)
	_, err = Parse("x" + solution)
	assert.Error(t, err)
}

func TestNewPuzzle_RejectsOutOfRange(t *testing.T) {
	var g Grid
	g[4][4] = 10
	_, err := NewPuzzle(g)
	assert.Error(t, err)
}

func TestNeighborhood_OnlyChangesFreeCells(t *testing.T) {
	p := DefaultPuzzle()
	g, err := p.NewIndividual(rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	neighbors, err := p.Neighborhood(g)
	require.NoError(t, err)
	assert.Len(t, neighbors, p.Free()*(Size-1))

	for _, n := range neighbors {
		require.True(t, p.Respects(n))
		diff := 0
		for r := 0; r < Size; r++ {
			for c := 0; c < Size; c++ {
				if n[r][c] != g[r][c] {
					diff++
				}
			}
		}
		require.Equal(t, 1, diff)
	}
}

func TestVariationKeepsClues(t *testing.T) {
	p := DefaultPuzzle()
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 100; i++ {
		a, _ := p.NewIndividual(rng)
		b, _ := p.NewIndividual(rng)

		c1, c2, err := p.Crossover(a, b, rng)
		require.NoError(t, err)
		m, err := p.Mutate(c1, rng)
		require.NoError(t, err)

		assert.True(t, p.Respects(c1))
		assert.True(t, p.Respects(c2))
		assert.True(t, p.Respects(m))
	}
}

func TestLocalSearch_FitnessBounded(t *testing.T) {
	p := DefaultPuzzle()
	initial, _ := p.NewIndividual(rand.New(rand.NewSource(3)))
	start, _ := Fitness(initial)

	last := start
	res, err := opt.NewLocalSearch[Grid](nil).Search(context.Background(), initial, Fitness, p.Neighborhood, opt.SearchOptions{
		MaxIterations: 200,
		Maximize:      true,
		OnClimb: func(ev opt.ProgressEvent) {
			assert.LessOrEqual(t, ev.Fitness, float64(MaxFitness))
			assert.Greater(t, ev.Fitness, last)
			last = ev.Fitness
		},
	})
	require.NoError(t, err)

	assert.Greater(t, res.Fitness, start)
	assert.True(t, p.Respects(res.Solution))
}

func TestMemetic_Improves(t *testing.T) {
	p := DefaultPuzzle()
	ma, err := opt.NewMemeticAlgorithm(opt.MemeticConfig[Grid]{
		GeneticConfig: opt.GeneticConfig[Grid]{
			EvolutionaryConfig: opt.EvolutionaryConfig{
				PopulationSize: 20,
				MaxGenerations: 10,
				MutationRate:   0.2,
				CrossoverRate:  0.7,
				Elitism:        1,
				Seed:           4,
			},
			Crossover: p.Crossover,
			Mutation:  p.Mutate,
		},
		LocalSearchRate:    0.3,
		LocalSearchOptions: opt.SearchOptions{MaxIterations: 5, Maximize: true},
		IndividualFactory:  p.NewIndividual,
		Objective:          Fitness,
		Neighborhood:       p.Neighborhood,
	})
	require.NoError(t, err)

	initial := 0.0
	for _, g := range ma.Population() {
		f, _ := Fitness(g)
		if f > initial {
			initial = f
		}
	}

	res, err := ma.Evolve(context.Background(), 0)
	require.NoError(t, err)

	assert.Greater(t, res.Fitness, initial)
	assert.LessOrEqual(t, res.Fitness, float64(MaxFitness))
	assert.True(t, p.Respects(res.Solution))
}
