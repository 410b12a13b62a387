package opt

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// peak is maximized at x = 10.
func peak(x int) (float64, error) {
	d := float64(x - 10)
	return -d * d, nil
}

// bowl is minimized at x = 3.
func bowl(x int) (float64, error) {
	d := float64(x - 3)
	return d * d, nil
}

func steps(x int) ([]int, error) {
	return []int{x - 1, x + 1}, nil
}

func TestLocalSearch_ClimbsToOptimum(t *testing.T) {
	var events []ProgressEvent
	ls := NewLocalSearch[int](nil)

	res, err := ls.Search(context.Background(), 0, peak, steps, SearchOptions{
		MaxIterations: 100,
		Maximize:      true,
		OnClimb:       func(ev ProgressEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)

	assert.Equal(t, 10, res.Solution)
	assert.Equal(t, 0.0, res.Fitness)
	assert.Equal(t, 10, res.Iterations)
	assert.Equal(t, TerminationLocalOptimum, res.Termination)

	require.Len(t, events, 10)
	for i, ev := range events {
		assert.Equal(t, i+1, ev.Iteration)
		if i > 0 {
			assert.Greater(t, ev.Fitness, events[i-1].Fitness)
		}
	}
}

func TestLocalSearch_Minimize(t *testing.T) {
	res, err := NewLocalSearch[int](nil).Search(context.Background(), -8, bowl, steps, SearchOptions{MaxIterations: 100})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Solution)
	assert.Equal(t, 0.0, res.Fitness)
	assert.Equal(t, 11, res.Iterations)
}

func TestLocalSearch_IterationBudget(t *testing.T) {
	res, err := NewLocalSearch[int](nil).Search(context.Background(), 0, peak, steps, SearchOptions{MaxIterations: 4, Maximize: true})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Solution)
	assert.Equal(t, 4, res.Iterations)
	assert.Equal(t, TerminationBudget, res.Termination)
}

func TestLocalSearch_EmptyNeighborhood(t *testing.T) {
	none := func(int) ([]int, error) { return nil, nil }

	res, err := NewLocalSearch[int](nil).Search(context.Background(), 5, peak, none, SearchOptions{MaxIterations: 10, Maximize: true})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Solution)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, TerminationNoNeighbors, res.Termination)
}

func TestLocalSearch_RejectsTies(t *testing.T) {
	flat := func(int) (float64, error) { return 1, nil }
	climbs := 0

	res, err := NewLocalSearch[int](nil).Search(context.Background(), 0, flat, steps, SearchOptions{
		MaxIterations: 10,
		Maximize:      true,
		OnClimb:       func(ProgressEvent) { climbs++ },
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Solution)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, TerminationLocalOptimum, res.Termination)
	assert.Zero(t, climbs)
}

func TestLocalSearch_RestartFromOptimumMakesNoMoves(t *testing.T) {
	ls := NewLocalSearch[int](nil)
	opts := SearchOptions{MaxIterations: 100, Maximize: true}

	first, err := ls.Search(context.Background(), -20, peak, steps, opts)
	require.NoError(t, err)
	require.Equal(t, TerminationLocalOptimum, first.Termination)

	second, err := ls.Search(context.Background(), first.Solution, peak, steps, opts)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Iterations)
	assert.Equal(t, first.Solution, second.Solution)
}

func TestLocalSearch_NeverWorseThanInitial(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ls := NewLocalSearch[int](nil)

	for i := 0; i < 50; i++ {
		initial := rng.Intn(200) - 100
		budget := rng.Intn(20) + 1
		initialFitness, _ := peak(initial)

		res, err := ls.Search(context.Background(), initial, peak, steps, SearchOptions{MaxIterations: budget, Maximize: true})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.Fitness, initialFitness)
		assert.LessOrEqual(t, res.Iterations, budget)
	}
}

func TestLocalSearch_OperatorErrorsPropagate(t *testing.T) {
	ls := NewLocalSearch[int](nil)
	opts := SearchOptions{MaxIterations: 10, Maximize: true}

	failingFitness := func(x int) (float64, error) {
		if x == 2 {
			return 0, errBoom
		}
		return peak(x)
	}
	_, err := ls.Search(context.Background(), 0, failingFitness, steps, opts)
	assert.ErrorIs(t, err, errBoom)

	failingNeighbors := func(int) ([]int, error) { return nil, errBoom }
	_, err = ls.Search(context.Background(), 0, peak, failingNeighbors, opts)
	assert.ErrorIs(t, err, errBoom)
}

func TestLocalSearch_InvalidOptions(t *testing.T) {
	ls := NewLocalSearch[int](nil)

	_, err := ls.Search(context.Background(), 0, peak, steps, SearchOptions{MaxIterations: 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ls.Search(context.Background(), 0, nil, steps, SearchOptions{MaxIterations: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	var cfgErr *ConfigError
	_, err = ls.Search(context.Background(), 0, peak, nil, SearchOptions{MaxIterations: 1})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Neighborhood", cfgErr.Field)
}

func TestLocalSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after the third accepted move.
	res, err := NewLocalSearch[int](nil).Search(ctx, 0, peak, steps, SearchOptions{
		MaxIterations: 100,
		Maximize:      true,
		OnClimb: func(ev ProgressEvent) {
			if ev.Iteration == 3 {
				cancel()
			}
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, TerminationCancelled, res.Termination)
	assert.Equal(t, 3, res.Solution)
	assert.Equal(t, 3, res.Iterations)
}

func TestBestOf(t *testing.T) {
	results := []Result[int]{
		{Solution: 1, Fitness: 5},
		{Solution: 2, Fitness: 9, Termination: TerminationFailed},
		{Solution: 3, Fitness: 7},
		{Solution: 4, Fitness: 2},
	}

	assert.Equal(t, 2, BestOf(results, true))
	assert.Equal(t, 3, BestOf(results, false))
	assert.Equal(t, -1, BestOf([]Result[int]{}, true))
}
