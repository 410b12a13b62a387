package opt

import (
	"fmt"
	"math/rand"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultTournamentSize is the number of contestants sampled by
// TournamentSelection when no size is configured.
const DefaultTournamentSize = 3

// IndividualFactory creates one random individual.
type IndividualFactory[S any] func(rng *rand.Rand) (S, error)

// InitializationOperator produces an initial population of the given size.
type InitializationOperator[S any] func(size int, rng *rand.Rand) ([]S, error)

// EvaluationOperator scores a whole population. The returned slice is aligned
// with the input.
type EvaluationOperator[S any] func(population []S) ([]float64, error)

// SelectionOperator picks a parent and returns its index in population.
type SelectionOperator[S any] func(population []S, scores []float64, rng *rand.Rand) (int, error)

// CrossoverOperator combines two parents into two offspring. The offspring
// must not alias either parent.
type CrossoverOperator[S any] func(a, b S, rng *rand.Rand) (S, S, error)

// MutationOperator returns a perturbed copy of s.
type MutationOperator[S any] func(s S, rng *rand.Rand) (S, error)

// InitializeWith builds a population by calling factory size times.
func InitializeWith[S any](factory IndividualFactory[S]) InitializationOperator[S] {
	return func(size int, rng *rand.Rand) ([]S, error) {
		pop := make([]S, size)
		for i := range pop {
			ind, err := factory(rng)
			if err != nil {
				return nil, err
			}
			pop[i] = ind
		}
		return pop, nil
	}
}

// EvaluateWith scores each individual sequentially with fitness.
func EvaluateWith[S any](fitness Fitness[S]) EvaluationOperator[S] {
	return func(population []S) ([]float64, error) {
		scores := make([]float64, len(population))
		for i, ind := range population {
			f, err := fitness(ind)
			if err != nil {
				return nil, err
			}
			scores[i] = f
		}
		return scores, nil
	}
}

// EvaluateConcurrently scores individuals on a bounded goroutine pool.
// fitness must be safe for concurrent use. workers <= 0 uses GOMAXPROCS.
// The first error encountered (by index) is returned.
func EvaluateConcurrently[S any](fitness Fitness[S], workers int) EvaluationOperator[S] {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return func(population []S) ([]float64, error) {
		scores := make([]float64, len(population))
		errs := make([]error, len(population))

		p := pool.New().WithMaxGoroutines(workers)
		for i := range population {
				p.Go(func() {
				scores[i], errs[i] = fitness(population[i])
			})
		}
		p.Wait()

		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		return scores, nil
	}
}

// TournamentSelection samples k individuals uniformly (with replacement) and
// returns the fittest. The first sampled contestant wins ties.
func TournamentSelection[S any](k int) SelectionOperator[S] {
	if k <= 0 {
		k = DefaultTournamentSize
	}
	return func(population []S, scores []float64, rng *rand.Rand) (int, error) {
		if len(population) == 0 || len(scores) != len(population) {
			return 0, fmt.Errorf("tournament selection: %d individuals, %d scores", len(population), len(scores))
		}
		best := rng.Intn(len(population))
		for i := 1; i < k; i++ {
			c := rng.Intn(len(population))
			if scores[c] > scores[best] {
				best = c
			}
		}
		return best, nil
	}
}
