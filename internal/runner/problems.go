package runner

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/problem/continuous"
	"github.com/cwbudde/tycho/internal/problem/sudoku"
	"github.com/cwbudde/tycho/internal/problem/tsp"
)

// operators bundles everything the optimizers need for one problem.
type operators[S any] struct {
	// objective is the problem's natural measure, maximized when maximize is
	// set and minimized otherwise.
	objective opt.Fitness[S]
	maximize  bool

	neighborhood opt.Neighborhood[S]
	factory      opt.IndividualFactory[S]
	crossover    opt.CrossoverOperator[S]
	mutation     opt.MutationOperator[S]

	// target is the objective value at which evolution stops. Optional.
	target *float64

	render func(S) string
}

// fitness returns the objective oriented for maximization.
func (o *operators[S]) fitness() opt.Fitness[S] {
	if o.maximize {
		return o.objective
	}
	return func(s S) (float64, error) {
		v, err := o.objective(s)
		return -v, err
	}
}

// toObjective converts a maximized fitness back to the natural objective.
func (o *operators[S]) toObjective(fitness float64) float64 {
	if o.maximize {
		return fitness
	}
	return -fitness
}

// toFitness converts a natural objective to the maximized fitness.
func (o *operators[S]) toFitness(objective float64) float64 {
	if o.maximize {
		return objective
	}
	return -objective
}

// bestObjective returns the best natural objective among candidates.
func (o *operators[S]) bestObjective(candidates []S) (float64, error) {
	_, v, err := o.bestCandidate(candidates)
	return v, err
}

// bestCandidate returns the candidate with the best natural objective.
func (o *operators[S]) bestCandidate(candidates []S) (S, float64, error) {
	var best S
	var bestValue float64
	for i, c := range candidates {
		v, err := o.objective(c)
		if err != nil {
			return best, 0, err
		}
		if i == 0 || (o.maximize && v > bestValue) || (!o.maximize && v < bestValue) {
			best, bestValue = c, v
		}
	}
	return best, bestValue, nil
}

func sudokuOperators(cfg Config) (*operators[sudoku.Grid], error) {
	puzzle := sudoku.DefaultPuzzle()
	if cfg.Puzzle != "" {
		clues, err := sudoku.Parse(cfg.Puzzle)
		if err != nil {
			return nil, fmt.Errorf("failed to parse puzzle: %w", err)
		}
		if puzzle, err = sudoku.NewPuzzle(clues); err != nil {
			return nil, fmt.Errorf("invalid puzzle: %w", err)
		}
	}

	target := float64(sudoku.MaxFitness)
	if cfg.Target != nil {
		target = *cfg.Target
	}
	return &operators[sudoku.Grid]{
		objective:    sudoku.Fitness,
		maximize:     true,
		neighborhood: puzzle.Neighborhood,
		factory:      puzzle.NewIndividual,
		crossover:    puzzle.Crossover,
		mutation:     puzzle.Mutate,
		target:       &target,
		render:       sudoku.Grid.String,
	}, nil
}

func tspOperators(cfg Config) (*operators[tsp.Tour], error) {
	var cities []tsp.City
	if cfg.CitySet == "random" {
		cities = tsp.RandomCities(cfg.Cities, rand.New(rand.NewSource(cfg.Seed)))
	} else {
		cities = tsp.SpainCities(cfg.Cities)
	}
	instance, err := tsp.NewInstance(cities, cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("failed to build tsp instance: %w", err)
	}

	neighborhood := tsp.SwapNeighborhood
	if cfg.Neighborhood == "2opt" {
		neighborhood = tsp.TwoOptNeighborhood
	}

	return &operators[tsp.Tour]{
		objective:    instance.Objective,
		neighborhood: neighborhood,
		factory:      tsp.RandomTour(instance.Len()),
		crossover:    tsp.OrderCrossover,
		mutation:     tsp.SwapMutation,
		target:       cfg.Target,
		render: func(t tsp.Tour) string {
			names := make([]string, 0, len(t)+1)
			for _, c := range t {
				names = append(names, instance.Cities[c].Name)
			}
			if len(t) > 0 {
				names = append(names, instance.Cities[t[0]].Name)
			}
			return strings.Join(names, " -> ")
		},
	}, nil
}

func continuousOperators(cfg Config) (*operators[[]float64], error) {
	fn, err := continuous.Lookup(string(cfg.Problem))
	if err != nil {
		return nil, err
	}
	return &operators[[]float64]{
		objective:    fn.Eval,
		neighborhood: continuous.Neighborhood(cfg.Step, fn.Lower, fn.Upper),
		factory:      continuous.RandomVector(cfg.Dim, fn.Lower, fn.Upper),
		crossover:    continuous.BlendCrossover,
		mutation:     continuous.GaussianMutation((fn.Upper-fn.Lower)/10, fn.Lower, fn.Upper),
		target:       cfg.Target,
		render:       renderVector,
	}, nil
}

func renderVector(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
