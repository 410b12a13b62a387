package runner

import (
	"fmt"
	"strings"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/problem/continuous"
	"github.com/cwbudde/tycho/internal/problem/sudoku"
	"github.com/cwbudde/tycho/internal/problem/tsp"
)

// Problem names a built-in problem.
type Problem string

const (
	ProblemSudoku    Problem = "sudoku"
	ProblemTSP       Problem = "tsp"
	ProblemSphere    Problem = "sphere"
	ProblemRastrigin Problem = "rastrigin"
)

// Algorithm names an optimizer.
type Algorithm string

const (
	AlgorithmLocal    Algorithm = "local"
	AlgorithmParallel Algorithm = "parallel"
	AlgorithmGenetic  Algorithm = "genetic"
	AlgorithmMemetic  Algorithm = "memetic"
	AlgorithmMayfly   Algorithm = "mayfly"
)

// Problems lists the built-in problems.
func Problems() []Problem {
	return []Problem{ProblemSudoku, ProblemTSP, ProblemSphere, ProblemRastrigin}
}

// Algorithms lists the available optimizers.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmLocal, AlgorithmParallel, AlgorithmGenetic, AlgorithmMemetic, AlgorithmMayfly}
}

var defaultAlgorithm = map[Problem]Algorithm{
	ProblemSudoku:    AlgorithmMemetic,
	ProblemTSP:       AlgorithmParallel,
	ProblemSphere:    AlgorithmMayfly,
	ProblemRastrigin: AlgorithmMayfly,
}

// Config describes one optimization run. It is posted as JSON to the server
// and persisted with the run record.
type Config struct {
	Problem   Problem   `json:"problem"`
	Algorithm Algorithm `json:"algorithm"`

	// Iters bounds accepted moves (local, parallel), generations (genetic,
	// memetic) or swarm iterations (mayfly).
	Iters   int   `json:"iters"`
	PopSize int   `json:"popSize,omitempty"`
	Seed    int64 `json:"seed"`

	// Workers bounds concurrent trajectories and fitness evaluations
	// (0 = GOMAXPROCS).
	Workers  int `json:"workers,omitempty"`
	Restarts int `json:"restarts,omitempty"`

	MutationRate     float64  `json:"mutationRate,omitempty"`
	CrossoverRate    float64  `json:"crossoverRate,omitempty"`
	Elitism          int      `json:"elitism,omitempty"`
	LocalSearchRate  float64  `json:"localSearchRate,omitempty"`
	LocalSearchIters int      `json:"localSearchIters,omitempty"`
	Patience         int      `json:"patience,omitempty"`
	Target           *float64 `json:"target,omitempty"`

	// TSP
	Cities       int        `json:"cities,omitempty"`
	CitySet      string     `json:"citySet,omitempty"`
	Metric       tsp.Metric `json:"metric,omitempty"`
	Neighborhood string     `json:"neighborhood,omitempty"`

	// Sudoku, 81 cells in the format accepted by sudoku.Parse.
	Puzzle string `json:"puzzle,omitempty"`

	// Continuous
	Dim  int     `json:"dim,omitempty"`
	Step float64 `json:"step,omitempty"`
}

// Validate fills in defaults for unset fields and rejects invalid values.
func (c *Config) Validate() error {
	c.Problem = Problem(strings.ToLower(string(c.Problem)))
	c.Algorithm = Algorithm(strings.ToLower(string(c.Algorithm)))

	if _, ok := defaultAlgorithm[c.Problem]; !ok {
		return &opt.ConfigError{Field: "problem", Reason: fmt.Sprintf("unknown problem %q", c.Problem)}
	}
	if c.Algorithm == "" {
		c.Algorithm = defaultAlgorithm[c.Problem]
	}

	switch c.Algorithm {
	case AlgorithmLocal, AlgorithmParallel:
		setDefault(&c.Iters, 1000)
		setDefault(&c.Restarts, 4)
	case AlgorithmGenetic, AlgorithmMemetic:
		setDefault(&c.Iters, 100)
		setDefault(&c.PopSize, 100)
		setDefaultRate(&c.MutationRate, 0.2)
		setDefaultRate(&c.CrossoverRate, 0.7)
		setDefault(&c.Elitism, 1)
		if c.Algorithm == AlgorithmMemetic {
			setDefaultRate(&c.LocalSearchRate, 0.3)
			setDefault(&c.LocalSearchIters, 5)
		}
	case AlgorithmMayfly:
		if !c.continuous() {
			return &opt.ConfigError{Field: "algorithm", Reason: "mayfly only solves continuous problems"}
		}
		setDefault(&c.Iters, 100)
		setDefault(&c.PopSize, opt.MinMayflyPopulation)
	default:
		return &opt.ConfigError{Field: "algorithm", Reason: fmt.Sprintf("unknown algorithm %q", c.Algorithm)}
	}

	switch {
	case c.Iters <= 0:
		return &opt.ConfigError{Field: "iters", Reason: "must be positive"}
	case c.Workers < 0:
		return &opt.ConfigError{Field: "workers", Reason: "cannot be negative"}
	case c.Restarts < 0:
		return &opt.ConfigError{Field: "restarts", Reason: "cannot be negative"}
	case c.Patience < 0:
		return &opt.ConfigError{Field: "patience", Reason: "cannot be negative"}
	case c.Algorithm == AlgorithmMayfly && c.PopSize < opt.MinMayflyPopulation:
		return &opt.ConfigError{Field: "popSize", Reason: fmt.Sprintf("must be at least %d for mayfly", opt.MinMayflyPopulation)}
	}

	switch c.Problem {
	case ProblemTSP:
		setDefault(&c.Cities, 30)
		if c.CitySet == "" {
			c.CitySet = "spain"
		}
		if c.Metric == "" {
			c.Metric = tsp.Euclidean
		}
		if c.Neighborhood == "" {
			c.Neighborhood = "swap"
		}
		if c.Cities < 3 {
			return &opt.ConfigError{Field: "cities", Reason: "must be at least 3"}
		}
		if c.CitySet != "spain" && c.CitySet != "random" {
			return &opt.ConfigError{Field: "citySet", Reason: fmt.Sprintf("unknown city set %q (spain, random)", c.CitySet)}
		}
		if c.Metric != tsp.Euclidean && c.Metric != tsp.Haversine {
			return &opt.ConfigError{Field: "metric", Reason: fmt.Sprintf("unknown metric %q", c.Metric)}
		}
		if c.Metric == tsp.Haversine && c.CitySet != "spain" {
			return &opt.ConfigError{Field: "metric", Reason: "haversine requires geographic cities"}
		}
		if c.Neighborhood != "swap" && c.Neighborhood != "2opt" {
			return &opt.ConfigError{Field: "neighborhood", Reason: fmt.Sprintf("unknown neighborhood %q (swap, 2opt)", c.Neighborhood)}
		}
	case ProblemSudoku:
		if c.Puzzle != "" {
			if _, err := sudoku.Parse(c.Puzzle); err != nil {
				return &opt.ConfigError{Field: "puzzle", Reason: err.Error()}
			}
		}
	default:
		setDefault(&c.Dim, 10)
		if c.Step == 0 {
			c.Step = 0.1
		}
		if c.Dim <= 0 {
			return &opt.ConfigError{Field: "dim", Reason: "must be positive"}
		}
		if c.Step < 0 {
			return &opt.ConfigError{Field: "step", Reason: "cannot be negative"}
		}
	}

	return nil
}

func (c *Config) continuous() bool {
	_, err := continuous.Lookup(string(c.Problem))
	return err == nil
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDefaultRate(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}
