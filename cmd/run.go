package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/problem/tsp"
	"github.com/cwbudde/tycho/internal/runner"
	"github.com/cwbudde/tycho/internal/store"
)

var (
	runConfig runner.Config
	problem   string
	algorithm string
	metric    string
	target    float64
	outPath   string
	saveRun   bool
	dataDir   string
	storeKind string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run single-shot optimization",
	Long: `Solves one built-in problem with the chosen algorithm and prints the best
solution found. Interrupting the run prints the best solution so far.`,
	Example: `  tycho run --problem sudoku
  tycho run --problem tsp --algo parallel --cities 40 --restarts 8
  tycho run --problem rastrigin --algo genetic --dim 5 --iters 500 --save`,
	RunE: runOptimization,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&problem, "problem", "", "Problem: "+joinNames(runner.Problems()))
	f.StringVar(&algorithm, "algo", "", "Algorithm: "+joinNames(runner.Algorithms())+" (default depends on problem)")
	f.IntVar(&runConfig.Iters, "iters", 0, "Max accepted moves, generations or swarm iterations (0 = default)")
	f.IntVar(&runConfig.PopSize, "pop", 0, "Population size (0 = default)")
	f.Int64Var(&runConfig.Seed, "seed", 42, "Random seed")
	f.IntVar(&runConfig.Workers, "workers", 0, "Concurrent trajectories and evaluations (0 = GOMAXPROCS)")
	f.IntVar(&runConfig.Restarts, "restarts", 0, "Parallel local search starts (0 = default)")
	f.Float64Var(&runConfig.MutationRate, "mutation", 0, "Mutation rate (0 = default)")
	f.Float64Var(&runConfig.CrossoverRate, "crossover", 0, "Crossover rate (0 = default)")
	f.IntVar(&runConfig.Elitism, "elitism", 0, "Elites carried per generation (0 = default)")
	f.Float64Var(&runConfig.LocalSearchRate, "ls-rate", 0, "Memetic refinement rate (0 = default)")
	f.IntVar(&runConfig.LocalSearchIters, "ls-iters", 0, "Memetic refinement move budget (0 = default)")
	f.IntVar(&runConfig.Patience, "patience", 0, "Stop evolution after N stale generations (0 = off)")
	f.Float64Var(&target, "target", 0, "Stop evolution once the objective reaches this value")
	f.IntVar(&runConfig.Cities, "cities", 0, "TSP: number of cities (0 = default)")
	f.StringVar(&runConfig.CitySet, "city-set", "", "TSP: spain or random")
	f.StringVar(&metric, "metric", "", "TSP: euclidean or haversine")
	f.StringVar(&runConfig.Neighborhood, "neighborhood", "", "TSP: swap or 2opt")
	f.StringVar(&runConfig.Puzzle, "puzzle", "", "Sudoku: 81 cells, digits or '.' for blanks")
	f.IntVar(&runConfig.Dim, "dim", 0, "Continuous: dimensions (0 = default)")
	f.Float64Var(&runConfig.Step, "step", 0, "Continuous: local search step size (0 = default)")
	f.StringVar(&outPath, "out", "", "Write the outcome as JSON to this path")
	f.BoolVar(&saveRun, "save", false, "Record the run in the run store")
	f.StringVar(&dataDir, "data-dir", "./data", "Base directory for run storage")
	f.StringVar(&storeKind, "store", "fs", "Run store: fs or sql")

	runCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(runCmd)
}

func joinNames[T ~string](names []T) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// buildConfig assembles the run configuration from the parsed flags.
func buildConfig(cmd *cobra.Command) runner.Config {
	cfg := runConfig
	cfg.Problem = runner.Problem(problem)
	cfg.Algorithm = runner.Algorithm(algorithm)
	cfg.Metric = tsp.Metric(metric)
	if cmd != nil && cmd.Flags().Changed("target") {
		t := target
		cfg.Target = &t
	}
	return cfg
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg := buildConfig(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	observe := func(ev opt.ProgressEvent) {
		slog.Debug("Progress",
			"trajectory", ev.Trajectory,
			"iteration", ev.Iteration,
			"fitness", ev.Fitness,
			"best_fitness", ev.BestFitness,
		)
	}

	outcome, runErr := runner.Run(ctx, cfg, observe, slog.Default())
	if outcome == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if saveRun {
		runStore, closeStore, err := openStore(storeKind, dataDir)
		if err != nil {
			return err
		}
		defer closeStore()

		run := store.NewRun(uuid.New().String(), cfg, outcome, runErr)
		if err := runStore.SaveRun(run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		slog.Info("Run recorded", "run_id", run.ID, "store", storeKind)
	}

	if outPath != "" {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize outcome: %w", err)
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write outcome: %w", err)
		}
	}

	printOutcome(outcome)
	return nil
}

func printOutcome(o *runner.Outcome) {
	fmt.Printf("%s solved with %s (%s after %d iterations, %s)\n",
		o.Problem, o.Algorithm, o.Termination, o.Iterations, o.ExecutionTime.Round(time.Millisecond))
	fmt.Printf("Objective: %.4f -> %.4f\n", o.InitialObjective, o.Objective)
	for _, t := range o.Trajectories {
		line := fmt.Sprintf("  trajectory %d: %.4f (%s, %d moves)", t.Index, t.Objective, t.Termination, t.Iterations)
		if t.Error != "" {
			line += " error: " + t.Error
		}
		fmt.Println(line)
	}
	fmt.Println(o.Solution)
}
