package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/tycho/internal/store"
)

var (
	runsDataDir   string
	runsStoreKind string
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage recorded runs",
	Long: `Manage recorded optimization runs including listing, inspecting and
cleaning old runs. Runs are recorded by "run --save" and by the server.`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded runs",
	Long:  `Display all runs with metadata including run ID, age, problem, algorithm, objective and trace size.`,
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old runs",
	Long: `Delete old runs based on retention policy.
You can specify how many runs to keep or delete runs older than N days.`,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(showRunCmd)
	runsCmd.AddCommand(cleanRunsCmd)

	// Global flags for runs command
	runsCmd.PersistentFlags().StringVar(&runsDataDir, "data-dir", "./data", "Base directory for run storage")
	runsCmd.PersistentFlags().StringVar(&runsStoreKind, "store", "fs", "Run store: fs or sql")

	// Clean command flags
	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the last N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

// openStore opens the run store of the given kind below dir. The returned
// func releases it.
func openStore(kind, dir string) (store.Store, func(), error) {
	switch kind {
	case "fs":
		s, err := store.NewFSStore(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create run store: %w", err)
		}
		return s, func() {}, nil
	case "sql":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		s, err := store.NewSQLStore(filepath.Join(dir, "runs.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("Failed to close run store", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (fs, sql)", kind)
	}
}

func runListRuns(cmd *cobra.Command, args []string) error {
	runStore, closeStore, err := openStore(runsStoreKind, runsDataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	// Display runs in a table
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tRECORDED\tSTATE\tPROBLEM\tALGORITHM\tOBJECTIVE\tITERATIONS\tTIME\tSIZE")
	fmt.Fprintln(w, "------\t--------\t-----\t-------\t---------\t---------\t----------\t----\t----")

	for _, info := range infos {
		// Trace files live next to file-stored runs regardless of store kind
		sizeStr := "-"
		if size, err := getDirSize(filepath.Join(runsDataDir, "jobs", info.ID)); err == nil && size > 0 {
			sizeStr = humanize.Bytes(uint64(size))
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.4f\t%s\t%s\t%s\n",
			shortID(info.ID),
			humanize.Time(info.CreatedAt),
			info.State,
			info.Problem,
			info.Algorithm,
			info.Objective,
			humanize.Comma(int64(info.Iterations)),
			info.ExecutionTime.Round(time.Millisecond),
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal runs: %d\n", len(infos))
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runStore, closeStore, err := openStore(runsStoreKind, runsDataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	run, err := runStore.LoadRun(args[0])
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	fmt.Printf("Run: %s (%s, recorded %s)\n", run.ID, run.State, humanize.Time(run.CreatedAt))
	cfg, err := json.MarshalIndent(run.Config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	fmt.Printf("Config: %s\n", cfg)
	if run.Error != "" {
		fmt.Printf("Error: %s\n", run.Error)
		return nil
	}
	printOutcome(&run.Outcome)
	return nil
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	// Validate flags
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	runStore, closeStore, err := openStore(runsStoreKind, runsDataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs to clean.")
		return nil
	}

	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No runs match deletion criteria.")
		return nil
	}

	// Show what will be deleted
	fmt.Printf("Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s %s, %s)\n",
			shortID(info.ID),
			info.Problem,
			info.Algorithm,
			humanize.Time(info.CreatedAt),
		)
	}

	// Ask for confirmation unless --force is set
	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := runStore.DeleteRun(info.ID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.ID, "error", err)
			failed++
			continue
		}
		if err := store.DeleteTrace(runsDataDir, info.ID); err != nil {
			slog.Warn("Failed to delete trace", "run_id", info.ID, "error", err)
		}
		slog.Info("Deleted run", "run_id", info.ID)
		deleted++
	}

	fmt.Printf("\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion determines which runs should be deleted based on retention policy
func selectRunsForDeletion(infos []store.RunInfo, keepLast int, olderThanDays int) []store.RunInfo {
	var toDelete []store.RunInfo
	selected := make(map[string]bool)

	// Apply age-based deletion
	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.CreatedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	// Apply count-based deletion: keep the newest keepLast runs
	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.RunInfo, len(infos))
		copy(sorted, infos)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})

		for _, info := range sorted[keepLast:] {
			if !selected[info.ID] {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
