package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

// jobStatus mirrors the fields of the server's job responses that are shown.
type jobStatus struct {
	ID               string     `json:"id"`
	State            string     `json:"state"`
	Config           jobConfig  `json:"config"`
	Fitness          float64    `json:"fitness"`
	Objective        float64    `json:"objective"`
	InitialObjective float64    `json:"initialObjective"`
	Iterations       int        `json:"iterations"`
	Solution         string     `json:"solution"`
	Termination      string     `json:"termination"`
	Elapsed          float64    `json:"elapsed"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          *time.Time `json:"endTime"`
	Error            string     `json:"error"`
}

type jobConfig struct {
	Problem   string `json:"problem"`
	Algorithm string `json:"algorithm"`
	Iters     int    `json:"iters"`
	PopSize   int    `json:"popSize"`
	Seed      int64  `json:"seed"`
}

func fetchJSON(url string, v interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var errJobNotFound = errors.New("job not found")

func listJobs(url string) error {
	var jobs []jobStatus
	if err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job.ID)
		fmt.Printf("  State: %s (started %s)\n", job.State, humanize.Time(job.StartTime))
		fmt.Printf("  Problem: %s with %s\n", job.Config.Problem, job.Config.Algorithm)
		if job.Solution != "" {
			fmt.Printf("  Objective: %.4f -> %.4f\n", job.InitialObjective, job.Objective)
		} else if job.Iterations > 0 {
			fmt.Printf("  Iterations: %d, fitness %.4f\n", job.Iterations, job.Fitness)
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	var status jobStatus
	if err := fetchJSON(url, &status); err != nil {
		if errors.Is(err, errJobNotFound) {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return err
	}

	// Display status
	fmt.Printf("Job: %s\n", status.ID)
	fmt.Printf("State: %s\n", status.State)
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  Problem: %s\n", status.Config.Problem)
	fmt.Printf("  Algorithm: %s\n", status.Config.Algorithm)
	fmt.Printf("  Iterations: %d\n", status.Config.Iters)
	if status.Config.PopSize > 0 {
		fmt.Printf("  Population: %d\n", status.Config.PopSize)
	}
	fmt.Printf("  Seed: %d\n", status.Config.Seed)
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Iterations: %d\n", status.Iterations)
	if status.Solution != "" {
		fmt.Printf("  Initial Objective: %.4f\n", status.InitialObjective)
		fmt.Printf("  Best Objective: %.4f\n", status.Objective)
		fmt.Printf("  Termination: %s\n", status.Termination)
	} else {
		fmt.Printf("  Fitness: %.4f\n", status.Fitness)
	}

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if status.Error != "" {
		fmt.Printf("\nError: %s\n", status.Error)
	}
	if status.Solution != "" {
		fmt.Printf("\nSolution:\n%s\n", status.Solution)
	}

	return nil
}
