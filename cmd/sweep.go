package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/problem"
	"github.com/cwbudde/subspaceopt/internal/sweep"
	"github.com/spf13/cobra"
)

var (
	sweepGrid []string
	sweepDim  int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a hyperparameter grid in parallel",
	Long: `Expands a hyperparameter grid into independent runs and executes them on a
bounded worker pool. Every run gets its own run ID and checkpoints.

The grid is usually read from --config:

  method: rgd
  problem: quadratic
  problem_params: {dim: 200, property: sconvex}
  iterations: 1000
  interval: 100
  seeds: [0, 1, 2]
  params:
    lr: [0.1, 0.5, 1.0]
    reduced_dim: [5, 10, 20]

and can be extended on the command line with --grid key=v1,v2,...`,
	RunE: runSweep,
}

var sweepFlagKeys = map[string]string{
	"method":         "method",
	"problem":        "problem",
	"problem_params": "problem-param",
	"iterations":     "iterations",
	"interval":       "interval",
	"dir":            "data-dir",
	"suffix":         "suffix",
	"max_parallel":   "max-parallel",
}

func init() {
	sweepCmd.Flags().String("method", method.NameGD, "Optimization method")
	sweepCmd.Flags().StringArrayVar(&sweepGrid, "grid", nil, "Hyperparameter values key=v1,v2,... (repeatable)")
	sweepCmd.Flags().String("problem", problem.NameSphere, "Problem")
	sweepCmd.Flags().StringToString("problem-param", nil, "Problem parameter key=value (repeatable)")
	sweepCmd.Flags().IntVar(&sweepDim, "dim", 10, "Problem dimension")
	sweepCmd.Flags().Int("iterations", 100, "Iteration budget per run")
	sweepCmd.Flags().Int("interval", 0, "Checkpoint interval (0 = only at the end)")
	sweepCmd.Flags().String("suffix", "", "Suffix appended to series file names")
	sweepCmd.Flags().Int("max-parallel", 0, "Maximum concurrent runs (0 = GOMAXPROCS)")

	rootCmd.AddCommand(sweepCmd)
}

// parseGrid turns key=v1,v2 arguments into grid entries.
func parseGrid(args []string) (map[string][]any, error) {
	grid := make(map[string][]any, len(args))
	for _, arg := range args {
		key, values, ok := strings.Cut(arg, "=")
		if !ok || key == "" || values == "" {
			return nil, fmt.Errorf("invalid grid entry %q, want key=v1,v2", arg)
		}
		for _, v := range strings.Split(values, ",") {
			grid[key] = append(grid[key], strings.TrimSpace(v))
		}
	}
	return grid, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	v, err := loadConfig(cmd, sweepFlagKeys)
	if err != nil {
		return err
	}
	var grid sweep.Grid
	if err := v.Unmarshal(&grid); err != nil {
		return fmt.Errorf("failed to decode sweep config: %w", err)
	}

	extra, err := parseGrid(sweepGrid)
	if err != nil {
		return err
	}
	if grid.Params == nil {
		grid.Params = make(map[string][]any, len(extra))
	}
	for k, values := range extra {
		grid.Params[k] = values
	}
	if grid.ProblemParams == nil {
		grid.ProblemParams = method.Params{}
	}
	if _, ok := grid.ProblemParams["dim"]; !ok || cmd.Flags().Changed("dim") {
		grid.ProblemParams["dim"] = sweepDim
	}

	configs, err := grid.Configs()
	if err != nil {
		return err
	}
	prob, err := problem.FromParams(grid.Problem, grid.ProblemParams)
	if err != nil {
		return err
	}

	runner := sweep.NewRunner(prob.Objective, prob.X0, grid.MaxParallel)
	jobs, runErr := runner.Run(commandContext(cmd), configs)

	printJobs(jobs)
	if best, ok := runner.Jobs.Best(); ok {
		fmt.Printf("\nBest: %s %v seed=%d min %.6g\n", best.ID, best.Config.Params, best.Config.Seed, best.MinValue)
	}
	return runErr
}

func printJobs(jobs []sweep.Job) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTATE\tPARAMS\tSEED\tMIN VALUE\tEVALS")
	fmt.Fprintln(w, "------\t-----\t------\t----\t---------\t-----")
	for _, job := range jobs {
		minValue := "-"
		if job.State == sweep.StateCompleted {
			minValue = fmt.Sprintf("%.6g", job.MinValue)
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%s\t%d\n",
			shortID(job.ID),
			job.State,
			job.Config.Params,
			job.Config.Seed,
			minValue,
			job.Evals,
		)
	}
	w.Flush()
}

// shortID truncates run IDs for table display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}
