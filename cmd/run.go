package main

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/subspaceopt/internal/engine"
	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/problem"
	"github.com/spf13/cobra"
)

var (
	runMethod      string
	runParams      map[string]string
	runProblem     string
	problemParams  map[string]string
	runDim         int
	runIterations  int
	runInterval    int
	runID          string
	runSuffix      string
	runSeed        uint64
	metricsFile    string
	runPersistNone bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one optimization method on a generated problem",
	Long: `Runs a direction strategy with its step-size policy for a fixed number of
iterations, recording the objective value, gradient norm, time and step
series and checkpointing them every --interval iterations.

Values from --config are overridden by flags that are set explicitly.`,
	Example: `  subspaceopt run --method rgd --param lr=0.5 --param reduced_dim=10 \
      --problem quadratic --problem-param property=sconvex --dim 100 \
      --iterations 1000 --interval 100`,
	RunE: runOptimization,
}

// runFlagKeys maps engine.Config keys to flag names.
var runFlagKeys = map[string]string{
	"method":         "method",
	"params":         "param",
	"problem":        "problem",
	"problem_params": "problem-param",
	"iterations":     "iterations",
	"interval":       "interval",
	"dir":            "data-dir",
	"run_id":         "run-id",
	"suffix":         "suffix",
	"seed":           "seed",
	"metrics_file":   "metrics-textfile",
}

func init() {
	runCmd.Flags().StringVar(&runMethod, "method", method.NameGD, fmt.Sprintf("Optimization method %v", method.Names()))
	runCmd.Flags().StringToStringVar(&runParams, "param", nil, "Method hyperparameter key=value (repeatable)")
	runCmd.Flags().StringVar(&runProblem, "problem", problem.NameSphere, fmt.Sprintf("Problem %v", problem.Names()))
	runCmd.Flags().StringToStringVar(&problemParams, "problem-param", nil, "Problem parameter key=value (repeatable)")
	runCmd.Flags().IntVar(&runDim, "dim", 10, "Problem dimension (shorthand for --problem-param dim=N)")
	runCmd.Flags().IntVar(&runIterations, "iterations", 100, "Iteration budget")
	runCmd.Flags().IntVar(&runInterval, "interval", 0, "Checkpoint interval (0 = only at the end)")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run ID (default: random UUID)")
	runCmd.Flags().StringVar(&runSuffix, "suffix", "", "Suffix appended to series file names")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Seed of the projection generator")
	runCmd.Flags().StringVar(&metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file at each checkpoint")
	runCmd.Flags().BoolVar(&runPersistNone, "no-store", false, "Do not write checkpoints or series")

	rootCmd.AddCommand(runCmd)
}

// runConfigFrom merges the configuration file and flags into a run
// configuration.
func runConfigFrom(cmd *cobra.Command) (engine.Config, error) {
	var cfg engine.Config
	v, err := loadConfig(cmd, runFlagKeys)
	if err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode run config: %w", err)
	}

	if cfg.ProblemParams == nil {
		cfg.ProblemParams = method.Params{}
	}
	if _, ok := cfg.ProblemParams["dim"]; !ok || cmd.Flags().Changed("dim") {
		cfg.ProblemParams["dim"] = runDim
	}
	if runPersistNone {
		cfg.Dir = ""
	}
	return cfg, nil
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := runConfigFrom(cmd)
	if err != nil {
		return err
	}

	prob, err := problem.FromParams(cfg.Problem, cfg.ProblemParams)
	if err != nil {
		return err
	}
	slog.Info("Generated problem", "problem", prob.Name, "dim", prob.Dim())

	result, err := engine.Run(commandContext(cmd), prob.Objective, prob.X0, cfg)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printResult(result)
	return nil
}

func printResult(r *engine.Result) {
	fmt.Printf("Run %s (%s): %d iterations, f %.6g -> min %.6g, %d evals, %s\n",
		r.RunID,
		r.Method,
		r.Iterations,
		r.InitialValue,
		r.MinValue,
		r.Evals,
		r.Elapsed,
	)
}
