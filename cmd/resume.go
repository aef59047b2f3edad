package main

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/subspaceopt/internal/engine"
	"github.com/cwbudde/subspaceopt/internal/problem"
	"github.com/cwbudde/subspaceopt/internal/store"
	"github.com/spf13/cobra"
)

var resumeMetricsFile string

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume a run from its last checkpoint",
	Long: `Continues a stopped run from its last checkpoint. The problem is regenerated
from the stored configuration; the point, method state, generator state and
series prefixes are restored.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeMetricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file at each checkpoint")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	id := args[0]

	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	cp, err := fs.LoadCheckpoint(id)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	prob, err := problem.FromParams(cp.Config.Problem, cp.Config.ProblemParams)
	if err != nil {
		return fmt.Errorf("failed to regenerate problem: %w", err)
	}
	if prob.Dim() != cp.Config.Dim {
		return &store.CompatibilityError{
			Field:    "Dim",
			Expected: fmt.Sprint(cp.Config.Dim),
			Actual:   fmt.Sprint(prob.Dim()),
		}
	}

	slog.Info("Resuming from checkpoint",
		"run_id", id,
		"iteration", cp.Iteration,
		"iterations", cp.Config.Iterations,
	)

	var opts []engine.Option
	if resumeMetricsFile != "" {
		opts = append(opts, engine.WithMetricsFile(resumeMetricsFile))
	}
	result, err := engine.Resume(commandContext(cmd), prob.Objective, dataDir, id, opts...)
	if err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}

	printResult(result)
	return nil
}
