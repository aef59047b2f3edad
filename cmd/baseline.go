package main

import (
	"fmt"

	"github.com/cwbudde/subspaceopt/internal/baseline"
	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/problem"
	"github.com/cwbudde/subspaceopt/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	baselineProblem string
	baselineParams  map[string]string
	baselineDim     int
	baselineIters   int
	baselinePop     int
	baselineSeed    int64
	baselineRadius  float64
	baselineRunID   string
	baselineSuffix  string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Run the Mayfly metaheuristic as a reference",
	Long: `Minimizes a generated problem with the derivative-free Mayfly algorithm
inside a box of half-width --radius around the starting point. The best value
is stored as a one-entry fvalues series that plot draws as a reference line.`,
	RunE: runBaseline,
}

func init() {
	baselineCmd.Flags().StringVar(&baselineProblem, "problem", problem.NameSphere, "Problem")
	baselineCmd.Flags().StringToStringVar(&baselineParams, "problem-param", nil, "Problem parameter key=value (repeatable)")
	baselineCmd.Flags().IntVar(&baselineDim, "dim", 10, "Problem dimension")
	baselineCmd.Flags().IntVar(&baselineIters, "iters", 200, "Mayfly iterations")
	baselineCmd.Flags().IntVar(&baselinePop, "pop", 40, fmt.Sprintf("Population size (at least %d)", baseline.MinPopulation))
	baselineCmd.Flags().Int64Var(&baselineSeed, "seed", 1, "Random seed")
	baselineCmd.Flags().Float64Var(&baselineRadius, "radius", 10, "Half-width of the search box around x0")
	baselineCmd.Flags().StringVar(&baselineRunID, "run-id", "", "Run ID (default: random UUID)")
	baselineCmd.Flags().StringVar(&baselineSuffix, "suffix", "", "Suffix appended to the series file name")

	rootCmd.AddCommand(baselineCmd)
}

func runBaseline(cmd *cobra.Command, args []string) error {
	props := method.Params{"dim": baselineDim}
	for k, v := range baselineParams {
		props[k] = v
	}
	prob, err := problem.FromParams(baselineProblem, props)
	if err != nil {
		return err
	}

	lower, upper := baseline.Bounds(prob.X0, baselineRadius)
	optimizer := baseline.NewMayfly(baselineIters, baselinePop, baselineSeed)
	result, err := baseline.Minimize(optimizer, prob.Objective, prob.X0, lower, upper)
	if err != nil {
		return fmt.Errorf("baseline failed: %w", err)
	}

	id := baselineRunID
	if id == "" {
		id = uuid.NewString()
	}
	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	set := store.NewSeriesSet(1, store.SeriesValues)
	if err := set.Set(store.SeriesValues, 0, result.Value); err != nil {
		return err
	}
	if err := fs.SaveSeries(id, baselineSuffix, set); err != nil {
		return fmt.Errorf("failed to save baseline: %w", err)
	}

	fmt.Printf("Baseline %s (mayfly): f %.6g -> %.6g, %d evals, %s\n",
		id,
		result.InitialValue,
		result.Value,
		result.Evals,
		result.Elapsed,
	)
	return nil
}
