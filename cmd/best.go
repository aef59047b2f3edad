package main

import (
	"fmt"

	"github.com/cwbudde/subspaceopt/internal/report"
	"github.com/spf13/cobra"
)

var bestCmd = &cobra.Command{
	Use:   "best [run-id...]",
	Short: "Show the run with the smallest minimum",
	Long:  `Picks the run with the smallest running minimum among the given runs, or among all stored runs.`,
	RunE:  runBest,
}

func init() {
	rootCmd.AddCommand(bestCmd)
}

func runBest(cmd *cobra.Command, args []string) error {
	info, err := report.BestRun(dataDir, args)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\t%s\tdim=%d\t%d/%d\t%.6g\n",
		info.RunID,
		info.Method,
		info.Problem,
		info.Dim,
		info.Iteration,
		info.Iterations,
		info.MinValue,
	)
	return nil
}
