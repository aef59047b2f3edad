package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/subspaceopt/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the progress of a stored run",
	Long: `Shows the configuration and progress of a run from its checkpoint, followed by
the trace of checkpoint boundaries.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	id := args[0]
	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	cp, err := fs.LoadCheckpoint(id)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	info := cp.ToInfo()
	progress := float64(cp.Iteration) / float64(cp.Config.Iterations) * 100
	state := "stopped"
	if info.Complete() {
		state = "completed"
	}

	fmt.Printf("Run: %s\n", cp.RunID)
	fmt.Printf("State: %s\n", state)
	fmt.Printf("Method: %s %v\n", cp.Config.Method, cp.Config.Params)
	if cp.Config.Problem != "" {
		fmt.Printf("Problem: %s %v\n", cp.Config.Problem, cp.Config.ProblemParams)
	}
	fmt.Printf("Dimension: %d\n", cp.Config.Dim)
	fmt.Printf("Progress: %d / %d (%.1f%%)\n", cp.Iteration, cp.Config.Iterations, progress)
	fmt.Printf("Initial value: %.6g\n", float64(cp.InitialValue))
	fmt.Printf("Min value: %.6g\n", float64(cp.MinValue))
	fmt.Printf("Evaluations: %d\n", cp.Evals)
	fmt.Printf("Compute time: %s\n", cp.Elapsed)
	fmt.Printf("Last checkpoint: %s\n", cp.Timestamp.Format(time.RFC3339))

	tr, err := store.NewTraceReader(dataDir, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	defer tr.Close()
	entries, err := tr.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITERATION\tMIN VALUE\tELAPSED\tEVALS\tTIMESTAMP")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%.6g\t%.3fs\t%d\t%s\n",
			e.Iteration,
			float64(e.MinValue),
			e.Elapsed,
			e.Evals,
			e.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}
