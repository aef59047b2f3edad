// Package baseline runs a population metaheuristic on the same objectives
// as the gradient-based methods so their results can be compared.
package baseline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/subspaceopt/internal/objective"
)

// Optimizer defines a derivative-free optimizer on a box.
type Optimizer interface {
	// Run minimizes eval over [lower, upper]^dim and returns the best point
	// and its value.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error)
}

// Result holds the output of a baseline run.
type Result struct {
	X            []float64
	Value        float64
	InitialValue float64
	Evals        int
	Elapsed      time.Duration
}

// Bounds returns a box of half-width radius around x0.
func Bounds(x0 []float64, radius float64) (lower, upper []float64) {
	lower = make([]float64, len(x0))
	upper = make([]float64, len(x0))
	for i, v := range x0 {
		lower[i] = v - radius
		upper[i] = v + radius
	}
	return lower, upper
}

// Minimize runs optimizer on obj within [lower, upper]. x0 only supplies the
// reported initial value.
func Minimize(optimizer Optimizer, obj *objective.Objective, x0, lower, upper []float64) (*Result, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	dim := len(x0)
	if len(lower) != dim || len(upper) != dim {
		return nil, fmt.Errorf("bounds have %d/%d entries, want %d", len(lower), len(upper), dim)
	}

	evals := 0
	eval := func(x []float64) float64 {
		evals++
		return obj.Func(x)
	}

	initial := obj.Func(x0)
	slog.Info("Starting baseline optimization", "dim", dim, "initial_value", initial)

	start := time.Now()
	best, value, err := optimizer.Run(eval, lower, upper, dim)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	slog.Info("Baseline optimization complete",
		"initial_value", initial,
		"best_value", value,
		"evals", evals,
		"elapsed", elapsed,
	)
	return &Result{
		X:            best,
		Value:        value,
		InitialValue: initial,
		Evals:        evals,
		Elapsed:      elapsed,
	}, nil
}
