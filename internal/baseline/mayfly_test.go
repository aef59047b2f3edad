package baseline

import (
	"math"
	"testing"

	"github.com/cwbudde/subspaceopt/internal/objective"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestMayflyOnSphere(t *testing.T) {
	optimizer := NewMayfly(100, 20, 42)

	dim := 3
	lower, upper := Bounds(make([]float64, dim), 10)

	best, cost, err := optimizer.Run(sphere, lower, upper, dim)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(best) != dim {
		t.Fatalf("Expected %d parameters, got %d", dim, len(best))
	}
	if cost > 0.1 {
		t.Errorf("Expected cost near 0, got %f", cost)
	}
	for i, v := range best {
		if math.Abs(v) > 1.0 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}
}

func TestMayflyDeterministic(t *testing.T) {
	dim := 2
	lower := []float64{-5, -5}
	upper := []float64{5, 5}

	_, cost1, err := NewMayfly(50, 20, 123).Run(sphere, lower, upper, dim)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	_, cost2, err := NewMayfly(50, 20, 123).Run(sphere, lower, upper, dim)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if cost1 != cost2 {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", cost1, cost2)
	}
}

func TestMayflyRejectsInvalidSettings(t *testing.T) {
	lower := []float64{-1, -1}
	upper := []float64{1, 1}

	if _, _, err := NewMayfly(10, 5, 1).Run(sphere, lower, upper, 2); err == nil {
		t.Error("Expected error for population below minimum")
	}
	if _, _, err := NewMayfly(0, 20, 1).Run(sphere, lower, upper, 2); err == nil {
		t.Error("Expected error for zero iterations")
	}
	if _, _, err := NewMayfly(10, 20, 1).Run(sphere, lower, upper, 3); err == nil {
		t.Error("Expected error for bounds shorter than dimension")
	}
	if _, _, err := NewMayfly(10, 20, 1).Run(sphere, []float64{1, 1}, []float64{1, 1}, 2); err == nil {
		t.Error("Expected error for empty box")
	}
}

func TestMinimize(t *testing.T) {
	obj := &objective.Objective{Func: sphere}
	x0 := []float64{2, -2, 1}
	lower, upper := Bounds(x0, 5)

	result, err := Minimize(NewMayfly(60, 20, 7), obj, x0, lower, upper)
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	if result.InitialValue != 9 {
		t.Errorf("Expected initial value 9, got %f", result.InitialValue)
	}
	if result.Value >= result.InitialValue {
		t.Errorf("Expected improvement, got %f -> %f", result.InitialValue, result.Value)
	}
	if result.Evals == 0 {
		t.Error("Expected evaluations to be counted")
	}
	if len(result.X) != len(x0) {
		t.Errorf("Expected %d parameters, got %d", len(x0), len(result.X))
	}
}

func TestMinimizeRejectsMismatchedBounds(t *testing.T) {
	obj := &objective.Objective{Func: sphere}
	if _, err := Minimize(NewMayfly(10, 20, 1), obj, []float64{0, 0}, []float64{-1}, []float64{1}); err == nil {
		t.Error("Expected error for mismatched bounds")
	}
	if _, err := Minimize(NewMayfly(10, 20, 1), &objective.Objective{}, []float64{0}, []float64{-1}, []float64{1}); err == nil {
		t.Error("Expected error for objective without Func")
	}
}
