package method

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledSteps(t *testing.T) {
	tests := []struct {
		name string
		step Scheduled
		at   map[int]float64
	}{
		{"constant", Constant{LR: 0.5}, map[int]float64{0: 0.5, 9: 0.5}},
		{"decreasing", Diminishing{LR: 1}, map[int]float64{0: 1, 1: 0.5, 3: 0.25}},
		{"decreasing-half", DiminishingSqrt{LR: 2}, map[int]float64{0: 2, 3: 1, 8: 2.0 / 3}},
		{"schedule", Schedule(func(i int) float64 { return float64(i) }), map[int]float64{4: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.at {
				assert.InDelta(t, want, tt.step.At(i), 1e-15, "At(%d)", i)
			}
		})
	}
}

func TestBacktrackingShrinksUntilArmijo(t *testing.T) {
	bt, err := NewBacktracking(0.3, 0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxShrink, bt.MaxShrink)

	f := func(x []float64) float64 { return x[0] * x[0] }
	x := []float64{1}
	g := []float64{2}
	d := []float64{-20}

	res := bt.Search(f, x, d, g, f(x))
	assert.Equal(t, 0.0625, res.Step)
	assert.Equal(t, 4, res.Shrinks)
	assert.Equal(t, 5, res.Evals)
	assert.False(t, res.Capped)
}

func TestBacktrackingAcceptsUnitStep(t *testing.T) {
	bt, err := NewBacktracking(0.25, 0.5, 10)
	require.NoError(t, err)
	f := func(x []float64) float64 { return x[0] * x[0] }
	res := bt.Search(f, []float64{1}, []float64{-1}, []float64{2}, 1)
	assert.Equal(t, 1.0, res.Step)
	assert.Equal(t, 0, res.Shrinks)
}

func TestBacktrackingCapTreatsNaNAsFailure(t *testing.T) {
	bt, err := NewBacktracking(0.1, 0.5, 5)
	require.NoError(t, err)
	nan := func([]float64) float64 { return math.NaN() }

	res := bt.Search(nan, []float64{0}, []float64{-1}, []float64{1}, 0)
	assert.True(t, res.Capped)
	assert.Equal(t, 5, res.Shrinks)
	assert.Equal(t, math.Pow(0.5, 5), res.Step)
	assert.Greater(t, res.Step, 0.0)
}

func TestBacktrackingStepStaysPositive(t *testing.T) {
	bt, err := NewBacktracking(0.5, 1e-200, 1000)
	require.NoError(t, err)
	// An ascent direction never satisfies the condition.
	f := func(x []float64) float64 { return x[0] }
	res := bt.Search(f, []float64{0}, []float64{1}, []float64{1}, 0)
	assert.True(t, res.Capped)
	assert.Greater(t, res.Step, 0.0)
	assert.LessOrEqual(t, res.Step, 1.0)
	assert.Less(t, res.Shrinks, 1000)
}

func TestNewBacktrackingRejectsOutOfRange(t *testing.T) {
	for _, tc := range []struct {
		name        string
		alpha, beta float64
	}{
		{"alpha", 1, 0.5},
		{"alpha", 0, 0.5},
		{"beta", 0.5, 1.5},
		{"beta", 0.5, math.NaN()},
	} {
		_, err := NewBacktracking(tc.alpha, tc.beta, 0)
		var inv *InvalidArgumentError
		require.ErrorAs(t, err, &inv)
		assert.Equal(t, tc.name, inv.Name)
	}
}
