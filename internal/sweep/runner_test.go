package sweep

import (
	"context"
	"math"
	"testing"

	"github.com/cwbudde/subspaceopt/internal/engine"
	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/objective"
	"github.com/cwbudde/subspaceopt/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func halfSquare() *objective.Objective {
	return &objective.Objective{
		Func: func(x []float64) float64 { return 0.5 * floats.Dot(x, x) },
		Grad: func(grad, x []float64) { copy(grad, x) },
	}
}

func TestRunner_CompletesAllJobs(t *testing.T) {
	dir := t.TempDir()
	g := &Grid{
		Method:     method.NameGD,
		Params:     map[string][]any{"lr": {0.1, 0.5, 1.0}},
		Iterations: 10,
		Interval:   5,
		Dir:        dir,
		Seeds:      []uint64{1, 2},
	}
	configs, err := g.Configs()
	require.NoError(t, err)

	r := NewRunner(halfSquare(), []float64{1, 1}, 2)
	jobs, err := r.Run(context.Background(), configs)
	require.NoError(t, err)
	require.Len(t, jobs, 6)

	for i, job := range jobs {
		assert.Equal(t, StateCompleted, job.State, job.Error)
		assert.Equal(t, 10, job.Iterations)
		assert.Equal(t, 1.0, job.InitialValue)
		assert.NotNil(t, job.EndTime)
		assert.Equal(t, configs[i].Params["lr"], job.Config.Params["lr"])
	}

	// lr = 1 reaches the minimum after one step.
	best, ok := r.Jobs.Best()
	require.True(t, ok)
	assert.Equal(t, 1.0, best.Config.Params["lr"])
	assert.Equal(t, 0.0, best.MinValue)

	fs, err := store.NewFSStore(dir)
	require.NoError(t, err)
	infos, err := fs.ListCheckpoints()
	require.NoError(t, err)
	assert.Len(t, infos, 6)
	for _, info := range infos {
		assert.True(t, info.Complete())
	}
}

func TestRunner_AggregatesFailures(t *testing.T) {
	configs := []engine.Config{
		{Method: method.NameGD, Params: method.Params{"lr": 0.5}, Iterations: 4},
		{Method: method.NameNewton, Params: method.Params{"alpha": 0.25, "beta": 0.5}, Iterations: 4},
		{Method: method.NameGD, Params: method.Params{"lr": 0.5}, Iterations: 4, Interval: 3},
	}
	r := NewRunner(halfSquare(), []float64{1}, 1)
	jobs, err := r.Run(context.Background(), configs)
	require.Error(t, err)

	assert.Equal(t, StateCompleted, jobs[0].State)
	assert.Equal(t, StateCompleted, jobs[1].State)
	assert.Equal(t, StateFailed, jobs[2].State)
	assert.Contains(t, jobs[2].Error, "interval")

	var cfgErr *engine.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), jobs[2].ID)
}

func TestRunner_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	configs := []engine.Config{
		{Method: method.NameGD, Params: method.Params{"lr": 0.1}, Iterations: 10},
		{Method: method.NameGD, Params: method.Params{"lr": 0.2}, Iterations: 10},
	}
	r := NewRunner(halfSquare(), []float64{1}, 0)
	jobs, err := r.Run(ctx, configs)
	require.NoError(t, err)
	for _, job := range jobs {
		assert.Equal(t, StateCancelled, job.State)
		assert.True(t, job.Done())
	}
}

func TestRunner_IndependentStates(t *testing.T) {
	dir := t.TempDir()
	configs := []engine.Config{
		{Method: method.NameRGD, Params: method.Params{"lr": 0.5, "reduced_dim": 2}, Iterations: 20, Dir: dir, Seed: 7},
		{Method: method.NameRGD, Params: method.Params{"lr": 0.5, "reduced_dim": 2}, Iterations: 20, Dir: dir, Seed: 7},
	}
	r := NewRunner(halfSquare(), []float64{1, -1, 2, 0.5}, 2)
	jobs, err := r.Run(context.Background(), configs)
	require.NoError(t, err)

	fs, err := store.NewFSStore(dir)
	require.NoError(t, err)
	a, err := fs.LoadSeries(jobs[0].ID, "", store.SeriesValues)
	require.NoError(t, err)
	b, err := fs.LoadSeries(jobs[1].ID, "", store.SeriesValues)
	require.NoError(t, err)

	// Same seed, separate engines: identical series.
	require.Len(t, a, 20)
	assert.Equal(t, a, b)
	assert.False(t, math.IsNaN(jobs[0].MinValue))
}
