package main

import (
	"testing"

	"github.com/cwbudde/subspaceopt/internal/report"
	"github.com/cwbudde/subspaceopt/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrid(t *testing.T) {
	grid, err := parseGrid([]string{"lr=0.1, 0.5,1", "reduced_dim=10"})
	require.NoError(t, err)
	assert.Equal(t, []any{"0.1", "0.5", "1"}, grid["lr"])
	assert.Equal(t, []any{"10"}, grid["reduced_dim"])

	for _, bad := range []string{"lr", "=1", "lr="} {
		_, err := parseGrid([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "0123456789ab...", shortID("0123456789abcdef"))
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetArgs([]string{
		"run",
		"--data-dir", dir,
		"--log-level", "error",
		"--method", "gd",
		"--param", "lr=1",
		"--problem", "sphere",
		"--dim", "3",
		"--iterations", "4",
		"--interval", "2",
		"--run-id", "cli-run",
	})
	require.NoError(t, rootCmd.Execute())

	fs, err := store.NewFSStore(dir)
	require.NoError(t, err)
	cp, err := fs.LoadCheckpoint("cli-run")
	require.NoError(t, err)
	assert.Equal(t, 4, cp.Iteration)
	assert.Equal(t, "sphere", cp.Config.Problem)
	assert.Equal(t, 3, cp.Config.Dim)
	assert.Equal(t, 1.5, float64(cp.InitialValue))
	assert.Equal(t, 0.0, float64(cp.MinValue))

	values, err := fs.LoadSeries("cli-run", "", store.SeriesValues)
	require.NoError(t, err)
	assert.Len(t, values, 4)

	best, err := report.BestRun(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "cli-run", best.RunID)
}

func TestNormalizeFlagName(t *testing.T) {
	assert.Equal(t, "run-id", string(normalizeFlagName(nil, "run_id")))
	assert.Equal(t, "max-parallel", string(normalizeFlagName(nil, "max-parallel")))
}
