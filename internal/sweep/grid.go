// Package sweep expands hyperparameter grids into independent runs and
// executes them on a bounded worker pool.
package sweep

import (
	"fmt"
	"sort"

	"github.com/cwbudde/subspaceopt/internal/engine"
	"github.com/cwbudde/subspaceopt/internal/method"
)

// Grid describes a sweep. Each Params entry lists the values to try for
// one hyperparameter; every combination is run once per seed. All runs
// share the problem generated from ProblemParams.
type Grid struct {
	Method        string           `mapstructure:"method"`
	Params        map[string][]any `mapstructure:"params"`
	Problem       string           `mapstructure:"problem"`
	ProblemParams method.Params    `mapstructure:"problem_params"`
	Iterations    int              `mapstructure:"iterations"`
	Interval      int              `mapstructure:"interval"`
	Dir           string           `mapstructure:"dir"`
	Suffix        string           `mapstructure:"suffix"`
	Seeds         []uint64         `mapstructure:"seeds"`
	MaxParallel   int              `mapstructure:"max_parallel"`
}

// Expand returns the cartesian product of grid. Keys are visited in sorted
// order with the last key varying fastest, so the result is deterministic.
// An empty grid yields one empty combination; a key with no values yields
// none.
func Expand(grid map[string][]any) []method.Params {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []method.Params{{}}
	for _, k := range keys {
		values := grid[k]
		next := make([]method.Params, 0, len(combos)*len(values))
		for _, c := range combos {
			for _, v := range values {
				p := make(method.Params, len(c)+1)
				for ck, cv := range c {
					p[ck] = cv
				}
				p[k] = v
				next = append(next, p)
			}
		}
		combos = next
	}
	return combos
}

// Configs returns one engine configuration per parameter combination and
// seed. Every combination is validated against the method before any run
// starts.
func (g *Grid) Configs() ([]engine.Config, error) {
	if g.Method == "" {
		return nil, &engine.ConfigError{Field: "method", Reason: "cannot be empty"}
	}
	seeds := g.Seeds
	if len(seeds) == 0 {
		seeds = []uint64{0}
	}

	var configs []engine.Config
	for i, params := range Expand(g.Params) {
		if _, err := method.Build(g.Method, params, nil); err != nil {
			return nil, fmt.Errorf("combination %d %v: %w", i, params, err)
		}
		for _, seed := range seeds {
			configs = append(configs, engine.Config{
				Method:        g.Method,
				Params:        params,
				Problem:       g.Problem,
				ProblemParams: g.ProblemParams,
				Iterations:    g.Iterations,
				Interval:      g.Interval,
				Dir:           g.Dir,
				Suffix:        g.Suffix,
				Seed:          seed,
			})
		}
	}
	return configs, nil
}
