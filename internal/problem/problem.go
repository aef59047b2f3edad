// Package problem generates the benchmark objectives the CLI runs methods
// against. Every generator is deterministic for a given seed.
package problem

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/objective"
)

// Problem names accepted by New.
const (
	NameSphere          = "sphere"
	NameQuadratic       = "quadratic"
	NameLogistic        = "logistic"
	NameSoftmax         = "softmax"
	NameMaxLinear       = "max-linear"
	NamePiecewiseLinear = "piecewise-linear"
	NameSubspaceNorm    = "subspace-norm"
	NameRosenbrock      = "rosenbrock"
)

// Quadratic curvature classes.
const (
	Convex          = "convex"
	StronglyConvex  = "sconvex"
	Nonconvex       = "nonconvex"
	defaultDataSize = 100
)

const dataStream = 0x2545f4914f6cdd1d

// Problem is an objective together with its starting point.
type Problem struct {
	Name      string
	Objective *objective.Objective
	X0        []float64
}

// Dim returns the problem dimension.
func (p *Problem) Dim() int { return len(p.X0) }

type generator func(props method.Params, rng *rand.Rand) (*Problem, error)

var generators = map[string]generator{
	NameSphere:          sphere,
	NameQuadratic:       quadratic,
	NameLogistic:        logistic,
	NameSoftmax:         softmax,
	NameMaxLinear:       maxLinear,
	NamePiecewiseLinear: piecewiseLinear,
	NameSubspaceNorm:    subspaceNorm,
	NameRosenbrock:      rosenbrock,
}

// Names returns the registered problem names in sorted order.
func Names() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named problem. props carries its size keys (dim, rank,
// data_num, ...). When props has a positive "coef" the objective is
// regularized, see Regularize.
func New(name string, props method.Params, seed uint64) (*Problem, error) {
	gen, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem %q (available: %v)", name, Names())
	}
	if props == nil {
		props = method.Params{}
	}
	p, err := gen(props, rand.New(rand.NewPCG(seed, dataStream)))
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", name, err)
	}
	p.Name = name

	coef, err := floatOr(props, "coef", 0)
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", name, err)
	}
	if coef > 0 {
		ord, err := floatOr(props, "ord", 1)
		if err != nil {
			return nil, fmt.Errorf("problem %s: %w", name, err)
		}
		fused, err := boolOr(props, "fused", false)
		if err != nil {
			return nil, fmt.Errorf("problem %s: %w", name, err)
		}
		if p.Objective, err = Regularize(p.Objective, p.Dim(), ord, coef, fused); err != nil {
			return nil, fmt.Errorf("problem %s: %w", name, err)
		}
		p.Name = name + "-regularized"
	}
	return p, nil
}

// FromParams builds the named problem with the generator seed taken from
// the "seed" key of props, zero when absent. Run configurations store the
// problem this way so it can be regenerated.
func FromParams(name string, props method.Params) (*Problem, error) {
	seed, err := intOr(props, "seed", 0)
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", name, err)
	}
	if seed < 0 {
		return nil, fmt.Errorf("problem %s: seed %d must be non-negative", name, seed)
	}
	return New(name, props, uint64(seed))
}

func has(props method.Params, key string) bool {
	v, ok := props[key]
	return ok && v != nil
}

func intOr(props method.Params, key string, def int) (int, error) {
	if !has(props, key) {
		return def, nil
	}
	return props.Int(key)
}

func floatOr(props method.Params, key string, def float64) (float64, error) {
	if !has(props, key) {
		return def, nil
	}
	return props.Float(key)
}

func boolOr(props method.Params, key string, def bool) (bool, error) {
	if !has(props, key) {
		return def, nil
	}
	return props.Bool(key)
}

func dimension(props method.Params, min int) (int, error) {
	dim, err := props.Int("dim")
	if err != nil {
		return 0, err
	}
	if dim < min {
		return 0, fmt.Errorf("dim %d must be at least %d", dim, min)
	}
	return dim, nil
}

func randn(rng *rand.Rand, n int, scale float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = scale * rng.NormFloat64()
	}
	return v
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
