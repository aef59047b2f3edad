package method

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ProjectionSource draws the random matrices used by subspace and
// zeroth-order strategies. Every call returns a fresh draw.
type ProjectionSource interface {
	// Gaussian returns a rows×cols matrix with i.i.d. N(0, scale²) entries.
	Gaussian(rows, cols int, scale float64) *mat.Dense
	// Orthonormal returns a dim×k matrix with orthonormal columns.
	Orthonormal(dim, k int) *mat.Dense
}

// GaussianSource draws from a seeded generator.
type GaussianSource struct {
	rng *rand.Rand
}

// NewGaussianSource returns a source backed by rng.
func NewGaussianSource(rng *rand.Rand) *GaussianSource {
	return &GaussianSource{rng: rng}
}

func (s *GaussianSource) Gaussian(rows, cols int, scale float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = scale * s.rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

// Orthonormal runs modified Gram–Schmidt over Gaussian columns, redrawing
// any column that collapses numerically.
func (s *GaussianSource) Orthonormal(dim, k int) *mat.Dense {
	if k > dim {
		panic("method: more orthonormal directions than dimensions")
	}
	cols := make([][]float64, 0, k)
	for len(cols) < k {
		v := make([]float64, dim)
		for i := range v {
			v[i] = s.rng.NormFloat64()
		}
		start := floats.Norm(v, 2)
		for _, q := range cols {
			floats.AddScaled(v, -floats.Dot(q, v), q)
		}
		n := floats.Norm(v, 2)
		if n <= 1e-10*start {
			continue
		}
		floats.Scale(1/n, v)
		cols = append(cols, v)
	}
	out := mat.NewDense(dim, k, nil)
	for j, c := range cols {
		out.SetCol(j, c)
	}
	return out
}

// IdentitySource ignores scale and returns the leading identity block.
// With reduced_dim == dim a subspace strategy then reproduces its
// full-dimensional counterpart exactly.
type IdentitySource struct{}

func (IdentitySource) Gaussian(rows, cols int, _ float64) *mat.Dense {
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < min(rows, cols); i++ {
		out.Set(i, i, 1)
	}
	return out
}

func (IdentitySource) Orthonormal(dim, k int) *mat.Dense {
	return IdentitySource{}.Gaussian(dim, k, 1)
}

func invSqrt(n int) float64 { return 1 / math.Sqrt(float64(n)) }
