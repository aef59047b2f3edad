package problem

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/objective"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// zeroHess is the Hessian of a piecewise-linear function away from its
// kinks.
func zeroHess(dst *mat.SymDense, _ []float64) {
	dst.Zero()
}

// MaxLinear returns max(Ax + b). Grad is the row of A attaining the
// maximum.
func MaxLinear(a *mat.Dense, b []float64) *objective.Objective {
	m, n := a.Dims()
	if len(b) != m {
		panic("problem: max-linear dimension mismatch")
	}
	values := func(x []float64) *mat.VecDense {
		v := mat.NewVecDense(m, nil)
		v.MulVec(a, mat.NewVecDense(n, x))
		v.AddVec(v, mat.NewVecDense(m, b))
		return v
	}
	return &objective.Objective{
		Func: func(x []float64) float64 {
			return floats.Max(values(x).RawVector().Data)
		},
		Grad: func(grad, x []float64) {
			i := floats.MaxIdx(values(x).RawVector().Data)
			mat.Row(grad, i, a)
		},
		Hess: zeroHess,
	}
}

// maxLinear draws a Gaussian A with number rows, b = 1 and x0 Gaussian
// with scale 10.
func maxLinear(props method.Params, rng *rand.Rand) (*Problem, error) {
	dim, err := dimension(props, 1)
	if err != nil {
		return nil, err
	}
	m, err := intOr(props, "number", dim)
	if err != nil {
		return nil, err
	}
	if m < 1 {
		return nil, fmt.Errorf("number %d must be positive", m)
	}
	a := mat.NewDense(m, dim, randn(rng, m*dim, 1))
	return &Problem{Objective: MaxLinear(a, ones(m)), X0: randn(rng, dim, 10)}, nil
}

// piecewiseLinear is |1-x₀| + Σ|1 + x_{i+1} - 2x_i|, minimized at the
// all-ones point and started from zero.
func piecewiseLinear(props method.Params, _ *rand.Rand) (*Problem, error) {
	dim, err := dimension(props, 2)
	if err != nil {
		return nil, err
	}
	obj := &objective.Objective{
		Func: func(x []float64) float64 {
			sum := math.Abs(1 - x[0])
			for i := 0; i+1 < len(x); i++ {
				sum += math.Abs(1 + x[i+1] - 2*x[i])
			}
			return sum
		},
		Grad: func(grad, x []float64) {
			for i := range grad {
				grad[i] = 0
			}
			grad[0] = -sign(1 - x[0])
			for i := 0; i+1 < len(x); i++ {
				s := sign(1 + x[i+1] - 2*x[i])
				grad[i+1] += s
				grad[i] -= 2 * s
			}
		},
		Hess: zeroHess,
	}
	return &Problem{Objective: obj, X0: make([]float64, dim)}, nil
}

// subspaceNorm is ‖x[:r]‖_p^p: it depends only on the first r
// coordinates. x0 is all ones.
func subspaceNorm(props method.Params, _ *rand.Rand) (*Problem, error) {
	dim, err := dimension(props, 1)
	if err != nil {
		return nil, err
	}
	r, err := intOr(props, "subspace", dim)
	if err != nil {
		return nil, err
	}
	if r < 1 || r > dim {
		return nil, fmt.Errorf("subspace %d outside [1, %d]", r, dim)
	}
	p, err := floatOr(props, "ord", 2)
	if err != nil {
		return nil, err
	}
	if !(p >= 1) || math.IsInf(p, 0) {
		return nil, fmt.Errorf("ord %g must be finite and at least 1", p)
	}
	obj := &objective.Objective{
		Func: func(x []float64) float64 {
			var sum float64
			for _, v := range x[:r] {
				sum += math.Pow(math.Abs(v), p)
			}
			return sum
		},
		Grad: func(grad, x []float64) {
			for i := range grad {
				grad[i] = 0
			}
			for i, v := range x[:r] {
				grad[i] = p * math.Pow(math.Abs(v), p-1) * sign(v)
			}
		},
	}
	return &Problem{Objective: obj, X0: ones(dim)}, nil
}

// FusedMatrix returns the (dim-1)×dim first-difference operator with rows
// e_{i+1} - e_i.
func FusedMatrix(dim int) *mat.Dense {
	a := mat.NewDense(dim-1, dim, nil)
	for i := 0; i < dim-1; i++ {
		a.Set(i, i, -1)
		a.Set(i, i+1, 1)
	}
	return a
}

// normGrad stores a subgradient of ‖z‖_p into dst.
func normGrad(dst, z []float64, p float64) {
	for i := range dst {
		dst[i] = 0
	}
	norm := floats.Norm(z, p)
	if norm == 0 {
		return
	}
	switch {
	case p == 1:
		for i, v := range z {
			dst[i] = sign(v)
		}
	case math.IsInf(p, 1):
		i := 0
		for j, v := range z {
			if math.Abs(v) > math.Abs(z[i]) {
				i = j
			}
		}
		dst[i] = sign(z[i])
	default:
		for i, v := range z {
			dst[i] = sign(v) * math.Pow(math.Abs(v)/norm, p-1)
		}
	}
}

// Regularize returns f(x) + coef·‖Ax‖_p, with A the fused first-difference
// matrix when fused is set and the identity otherwise. Second derivatives
// of the result fall back to finite differences.
func Regularize(f *objective.Objective, dim int, p, coef float64, fused bool) (*objective.Objective, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if !(p >= 1) {
		return nil, fmt.Errorf("ord %g must be at least 1", p)
	}
	if !(coef >= 0) || math.IsInf(coef, 0) {
		return nil, fmt.Errorf("coef %g must be finite and non-negative", coef)
	}

	var a *mat.Dense
	if fused {
		if dim < 2 {
			return nil, fmt.Errorf("fused regularization needs dim >= 2, got %d", dim)
		}
		a = FusedMatrix(dim)
	}
	apply := func(x []float64) []float64 {
		if a == nil {
			return x
		}
		rows, _ := a.Dims()
		z := mat.NewVecDense(rows, nil)
		z.MulVec(a, mat.NewVecDense(dim, x))
		return z.RawVector().Data
	}

	return &objective.Objective{
		Func: func(x []float64) float64 {
			return f.Value(x) + coef*floats.Norm(apply(x), p)
		},
		Grad: func(grad, x []float64) {
			f.Gradient(grad, x)
			z := apply(x)
			u := make([]float64, len(z))
			normGrad(u, z, p)
			if a == nil {
				floats.AddScaled(grad, coef, u)
				return
			}
			at := mat.NewVecDense(dim, nil)
			at.MulVec(a.T(), mat.NewVecDense(len(u), u))
			floats.AddScaled(grad, coef, at.RawVector().Data)
		},
	}, nil
}
