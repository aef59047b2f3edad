package method

import (
	"errors"
	"log/slog"
	"math"

	"github.com/cwbudde/subspaceopt/internal/objective"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Newton takes the full Newton direction d = -H⁻¹∇f(x). It is meant to be
// paired with a Backtracking step, since the undamped step need not
// decrease f.
type Newton struct{}

// NewNewton returns the full Newton strategy.
func NewNewton() *Newton { return &Newton{} }

func (*Newton) Name() string { return NameNewton }
func (*Newton) CheckDim(int) error { return nil }
func (*Newton) direction() {}

func (*Newton) Compute(ev *Evaluation) error {
	n := len(ev.X)
	h := mat.NewSymDense(n, nil)
	ev.Obj.Hessian(h, ev.X)
	ev.Obj.Gradient(ev.Grad, ev.X)

	rhs := make([]float64, n)
	floats.ScaleTo(rhs, -1, ev.Grad)
	return solveSym(NameNewton, h, rhs, ev.Dir)
}

// SubspaceNewton solves the Newton system restricted to a random
// r-dimensional subspace. With P (D×r) drawn with N(0, 1/D) entries,
//
//	d = -P (PᵗHP)⁻¹ Pᵗ∇f(x)
//
// where PᵗHP is the Hessian of d ↦ f(x+Pd) at zero. The cost is driven by
// r, not D.
type SubspaceNewton struct {
	ReducedDim int

	src ProjectionSource
	p   *mat.Dense
}

// NewSubspaceNewton validates reducedDim and binds the projection source.
func NewSubspaceNewton(reducedDim int, src ProjectionSource) (*SubspaceNewton, error) {
	if err := atLeastOne("reduced_dim", reducedDim); err != nil {
		return nil, err
	}
	return &SubspaceNewton{ReducedDim: reducedDim, src: src}, nil
}

func (*SubspaceNewton) Name() string { return NameSubspaceNewton }
func (*SubspaceNewton) direction() {}

func (s *SubspaceNewton) CheckDim(dim int) error {
	if s.ReducedDim > dim {
		return invalid("reduced_dim", s.ReducedDim, "exceeds problem dimension %d", dim)
	}
	return nil
}

func (s *SubspaceNewton) Compute(ev *Evaluation) error {
	n := len(ev.X)
	s.p = s.src.Gaussian(n, s.ReducedDim, invSqrt(n))
	php := mat.NewSymDense(s.ReducedDim, nil)
	objective.ReducedHessian(php, ev.Obj, ev.X, s.p)
	ev.Obj.Gradient(ev.Grad, ev.X)

	return solveLifted(NameSubspaceNewton, php, s.p, ev.Grad, ev.Dir)
}

// Projection returns the matrix drawn by the most recent Compute.
func (s *SubspaceNewton) Projection() *mat.Dense { return s.p }

// RegularizedNewton shifts the (full or subspace) Hessian M so that the
// system stays positive definite in non-convex regions:
//
//	Λ = max(0, -λmin(M))
//	M ← M + c1·Λ·I + c2·‖∇f(x)‖ʳ·I
//
// ReducedDim == 0 selects the full-dimensional variant.
type RegularizedNewton struct {
	C1, C2, R  float64
	ReducedDim int

	src ProjectionSource
	p   *mat.Dense
}

// NewRegularizedNewton validates the regularization coefficients.
func NewRegularizedNewton(c1, c2, r float64, reducedDim int, src ProjectionSource) (*RegularizedNewton, error) {
	if err := nonNegative("c1", c1); err != nil {
		return nil, err
	}
	if err := nonNegative("c2", c2); err != nil {
		return nil, err
	}
	if err := nonNegative("r", r); err != nil {
		return nil, err
	}
	if reducedDim < 0 {
		return nil, invalid("reduced_dim", reducedDim, "must not be negative")
	}
	return &RegularizedNewton{C1: c1, C2: c2, R: r, ReducedDim: reducedDim, src: src}, nil
}

func (rn *RegularizedNewton) Name() string {
	if rn.ReducedDim > 0 {
		return NameSubspaceRNM
	}
	return NameRNM
}

func (*RegularizedNewton) direction() {}

func (rn *RegularizedNewton) CheckDim(dim int) error {
	if rn.ReducedDim > dim {
		return invalid("reduced_dim", rn.ReducedDim, "exceeds problem dimension %d", dim)
	}
	return nil
}

func (rn *RegularizedNewton) Compute(ev *Evaluation) error {
	n := len(ev.X)
	var m *mat.SymDense
	if rn.ReducedDim > 0 {
		rn.p = rn.src.Gaussian(n, rn.ReducedDim, invSqrt(n))
		m = mat.NewSymDense(rn.ReducedDim, nil)
		objective.ReducedHessian(m, ev.Obj, ev.X, rn.p)
	} else {
		m = mat.NewSymDense(n, nil)
		ev.Obj.Hessian(m, ev.X)
	}
	ev.Obj.Gradient(ev.Grad, ev.X)

	minEig, err := minEigen(rn.Name(), m)
	if err != nil {
		return err
	}
	shift := rn.C1*math.Max(0, -minEig) + rn.C2*math.Pow(floats.Norm(ev.Grad, 2), rn.R)
	k := m.SymmetricDim()
	for i := 0; i < k; i++ {
		m.SetSym(i, i, m.At(i, i)+shift)
	}

	if rn.ReducedDim == 0 {
		rhs := make([]float64, n)
		floats.ScaleTo(rhs, -1, ev.Grad)
		return solveSym(rn.Name(), m, rhs, ev.Dir)
	}
	return solveLifted(rn.Name(), m, rn.p, ev.Grad, ev.Dir)
}

// Projection returns the matrix drawn by the most recent Compute, or nil
// for the full-dimensional variant.
func (rn *RegularizedNewton) Projection() *mat.Dense { return rn.p }

func minEigen(name string, m *mat.SymDense) (float64, error) {
	var es mat.EigenSym
	if !es.Factorize(m, false) {
		return 0, &IllConditionedError{Method: name, Dim: m.SymmetricDim(), Cond: math.Inf(1)}
	}
	return es.Values(nil)[0], nil
}

// solveLifted computes dst = -P·M⁻¹·Pᵗg.
func solveLifted(name string, m *mat.SymDense, p *mat.Dense, g, dst []float64) error {
	n, r := p.Dims()
	rhs := mat.NewVecDense(r, nil)
	rhs.MulVec(p.T(), mat.NewVecDense(n, g))
	rhs.ScaleVec(-1, rhs)

	z := make([]float64, r)
	if err := solveSym(name, m, rhs.RawVector().Data, z); err != nil {
		return err
	}
	mat.NewVecDense(n, dst).MulVec(p, mat.NewVecDense(r, z))
	return nil
}

// solveSym solves m·x = rhs into dst, by Cholesky when m is positive
// definite and by LU otherwise. Exactly singular systems and non-finite
// solutions are reported as *IllConditionedError; finite solutions of
// badly conditioned systems are accepted.
func solveSym(name string, m *mat.SymDense, rhs, dst []float64) error {
	n := m.SymmetricDim()
	b := mat.NewVecDense(n, rhs)
	x := mat.NewVecDense(n, dst)

	var err error
	var chol mat.Cholesky
	if chol.Factorize(m) {
		err = chol.SolveVecTo(x, b)
	} else {
		var lu mat.LU
		lu.Factorize(m)
		err = lu.SolveVecTo(x, false, b)
	}

	var cond mat.Condition
	switch {
	case err == nil:
	case errors.Is(err, mat.ErrSingular):
		return &IllConditionedError{Method: name, Dim: n, Cond: math.Inf(1)}
	case errors.As(err, &cond):
		if math.IsInf(float64(cond), 1) || !allFinite(dst) {
			return &IllConditionedError{Method: name, Dim: n, Cond: float64(cond)}
		}
		slog.Warn("Solved ill-conditioned system", "method", name, "dim", n, "cond", float64(cond))
		return nil
	default:
		return err
	}
	if !allFinite(dst) {
		return &IllConditionedError{Method: name, Dim: n, Cond: math.NaN()}
	}
	return nil
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
