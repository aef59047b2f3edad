package method

import (
	"math"

	"github.com/cwbudde/subspaceopt/internal/objective"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Evaluation is the per-iteration exchange between the engine and a
// Direction. The engine fills Obj, X and F and zeroes Grad; the strategy
// writes Dir, leaves the gradient (or its estimate) in Grad, and counts
// any objective evaluations it performed in Evals.
type Evaluation struct {
	Obj   *objective.Objective
	X     []float64
	F     float64
	Grad  []float64
	Dir   []float64
	Evals int
}

// Direction computes a step direction of the same dimension as the point.
//
// The set of implementations is closed: *Gradient, *SubspaceGradient,
// *Accelerated, *Newton, *SubspaceNewton, *RegularizedNewton,
// *RandomGradientFree and *OrthogonalZeroth.
type Direction interface {
	// Name returns the registry name of the strategy.
	Name() string
	// CheckDim validates the strategy against the problem dimension.
	CheckDim(dim int) error
	// Compute fills ev.Dir and ev.Grad.
	Compute(ev *Evaluation) error

	direction()
}

// Gradient is plain steepest descent: d = -∇f(x).
type Gradient struct{}

// NewGradient returns the steepest-descent strategy.
func NewGradient() *Gradient { return &Gradient{} }

func (*Gradient) Name() string { return NameGD }
func (*Gradient) CheckDim(int) error { return nil }
func (*Gradient) direction() {}
func (*Gradient) Compute(ev *Evaluation) error {
	ev.Obj.Gradient(ev.Grad, ev.X)
	floats.ScaleTo(ev.Dir, -1, ev.Grad)
	return nil
}

// SubspaceGradient sketches the gradient through a random P (r×D) with
// N(0, 1/r) entries, redrawn on every call: d = -PᵗP∇f(x).
type SubspaceGradient struct {
	ReducedDim int

	src ProjectionSource
	p   *mat.Dense
}

// NewSubspaceGradient validates reducedDim and binds the projection source.
func NewSubspaceGradient(reducedDim int, src ProjectionSource) (*SubspaceGradient, error) {
	if err := atLeastOne("reduced_dim", reducedDim); err != nil {
		return nil, err
	}
	return &SubspaceGradient{ReducedDim: reducedDim, src: src}, nil
}

func (*SubspaceGradient) Name() string { return NameRGD }
func (*SubspaceGradient) direction() {}

func (s *SubspaceGradient) CheckDim(dim int) error {
	if s.ReducedDim > dim {
		return invalid("reduced_dim", s.ReducedDim, "exceeds problem dimension %d", dim)
	}
	return nil
}

func (s *SubspaceGradient) Compute(ev *Evaluation) error {
	n := len(ev.X)
	s.p = s.src.Gaussian(s.ReducedDim, n, invSqrt(s.ReducedDim))
	ev.Obj.Gradient(ev.Grad, ev.X)

	pg := mat.NewVecDense(s.ReducedDim, nil)
	pg.MulVec(s.p, mat.NewVecDense(n, ev.Grad))
	d := mat.NewVecDense(n, ev.Dir)
	d.MulVec(s.p.T(), pg)
	d.ScaleVec(-1, d)
	return nil
}

// Projection returns the matrix drawn by the most recent Compute.
func (s *SubspaceGradient) Projection() *mat.Dense { return s.p }

// Accelerated is Nesterov's accelerated gradient in its two-sequence form:
//
//	y⁺ = x - lr·∇f(x)
//	λ⁺ = (1 + √(1 + 4λ²)) / 2
//	γ  = (1 - λ) / λ⁺
//	x⁺ = (1 - γ)·y⁺ + γ·y
//
// with λ₀ = 0 and y₀ = x₀. The returned direction is x⁺ - x, to be taken
// with unit step.
type Accelerated struct {
	LR float64

	lambda float64
	y      []float64
	yNext  []float64
}

// NewAccelerated validates lr.
func NewAccelerated(lr float64) (*Accelerated, error) {
	if err := positive("lr", lr); err != nil {
		return nil, err
	}
	return &Accelerated{LR: lr}, nil
}

func (*Accelerated) Name() string { return NameAGD }
func (*Accelerated) CheckDim(int) error { return nil }
func (*Accelerated) direction() {}

func (a *Accelerated) Compute(ev *Evaluation) error {
	if a.y == nil {
		a.y = append([]float64(nil), ev.X...)
		a.lambda = 0
	}
	if len(a.yNext) != len(ev.X) {
		a.yNext = make([]float64, len(ev.X))
	}
	ev.Obj.Gradient(ev.Grad, ev.X)
	floats.AddScaledTo(a.yNext, ev.X, -a.LR, ev.Grad)

	lambdaNext := (1 + math.Sqrt(1+4*a.lambda*a.lambda)) / 2
	gamma := (1 - a.lambda) / lambdaNext
	for i := range ev.Dir {
		ev.Dir[i] = (1-gamma)*a.yNext[i] + gamma*a.y[i] - ev.X[i]
	}

	a.y, a.yNext = a.yNext, a.y
	a.lambda = lambdaNext
	return nil
}

// State returns the extrapolation coefficient λ and the sequence y.
// A nil y means no iteration has run yet.
func (a *Accelerated) State() (lambda float64, y []float64) {
	if a.y == nil {
		return a.lambda, nil
	}
	return a.lambda, append([]float64(nil), a.y...)
}

// Restore sets the state saved by State.
func (a *Accelerated) Restore(lambda float64, y []float64) {
	a.lambda = lambda
	if y == nil {
		a.y = nil
		return
	}
	a.y = append([]float64(nil), y...)
}
