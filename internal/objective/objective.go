package objective

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Objective is a scalar function of a dense point together with whatever
// derivative information the caller can supply. Only Func is required;
// missing derivatives are approximated by finite differences.
//
// An Objective must not change during a run. The functions may capture
// fixed data (design matrices, labels) but must not mutate it.
type Objective struct {
	// Func returns f(x). It must not modify x.
	Func func(x []float64) float64

	// Grad stores ∇f(x) into grad.
	Grad func(grad, x []float64)

	// Hess stores ∇²f(x) into dst, which is len(x)×len(x).
	Hess func(dst *mat.SymDense, x []float64)

	// HessVec stores ∇²f(x)·v into dst.
	HessVec func(dst, x, v []float64)
}

// ErrNoFunc is returned by Validate when the objective has no Func.
var ErrNoFunc = errors.New("objective: Func is required")

// Validate reports whether the objective can be evaluated.
func (o *Objective) Validate() error {
	if o == nil || o.Func == nil {
		return ErrNoFunc
	}
	return nil
}

// Value evaluates f(x).
func (o *Objective) Value(x []float64) float64 {
	return o.Func(x)
}

// HasGrad reports whether an analytic gradient was supplied.
func (o *Objective) HasGrad() bool { return o.Grad != nil }

// HasHess reports whether any analytic second-order information was supplied.
func (o *Objective) HasHess() bool { return o.Hess != nil || o.HessVec != nil }

// Gradient stores ∇f(x) into grad, falling back to central differences.
func (o *Objective) Gradient(grad, x []float64) {
	if len(grad) != len(x) {
		panic("objective: gradient length mismatch")
	}
	if o.Grad != nil {
		o.Grad(grad, x)
		return
	}
	fd.Gradient(grad, o.Func, x, &fd.Settings{Formula: fd.Central})
}

// Hessian stores ∇²f(x) into dst. With only HessVec available the Hessian
// is assembled column by column; with neither, fd.Hessian is used.
func (o *Objective) Hessian(dst *mat.SymDense, x []float64) {
	n := len(x)
	if dst.SymmetricDim() != n {
		panic("objective: hessian dimension mismatch")
	}
	switch {
	case o.Hess != nil:
		o.Hess(dst, x)
	case o.HessVec != nil:
		e := make([]float64, n)
		col := make([]float64, n)
		for j := 0; j < n; j++ {
			e[j] = 1
			o.HessVec(col, x, e)
			e[j] = 0
			for i := 0; i <= j; i++ {
				dst.SetSym(i, j, col[i])
			}
		}
	default:
		fd.Hessian(dst, o.Func, x, nil)
	}
}

// HessianVec stores ∇²f(x)·v into dst. Without analytic second-order
// information it differences the gradient along v.
func (o *Objective) HessianVec(dst, x, v []float64) {
	n := len(x)
	if len(dst) != n || len(v) != n {
		panic("objective: hessian-vector length mismatch")
	}
	switch {
	case o.HessVec != nil:
		o.HessVec(dst, x, v)
	case o.Hess != nil:
		h := mat.NewSymDense(n, nil)
		o.Hess(h, x)
		mat.NewVecDense(n, dst).MulVec(h, mat.NewVecDense(n, v))
	default:
		vn := floats.Norm(v, 2)
		if vn == 0 {
			for i := range dst {
				dst[i] = 0
			}
			return
		}
		eps := cbrtEps * math.Max(1, floats.Norm(x, 2)) / vn
		xp := make([]float64, n)
		xm := make([]float64, n)
		floats.AddScaledTo(xp, x, eps, v)
		floats.AddScaledTo(xm, x, -eps, v)
		gm := make([]float64, n)
		o.Gradient(dst, xp)
		o.Gradient(gm, xm)
		floats.Sub(dst, gm)
		floats.Scale(1/(2*eps), dst)
	}
}

var cbrtEps = math.Cbrt(math.Nextafter(1, 2) - 1)
