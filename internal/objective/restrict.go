package objective

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Restrict returns the restriction of o to the affine subspace through x
// spanned by the columns of p, i.e. the function d ↦ f(x + P·d) of
// dimension p's column count. x is copied.
func Restrict(o *Objective, x []float64, p mat.Matrix) *Objective {
	n, r := p.Dims()
	if n != len(x) {
		panic("objective: projection row count must match point dimension")
	}
	base := append([]float64(nil), x...)
	lift := func(dst, d []float64) {
		mat.NewVecDense(n, dst).MulVec(p, mat.NewVecDense(r, d))
		for i := range dst {
			dst[i] += base[i]
		}
	}
	y := make([]float64, n)

	sub := &Objective{
		Func: func(d []float64) float64 {
			lift(y, d)
			return o.Func(y)
		},
	}
	if o.HasGrad() {
		g := make([]float64, n)
		sub.Grad = func(grad, d []float64) {
			lift(y, d)
			o.Grad(g, y)
			mat.NewVecDense(r, grad).MulVec(p.T(), mat.NewVecDense(n, g))
		}
	}
	return sub
}

// ReducedHessian stores PᵀHP into dst, where H = ∇²f(x) and P is n×r.
//
// With analytic second-order information only r Hessian-vector products
// are taken, so the full n×n Hessian is never formed when HessVec is
// available. Otherwise the r×r Hessian of the restriction d ↦ f(x+Pd) is
// approximated at d = 0 by finite differences.
func ReducedHessian(dst *mat.SymDense, o *Objective, x []float64, p mat.Matrix) {
	n, r := p.Dims()
	if dst.SymmetricDim() != r {
		panic("objective: reduced hessian dimension mismatch")
	}

	if !o.HasHess() {
		fd.Hessian(dst, Restrict(o, x, p).Func, make([]float64, r), nil)
		return
	}

	hp := mat.NewDense(n, r, nil)
	if o.HessVec != nil {
		col := make([]float64, n)
		hcol := make([]float64, n)
		for j := 0; j < r; j++ {
			mat.Col(col, j, p)
			o.HessianVec(hcol, x, col)
			hp.SetCol(j, hcol)
		}
	} else {
		h := mat.NewSymDense(n, nil)
		o.Hess(h, x)
		hp.Mul(h, p)
	}

	var php mat.Dense
	php.Mul(p.T(), hp)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			dst.SetSym(i, j, 0.5*(php.At(i, j)+php.At(j, i)))
		}
	}
}
