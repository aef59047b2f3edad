package problem

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/objective"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/functions"
)

// sphere is ½xᵀx started from the all-ones point.
func sphere(props method.Params, _ *rand.Rand) (*Problem, error) {
	dim, err := dimension(props, 1)
	if err != nil {
		return nil, err
	}
	obj := &objective.Objective{
		Func: func(x []float64) float64 {
			return 0.5 * floats.Dot(x, x)
		},
		Grad: func(grad, x []float64) {
			copy(grad, x)
		},
		Hess: func(dst *mat.SymDense, x []float64) {
			for i := range x {
				for j := i; j < len(x); j++ {
					dst.SetSym(i, j, 0)
				}
				dst.SetSym(i, i, 1)
			}
		},
		HessVec: func(dst, _, v []float64) {
			copy(dst, v)
		},
	}
	return &Problem{Objective: obj, X0: ones(dim)}, nil
}

// Quadratic returns ½xᵀQx + bᵀx with its exact derivatives.
func Quadratic(q *mat.SymDense, b []float64) *objective.Objective {
	n := q.SymmetricDim()
	if len(b) != n {
		panic("problem: quadratic dimension mismatch")
	}
	return &objective.Objective{
		Func: func(x []float64) float64 {
			xv := mat.NewVecDense(n, x)
			return 0.5*mat.Inner(xv, q, xv) + floats.Dot(b, x)
		},
		Grad: func(grad, x []float64) {
			gv := mat.NewVecDense(n, grad)
			gv.MulVec(q, mat.NewVecDense(n, x))
			floats.Add(grad, b)
		},
		Hess: func(dst *mat.SymDense, _ []float64) {
			dst.CopySym(q)
		},
		HessVec: func(dst, _, v []float64) {
			dv := mat.NewVecDense(n, dst)
			dv.MulVec(q, mat.NewVecDense(n, v))
		},
	}
}

// quadratic draws Q by curvature class: convex is a rank-r PSD
// matrix, sconvex is PSD plus the identity, nonconvex is a symmetrized
// Gaussian matrix. b is Gaussian and x0 is Gaussian with scale 10.
func quadratic(props method.Params, rng *rand.Rand) (*Problem, error) {
	dim, err := dimension(props, 1)
	if err != nil {
		return nil, err
	}
	kind := Convex
	if has(props, "property") {
		if kind, err = props.String("property"); err != nil {
			return nil, err
		}
	}
	rank, err := intOr(props, "rank", dim)
	if err != nil {
		return nil, err
	}
	if rank < 1 || rank > dim {
		return nil, fmt.Errorf("rank %d outside [1, %d]", rank, dim)
	}

	q := mat.NewSymDense(dim, nil)
	switch kind {
	case Convex:
		a := mat.NewDense(rank, dim, randn(rng, rank*dim, 1))
		q.SymOuterK(1/float64(dim), a.T())
	case StronglyConvex:
		a := mat.NewDense(dim, dim, randn(rng, dim*dim, 1))
		q.SymOuterK(1/float64(dim), a.T())
		for i := 0; i < dim; i++ {
			q.SetSym(i, i, q.At(i, i)+1)
		}
	case Nonconvex:
		a := randn(rng, dim*dim, 1)
		scale := 1 / (2 * math.Sqrt(float64(dim)))
		for i := 0; i < dim; i++ {
			for j := i; j < dim; j++ {
				q.SetSym(i, j, scale*(a[i*dim+j]+a[j*dim+i]))
			}
		}
	default:
		return nil, fmt.Errorf("unknown property %q (available: %s, %s, %s)", kind, Convex, StronglyConvex, Nonconvex)
	}

	b := randn(rng, dim, 1)
	x0 := randn(rng, dim, 10)
	return &Problem{Objective: Quadratic(q, b), X0: x0}, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

// Logistic returns the mean logistic loss mean(log(1+exp(-y·Xx))) for
// labels in {-1, +1}.
func Logistic(x *mat.Dense, y []float64) *objective.Objective {
	n, d := x.Dims()
	if len(y) != n {
		panic("problem: logistic label count mismatch")
	}
	margins := func(w []float64) *mat.VecDense {
		a := mat.NewVecDense(n, nil)
		a.MulVec(x, mat.NewVecDense(d, w))
		return a
	}
	return &objective.Objective{
		Func: func(w []float64) float64 {
			a := margins(w)
			var sum float64
			for i := 0; i < n; i++ {
				sum += softplus(-y[i] * a.AtVec(i))
			}
			return sum / float64(n)
		},
		Grad: func(grad, w []float64) {
			a := margins(w)
			s := mat.NewVecDense(n, nil)
			for i := 0; i < n; i++ {
				s.SetVec(i, -y[i]*sigmoid(-y[i]*a.AtVec(i))/float64(n))
			}
			gv := mat.NewVecDense(d, grad)
			gv.MulVec(x.T(), s)
		},
		Hess: func(dst *mat.SymDense, w []float64) {
			a := margins(w)
			dst.Zero()
			for i := 0; i < n; i++ {
				p := sigmoid(a.AtVec(i))
				dst.SymRankOne(dst, p*(1-p)/float64(n), x.RowView(i))
			}
		},
	}
}

// logistic draws a Gaussian design with data_num rows and random ±1 labels.
func logistic(props method.Params, rng *rand.Rand) (*Problem, error) {
	dim, err := dimension(props, 1)
	if err != nil {
		return nil, err
	}
	n, err := intOr(props, "data_num", defaultDataSize)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("data_num %d must be positive", n)
	}
	x := mat.NewDense(n, dim, randn(rng, n*dim, 1))
	y := make([]float64, n)
	for i := range y {
		y[i] = 1
		if rng.IntN(2) == 0 {
			y[i] = -1
		}
	}
	return &Problem{Objective: Logistic(x, y), X0: randn(rng, dim, 10)}, nil
}

// Softmax returns the mean cross-entropy of a linear classifier over
// classes. The point holds the features×classes weight matrix in row-major
// order followed by one bias per class.
func Softmax(x *mat.Dense, labels []int, classes int) *objective.Objective {
	n, features := x.Dims()
	if len(labels) != n {
		panic("problem: softmax label count mismatch")
	}
	nw := features * classes

	// scores returns the class scores of every sample and the per-sample
	// log-partition values.
	scores := func(w []float64) (*mat.Dense, []float64) {
		s := mat.NewDense(n, classes, nil)
		s.Mul(x, mat.NewDense(features, classes, w[:nw]))
		bias := w[nw:]
		lse := make([]float64, n)
		for i := 0; i < n; i++ {
			row := s.RawRowView(i)
			floats.Add(row, bias)
			lse[i] = floats.LogSumExp(row)
		}
		return s, lse
	}
	return &objective.Objective{
		Func: func(w []float64) float64 {
			s, lse := scores(w)
			var sum float64
			for i := 0; i < n; i++ {
				sum += lse[i] - s.At(i, labels[i])
			}
			return sum / float64(n)
		},
		Grad: func(grad, w []float64) {
			p, lse := scores(w)
			for i := 0; i < n; i++ {
				row := p.RawRowView(i)
				for c := range row {
					row[c] = math.Exp(row[c] - lse[i])
				}
				row[labels[i]]--
			}
			p.Scale(1/float64(n), p)

			gw := mat.NewDense(features, classes, grad[:nw])
			gw.Mul(x.T(), p)
			gb := grad[nw:]
			for c := 0; c < classes; c++ {
				gb[c] = floats.Sum(mat.Col(nil, c, p))
			}
		},
	}
}

// softmax draws a Gaussian design and uniform class labels; the dimension
// follows from features and classes.
func softmax(props method.Params, rng *rand.Rand) (*Problem, error) {
	features, err := intOr(props, "features", 10)
	if err != nil {
		return nil, err
	}
	classes, err := intOr(props, "classes", 3)
	if err != nil {
		return nil, err
	}
	n, err := intOr(props, "data_num", defaultDataSize)
	if err != nil {
		return nil, err
	}
	if features < 1 || classes < 2 || n < 1 {
		return nil, fmt.Errorf("need features >= 1, classes >= 2, data_num >= 1 (got %d, %d, %d)", features, classes, n)
	}
	x := mat.NewDense(n, features, randn(rng, n*features, 1))
	labels := make([]int, n)
	for i := range labels {
		labels[i] = rng.IntN(classes)
	}
	dim := features*classes + classes
	return &Problem{Objective: Softmax(x, labels, classes), X0: make([]float64, dim)}, nil
}

// rosenbrock is the extended Rosenbrock function started from the classic
// (-1.2, 1, -1.2, 1, ...) point.
func rosenbrock(props method.Params, _ *rand.Rand) (*Problem, error) {
	dim, err := dimension(props, 2)
	if err != nil {
		return nil, err
	}
	var f functions.ExtendedRosenbrock
	x0 := make([]float64, dim)
	for i := range x0 {
		x0[i] = 1
		if i%2 == 0 {
			x0[i] = -1.2
		}
	}
	obj := &objective.Objective{
		Func: f.Func,
		Grad: f.Grad,
		Hess: rosenbrockHess,
	}
	return &Problem{Objective: obj, X0: x0}, nil
}

// rosenbrockHess is the tridiagonal Hessian of
// Σ (1-xᵢ)² + 100(xᵢ₊₁-xᵢ²)².
func rosenbrockHess(dst *mat.SymDense, x []float64) {
	n := len(x)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, 0)
		}
	}
	for i := 0; i < n-1; i++ {
		dst.SetSym(i, i, dst.At(i, i)+2+1200*x[i]*x[i]-400*x[i+1])
		dst.SetSym(i, i+1, -400*x[i])
		dst.SetSym(i+1, i+1, dst.At(i+1, i+1)+200)
	}
}
