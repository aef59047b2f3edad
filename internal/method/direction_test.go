package method

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/subspaceopt/internal/objective"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// diagQuadratic returns ½·Σ dᵢxᵢ² with analytic derivatives.
func diagQuadratic(d ...float64) *objective.Objective {
	return &objective.Objective{
		Func: func(x []float64) float64 {
			var f float64
			for i, v := range x {
				f += 0.5 * d[i] * v * v
			}
			return f
		},
		Grad: func(grad, x []float64) {
			for i, v := range x {
				grad[i] = d[i] * v
			}
		},
		Hess: func(dst *mat.SymDense, _ []float64) {
			for i := range d {
				for j := i; j < len(d); j++ {
					dst.SetSym(i, j, 0)
				}
				dst.SetSym(i, i, d[i])
			}
		},
	}
}

// coupled returns ½xᵗQx + bᵗx with a dense positive definite Q.
func coupled() *objective.Objective {
	q := mat.NewSymDense(3, []float64{
		4, 1, 0.5,
		1, 3, 0.2,
		0.5, 0.2, 2,
	})
	b := []float64{1, -2, 0.5}
	return &objective.Objective{
		Func: func(x []float64) float64 {
			xv := mat.NewVecDense(3, x)
			return 0.5*mat.Inner(xv, q, xv) + floats.Dot(b, x)
		},
		Grad: func(grad, x []float64) {
			mat.NewVecDense(3, grad).MulVec(q, mat.NewVecDense(3, x))
			floats.Add(grad, b)
		},
		Hess: func(dst *mat.SymDense, _ []float64) { dst.CopySym(q) },
	}
}

func newEval(obj *objective.Objective, x []float64) *Evaluation {
	return &Evaluation{
		Obj:  obj,
		X:    x,
		F:    obj.Value(x),
		Grad: make([]float64, len(x)),
		Dir:  make([]float64, len(x)),
	}
}

func direction(t *testing.T, d Direction, obj *objective.Objective, x []float64) *Evaluation {
	t.Helper()
	ev := newEval(obj, x)
	require.NoError(t, d.Compute(ev))
	return ev
}

func TestGradientDirection(t *testing.T) {
	ev := direction(t, NewGradient(), diagQuadratic(1, 2), []float64{1, -3})
	assert.Equal(t, []float64{1, -6}, ev.Grad)
	assert.Equal(t, []float64{-1, 6}, ev.Dir)
}

func TestGradientDescentDecreasesWithInverseLipschitzStep(t *testing.T) {
	obj := coupled()
	x := []float64{3, -1, 2}
	prev := obj.Value(x)
	// Largest eigenvalue of Q is below 5.
	lr := 1.0 / 5
	for i := 0; i < 50; i++ {
		ev := direction(t, NewGradient(), obj, x)
		floats.AddScaled(x, lr, ev.Dir)
		f := obj.Value(x)
		require.LessOrEqual(t, f, prev, "iteration %d", i)
		prev = f
	}
}

func TestSubspaceGradientWithIdentityMatchesGradient(t *testing.T) {
	obj := coupled()
	x := []float64{0.3, 0.7, -1.1}

	sgd, err := NewSubspaceGradient(3, IdentitySource{})
	require.NoError(t, err)
	got := direction(t, sgd, obj, append([]float64(nil), x...))
	want := direction(t, NewGradient(), obj, append([]float64(nil), x...))

	assert.InDeltaSlice(t, want.Dir, got.Dir, 1e-12)
	r, c := sgd.Projection().Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
}

func TestSubspaceGradientProjectionShape(t *testing.T) {
	src := NewGaussianSource(rand.New(rand.NewPCG(1, 2)))
	sgd, err := NewSubspaceGradient(2, src)
	require.NoError(t, err)
	require.NoError(t, sgd.CheckDim(5))

	ev := direction(t, sgd, diagQuadratic(1, 1, 1, 1, 1), []float64{1, 2, 3, 4, 5})
	require.Len(t, ev.Dir, 5)
	r, c := sgd.Projection().Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 5, c)
	// -PᵗPg is a descent direction.
	assert.Less(t, floats.Dot(ev.Dir, ev.Grad), 0.0)
}

func TestSubspaceDimensionChecks(t *testing.T) {
	sgd, err := NewSubspaceGradient(4, IdentitySource{})
	require.NoError(t, err)
	var inv *InvalidArgumentError
	require.ErrorAs(t, sgd.CheckDim(3), &inv)
	assert.Equal(t, "reduced_dim", inv.Name)

	sn, err := NewSubspaceNewton(4, IdentitySource{})
	require.NoError(t, err)
	require.Error(t, sn.CheckDim(2))

	rnm, err := NewRegularizedNewton(1, 1, 1, 4, IdentitySource{})
	require.NoError(t, err)
	require.Error(t, rnm.CheckDim(3))
	require.NoError(t, rnm.CheckDim(4))

	_, err = NewSubspaceGradient(0, IdentitySource{})
	require.ErrorAs(t, err, &inv)
}

func TestAcceleratedBeatsGradientOnIllConditionedQuadratic(t *testing.T) {
	obj := diagQuadratic(1, 0.01)
	const iters = 100

	xg := []float64{1, 1}
	for i := 0; i < iters; i++ {
		ev := direction(t, NewGradient(), obj, xg)
		floats.AddScaled(xg, 1, ev.Dir)
	}

	agd, err := NewAccelerated(1)
	require.NoError(t, err)
	xa := []float64{1, 1}
	for i := 0; i < iters; i++ {
		ev := direction(t, agd, obj, xa)
		floats.AddScaled(xa, 1, ev.Dir)
	}

	fg, fa := obj.Value(xg), obj.Value(xa)
	assert.Less(t, fa, fg/10, "agd=%g gd=%g", fa, fg)
}

func TestAcceleratedFirstStepIsGradientStep(t *testing.T) {
	agd, err := NewAccelerated(0.1)
	require.NoError(t, err)
	ev := direction(t, agd, diagQuadratic(1, 1), []float64{1, 1})
	// λ₀ = 0 gives γ = 1, so x₁ = y₀ = x₀ and only y advances.
	lambda, y := agd.State()
	assert.Equal(t, 1.0, lambda)
	assert.InDeltaSlice(t, []float64{0.9, 0.9}, y, 1e-15)
	assert.InDeltaSlice(t, []float64{0, 0}, ev.Dir, 1e-15)
}

func TestAcceleratedStateRestore(t *testing.T) {
	obj := coupled()

	full, err := NewAccelerated(0.2)
	require.NoError(t, err)
	x := []float64{1, 2, 3}
	for i := 0; i < 5; i++ {
		ev := direction(t, full, obj, x)
		floats.Add(x, ev.Dir)
	}

	first, err := NewAccelerated(0.2)
	require.NoError(t, err)
	xr := []float64{1, 2, 3}
	for i := 0; i < 3; i++ {
		ev := direction(t, first, obj, xr)
		floats.Add(xr, ev.Dir)
	}
	lambda, y := first.State()

	second, err := NewAccelerated(0.2)
	require.NoError(t, err)
	second.Restore(lambda, y)
	for i := 0; i < 2; i++ {
		ev := direction(t, second, obj, xr)
		floats.Add(xr, ev.Dir)
	}
	assert.Equal(t, x, xr)
}

func TestNewtonSolvesQuadraticInOneStep(t *testing.T) {
	obj := coupled()
	x := []float64{5, -5, 5}
	ev := direction(t, NewNewton(), obj, x)
	floats.Add(x, ev.Dir)

	g := make([]float64, 3)
	obj.Gradient(g, x)
	assert.InDelta(t, 0, floats.Norm(g, 2), 1e-10)
}

func TestSubspaceNewtonWithIdentityMatchesNewton(t *testing.T) {
	obj := coupled()
	x := []float64{1, 2, -1}

	sn, err := NewSubspaceNewton(3, IdentitySource{})
	require.NoError(t, err)
	got := direction(t, sn, obj, append([]float64(nil), x...))
	want := direction(t, NewNewton(), obj, append([]float64(nil), x...))
	assert.InDeltaSlice(t, want.Dir, got.Dir, 1e-9)
}

func TestSubspaceNewtonIsDescentDirection(t *testing.T) {
	src := NewGaussianSource(rand.New(rand.NewPCG(7, 7)))
	sn, err := NewSubspaceNewton(2, src)
	require.NoError(t, err)
	ev := direction(t, sn, coupled(), []float64{1, 1, 1})
	assert.Less(t, floats.Dot(ev.Dir, ev.Grad), 0.0)
	r, c := sn.Projection().Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
}

func TestRegularizedNewtonWithoutShiftMatchesNewton(t *testing.T) {
	obj := coupled()
	x := []float64{0.5, -0.5, 2}

	rnm, err := NewRegularizedNewton(0, 0, 1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, NameRNM, rnm.Name())
	got := direction(t, rnm, obj, append([]float64(nil), x...))
	want := direction(t, NewNewton(), obj, append([]float64(nil), x...))
	assert.InDeltaSlice(t, want.Dir, got.Dir, 1e-9)
}

func TestRegularizedNewtonHandlesIndefiniteHessian(t *testing.T) {
	// Saddle: ½(x₀² - x₁²).
	obj := diagQuadratic(1, -1)
	rnm, err := NewRegularizedNewton(2, 1, 1, 0, nil)
	require.NoError(t, err)

	ev := direction(t, rnm, obj, []float64{1, 0.5})
	require.True(t, allFinite(ev.Dir))
	// λmin = -1 and ‖g‖ = √1.25, so M = diag(1, -1) + (2 + √1.25)·I is
	// positive definite and the direction descends.
	assert.Less(t, floats.Dot(ev.Dir, ev.Grad), 0.0)

	shift := 2 + math.Sqrt(1.25)
	assert.InDelta(t, -1/(1+shift), ev.Dir[0], 1e-12)
	assert.InDelta(t, 0.5/(-1+shift), ev.Dir[1], 1e-12)
}

func TestSubspaceRegularizedNewtonName(t *testing.T) {
	rnm, err := NewRegularizedNewton(1, 1, 0.5, 2, IdentitySource{})
	require.NoError(t, err)
	assert.Equal(t, NameSubspaceRNM, rnm.Name())

	ev := direction(t, rnm, coupled(), []float64{1, 2, 3})
	assert.Len(t, ev.Dir, 3)
	// Identity block: the third coordinate is outside the subspace.
	assert.Equal(t, 0.0, ev.Dir[2])
}

func TestNewtonSingularHessianIsIllConditioned(t *testing.T) {
	obj := diagQuadratic(2, 0)
	ev := newEval(obj, []float64{1, 1})
	err := NewNewton().Compute(ev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllConditioned))

	var ill *IllConditionedError
	require.ErrorAs(t, err, &ill)
	assert.Equal(t, NameNewton, ill.Method)
	assert.Equal(t, 2, ill.Dim)
}

func TestOrthonormalColumns(t *testing.T) {
	src := NewGaussianSource(rand.New(rand.NewPCG(3, 4)))
	q := src.Orthonormal(6, 4)

	var qtq mat.Dense
	qtq.Mul(q.T(), q)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, qtq.At(i, j), 1e-12)
		}
	}
}
