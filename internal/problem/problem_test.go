package problem

import (
	"math"
	"testing"

	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func checkGradient(t *testing.T, p *Problem, x []float64, tol float64) {
	t.Helper()
	got := make([]float64, len(x))
	p.Objective.Grad(got, x)
	want := fd.Gradient(nil, p.Objective.Func, x, &fd.Settings{Formula: fd.Central})
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "%s: gradient[%d]", p.Name, i)
	}
}

func eigenvalues(t *testing.T, p *Problem) []float64 {
	t.Helper()
	n := p.Dim()
	h := mat.NewSymDense(n, nil)
	p.Objective.Hess(h, p.X0)
	var eig mat.EigenSym
	require.True(t, eig.Factorize(h, false))
	return eig.Values(nil)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, 8)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, NameRosenbrock)
}

func TestNew_UnknownProblem(t *testing.T) {
	_, err := New("nope", nil, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown problem")
}

func TestNew_MissingDim(t *testing.T) {
	_, err := New(NameSphere, nil, 1)
	var invalid *method.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "dim", invalid.Name)
}

func TestNew_Deterministic(t *testing.T) {
	props := method.Params{"dim": 6, "property": StronglyConvex}
	a, err := New(NameQuadratic, props, 7)
	require.NoError(t, err)
	b, err := New(NameQuadratic, props, 7)
	require.NoError(t, err)
	c, err := New(NameQuadratic, props, 8)
	require.NoError(t, err)

	assert.Equal(t, a.X0, b.X0)
	assert.Equal(t, a.Objective.Func(a.X0), b.Objective.Func(b.X0))
	assert.NotEqual(t, a.X0, c.X0)
}

func TestSphere(t *testing.T) {
	p, err := New(NameSphere, method.Params{"dim": 4}, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, p.X0)
	assert.Equal(t, 2.0, p.Objective.Func(p.X0))
	assert.InDeltaSlice(t, []float64{1, 1, 1, 1}, eigenvalues(t, p), 1e-12)
}

func TestQuadratic_Properties(t *testing.T) {
	cases := []struct {
		name  string
		props method.Params
		check func(t *testing.T, eig []float64)
	}{
		{
			name:  "convex low rank",
			props: method.Params{"dim": 8, "rank": 3, "property": Convex},
			check: func(t *testing.T, eig []float64) {
				nonzero := 0
				for _, v := range eig {
					assert.GreaterOrEqual(t, v, -1e-10)
					if v > 1e-10 {
						nonzero++
					}
				}
				assert.Equal(t, 3, nonzero)
			},
		},
		{
			name:  "strongly convex",
			props: method.Params{"dim": 8, "property": StronglyConvex},
			check: func(t *testing.T, eig []float64) {
				assert.GreaterOrEqual(t, floats.Min(eig), 1-1e-9)
			},
		},
		{
			name:  "nonconvex",
			props: method.Params{"dim": 20, "property": Nonconvex},
			check: func(t *testing.T, eig []float64) {
				assert.Less(t, floats.Min(eig), 0.0)
				assert.Greater(t, floats.Max(eig), 0.0)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(NameQuadratic, tc.props, 3)
			require.NoError(t, err)
			tc.check(t, eigenvalues(t, p))
			checkGradient(t, p, p.X0, 1e-4)
		})
	}
}

func TestQuadratic_InvalidArguments(t *testing.T) {
	_, err := New(NameQuadratic, method.Params{"dim": 4, "rank": 5}, 0)
	assert.ErrorContains(t, err, "rank 5")
	_, err = New(NameQuadratic, method.Params{"dim": 4, "property": "concave"}, 0)
	assert.ErrorContains(t, err, "unknown property")
}

func TestLogistic(t *testing.T) {
	p, err := New(NameLogistic, method.Params{"dim": 5, "data_num": 40}, 11)
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, p.Objective.Func(make([]float64, 5)), 1e-12)

	x := []float64{0.3, -0.2, 0.1, 0.5, -0.4}
	checkGradient(t, p, x, 1e-6)

	got := mat.NewSymDense(5, nil)
	p.Objective.Hess(got, x)
	want := mat.NewSymDense(5, nil)
	fd.Hessian(want, p.Objective.Func, x, nil)
	assert.True(t, mat.EqualApprox(got, want, 1e-4))
}

func TestSoftmax(t *testing.T) {
	p, err := New(NameSoftmax, method.Params{"features": 4, "classes": 3, "data_num": 25}, 5)
	require.NoError(t, err)
	require.Equal(t, 4*3+3, p.Dim())
	assert.InDelta(t, math.Log(3), p.Objective.Func(p.X0), 1e-12)

	x := make([]float64, p.Dim())
	for i := range x {
		x[i] = 0.1 * float64(i%5-2)
	}
	checkGradient(t, p, x, 1e-6)
}

func TestRosenbrock(t *testing.T) {
	p, err := New(NameRosenbrock, method.Params{"dim": 4}, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1.2, 1, -1.2, 1}, p.X0)
	assert.InDelta(t, 0, p.Objective.Func([]float64{1, 1, 1, 1}), 1e-12)
	checkGradient(t, p, p.X0, 1e-4)

	got := mat.NewSymDense(4, nil)
	p.Objective.Hess(got, p.X0)
	want := mat.NewSymDense(4, nil)
	fd.Hessian(want, p.Objective.Func, p.X0, nil)
	assert.True(t, mat.EqualApprox(got, want, 1e-2))

	_, err = New(NameRosenbrock, method.Params{"dim": 1}, 0)
	assert.Error(t, err)
}

func TestMaxLinear(t *testing.T) {
	p, err := New(NameMaxLinear, method.Params{"dim": 3, "number": 6}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Objective.Func(make([]float64, 3)))

	x := []float64{0.5, -1, 2}
	grad := make([]float64, 3)
	p.Objective.Grad(grad, x)
	// Moving along the active row changes f at rate ‖row‖².
	h := 1e-6
	y := append([]float64(nil), x...)
	floats.AddScaled(y, h, grad)
	rate := (p.Objective.Func(y) - p.Objective.Func(x)) / h
	assert.InDelta(t, floats.Dot(grad, grad), rate, 1e-4)
}

func TestPiecewiseLinear(t *testing.T) {
	p, err := New(NamePiecewiseLinear, method.Params{"dim": 5}, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.Objective.Func(p.X0))
	assert.Equal(t, 0.0, p.Objective.Func(ones(5)))

	grad := make([]float64, 5)
	p.Objective.Grad(grad, p.X0)
	assert.Equal(t, []float64{-3, -1, -1, -1, 1}, grad)
}

func TestSubspaceNorm(t *testing.T) {
	p, err := New(NameSubspaceNorm, method.Params{"dim": 5, "subspace": 2, "ord": 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Objective.Func(p.X0))

	grad := make([]float64, 5)
	p.Objective.Grad(grad, []float64{-2, 1, 7, 7, 7})
	assert.Equal(t, []float64{-12, 3, 0, 0, 0}, grad)
}

func TestRegularized(t *testing.T) {
	p, err := New(NameSphere, method.Params{"dim": 3, "coef": 0.5}, 0)
	require.NoError(t, err)
	assert.Equal(t, "sphere-regularized", p.Name)
	assert.InDelta(t, 1.5+0.5*3, p.Objective.Func(p.X0), 1e-12)

	grad := make([]float64, 3)
	p.Objective.Grad(grad, p.X0)
	assert.Equal(t, []float64{1.5, 1.5, 1.5}, grad)

	fused, err := New(NameSphere, method.Params{"dim": 3, "coef": 1, "ord": 2, "fused": true}, 0)
	require.NoError(t, err)
	x := []float64{1, 2, 4}
	assert.InDelta(t, 10.5+math.Sqrt(5), fused.Objective.Func(x), 1e-12)
	checkGradient(t, fused, x, 1e-6)
}

func TestRegularized_InvalidArguments(t *testing.T) {
	_, err := New(NameSphere, method.Params{"dim": 1, "coef": 1, "fused": true}, 0)
	assert.ErrorContains(t, err, "fused")
	_, err = New(NameSphere, method.Params{"dim": 3, "coef": 1, "ord": 0.5}, 0)
	assert.ErrorContains(t, err, "ord")
}

func TestFromParams(t *testing.T) {
	props := method.Params{"dim": 4, "property": Nonconvex, "seed": 9}
	a, err := FromParams(NameQuadratic, props)
	require.NoError(t, err)
	b, err := New(NameQuadratic, props, 9)
	require.NoError(t, err)
	assert.Equal(t, b.X0, a.X0)

	_, err = FromParams(NameSphere, method.Params{"dim": 2, "seed": -1})
	assert.ErrorContains(t, err, "non-negative")
}
