package method

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RandomGradientFree estimates the gradient from finite differences along
// SampleSize Gaussian directions pᵢ with N(0, 1/s) entries:
//
//	one-sided: ĝ = Σ (f(x+μpᵢ) - f(x)) / μ · pᵢ
//	central:   ĝ = Σ (f(x+μpᵢ) - f(x-μpᵢ)) / (2μ) · pᵢ
//
// and returns d = -ĝ. It needs no derivatives of f; each call costs s
// (one-sided) or 2s (central) extra evaluations.
type RandomGradientFree struct {
	Mu         float64
	SampleSize int
	Central    bool

	src ProjectionSource
}

// NewRandomGradientFree validates mu and sampleSize.
func NewRandomGradientFree(mu float64, sampleSize int, central bool, src ProjectionSource) (*RandomGradientFree, error) {
	if err := positive("mu", mu); err != nil {
		return nil, err
	}
	if err := atLeastOne("sample_size", sampleSize); err != nil {
		return nil, err
	}
	return &RandomGradientFree{Mu: mu, SampleSize: sampleSize, Central: central, src: src}, nil
}

func (*RandomGradientFree) Name() string { return NameRGF }
func (*RandomGradientFree) CheckDim(int) error { return nil }
func (*RandomGradientFree) direction() {}

func (z *RandomGradientFree) Compute(ev *Evaluation) error {
	p := z.src.Gaussian(len(ev.X), z.SampleSize, invSqrt(z.SampleSize))
	ev.Evals += estimate(ev, p, z.Mu, z.Central, 1)
	return nil
}

// OrthogonalZeroth is the central-difference estimator over a set of
// SampleSize mutually orthonormal directions, scaled by D/s so that the
// estimate is unbiased; with s = D it recovers the full gradient up to
// the difference error.
type OrthogonalZeroth struct {
	Mu         float64
	SampleSize int

	src ProjectionSource
}

// NewOrthogonalZeroth validates mu and sampleSize.
func NewOrthogonalZeroth(mu float64, sampleSize int, src ProjectionSource) (*OrthogonalZeroth, error) {
	if err := positive("mu", mu); err != nil {
		return nil, err
	}
	if err := atLeastOne("sample_size", sampleSize); err != nil {
		return nil, err
	}
	return &OrthogonalZeroth{Mu: mu, SampleSize: sampleSize, src: src}, nil
}

func (*OrthogonalZeroth) Name() string { return NameOZD }
func (*OrthogonalZeroth) direction() {}

func (z *OrthogonalZeroth) CheckDim(dim int) error {
	if z.SampleSize > dim {
		return invalid("sample_size", z.SampleSize, "orthogonal directions cannot exceed problem dimension %d", dim)
	}
	return nil
}

func (z *OrthogonalZeroth) Compute(ev *Evaluation) error {
	n := len(ev.X)
	q := z.src.Orthonormal(n, z.SampleSize)
	ev.Evals += estimate(ev, q, z.Mu, true, float64(n)/float64(z.SampleSize))
	return nil
}

// estimate writes scale·Σ δᵢ·pᵢ into ev.Grad and its negation into ev.Dir,
// where δᵢ is the finite-difference slope along column i of p. It returns
// the number of objective evaluations.
func estimate(ev *Evaluation, p *mat.Dense, mu float64, central bool, scale float64) int {
	n, s := p.Dims()
	col := make([]float64, n)
	trial := make([]float64, n)
	for i := range ev.Grad {
		ev.Grad[i] = 0
	}

	evals := 0
	for j := 0; j < s; j++ {
		mat.Col(col, j, p)
		floats.AddScaledTo(trial, ev.X, mu, col)
		fp := ev.Obj.Value(trial)
		evals++

		var slope float64
		if central {
			floats.AddScaledTo(trial, ev.X, -mu, col)
			fm := ev.Obj.Value(trial)
			evals++
			slope = (fp - fm) / (2 * mu)
		} else {
			slope = (fp - ev.F) / mu
		}
		floats.AddScaled(ev.Grad, scale*slope, col)
	}
	floats.ScaleTo(ev.Dir, -1, ev.Grad)
	return evals
}
