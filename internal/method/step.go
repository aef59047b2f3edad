package method

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// StepSize selects the scalar multiplying the direction at each iteration.
//
// The set of implementations is closed: Constant, Diminishing,
// DiminishingSqrt and Schedule implement Scheduled; Backtracking searches
// along the direction and is handled separately by the engine.
type StepSize interface {
	String() string
	stepSize()
}

// Scheduled is a StepSize that depends only on the iteration index.
type Scheduled interface {
	StepSize
	At(i int) float64
}

// Constant always returns LR.
type Constant struct{ LR float64 }

func (c Constant) At(int) float64 { return c.LR }
func (c Constant) String() string { return fmt.Sprintf("constant(%g)", c.LR) }
func (Constant) stepSize() {}

// Diminishing returns LR/(i+1).
type Diminishing struct{ LR float64 }

func (d Diminishing) At(i int) float64 { return d.LR / float64(i+1) }
func (d Diminishing) String() string { return fmt.Sprintf("decreasing(%g)", d.LR) }
func (Diminishing) stepSize() {}

// DiminishingSqrt returns LR/√(i+1).
type DiminishingSqrt struct{ LR float64 }

func (d DiminishingSqrt) At(i int) float64 { return d.LR / math.Sqrt(float64(i+1)) }
func (d DiminishingSqrt) String() string { return fmt.Sprintf("decreasing-half(%g)", d.LR) }
func (DiminishingSqrt) stepSize() {}

// Schedule wraps an externally supplied per-iteration step function.
type Schedule func(i int) float64

func (s Schedule) At(i int) float64 { return s(i) }
func (Schedule) String() string { return "schedule" }
func (Schedule) stepSize() {}

// DefaultMaxShrink bounds the number of backtracking reductions.
const DefaultMaxShrink = 100

// Backtracking is the Armijo search: start at t = 1 and set t ← βt while
//
//	f(x) - f(x + t·d) < -α·t·⟨∇f(x), d⟩
//
// A NaN trial value counts as insufficient decrease. At most MaxShrink
// reductions are made, and the search also stops before t underflows,
// so the accepted step always lies in (0, 1].
type Backtracking struct {
	Alpha     float64
	Beta      float64
	MaxShrink int
}

// NewBacktracking validates the Armijo constants. maxShrink <= 0 selects
// DefaultMaxShrink.
func NewBacktracking(alpha, beta float64, maxShrink int) (Backtracking, error) {
	if err := openUnit("alpha", alpha); err != nil {
		return Backtracking{}, err
	}
	if err := openUnit("beta", beta); err != nil {
		return Backtracking{}, err
	}
	if maxShrink <= 0 {
		maxShrink = DefaultMaxShrink
	}
	return Backtracking{Alpha: alpha, Beta: beta, MaxShrink: maxShrink}, nil
}

func (b Backtracking) String() string {
	return fmt.Sprintf("backtracking(alpha=%g, beta=%g)", b.Alpha, b.Beta)
}
func (Backtracking) stepSize() {}

// SearchResult describes one backtracking search.
type SearchResult struct {
	Step    float64
	Shrinks int
	Evals   int
	// Capped is set when the search stopped without satisfying the
	// sufficient-decrease condition.
	Capped bool
}

// Search runs the Armijo test from x along d, given f0 = f(x) and g = ∇f(x).
func (b Backtracking) Search(f func([]float64) float64, x, d, g []float64, f0 float64) SearchResult {
	gd := floats.Dot(g, d)
	trial := make([]float64, len(x))

	res := SearchResult{Step: 1}
	for {
		t := res.Step
		floats.AddScaledTo(trial, x, t, d)
		ft := f(trial)
		res.Evals++
		if f0-ft >= -b.Alpha*t*gd {
			return res
		}
		next := t * b.Beta
		if res.Shrinks >= b.MaxShrink || next == 0 {
			res.Capped = true
			return res
		}
		res.Step = next
		res.Shrinks++
	}
}
