package baseline

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MinPopulation is the smallest population mayfly accepts.
const MinPopulation = 20

// Mayfly wraps the external Mayfly library to conform to the Optimizer
// interface.
type Mayfly struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a Mayfly optimizer.
func NewMayfly(maxIters, popSize int, seed int64) *Mayfly {
	return &Mayfly{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes Mayfly. The library takes scalar bounds, so every dimension
// must share the same interval; the widest interval is used.
func (m *Mayfly) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	if dim <= 0 || len(lower) < dim || len(upper) < dim {
		return nil, 0, fmt.Errorf("mayfly: invalid dimension %d for %d/%d bounds", dim, len(lower), len(upper))
	}
	if m.popSize < MinPopulation {
		return nil, 0, fmt.Errorf("mayfly: population %d below minimum %d", m.popSize, MinPopulation)
	}
	if m.maxIters <= 0 {
		return nil, 0, fmt.Errorf("mayfly: iterations must be positive, got %d", m.maxIters)
	}

	lo, hi := lower[0], upper[0]
	for i := 1; i < dim; i++ {
		lo = min(lo, lower[i])
		hi = max(hi, upper[i])
	}
	if !(lo < hi) {
		return nil, 0, fmt.Errorf("mayfly: empty box [%g, %g]", lo, hi)
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lo
	config.UpperBound = hi
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly: %w", err)
	}
	return result.GlobalBest.Position, result.GlobalBest.Cost, nil
}
