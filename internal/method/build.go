package method

import (
	"sort"
)

// Registry names.
const (
	NameGD             = "gd"
	NameRGD            = "rgd"
	NameAGD            = "agd"
	NameNewton         = "newton"
	NameSubspaceNewton = "subspace-newton"
	NameRNM            = "rnm"
	NameSubspaceRNM    = "subspace-rnm"
	NameRGF            = "rgf"
	NameOZD            = "ozd"
)

// Step schedule names accepted by the step_schedule key.
const (
	ScheduleConstant       = "constant"
	ScheduleDecreasing     = "decreasing"
	ScheduleDecreasingHalf = "decreasing-half"
)

// Method pairs a direction strategy with its step-size policy.
type Method struct {
	Name      string
	Direction Direction
	Step      StepSize
}

type builder func(p Params, src ProjectionSource) (*Method, error)

var builders = map[string]builder{
	NameGD:             buildGD,
	NameRGD:            buildRGD,
	NameAGD:            buildAGD,
	NameNewton:         buildNewton,
	NameSubspaceNewton: buildSubspaceNewton,
	NameRNM:            buildRNM(false),
	NameSubspaceRNM:    buildRNM(true),
	NameRGF:            buildRGF,
	NameOZD:            buildOZD,
}

// Names lists the registered methods in sorted order.
func Names() []string {
	out := make([]string, 0, len(builders))
	for name := range builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build validates params for the named method and constructs it. src
// supplies the random matrices of subspace and zeroth-order strategies and
// may be nil for the others.
func Build(name string, params Params, src ProjectionSource) (*Method, error) {
	b, ok := builders[name]
	if !ok {
		return nil, invalid("method", name, "unknown method (known: %v)", Names())
	}
	if params == nil {
		params = Params{}
	}
	if src == nil {
		src = IdentitySource{}
	}
	return b(params, src)
}

func buildGD(p Params, _ ProjectionSource) (*Method, error) {
	if err := p.checkKeys("lr"); err != nil {
		return nil, err
	}
	step, err := constantStep(p)
	if err != nil {
		return nil, err
	}
	return &Method{Name: NameGD, Direction: NewGradient(), Step: step}, nil
}

func buildRGD(p Params, src ProjectionSource) (*Method, error) {
	if err := p.checkKeys("reduced_dim", "lr"); err != nil {
		return nil, err
	}
	r, err := p.Int("reduced_dim")
	if err != nil {
		return nil, err
	}
	dir, err := NewSubspaceGradient(r, src)
	if err != nil {
		return nil, err
	}
	step, err := constantStep(p)
	if err != nil {
		return nil, err
	}
	return &Method{Name: NameRGD, Direction: dir, Step: step}, nil
}

func buildAGD(p Params, _ ProjectionSource) (*Method, error) {
	if err := p.checkKeys("lr"); err != nil {
		return nil, err
	}
	lr, err := p.Float("lr")
	if err != nil {
		return nil, err
	}
	dir, err := NewAccelerated(lr)
	if err != nil {
		return nil, err
	}
	return &Method{Name: NameAGD, Direction: dir, Step: Constant{LR: 1}}, nil
}

func buildNewton(p Params, _ ProjectionSource) (*Method, error) {
	if err := p.checkKeys("alpha", "beta", "max_backtracks"); err != nil {
		return nil, err
	}
	step, err := backtrackingStep(p)
	if err != nil {
		return nil, err
	}
	return &Method{Name: NameNewton, Direction: NewNewton(), Step: step}, nil
}

func buildSubspaceNewton(p Params, src ProjectionSource) (*Method, error) {
	if err := p.checkKeys("reduced_dim", "alpha", "beta", "max_backtracks"); err != nil {
		return nil, err
	}
	r, err := p.Int("reduced_dim")
	if err != nil {
		return nil, err
	}
	dir, err := NewSubspaceNewton(r, src)
	if err != nil {
		return nil, err
	}
	step, err := backtrackingStep(p)
	if err != nil {
		return nil, err
	}
	return &Method{Name: NameSubspaceNewton, Direction: dir, Step: step}, nil
}

func buildRNM(subspace bool) builder {
	return func(p Params, src ProjectionSource) (*Method, error) {
		keys := []string{"c1", "c2", "r", "alpha", "beta", "max_backtracks"}
		if subspace {
			keys = append(keys, "reduced_dim")
		}
		if err := p.checkKeys(keys...); err != nil {
			return nil, err
		}
		var c [3]float64
		for i, k := range []string{"c1", "c2", "r"} {
			v, err := p.Float(k)
			if err != nil {
				return nil, err
			}
			c[i] = v
		}
		reduced := 0
		if subspace {
			var err error
			if reduced, err = p.Int("reduced_dim"); err != nil {
				return nil, err
			}
			if err := atLeastOne("reduced_dim", reduced); err != nil {
				return nil, err
			}
		}
		dir, err := NewRegularizedNewton(c[0], c[1], c[2], reduced, src)
		if err != nil {
			return nil, err
		}
		step, err := backtrackingStep(p)
		if err != nil {
			return nil, err
		}
		return &Method{Name: dir.Name(), Direction: dir, Step: step}, nil
	}
}

func buildRGF(p Params, src ProjectionSource) (*Method, error) {
	if err := p.checkKeys("mu", "sample_size", "lr", "central", "step_schedule"); err != nil {
		return nil, err
	}
	mu, s, err := zerothKeys(p)
	if err != nil {
		return nil, err
	}
	central, err := p.boolOr("central", true)
	if err != nil {
		return nil, err
	}
	dir, err := NewRandomGradientFree(mu, s, central, src)
	if err != nil {
		return nil, err
	}
	step, err := scheduledStep(p)
	if err != nil {
		return nil, err
	}
	return &Method{Name: NameRGF, Direction: dir, Step: step}, nil
}

func buildOZD(p Params, src ProjectionSource) (*Method, error) {
	if err := p.checkKeys("mu", "sample_size", "lr", "step_schedule"); err != nil {
		return nil, err
	}
	mu, s, err := zerothKeys(p)
	if err != nil {
		return nil, err
	}
	dir, err := NewOrthogonalZeroth(mu, s, src)
	if err != nil {
		return nil, err
	}
	step, err := scheduledStep(p)
	if err != nil {
		return nil, err
	}
	return &Method{Name: NameOZD, Direction: dir, Step: step}, nil
}

func zerothKeys(p Params) (float64, int, error) {
	mu, err := p.Float("mu")
	if err != nil {
		return 0, 0, err
	}
	s, err := p.Int("sample_size")
	if err != nil {
		return 0, 0, err
	}
	return mu, s, nil
}

func constantStep(p Params) (StepSize, error) {
	lr, err := p.Float("lr")
	if err != nil {
		return nil, err
	}
	if err := positive("lr", lr); err != nil {
		return nil, err
	}
	return Constant{LR: lr}, nil
}

func scheduledStep(p Params) (StepSize, error) {
	lr, err := p.Float("lr")
	if err != nil {
		return nil, err
	}
	if err := positive("lr", lr); err != nil {
		return nil, err
	}
	schedule, err := p.stringOr("step_schedule", ScheduleConstant)
	if err != nil {
		return nil, err
	}
	switch schedule {
	case ScheduleConstant:
		return Constant{LR: lr}, nil
	case ScheduleDecreasing:
		return Diminishing{LR: lr}, nil
	case ScheduleDecreasingHalf:
		return DiminishingSqrt{LR: lr}, nil
	default:
		return nil, invalid("step_schedule", schedule, "expected %q, %q or %q",
			ScheduleConstant, ScheduleDecreasing, ScheduleDecreasingHalf)
	}
}

func backtrackingStep(p Params) (StepSize, error) {
	alpha, err := p.Float("alpha")
	if err != nil {
		return nil, err
	}
	beta, err := p.Float("beta")
	if err != nil {
		return nil, err
	}
	maxShrink, err := p.intOr("max_backtracks", DefaultMaxShrink)
	if err != nil {
		return nil, err
	}
	if maxShrink < 1 {
		return nil, invalid("max_backtracks", maxShrink, "must be at least 1")
	}
	return NewBacktracking(alpha, beta, maxShrink)
}
