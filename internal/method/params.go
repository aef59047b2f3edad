package method

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Params is the flat hyperparameter mapping read from a run configuration.
// Keys with nil values are treated as absent, so one mapping can carry the
// union of keys used by a sweep.
type Params map[string]any

func invalid(name string, value any, format string, args ...any) error {
	return errors.WithStack(&InvalidArgumentError{
		Name:    name,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p Params) lookup(name string) (any, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Float returns the named value as a float64.
func (p Params) Float(name string) (float64, error) {
	v, ok := p.lookup(name)
	if !ok {
		return 0, invalid(name, nil, "required")
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, invalid(name, v, "not a number")
		}
		f = parsed
	default:
		return 0, invalid(name, v, "unsupported type %T", v)
	}
	if math.IsNaN(f) {
		return 0, invalid(name, v, "not a number")
	}
	return f, nil
}

// Int returns the named value as an int. Integral floats are accepted.
func (p Params) Int(name string) (int, error) {
	v, ok := p.lookup(name)
	if !ok {
		return 0, invalid(name, nil, "required")
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, invalid(name, v, "not an integer")
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, invalid(name, v, "not an integer")
		}
		return n, nil
	default:
		return 0, invalid(name, v, "unsupported type %T", v)
	}
}

// Bool returns the named value as a bool.
func (p Params) Bool(name string) (bool, error) {
	v, ok := p.lookup(name)
	if !ok {
		return false, invalid(name, nil, "required")
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, invalid(name, v, "not a boolean")
		}
		return b, nil
	default:
		return false, invalid(name, v, "unsupported type %T", v)
	}
}

// String returns the named value as a string.
func (p Params) String(name string) (string, error) {
	v, ok := p.lookup(name)
	if !ok {
		return "", invalid(name, nil, "required")
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(name, v, "unsupported type %T", v)
	}
	return s, nil
}

func (p Params) has(name string) bool {
	_, ok := p.lookup(name)
	return ok
}

func (p Params) intOr(name string, def int) (int, error) {
	if !p.has(name) {
		return def, nil
	}
	return p.Int(name)
}

func (p Params) boolOr(name string, def bool) (bool, error) {
	if !p.has(name) {
		return def, nil
	}
	return p.Bool(name)
}

func (p Params) stringOr(name, def string) (string, error) {
	if !p.has(name) {
		return def, nil
	}
	return p.String(name)
}

// checkKeys rejects any non-nil key that the method does not recognize.
func (p Params) checkKeys(allowed ...string) error {
	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[k] = true
	}
	var unknown []string
	for k, v := range p {
		if v != nil && !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return invalid(unknown[0], p[unknown[0]], "unrecognized key (allowed: %v)", allowed)
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return invalid(name, v, "outside allowed range (0, Inf)")
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if !(v >= 0) || math.IsInf(v, 0) {
		return invalid(name, v, "outside allowed range [0, Inf)")
	}
	return nil
}

func openUnit(name string, v float64) error {
	if !(v > 0 && v < 1) {
		return invalid(name, v, "outside allowed range (0, 1)")
	}
	return nil
}

func atLeastOne(name string, v int) error {
	if v < 1 {
		return invalid(name, v, "must be at least 1")
	}
	return nil
}
