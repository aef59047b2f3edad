package method

import (
	"fmt"
)

// InvalidArgumentError reports a hyperparameter that is missing, has the
// wrong type, or lies outside its allowed range.
type InvalidArgumentError struct {
	Name    string
	Value   any
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s=%v: %s", e.Name, e.Value, e.Message)
}

// ErrIllConditioned matches any *IllConditionedError via errors.Is.
var ErrIllConditioned = &IllConditionedError{}

// IllConditionedError is returned when a Newton-type linear system cannot
// be solved to a finite direction.
type IllConditionedError struct {
	Method string
	Dim    int
	Cond   float64
}

func (e *IllConditionedError) Error() string {
	if e.Method == "" {
		return "ill-conditioned system"
	}
	return fmt.Sprintf("%s: ill-conditioned %dx%d system (cond=%g)", e.Method, e.Dim, e.Dim, e.Cond)
}

func (e *IllConditionedError) Is(target error) bool {
	_, ok := target.(*IllConditionedError)
	return ok
}
