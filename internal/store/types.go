package store

import (
	"fmt"
	"time"
)

// RunConfig is the checkpoint copy of a run's configuration. It mirrors
// engine.Config without importing it.
type RunConfig struct {
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
	Problem string         `json:"problem,omitempty"`
	// ProblemParams records how the objective was generated.
	ProblemParams map[string]any `json:"problemParams,omitempty"`
	Dim           int            `json:"dim"`
	Iterations    int            `json:"iterations"`
	Interval      int            `json:"interval"`
	Suffix        string         `json:"suffix,omitempty"`
	Seed          uint64         `json:"seed"`
}

// Checkpoint is the manifest of a partially or fully completed run. The
// metric series live next to it in per-series files; the manifest holds
// everything needed to continue the run from Iteration.
//
// Checkpoints only grow: a later checkpoint of the same run has a larger
// Iteration and its series extend the earlier prefixes.
type Checkpoint struct {
	RunID string `json:"runId"`

	// Iteration is the number of completed iterations.
	Iteration int `json:"iteration"`

	// MinValue is the smallest objective value seen so far, InitialValue
	// is f(x₀).
	MinValue     Float `json:"minValue"`
	InitialValue Float `json:"initialValue"`

	// X is the current point, i.e. the point the next iteration starts from.
	X Vector `json:"x"`

	// Lambda and Y carry the accelerated-gradient state. Y is nil for other
	// methods.
	Lambda float64 `json:"lambda,omitempty"`
	Y      Vector  `json:"y,omitempty"`

	// RNG is the marshaled state of the projection generator.
	RNG []byte `json:"rng,omitempty"`

	// Elapsed is the cumulative compute time excluding evaluation latency.
	Elapsed time.Duration `json:"elapsed"`
	Evals   int           `json:"evals"`

	Timestamp time.Time `json:"timestamp"`
	Config    RunConfig `json:"config"`
}

// CheckpointInfo is the listing view of a checkpoint.
type CheckpointInfo struct {
	RunID      string    `json:"runId"`
	Method     string    `json:"method"`
	Problem    string    `json:"problem,omitempty"`
	Dim        int       `json:"dim"`
	Iteration  int       `json:"iteration"`
	Iterations int       `json:"iterations"`
	MinValue   float64   `json:"minValue"`
	Timestamp  time.Time `json:"timestamp"`
}

// Complete reports whether the run finished its iteration budget.
func (c CheckpointInfo) Complete() bool { return c.Iteration >= c.Iterations }

// ToInfo converts a full Checkpoint to CheckpointInfo.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		RunID:      c.RunID,
		Method:     c.Config.Method,
		Problem:    c.Config.Problem,
		Dim:        c.Config.Dim,
		Iteration:  c.Iteration,
		Iterations: c.Config.Iterations,
		MinValue:   float64(c.MinValue),
		Timestamp:  c.Timestamp,
	}
}

// Validate checks the manifest for internal consistency.
func (c *Checkpoint) Validate() error {
	if c.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if c.Config.Method == "" {
		return &ValidationError{Field: "Config.Method", Reason: "cannot be empty"}
	}
	if c.Config.Dim <= 0 {
		return &ValidationError{Field: "Config.Dim", Reason: "must be positive"}
	}
	if c.Config.Iterations <= 0 {
		return &ValidationError{Field: "Config.Iterations", Reason: "must be positive"}
	}
	if c.Config.Interval <= 0 || c.Config.Iterations%c.Config.Interval != 0 {
		return &ValidationError{Field: "Config.Interval", Reason: fmt.Sprintf("must divide %d", c.Config.Iterations)}
	}
	if c.Iteration < 0 || c.Iteration > c.Config.Iterations {
		return &ValidationError{Field: "Iteration", Reason: fmt.Sprintf("must be within [0, %d]", c.Config.Iterations)}
	}
	if len(c.X) != c.Config.Dim {
		return &ValidationError{
			Field:  "X",
			Reason: fmt.Sprintf("length mismatch: expected %d, got %d", c.Config.Dim, len(c.X)),
		}
	}
	if c.Y != nil && len(c.Y) != c.Config.Dim {
		return &ValidationError{
			Field:  "Y",
			Reason: fmt.Sprintf("length mismatch: expected %d, got %d", c.Config.Dim, len(c.Y)),
		}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether a run configured with config can continue
// from this checkpoint.
func (c *Checkpoint) IsCompatible(config RunConfig) error {
	if c.Config.Method != config.Method {
		return &CompatibilityError{Field: "Method", Expected: c.Config.Method, Actual: config.Method}
	}
	if c.Config.Dim != config.Dim {
		return &CompatibilityError{
			Field:    "Dim",
			Expected: fmt.Sprintf("%d", c.Config.Dim),
			Actual:   fmt.Sprintf("%d", config.Dim),
		}
	}
	if c.Config.Iterations != config.Iterations {
		return &CompatibilityError{
			Field:    "Iterations",
			Expected: fmt.Sprintf("%d", c.Config.Iterations),
			Actual:   fmt.Sprintf("%d", config.Iterations),
		}
	}
	if c.Config.Suffix != config.Suffix {
		return &CompatibilityError{Field: "Suffix", Expected: c.Config.Suffix, Actual: config.Suffix}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
