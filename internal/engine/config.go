package engine

import (
	"fmt"

	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/store"
)

// Config describes one run. The mapstructure tags let the CLI decode it
// from viper.
type Config struct {
	// Method is a registry name from method.Names.
	Method string `mapstructure:"method"`
	// Params holds the method's hyperparameters.
	Params method.Params `mapstructure:"params"`
	// Problem labels the objective in checkpoints and listings.
	Problem string `mapstructure:"problem"`
	// ProblemParams is stored with Problem so the objective can be
	// regenerated on resume.
	ProblemParams method.Params `mapstructure:"problem_params"`

	// Iterations is the iteration budget and the length of every series.
	Iterations int `mapstructure:"iterations"`
	// Interval is the checkpoint period. Zero checkpoints only at the end.
	// It must divide Iterations.
	Interval int `mapstructure:"interval"`

	// Dir is the store root. Empty disables persistence.
	Dir string `mapstructure:"dir"`
	// RunID names the run directory. Empty generates a UUID.
	RunID string `mapstructure:"run_id"`
	// Suffix is appended to every series file name.
	Suffix string `mapstructure:"suffix"`
	// Seed initializes the projection generator.
	Seed uint64 `mapstructure:"seed"`

	// MetricsFile, when set, receives a Prometheus textfile at every
	// checkpoint.
	MetricsFile string `mapstructure:"metrics_file"`

	// Step replaces the method's step-size policy, e.g. with a
	// method.Schedule.
	Step method.StepSize `mapstructure:"-"`
	// Source replaces the seeded Gaussian projection source.
	Source method.ProjectionSource `mapstructure:"-"`
}

// ConfigError reports an invalid run configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Reason
}

// normalize fills defaults and validates the budget fields.
func (c *Config) normalize() error {
	if c.Method == "" {
		return &ConfigError{Field: "method", Reason: "cannot be empty"}
	}
	if c.Iterations <= 0 {
		return &ConfigError{Field: "iterations", Reason: "must be positive"}
	}
	if c.Interval < 0 {
		return &ConfigError{Field: "interval", Reason: "cannot be negative"}
	}
	if c.Interval == 0 {
		c.Interval = c.Iterations
	}
	if c.Iterations%c.Interval != 0 {
		return &ConfigError{
			Field:  "interval",
			Reason: fmt.Sprintf("%d does not divide iterations %d", c.Interval, c.Iterations),
		}
	}
	return nil
}

func (c *Config) runConfig(dim int) store.RunConfig {
	return store.RunConfig{
		Method:        c.Method,
		Params:        c.Params,
		Problem:       c.Problem,
		ProblemParams: c.ProblemParams,
		Dim:           dim,
		Iterations:    c.Iterations,
		Interval:      c.Interval,
		Suffix:        c.Suffix,
		Seed:          c.Seed,
	}
}

func configFrom(rc store.RunConfig, dir, runID string) Config {
	return Config{
		Method:        rc.Method,
		Params:        method.Params(rc.Params),
		Problem:       rc.Problem,
		ProblemParams: method.Params(rc.ProblemParams),
		Iterations:    rc.Iterations,
		Interval:      rc.Interval,
		Dir:           dir,
		RunID:         runID,
		Suffix:        rc.Suffix,
		Seed:          rc.Seed,
	}
}

// Option adjusts a configuration loaded from a checkpoint.
type Option func(*Config)

// WithStep overrides the step-size policy.
func WithStep(step method.StepSize) Option {
	return func(c *Config) { c.Step = step }
}

// WithSource overrides the projection source.
func WithSource(src method.ProjectionSource) Option {
	return func(c *Config) { c.Source = src }
}

// WithMetricsFile enables the Prometheus textfile.
func WithMetricsFile(path string) Option {
	return func(c *Config) { c.MetricsFile = path }
}
