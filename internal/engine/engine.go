// Package engine drives a direction strategy and a step-size policy over a
// fixed iteration budget, recording metric series and checkpointing them.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cwbudde/subspaceopt/internal/method"
	"github.com/cwbudde/subspaceopt/internal/objective"
	"github.com/cwbudde/subspaceopt/internal/store"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"
)

// pcgStream is the fixed second word of the PCG seed.
const pcgStream = 0x9e3779b97f4a7c15

// State is the mutable state of one run, owned by a single engine.
type State struct {
	// X is the point the next iteration starts from.
	X []float64
	// Iteration is the number of completed iterations.
	Iteration    int
	MinValue     float64
	InitialValue float64
	// Elapsed is cumulative wall time minus EvalLatency.
	Elapsed     time.Duration
	EvalLatency time.Duration
	Evals       int
}

// Result summarizes a finished run.
type Result struct {
	RunID        string
	Method       string
	X            []float64
	MinValue     float64
	InitialValue float64
	Iterations   int
	Elapsed      time.Duration
	Evals        int
	Series       *store.SeriesSet
}

type engine struct {
	cfg     Config
	obj     *objective.Objective
	m       *method.Method
	pcg     *rand.PCG
	store   *store.FSStore
	trace   *store.TraceWriter
	series  *store.SeriesSet
	tracker *MinTracker
	metrics *runMetrics
	log     *slog.Logger

	state     State
	grad, dir []float64
}

// Run minimizes obj from x0 with the configured method. It checkpoints every
// cfg.Interval iterations when cfg.Dir is set. Cancelling ctx stops the run
// between iterations; the last checkpoint stays valid for Resume.
//
// Non-finite objective values are recorded as they are and do not stop the
// run. A Newton-type strategy that cannot solve its system stops the run
// with an error matching method.ErrIllConditioned.
func Run(ctx context.Context, obj *objective.Objective, x0 []float64, cfg Config) (*Result, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if len(x0) == 0 {
		return nil, &ConfigError{Field: "x0", Reason: "cannot be empty"}
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	e, err := newEngine(obj, cfg, len(x0), rand.NewPCG(cfg.Seed, pcgStream))
	if err != nil {
		return nil, err
	}
	e.state.X = append([]float64(nil), x0...)
	e.state.MinValue = e.tracker.Min()
	e.series = store.NewSeriesSet(cfg.Iterations, store.DefaultSeries...)
	if err := e.openTrace(false); err != nil {
		return nil, err
	}

	e.log.Info("Starting run",
		"dim", len(x0),
		"iterations", cfg.Iterations,
		"interval", cfg.Interval,
		"step", e.m.Step.String(),
		"dir", cfg.Dir,
	)
	return e.loop(ctx)
}

// Resume continues the run runID stored under dir from its last
// checkpoint. The point, the accelerated-gradient state, the projection
// generator and the series prefixes are restored, so a deterministic
// objective yields the same series as an uninterrupted run. A step
// override passed to Run is not persisted and must be passed again with
// WithStep.
func Resume(ctx context.Context, obj *objective.Objective, dir, runID string, opts ...Option) (*Result, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	fs, err := store.NewFSStore(dir)
	if err != nil {
		return nil, err
	}
	cp, err := fs.LoadCheckpoint(runID)
	if err != nil {
		return nil, err
	}
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", runID, err)
	}

	cfg := configFrom(cp.Config, dir, runID)
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cp.IsCompatible(cfg.runConfig(len(cp.X))); err != nil {
		return nil, err
	}

	pcg := rand.NewPCG(cfg.Seed, pcgStream)
	if len(cp.RNG) > 0 {
		if err := pcg.UnmarshalBinary(cp.RNG); err != nil {
			return nil, fmt.Errorf("checkpoint %s: failed to restore generator: %w", runID, err)
		}
	}
	e, err := newEngine(obj, cfg, len(cp.X), pcg)
	if err != nil {
		return nil, err
	}
	if err := e.restore(cp); err != nil {
		return nil, err
	}
	if err := e.openTrace(true); err != nil {
		return nil, err
	}

	e.log.Info("Resuming run",
		"iteration", cp.Iteration,
		"iterations", cfg.Iterations,
		"min_value", e.state.MinValue,
	)
	return e.loop(ctx)
}

func newEngine(obj *objective.Objective, cfg Config, dim int, pcg *rand.PCG) (*engine, error) {
	src := cfg.Source
	if src == nil {
		src = method.NewGaussianSource(rand.New(pcg))
	}
	m, err := method.Build(cfg.Method, cfg.Params, src)
	if err != nil {
		return nil, err
	}
	if cfg.Step != nil {
		m.Step = cfg.Step
	}
	if err := m.Direction.CheckDim(dim); err != nil {
		return nil, err
	}

	e := &engine{
		cfg:     cfg,
		obj:     obj,
		m:       m,
		pcg:     pcg,
		tracker: NewMinTracker(),
		log:     slog.With("run_id", cfg.RunID, "method", m.Name),
		grad:    make([]float64, dim),
		dir:     make([]float64, dim),
	}
	if cfg.Dir != "" {
		if e.store, err = store.NewFSStore(cfg.Dir); err != nil {
			return nil, err
		}
	}
	if cfg.MetricsFile != "" {
		e.metrics = newRunMetrics(cfg.RunID, m.Name, cfg.Iterations)
	}
	return e, nil
}

func (e *engine) restore(cp *store.Checkpoint) error {
	e.state = State{
		X:            append([]float64(nil), cp.X...),
		Iteration:    cp.Iteration,
		MinValue:     float64(cp.MinValue),
		InitialValue: float64(cp.InitialValue),
		Elapsed:      cp.Elapsed,
		Evals:        cp.Evals,
	}
	e.tracker.Restore(e.state.MinValue)

	if agd, ok := e.m.Direction.(*method.Accelerated); ok && cp.Y != nil {
		agd.Restore(cp.Lambda, cp.Y)
	}

	set, err := e.store.LoadSeriesSet(e.cfg.RunID, e.cfg.Suffix, e.cfg.Iterations, cp.Iteration, store.DefaultSeries...)
	if err != nil {
		return err
	}
	for _, name := range store.DefaultSeries {
		if n := set.Len(name); n < cp.Iteration {
			return fmt.Errorf("checkpoint %s: series %s has %d entries, manifest has %d iterations",
				e.cfg.RunID, name, n, cp.Iteration)
		}
	}
	e.series = set
	return nil
}

func (e *engine) openTrace(appendTrace bool) error {
	if e.store == nil {
		return nil
	}
	tw, err := store.NewTraceWriter(e.cfg.Dir, e.cfg.RunID, appendTrace)
	if err != nil {
		return err
	}
	e.trace = tw
	return nil
}

func (e *engine) loop(ctx context.Context) (*Result, error) {
	defer e.close()

	for i := e.state.Iteration; i < e.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			e.log.Warn("Run cancelled", "iteration", i, "error", err)
			return nil, err
		}
		if err := e.iterate(i); err != nil {
			e.log.Error("Iteration failed", "iteration", i, "error", err)
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		if (i+1)%e.cfg.Interval == 0 {
			if err := e.checkpoint(); err != nil {
				return nil, err
			}
		}
	}

	e.log.Info("Run completed",
		"iterations", e.state.Iteration,
		"initial_value", e.state.InitialValue,
		"min_value", e.state.MinValue,
		"elapsed", e.state.Elapsed,
		"evals", e.state.Evals,
		"improvements", e.tracker.Improvements(),
		"stale_iterations", e.tracker.Stale(),
	)
	return e.result(), nil
}

func (e *engine) iterate(i int) error {
	start := time.Now()
	evals := e.state.Evals
	for j := range e.grad {
		e.grad[j] = 0
	}

	t0 := time.Now()
	f := e.obj.Value(e.state.X)
	latency := time.Since(t0)
	e.state.EvalLatency += latency
	e.state.Evals++
	if i == 0 {
		e.state.InitialValue = f
	}

	ev := &method.Evaluation{
		Obj:  e.obj,
		X:    e.state.X,
		F:    f,
		Grad: e.grad,
		Dir:  e.dir,
	}
	if err := e.m.Direction.Compute(ev); err != nil {
		return err
	}
	e.state.Evals += ev.Evals

	step, err := e.step(i, ev)
	if err != nil {
		return err
	}
	floats.AddScaled(e.state.X, step, e.dir)

	e.state.Elapsed += time.Since(start) - latency
	e.state.Iteration = i + 1
	e.tracker.Update(f)
	e.state.MinValue = e.tracker.Min()

	gradNorm := floats.Norm(e.grad, 2)
	if e.metrics != nil {
		e.metrics.iteration(f, gradNorm, step, e.state.Evals-evals, latency)
	}
	return multierr.Combine(
		e.series.Set(store.SeriesValues, i, f),
		e.series.Set(store.SeriesGradNorm, i, gradNorm),
		e.series.Set(store.SeriesTime, i, e.state.Elapsed.Seconds()),
		e.series.Set(store.SeriesStep, i, step),
	)
}

func (e *engine) step(i int, ev *method.Evaluation) (float64, error) {
	switch s := e.m.Step.(type) {
	case method.Backtracking:
		res := s.Search(e.obj.Func, ev.X, ev.Dir, ev.Grad, ev.F)
		e.state.Evals += res.Evals
		if res.Capped {
			e.log.Warn("Backtracking reached shrink limit",
				"iteration", i,
				"step", res.Step,
				"shrinks", res.Shrinks,
			)
		}
		return res.Step, nil
	case method.Scheduled:
		return s.At(i), nil
	default:
		return 0, fmt.Errorf("unsupported step size %T", s)
	}
}

func (e *engine) checkpoint() error {
	s := &e.state
	e.log.Info("Checkpoint",
		"iteration", s.Iteration,
		"min_value", s.MinValue,
		"elapsed", s.Elapsed,
	)

	if e.store != nil {
		// Series go first so the manifest never claims unsaved entries.
		// Entries saved past the manifest are dropped by restore.
		if err := e.store.SaveSeries(e.cfg.RunID, e.cfg.Suffix, e.series); err != nil {
			return fmt.Errorf("checkpoint at iteration %d: %w", s.Iteration, err)
		}
		if err := e.store.SaveCheckpoint(e.cfg.RunID, e.manifest()); err != nil {
			return fmt.Errorf("checkpoint at iteration %d: %w", s.Iteration, err)
		}
	}

	var errs error
	if e.trace != nil {
		errs = multierr.Append(errs, e.trace.Write(store.TraceEntry{
			Iteration: s.Iteration,
			MinValue:  store.Float(s.MinValue),
			Elapsed:   s.Elapsed.Seconds(),
			Evals:     s.Evals,
			Timestamp: time.Now(),
		}))
		errs = multierr.Append(errs, e.trace.Flush())
	}
	if e.metrics != nil {
		e.metrics.checkpoint(s)
		errs = multierr.Append(errs, e.metrics.write(e.cfg.MetricsFile))
	}
	if errs != nil {
		return fmt.Errorf("checkpoint at iteration %d: %w", s.Iteration, errs)
	}
	return nil
}

func (e *engine) manifest() *store.Checkpoint {
	s := &e.state
	cp := &store.Checkpoint{
		RunID:        e.cfg.RunID,
		Iteration:    s.Iteration,
		MinValue:     store.Float(s.MinValue),
		InitialValue: store.Float(s.InitialValue),
		X:            store.Vector(append([]float64(nil), s.X...)),
		Elapsed:      s.Elapsed,
		Evals:        s.Evals,
		Timestamp:    time.Now(),
		Config:       e.cfg.runConfig(len(s.X)),
	}
	if agd, ok := e.m.Direction.(*method.Accelerated); ok {
		lambda, y := agd.State()
		cp.Lambda = lambda
		cp.Y = y
	}
	rng, err := e.pcg.MarshalBinary()
	if err != nil {
		e.log.Warn("Failed to save generator state", "error", err)
	} else {
		cp.RNG = rng
	}
	return cp
}

func (e *engine) result() *Result {
	return &Result{
		RunID:        e.cfg.RunID,
		Method:       e.m.Name,
		X:            append([]float64(nil), e.state.X...),
		MinValue:     e.state.MinValue,
		InitialValue: e.state.InitialValue,
		Iterations:   e.state.Iteration,
		Elapsed:      e.state.Elapsed,
		Evals:        e.state.Evals,
		Series:       e.series,
	}
}

func (e *engine) close() {
	if e.trace == nil {
		return
	}
	if err := e.trace.Close(); err != nil {
		e.log.Warn("Failed to close trace", "error", err)
	}
}
