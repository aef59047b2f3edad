package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/cwbudde/subspaceopt/internal/engine"
	"github.com/cwbudde/subspaceopt/internal/objective"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
)

// Runner executes sweep jobs against one objective. The objective is
// shared read-only; every job owns its engine state.
type Runner struct {
	Objective *objective.Objective
	X0        []float64
	// MaxParallel bounds the number of concurrent runs. Zero uses
	// GOMAXPROCS.
	MaxParallel int
	Jobs        *JobManager
}

// NewRunner creates a Runner with a fresh JobManager.
func NewRunner(obj *objective.Objective, x0 []float64, maxParallel int) *Runner {
	return &Runner{
		Objective:   obj,
		X0:          x0,
		MaxParallel: maxParallel,
		Jobs:        NewJobManager(),
	}
}

// Run registers one job per config and runs them all. It returns the jobs in
// config order and the combined errors of failed jobs. Jobs that have not
// started when ctx is cancelled end up cancelled without running.
func (r *Runner) Run(ctx context.Context, configs []engine.Config) ([]Job, error) {
	n := r.MaxParallel
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	ids := make([]string, len(configs))
	for i, cfg := range configs {
		ids[i] = r.Jobs.CreateJob(cfg).ID
	}
	slog.Info("Starting sweep", "jobs", len(ids), "max_parallel", n)

	var (
		mu   sync.Mutex
		errs error
	)
	p := pool.New().WithMaxGoroutines(n)
	for _, id := range ids {
		p.Go(func() {
			if err := r.runJob(ctx, id); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("job %s: %w", id, err))
				mu.Unlock()
			}
		})
	}
	p.Wait()

	jobs := make([]Job, 0, len(ids))
	for _, id := range ids {
		job, _ := r.Jobs.GetJob(id)
		jobs = append(jobs, job)
	}
	counts := r.Jobs.Count()
	slog.Info("Sweep finished",
		"completed", counts[StateCompleted],
		"failed", counts[StateFailed],
		"cancelled", counts[StateCancelled],
	)
	return jobs, errs
}

func (r *Runner) runJob(ctx context.Context, id string) error {
	job, exists := r.Jobs.GetJob(id)
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if err := ctx.Err(); err != nil {
		markJobCancelled(r.Jobs, id)
		return nil
	}

	start := time.Now()
	r.Jobs.UpdateJob(id, func(j *Job) {
		j.State = StateRunning
		j.StartTime = start
	})

	result, err := engine.Run(ctx, r.Objective, r.X0, job.Config)
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		markJobCancelled(r.Jobs, id)
		return nil
	case err != nil:
		markJobFailed(r.Jobs, id, err)
		return err
	}

	endTime := time.Now()
	return r.Jobs.UpdateJob(id, func(j *Job) {
		j.State = StateCompleted
		j.MinValue = result.MinValue
		j.InitialValue = result.InitialValue
		j.Iterations = result.Iterations
		j.Evals = result.Evals
		j.EndTime = &endTime
	})
}

func markJobFailed(jm *JobManager, id string, err error) {
	endTime := time.Now()
	jm.UpdateJob(id, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", id, "error", err)
}

func markJobCancelled(jm *JobManager, id string) {
	endTime := time.Now()
	jm.UpdateJob(id, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", id)
}
