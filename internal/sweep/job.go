package sweep

import (
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/subspaceopt/internal/engine"
	"github.com/google/uuid"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Job is one run of a sweep.
type Job struct {
	ID           string
	State        JobState
	Config       engine.Config
	MinValue     float64
	InitialValue float64
	Iterations   int
	Evals        int
	StartTime    time.Time
	EndTime      *time.Time
	Error        string
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j.State == StateCompleted || j.State == StateFailed || j.State == StateCancelled
}

// JobManager tracks the jobs of a sweep. Its methods are safe for
// concurrent use and hand out copies.
type JobManager struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// CreateJob registers a pending job. An empty config.RunID is replaced by
// the job ID so the run directory and the job share a name.
func (jm *JobManager) CreateJob(config engine.Config) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	id := config.RunID
	if id == "" {
		id = uuid.New().String()
		config.RunID = id
	}
	job := &Job{
		ID:     id,
		State:  StatePending,
		Config: config,
	}

	jm.jobs[job.ID] = job
	jm.order = append(jm.order, job.ID)
	return *job
}

// GetJob retrieves a job by ID
func (jm *JobManager) GetJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// ListJobs returns all jobs in creation order.
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.order))
	for _, id := range jm.order {
		jobs = append(jobs, *jm.jobs[id])
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// Count returns the number of jobs in each state.
func (jm *JobManager) Count() map[JobState]int {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	counts := make(map[JobState]int)
	for _, job := range jm.jobs {
		counts[job.State]++
	}
	return counts
}

// Best returns the completed job with the smallest minimum value.
func (jm *JobManager) Best() (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	var best *Job
	for _, id := range jm.order {
		job := jm.jobs[id]
		if job.State != StateCompleted {
			continue
		}
		if best == nil || job.MinValue < best.MinValue {
			best = job
		}
	}
	if best == nil {
		return Job{}, false
	}
	return *best, true
}
