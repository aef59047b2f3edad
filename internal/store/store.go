package store

// Store persists run checkpoints and their metric series.
// Implementations must be safe for concurrent use by different runs.
//
// Error handling conventions:
//   - Return ErrNotFound if a checkpoint or series doesn't exist
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveCheckpoint atomically writes the manifest for runID, replacing
	// any earlier one.
	SaveCheckpoint(runID string, checkpoint *Checkpoint) error

	// LoadCheckpoint reads the manifest for runID.
	LoadCheckpoint(runID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for all readable checkpoints.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the run directory with the manifest, trace
	// and all series files.
	DeleteCheckpoint(runID string) error

	// SaveSeries atomically writes the written prefix of every series in
	// set, one file per series, replacing earlier partial files.
	SaveSeries(runID, suffix string, set *SeriesSet) error

	// LoadSeries reads one series written by SaveSeries.
	LoadSeries(runID, suffix, name string) ([]float64, error)
}

// ErrNotFound is returned when a requested checkpoint does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing checkpoint or series.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "checkpoint not found: " + e.RunID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
