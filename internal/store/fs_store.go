package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// FSStore implements Store on the filesystem. Each run lives in
// <baseDir>/jobs/<runID>/ with checkpoint.json, trace.jsonl and one
// <name><suffix>.vec file per metric series.
//
// All writes go through a temp file and a rename, so a reader never sees a
// partially written file and no locks are needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string { return fs.baseDir }

// RunDir returns the directory holding all files of a run.
func (fs *FSStore) RunDir(runID string) string {
	return filepath.Join(fs.baseDir, "jobs", runID)
}

func (fs *FSStore) checkpointPath(runID string) string {
	return filepath.Join(fs.RunDir(runID), "checkpoint.json")
}

// SeriesPath returns the file holding one metric series of a run.
func (fs *FSStore) SeriesPath(runID, suffix, name string) string {
	return filepath.Join(fs.RunDir(runID), name+suffix+".vec")
}

// writeAtomic writes data produced by fill to path via a temp file.
func writeAtomic(path string, fill func(f *os.File) error) (err error) {
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tempPath)
		}
	}()

	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// SaveCheckpoint atomically saves the manifest for runID.
func (fs *FSStore) SaveCheckpoint(runID string, checkpoint *Checkpoint) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if checkpoint == nil {
		return fmt.Errorf("checkpoint cannot be nil")
	}

	if err := os.MkdirAll(fs.RunDir(runID), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	path := fs.checkpointPath(runID)
	err = writeAtomic(path, func(f *os.File) error {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("Checkpoint saved", "runID", runID, "iteration", checkpoint.Iteration, "path", path)
	return nil
}

// LoadCheckpoint retrieves the manifest for runID.
func (fs *FSStore) LoadCheckpoint(runID string) (*Checkpoint, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := fs.checkpointPath(runID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}

	slog.Debug("Checkpoint loaded", "runID", runID, "path", path)
	return &checkpoint, nil
}

// ListCheckpoints returns metadata for all readable checkpoints, sorted by
// run ID.
func (fs *FSStore) ListCheckpoints() ([]CheckpointInfo, error) {
	jobsDir := filepath.Join(fs.baseDir, "jobs")

	entries, err := os.ReadDir(jobsDir)
	if os.IsNotExist(err) {
		return []CheckpointInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	infos := []CheckpointInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		runID := entry.Name()
		if _, err := os.Stat(fs.checkpointPath(runID)); os.IsNotExist(err) {
			continue
		}

		checkpoint, err := fs.LoadCheckpoint(runID)
		if err != nil {
			slog.Warn("Failed to load checkpoint for listing", "runID", runID, "error", err)
			continue
		}

		infos = append(infos, checkpoint.ToInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RunID < infos[j].RunID })

	slog.Debug("Listed checkpoints", "count", len(infos))
	return infos, nil
}

// DeleteCheckpoint removes the run directory and everything in it.
func (fs *FSStore) DeleteCheckpoint(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	runDir := fs.RunDir(runID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Checkpoint deleted", "runID", runID, "path", runDir)
	return nil
}

// SaveSeries writes the written prefix of every series in set. Empty
// series are skipped. Failures of individual series are collected and
// reported together.
func (fs *FSStore) SaveSeries(runID, suffix string, set *SeriesSet) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if err := os.MkdirAll(fs.RunDir(runID), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	var errs error
	for _, name := range set.Names() {
		prefix := set.Prefix(name)
		if len(prefix) == 0 {
			continue
		}
		vec := mat.NewVecDense(len(prefix), prefix)
		err := writeAtomic(fs.SeriesPath(runID, suffix, name), func(f *os.File) error {
			if _, err := vec.MarshalBinaryTo(f); err != nil {
				return fmt.Errorf("failed to encode series %s: %w", name, err)
			}
			return nil
		})
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return errs
	}

	slog.Debug("Series saved", "runID", runID, "suffix", suffix, "series", len(set.Names()))
	return nil
}

// LoadSeries reads one series written by SaveSeries.
func (fs *FSStore) LoadSeries(runID, suffix, name string) ([]float64, error) {
	f, err := os.Open(fs.SeriesPath(runID, suffix, name))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open series %s: %w", name, err)
	}
	defer f.Close()

	var vec mat.VecDense
	if _, err := vec.UnmarshalBinaryFrom(f); err != nil {
		return nil, fmt.Errorf("failed to decode series %s: %w", name, err)
	}
	out := make([]float64, vec.Len())
	for i := range out {
		out[i] = vec.AtVec(i)
	}
	return out, nil
}

// LoadSeriesSet restores the saved prefixes of names into a fresh set with
// the given budget. Series without a file start empty. Prefixes longer than
// limit are cut to limit; they come from series saved ahead of a manifest
// that was never written.
func (fs *FSStore) LoadSeriesSet(runID, suffix string, budget, limit int, names ...string) (*SeriesSet, error) {
	set := NewSeriesSet(budget, names...)
	var errs error
	for _, name := range names {
		prefix, err := fs.LoadSeries(runID, suffix, name)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				errs = multierr.Append(errs, err)
			}
			continue
		}
		if len(prefix) > limit {
			slog.Warn("Truncating series past the checkpoint",
				"runID", runID, "series", name, "entries", len(prefix), "limit", limit)
			prefix = prefix[:limit]
		}
		errs = multierr.Append(errs, set.Restore(name, prefix))
	}
	if errs != nil {
		return nil, errs
	}
	return set, nil
}
