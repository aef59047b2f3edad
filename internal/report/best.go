package report

import (
	"fmt"
	"math"

	"github.com/cwbudde/subspaceopt/internal/store"
)

// BestRun returns the run with the smallest running minimum among runIDs,
// or among every run in dir when runIDs is empty. Runs whose minimum is
// NaN are ignored.
func BestRun(dir string, runIDs []string) (store.CheckpointInfo, error) {
	fs, err := store.NewFSStore(dir)
	if err != nil {
		return store.CheckpointInfo{}, err
	}

	var infos []store.CheckpointInfo
	if len(runIDs) == 0 {
		if infos, err = fs.ListCheckpoints(); err != nil {
			return store.CheckpointInfo{}, err
		}
	} else {
		for _, id := range runIDs {
			cp, err := fs.LoadCheckpoint(id)
			if err != nil {
				return store.CheckpointInfo{}, err
			}
			infos = append(infos, cp.ToInfo())
		}
	}

	best := -1
	for i, info := range infos {
		if math.IsNaN(info.MinValue) {
			continue
		}
		if best < 0 || info.MinValue < infos[best].MinValue {
			best = i
		}
	}
	if best < 0 {
		return store.CheckpointInfo{}, fmt.Errorf("no run with a finite minimum in %s: %w", dir, store.ErrNotFound)
	}
	return infos[best], nil
}
