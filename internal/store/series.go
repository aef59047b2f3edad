package store

import (
	"fmt"
	"slices"
)

// Metric series recorded by every run.
const (
	SeriesValues   = "fvalues"
	SeriesGradNorm = "grad_norm"
	SeriesTime     = "time"
	SeriesStep     = "step"
)

// DefaultSeries lists the series the engine records, in file order.
var DefaultSeries = []string{SeriesValues, SeriesGradNorm, SeriesTime, SeriesStep}

// SeriesSet holds fixed-length metric series for one run. Each index is
// written exactly once and in order, so the written part of every series
// is a prefix.
type SeriesSet struct {
	budget  int
	names   []string
	data    map[string][]float64
	written map[string]int
}

// NewSeriesSet pre-allocates budget entries for each named series.
func NewSeriesSet(budget int, names ...string) *SeriesSet {
	s := &SeriesSet{
		budget:  budget,
		names:   slices.Clone(names),
		data:    make(map[string][]float64, len(names)),
		written: make(map[string]int, len(names)),
	}
	for _, n := range names {
		s.data[n] = make([]float64, budget)
	}
	return s
}

// Budget returns the fixed length of every series.
func (s *SeriesSet) Budget() int { return s.budget }

// Names returns the series names in creation order.
func (s *SeriesSet) Names() []string { return slices.Clone(s.names) }

// Set records v at index i of the named series. i must be the next unwritten
// index.
func (s *SeriesSet) Set(name string, i int, v float64) error {
	buf, ok := s.data[name]
	if !ok {
		return fmt.Errorf("unknown series %q", name)
	}
	if i < 0 || i >= s.budget {
		return fmt.Errorf("series %q: index %d outside budget %d", name, i, s.budget)
	}
	switch w := s.written[name]; {
	case i < w:
		return fmt.Errorf("series %q: index %d already written", name, i)
	case i > w:
		return fmt.Errorf("series %q: index %d skips unwritten index %d", name, i, w)
	}
	buf[i] = v
	s.written[name]++
	return nil
}

// Len returns the number of written entries of the named series.
func (s *SeriesSet) Len(name string) int { return s.written[name] }

// Prefix returns a copy of the written part of the named series.
func (s *SeriesSet) Prefix(name string) []float64 {
	return slices.Clone(s.data[name][:s.written[name]])
}

// Restore loads a previously written prefix into an empty series.
func (s *SeriesSet) Restore(name string, prefix []float64) error {
	buf, ok := s.data[name]
	if !ok {
		return fmt.Errorf("unknown series %q", name)
	}
	if s.written[name] != 0 {
		return fmt.Errorf("series %q: restore into non-empty series", name)
	}
	if len(prefix) > s.budget {
		return fmt.Errorf("series %q: prefix of %d exceeds budget %d", name, len(prefix), s.budget)
	}
	copy(buf, prefix)
	s.written[name] = len(prefix)
	return nil
}
