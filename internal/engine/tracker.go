package engine

import (
	"log/slog"
	"math"
)

// MinTracker keeps the running minimum of the objective. NaN values are
// recorded in the series but never become the minimum.
type MinTracker struct {
	min          float64
	improvements int
	stale        int
}

// NewMinTracker starts at +Inf.
func NewMinTracker() *MinTracker {
	return &MinTracker{min: math.Inf(1)}
}

// Update records v and reports whether it lowered the minimum.
func (m *MinTracker) Update(v float64) bool {
	if v < m.min {
		m.min = v
		m.improvements++
		m.stale = 0
		return true
	}
	m.stale++
	if math.IsNaN(v) {
		slog.Debug("Non-finite objective value", "value", v, "min_value", m.min)
	}
	return false
}

// Min returns the smallest value seen, +Inf if none.
func (m *MinTracker) Min() float64 { return m.min }

// Stale returns the number of updates since the last improvement.
func (m *MinTracker) Stale() int { return m.stale }

// Improvements returns how often the minimum was lowered.
func (m *MinTracker) Improvements() int { return m.improvements }

// Restore resets the tracker to a checkpointed minimum.
func (m *MinTracker) Restore(min float64) {
	m.min = min
	m.stale = 0
}
