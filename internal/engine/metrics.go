package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// runMetrics mirrors a run's progress in a private Prometheus registry that
// is written as a node-exporter textfile at every checkpoint.
type runMetrics struct {
	registry *prometheus.Registry

	iterations  prometheus.Counter
	evaluations prometheus.Counter
	evalLatency prometheus.Histogram

	value    prometheus.Gauge
	minValue prometheus.Gauge
	gradNorm prometheus.Gauge
	step     prometheus.Gauge
	elapsed  prometheus.Gauge
	budget   prometheus.Gauge
}

func newRunMetrics(runID, methodName string, budget int) *runMetrics {
	labels := prometheus.Labels{"run_id": runID, "method": methodName}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "subspaceopt",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "subspaceopt",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &runMetrics{
		registry:    prometheus.NewRegistry(),
		iterations:  counter("iterations_total", "Iterations completed by this process."),
		evaluations: counter("evaluations_total", "Objective evaluations performed by this process."),
		evalLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "subspaceopt",
			Name:        "evaluation_seconds",
			Help:        "Latency of the per-iteration objective evaluation.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		value:    gauge("value", "Objective value at the last iteration."),
		minValue: gauge("min_value", "Running minimum of the objective."),
		gradNorm: gauge("grad_norm", "Gradient (estimate) norm at the last iteration."),
		step:     gauge("step", "Step size of the last iteration."),
		elapsed:  gauge("elapsed_seconds", "Compute time excluding evaluation latency."),
		budget:   gauge("iterations_budget", "Iteration budget of the run."),
	}
	m.registry.MustRegister(
		m.iterations, m.evaluations, m.evalLatency,
		m.value, m.minValue, m.gradNorm, m.step, m.elapsed, m.budget,
	)
	m.budget.Set(float64(budget))
	return m
}

func (m *runMetrics) iteration(f, gradNorm, step float64, evals int, latency time.Duration) {
	m.iterations.Inc()
	m.evaluations.Add(float64(evals))
	m.evalLatency.Observe(latency.Seconds())
	m.value.Set(f)
	m.gradNorm.Set(gradNorm)
	m.step.Set(step)
}

func (m *runMetrics) checkpoint(s *State) {
	m.minValue.Set(s.MinValue)
	m.elapsed.Set(s.Elapsed.Seconds())
}

func (m *runMetrics) write(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
