// Package metrics exposes Prometheus instrumentation for the
// orchestration engine: run counters by strategy and terminal status, a
// run duration histogram and an active-run gauge. The collector is
// optional; a nil *Collector is safe to call so minimal setups pay
// nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector registers and updates the engine's Prometheus metrics.
type Collector struct {
	runsStarted  *prometheus.CounterVec
	runsFinished *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	activeRuns   prometheus.Gauge
}

// NewCollector creates a collector registered on the default registry.
func NewCollector() *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer)
}

// NewCollectorWith creates a collector registered on reg. Tests pass a
// fresh registry to avoid duplicate registration panics.
func NewCollectorWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		runsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ensemble_runs_started_total",
				Help: "Total number of workflow runs started",
			},
			[]string{"strategy"},
		),
		runsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ensemble_runs_finished_total",
				Help: "Total number of workflow runs reaching a terminal state",
			},
			[]string{"strategy", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ensemble_run_duration_seconds",
				Help:    "Workflow run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"strategy"},
		),
		activeRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ensemble_active_runs",
				Help: "Number of runs currently executing",
			},
		),
	}
}

// RunStarted records a run entering execution.
func (c *Collector) RunStarted(strategy string) {
	if c == nil {
		return
	}
	c.runsStarted.WithLabelValues(strategy).Inc()
	c.activeRuns.Inc()
}

// RunFinished records a run reaching a terminal status.
func (c *Collector) RunFinished(strategy, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.runsFinished.WithLabelValues(strategy, status).Inc()
	c.runDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	c.activeRuns.Dec()
}
