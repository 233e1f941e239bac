package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	recomputes   prometheus.Counter
	iterations   prometheus.Counter
	commits      *prometheus.CounterVec
	failures     *prometheus.CounterVec
	runDurations *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, prometheus.Counter, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.HistogramVec) {
	rec := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_context_recomputes_total",
			Help: "Number of schedule context evaluations",
		},
	)
	it := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_iterations_total",
			Help: "Number of scheduling loop iterations",
		},
	)
	com := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_commits_total",
			Help: "Number of tasks committed by kind",
		},
		[]string{"kind"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_failures_total",
			Help: "Number of task diagnostics by agent",
		},
		[]string{"agent"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_run_duration_seconds",
			Help:    "Wall time of Schedule and Unschedule calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	return rec, it, com, fail, dur
}

func init() {
	recomputes, iterations, commits, failures, runDurations = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduler metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(recomputes, iterations, commits, failures, runDurations)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	recomputes, iterations, commits, failures, runDurations = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
