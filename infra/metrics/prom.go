package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/capsched/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records committed tasks and run summaries in Prometheus metrics.
type PromSink struct {
	committed *prometheus.CounterVec
	busy      *prometheus.CounterVec
	failed    *prometheus.CounterVec
	runs      *prometheus.CounterVec
	lastRun   *prometheus.GaugeVec
}

// NewPromSink registers scheduling metrics on the default Prometheus registerer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	committed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_tasks_committed_total",
		Help: "Total number of committed tasks",
	}, []string{"resource", "kind"})
	busy := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_resource_busy_seconds_total",
		Help: "Committed seconds per resource",
	}, []string{"resource", "kind"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_task_failures_total",
		Help: "Task diagnostics by agent",
	}, []string{"agent"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_runs_total",
		Help: "Completed scheduling calls",
	}, []string{"operation"})
	lastRun := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedule_last_run_tasks",
		Help: "Committed and failed tasks of the last run",
	}, []string{"operation", "outcome"})

	var err error
	if committed, err = register(reg, committed); err != nil {
		return nil, err
	}
	if busy, err = register(reg, busy); err != nil {
		return nil, err
	}
	if failed, err = register(reg, failed); err != nil {
		return nil, err
	}
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if lastRun, err = register(reg, lastRun); err != nil {
		return nil, err
	}
	return &PromSink{committed: committed, busy: busy, failed: failed, runs: runs, lastRun: lastRun}, nil
}

// register adds c to reg, reusing an identical collector already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCommits counts tasks and busy seconds per resource.
func (s *PromSink) RecordCommits(recs []coremetrics.CommitRecord) error {
	for _, r := range recs {
		for _, res := range r.Resources {
			s.committed.WithLabelValues(res, kindLabel(r.Kind)).Inc()
			s.busy.WithLabelValues(res, kindLabel(r.Kind)).Add(float64(r.EndW - r.StartW))
		}
	}
	return nil
}

// RecordFailure counts a task diagnostic.
func (s *PromSink) RecordFailure(ev coremetrics.FailureEvent) error {
	s.failed.WithLabelValues(ev.Agent).Inc()
	return nil
}

// RecordRun counts the run and exposes its totals.
func (s *PromSink) RecordRun(sum coremetrics.RunSummary) error {
	s.runs.WithLabelValues(sum.Operation).Inc()
	s.lastRun.WithLabelValues(sum.Operation, "committed").Set(float64(sum.Committed))
	s.lastRun.WithLabelValues(sum.Operation, "failed").Set(float64(sum.Failed))
	s.lastRun.WithLabelValues(sum.Operation, "iterations").Set(float64(sum.Iterations))
	return nil
}

func kindLabel(k string) string {
	if k == "" {
		return "PRODUCTION"
	}
	return k
}
