package metrics

import "time"

// CommitRecord describes one task committed by the scheduler.
type CommitRecord struct {
	RunID      string
	TaskKey    string
	Kind       string
	Resources  []string
	StartW     int64
	EndW       int64
	Score      float64
	Changeover int64
	Time       time.Time
}

// MetricsSink records committed tasks.
type MetricsSink interface {
	RecordCommits(recs []CommitRecord) error
}

// RunSummary describes a finished Schedule or Unschedule call.
type RunSummary struct {
	RunID      string
	Operation  string
	Tasks      int
	Committed  int
	Failed     int
	Iterations int
	Duration   time.Duration
	Time       time.Time
}

// RunRecorder is implemented by sinks able to record run summaries.
type RunRecorder interface {
	RecordRun(s RunSummary) error
}

// FailureEvent is a per-task diagnostic raised during a run.
type FailureEvent struct {
	RunID   string
	TaskKey string
	Agent   string
	Reason  string
	Time    time.Time
}

// FailureRecorder is implemented by sinks able to record task failures.
type FailureRecorder interface {
	RecordFailure(ev FailureEvent) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordCommits([]CommitRecord) error { return nil }
func (NopSink) RecordRun(RunSummary) error         { return nil }
func (NopSink) RecordFailure(FailureEvent) error   { return nil }
