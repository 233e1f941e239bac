// Package runlog persists one record per Schedule or Unschedule call so
// that past runs can be inspected and audited.
package runlog

import (
	"context"
	"slices"
	"time"
)

// Commit is a task placed during a run.
type Commit struct {
	TaskKey   string   `json:"task_key"`
	Kind      string   `json:"kind"`
	Parent    string   `json:"parent,omitempty"`
	Resources []string `json:"resources"`
	StartW    int64    `json:"start_w"`
	EndW      int64    `json:"end_w"`
	Score     float64  `json:"score"`
}

// Failure is a diagnostic left on a task during a run.
type Failure struct {
	TaskKey string `json:"task_key"`
	Agent   string `json:"agent"`
	Reason  string `json:"reason"`
}

// RunRecord captures one scheduling call.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	Operation  string    `json:"operation"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms"`
	Iterations int       `json:"iterations"`
	Committed  []Commit  `json:"committed"`
	Failed     []Failure `json:"failed"`
	Released   []string  `json:"released,omitempty"`
}

// Touches reports whether the run committed, failed or released taskKey.
func (r RunRecord) Touches(taskKey string) bool {
	for _, c := range r.Committed {
		if c.TaskKey == taskKey || c.Parent == taskKey {
			return true
		}
	}
	for _, f := range r.Failed {
		if f.TaskKey == taskKey {
			return true
		}
	}
	return slices.Contains(r.Released, taskKey)
}

// Uses reports whether the run committed work on resourceKey.
func (r RunRecord) Uses(resourceKey string) bool {
	for _, c := range r.Committed {
		if slices.Contains(c.Resources, resourceKey) {
			return true
		}
	}
	return false
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start       time.Time
	End         time.Time
	Operation   string
	TaskKey     string
	ResourceKey string
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Operation != "" && r.Operation != q.Operation {
		return false
	}
	if q.TaskKey != "" && !r.Touches(q.TaskKey) {
		return false
	}
	return q.ResourceKey == "" || r.Uses(q.ResourceKey)
}

// Store persists run records.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                      { return nil }
