package model

import (
	"fmt"
	"sort"

	"github.com/kilianp07/capsched/core/interval"
)

// Assignment is a committed use of a resource by a task.
type Assignment struct {
	TaskKey  string            `json:"task_key"`
	Interval interval.Interval `json:"interval"`
	// State is the process state the resource holds during the assignment.
	State string   `json:"state,omitempty"`
	Kind  TaskKind `json:"kind"`
}

// Resource is a machine, crew or material stock.
type Resource struct {
	Key   string         `json:"key"`
	Type  string         `json:"type"`
	Class interval.Class `json:"class"`
	// InitialState is the process state at the horizon start.
	InitialState string `json:"initial_state,omitempty"`

	Original    interval.List `json:"-"`
	Assignments []Assignment  `json:"assignments,omitempty"`

	Matrix    *AvailableMatrix `json:"-"`
	Recompute bool             `json:"-"`
}

// NewResource returns a resource with an empty matrix that needs computing.
func NewResource(key, typ string, class interval.Class, calendar interval.List) *Resource {
	calendar.Snapshot()
	return &Resource{
		Key:       key,
		Type:      typ,
		Class:     class,
		Original:  calendar,
		Matrix:    NewAvailableMatrix(),
		Recompute: true,
	}
}

// Validate checks the calendar invariant.
func (r *Resource) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("resource key is required")
	}
	if err := r.Original.Validate(); err != nil {
		return fmt.Errorf("resource %s calendar: %w", r.Key, err)
	}
	return nil
}

// Assign records a commitment and marks the resource dirty.
func (r *Resource) Assign(a Assignment) {
	r.Assignments = append(r.Assignments, a)
	sort.SliceStable(r.Assignments, func(i, j int) bool {
		return r.Assignments[i].Interval.StartW < r.Assignments[j].Interval.StartW
	})
	r.MarkDirty()
}

// Release removes every assignment of taskKey and reports whether any was
// removed.
func (r *Resource) Release(taskKey string) bool {
	kept := r.Assignments[:0]
	removed := false
	for _, a := range r.Assignments {
		if a.TaskKey == taskKey {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	r.Assignments = kept
	if removed {
		r.MarkDirty()
	}
	return removed
}

// MarkDirty forces the availability engine to rebuild the matrix.
func (r *Resource) MarkDirty() {
	r.Recompute = true
	if r.Matrix != nil {
		r.Matrix.Recompute = true
		r.Matrix.Recalc = true
	}
}

// AssignmentList returns the assignments as an ordered interval list.
// Reusable assignments overlapping in time are summed. Consumable
// assignments draw their quantity from stock at their start, so each one is
// reduced to a one-second marker at its start.
func (r *Resource) AssignmentList(e *interval.Engine) interval.List {
	var out interval.List
	for _, a := range r.Assignments {
		iv := a.Interval
		if !iv.Tracked {
			iv.Tracked = true
			iv.Qty = 1
		}
		if r.Class == interval.Consumable {
			iv.EndW = iv.StartW + 1
		}
		out = e.Execute(out, interval.NewList(iv), interval.ModeAdd, interval.Reusable)
	}
	return out
}

// ProcessAssignments returns the assignments that carry a process state.
func (r *Resource) ProcessAssignments() []Assignment {
	var out []Assignment
	for _, a := range r.Assignments {
		if a.State != "" {
			out = append(out, a)
		}
	}
	return out
}
