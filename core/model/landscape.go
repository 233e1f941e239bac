package model

import (
	"errors"
	"fmt"
)

// Landscape is the aggregate a scheduling run works on.
type Landscape struct {
	Horizon      Horizon
	Settings     Settings
	Tasks        *Collection[*Task]
	Resources    *Collection[*Resource]
	StateChanges *StateChanges
	Processes    *Processes
}

// NewLandscape returns an empty landscape over h.
func NewLandscape(h Horizon) *Landscape {
	return &Landscape{
		Horizon:      h,
		Settings:     Settings{Direction: Forward, TasksPerLoop: 1, TopTasksToSchedule: 5},
		Tasks:        NewCollection[*Task](),
		Resources:    NewCollection[*Resource](),
		StateChanges: NewStateChanges(),
		Processes:    &Processes{Collection: NewCollection[*Process]()},
	}
}

// AddTask registers t, defaulting its window to the horizon.
func (l *Landscape) AddTask(t *Task) {
	t.Window = l.Horizon.Clamp(t.Window)
	if t.BaseWindow == (Window{}) {
		t.BaseWindow = t.Window
	}
	l.Tasks.Put(t.Key, t)
}

// AddResource registers r.
func (l *Landscape) AddResource(r *Resource) { l.Resources.Put(r.Key, r) }

// Task returns the task stored under key.
func (l *Landscape) Task(key string) (*Task, bool) { return l.Tasks.Get(key) }

// Resource returns the resource stored under key.
func (l *Landscape) Resource(key string) (*Resource, bool) { return l.Resources.Get(key) }

// RebuildProcesses regroups the process chains from the task links.
func (l *Landscape) RebuildProcesses() { l.Processes = BuildProcesses(l.Tasks) }

// Process returns the chain of t.
func (l *Landscape) Process(t *Task) (*Process, bool) {
	if t.ProcessName() == "" || l.Processes == nil {
		return nil, false
	}
	return l.Processes.Get(t.ProcessName())
}

// Validate checks the horizon, the tasks and the resources.
func (l *Landscape) Validate() error {
	if err := l.Horizon.Validate(); err != nil {
		return err
	}
	var errs []error
	for _, r := range l.Resources.Values() {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, t := range l.Tasks.Values() {
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UnknownPreferences lists "task/resource" pairs whose preference names a
// resource missing from the landscape. The scheduler skips such
// combinations; callers may want to warn about them up front.
func (l *Landscape) UnknownPreferences() []string {
	var out []string
	for _, t := range l.Tasks.Values() {
		for _, req := range t.Requirements() {
			for _, p := range req.Preferences {
				if !l.Resources.Has(p.ResourceKey) {
					out = append(out, fmt.Sprintf("%s/%s", t.Key, p.ResourceKey))
				}
			}
		}
	}
	return out
}
