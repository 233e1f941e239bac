package model

import (
	"fmt"

	"github.com/kilianp07/capsched/core/interval"
)

// TaskState is the scheduling state of a task.
type TaskState int

const (
	NotScheduled TaskState = iota
	Scheduled
)

func (s TaskState) String() string {
	if s == Scheduled {
		return "SCHEDULED"
	}
	return "NOT_SCHEDULED"
}

// Progress is the work-in-progress state reported for a task. Only tasks
// that have not started may be moved by Unschedule.
type Progress int

const (
	NotStarted Progress = iota
	Started
	Completed
)

func (p Progress) String() string {
	switch p {
	case Started:
		return "STARTED"
	case Completed:
		return "COMPLETED"
	default:
		return "NOT_STARTED"
	}
}

// TaskKind separates production work from generated changeover work.
type TaskKind int

const (
	KindProduction TaskKind = iota
	KindSetup
	KindTeardown
)

func (k TaskKind) String() string {
	switch k {
	case KindSetup:
		return "SETUP"
	case KindTeardown:
		return "TEARDOWN"
	default:
		return "PRODUCTION"
	}
}

// Preference names a resource that can satisfy a requirement. Lower ranks
// are preferred.
type Preference struct {
	ResourceKey string `json:"resource_key"`
	Rank        int    `json:"rank"`
}

// Requirement asks for Qty units of one resource out of Preferences.
type Requirement struct {
	Type        string       `json:"type"`
	Qty         float64      `json:"qty"`
	Preferences []Preference `json:"preferences"`
}

// Quantity returns the demanded quantity, defaulting to one unit.
func (r Requirement) Quantity() float64 {
	if r.Qty <= 0 {
		return 1
	}
	return r.Qty
}

// Link attaches a task to a process chain.
type Link struct {
	Name string `json:"name"`
}

// TaskError is a recoverable diagnostic recorded by a scheduling agent.
type TaskError struct {
	Agent  string `json:"agent"`
	Reason string `json:"reason"`
}

func (e TaskError) Error() string { return e.Agent + ": " + e.Reason }

// Task is one unit of work to place on resources.
type Task struct {
	Key      string   `json:"key"`
	Sequence int      `json:"sequence"`
	Rank     int      `json:"rank"`
	Kind     TaskKind `json:"kind"`

	State     TaskState `json:"state"`
	Progress  Progress  `json:"progress"`
	Processed bool      `json:"-"`

	Duration Duration `json:"duration"`
	Window   Window   `json:"window"`
	// BaseWindow is the window before process truncation.
	BaseWindow Window `json:"base_window"`

	Capacity  []Requirement `json:"capacity"`
	Materials []Requirement `json:"materials,omitempty"`

	Link *Link `json:"link,omitempty"`
	// ProcessState is the changeover state the task puts its resources in.
	ProcessState string `json:"process_state,omitempty"`
	SkipSetup    bool   `json:"skip_setup,omitempty"`

	Scheduled *interval.Interval `json:"scheduled,omitempty"`
	Resources []string           `json:"resources,omitempty"`
	Score     float64            `json:"score"`
	Errors    []TaskError        `json:"errors,omitempty"`

	// Parent is set on generated setup/teardown tasks.
	Parent string `json:"parent,omitempty"`
	// StateChangeTasks lists generated tasks owned by this task.
	StateChangeTasks []string `json:"state_change_tasks,omitempty"`
}

// Validate checks the task definition.
func (t *Task) Validate() error {
	if t.Key == "" {
		return fmt.Errorf("task key is required")
	}
	if err := t.Duration.Validate(); err != nil {
		return fmt.Errorf("task %s: %w", t.Key, err)
	}
	if t.Kind == KindProduction && len(t.Capacity) == 0 && len(t.Materials) == 0 {
		return fmt.Errorf("task %s has no resource requirement", t.Key)
	}
	return nil
}

// AddError records a diagnostic.
func (t *Task) AddError(agent, format string, args ...any) {
	t.Errors = append(t.Errors, TaskError{Agent: agent, Reason: fmt.Sprintf(format, args...)})
}

// IsScheduled reports whether the task holds a committed interval.
func (t *Task) IsScheduled() bool { return t.State == Scheduled }

// Movable reports whether Unschedule may release the task.
func (t *Task) Movable() bool { return t.Progress == NotStarted }

// Requirements returns capacity and material requirements in order.
func (t *Task) Requirements() []Requirement {
	out := make([]Requirement, 0, len(t.Capacity)+len(t.Materials))
	out = append(out, t.Capacity...)
	return append(out, t.Materials...)
}

// ProcessName returns the chain name or "".
func (t *Task) ProcessName() string {
	if t.Link == nil {
		return ""
	}
	return t.Link.Name
}

// Reset clears the commitment and the per-pass bookkeeping.
func (t *Task) Reset() {
	t.State = NotScheduled
	t.Scheduled = nil
	t.Resources = nil
	t.Score = 0
	t.StateChangeTasks = nil
}
