package model

import (
	"fmt"
	"strings"
)

// Direction is the order in which the scheduler fills the horizon.
type Direction string

const (
	Forward  Direction = "FORWARD"
	Backward Direction = "BACKWARD"
)

// ParseDirection converts the textual direction used in configuration.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "", string(Forward):
		return Forward, nil
	case string(Backward):
		return Backward, nil
	default:
		return Forward, fmt.Errorf("unknown schedule direction %q", s)
	}
}

// Settings tunes a scheduling run.
type Settings struct {
	Direction  Direction `json:"schedule_direction"`
	FlowAround bool      `json:"flow_around"`
	// MaxLateness extends every task window end, in seconds.
	MaxLateness        int64 `json:"max_lateness"`
	TasksPerLoop       int   `json:"tasks_per_loop"`
	TopTasksToSchedule int   `json:"top_tasks_to_schedule"`
	RequiresPreds      bool  `json:"requires_preds"`
}

// SetDefaults fills unset fields.
func (s *Settings) SetDefaults() {
	if d, err := ParseDirection(string(s.Direction)); err == nil {
		s.Direction = d
	}
	if s.TasksPerLoop <= 0 {
		s.TasksPerLoop = 1
	}
	if s.TopTasksToSchedule <= 0 {
		s.TopTasksToSchedule = 5
	}
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if _, err := ParseDirection(string(s.Direction)); err != nil {
		return err
	}
	if s.MaxLateness < 0 {
		return fmt.Errorf("max_lateness must be >= 0")
	}
	if s.TasksPerLoop < 0 || s.TopTasksToSchedule < 0 {
		return fmt.Errorf("tasks_per_loop and top_tasks_to_schedule must be >= 0")
	}
	return nil
}

// Backward reports whether the run fills the horizon from its end.
func (s Settings) Backward() bool { return s.Direction == Backward }
