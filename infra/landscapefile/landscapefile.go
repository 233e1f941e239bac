// Package landscapefile reads and writes landscapes as JSON or YAML
// documents. Instants are RFC 3339 timestamps in the documents and seconds
// since the epoch in the model.
package landscapefile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the persisted form of a landscape and its schedule.
type File struct {
	Horizon      Horizon       `json:"horizon" yaml:"horizon"`
	Resources    []Resource    `json:"resources" yaml:"resources"`
	Tasks        []Task        `json:"tasks" yaml:"tasks"`
	StateChanges []StateChange `json:"state_changes,omitempty" yaml:"state_changes,omitempty"`
}

// Horizon bounds the schedule.
type Horizon struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Segment is one calendar entry. A nil Qty means untracked capacity.
type Segment struct {
	Start   time.Time `json:"start" yaml:"start"`
	End     time.Time `json:"end" yaml:"end"`
	Qty     *float64  `json:"qty,omitempty" yaml:"qty,omitempty"`
	RunRate float64   `json:"run_rate,omitempty" yaml:"run_rate,omitempty"`
}

// Assignment is a committed use of a resource.
type Assignment struct {
	Task  string    `json:"task" yaml:"task"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	Qty   float64   `json:"qty,omitempty" yaml:"qty,omitempty"`
	State string    `json:"state,omitempty" yaml:"state,omitempty"`
	Kind  string    `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Resource is a machine, crew or material stock with its calendar.
type Resource struct {
	Key          string       `json:"key" yaml:"key"`
	Type         string       `json:"type" yaml:"type"`
	Class        string       `json:"class,omitempty" yaml:"class,omitempty"`
	InitialState string       `json:"initial_state,omitempty" yaml:"initial_state,omitempty"`
	Calendar     []Segment    `json:"calendar" yaml:"calendar"`
	Assignments  []Assignment `json:"assignments,omitempty" yaml:"assignments,omitempty"`
}

// Preference names a candidate resource.
type Preference struct {
	Resource string `json:"resource" yaml:"resource"`
	Rank     int    `json:"rank" yaml:"rank"`
}

// Requirement asks for Qty of one of the preferred resources.
type Requirement struct {
	Type        string       `json:"type" yaml:"type"`
	Qty         float64      `json:"qty,omitempty" yaml:"qty,omitempty"`
	Preferences []Preference `json:"preferences" yaml:"preferences"`
}

// Duration is the time requirement of a task.
type Duration struct {
	Type     string  `json:"type,omitempty" yaml:"type,omitempty"`
	Seconds  int64   `json:"seconds" yaml:"seconds"`
	Quantity float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
}

// TaskError is a diagnostic written back after a run.
type TaskError struct {
	Agent  string `json:"agent" yaml:"agent"`
	Reason string `json:"reason" yaml:"reason"`
}

// Task is one unit of work. The fields after Materials are written back by
// the scheduler.
type Task struct {
	Key          string        `json:"key" yaml:"key"`
	Sequence     int           `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Rank         int           `json:"rank,omitempty" yaml:"rank,omitempty"`
	Process      string        `json:"process,omitempty" yaml:"process,omitempty"`
	ProcessState string        `json:"process_state,omitempty" yaml:"process_state,omitempty"`
	SkipSetup    bool          `json:"skip_setup,omitempty" yaml:"skip_setup,omitempty"`
	Progress     string        `json:"progress,omitempty" yaml:"progress,omitempty"`
	Duration     Duration      `json:"duration" yaml:"duration"`
	Earliest     *time.Time    `json:"earliest,omitempty" yaml:"earliest,omitempty"`
	Latest       *time.Time    `json:"latest,omitempty" yaml:"latest,omitempty"`
	Capacity     []Requirement `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Materials    []Requirement `json:"materials,omitempty" yaml:"materials,omitempty"`

	Kind      string      `json:"kind,omitempty" yaml:"kind,omitempty"`
	State     string      `json:"state,omitempty" yaml:"state,omitempty"`
	Start     *time.Time  `json:"start,omitempty" yaml:"start,omitempty"`
	End       *time.Time  `json:"end,omitempty" yaml:"end,omitempty"`
	Resources []string    `json:"resources,omitempty" yaml:"resources,omitempty"`
	Score     float64     `json:"score,omitempty" yaml:"score,omitempty"`
	Parent    string      `json:"parent,omitempty" yaml:"parent,omitempty"`
	Changes   []string    `json:"state_change_tasks,omitempty" yaml:"state_change_tasks,omitempty"`
	Errors    []TaskError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// StateChange is a changeover rule.
type StateChange struct {
	ResourceType  string  `json:"resource_type" yaml:"resource_type"`
	From          string  `json:"from,omitempty" yaml:"from,omitempty"`
	To            string  `json:"to,omitempty" yaml:"to,omitempty"`
	ChangeType    string  `json:"change_type,omitempty" yaml:"change_type,omitempty"`
	Seconds       int64   `json:"seconds" yaml:"seconds"`
	Penalty       float64 `json:"penalty,omitempty" yaml:"penalty,omitempty"`
	MaxRunTasks   int     `json:"max_run_tasks,omitempty" yaml:"max_run_tasks,omitempty"`
	MaxRunSeconds int64   `json:"max_run_seconds,omitempty" yaml:"max_run_seconds,omitempty"`
}

// Load reads a landscape document from a JSON or YAML file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f, formatOf(path))
}

// Decode reads a landscape document in format "json" or "yaml".
func Decode(r io.Reader, format string) (*File, error) {
	var doc File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode landscape: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode landscape: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return &doc, nil
}

// Save writes doc to path in the format given by its extension.
func Save(path string, doc *File) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, formatOf(path), doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Encode writes doc to w in format "json" or "yaml".
func Encode(w io.Writer, format string, doc *File) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
