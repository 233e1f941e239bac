package events

import "time"

// BatchSelected is published once per scheduler loop iteration.
type BatchSelected struct {
	RunID     string
	Iteration int
	Tasks     []string
}

// TaskCommitted is published when a task is committed. Generated setup and
// teardown tasks are published too, with Parent set.
type TaskCommitted struct {
	RunID      string
	TaskKey    string
	Kind       string
	Parent     string
	Resources  []string
	StartW     int64
	EndW       int64
	State      string
	Score      float64
	Changeover int64
	Time       time.Time
}

// TaskFailed is published for every diagnostic that leaves a task
// unscheduled.
type TaskFailed struct {
	RunID   string
	TaskKey string
	Agent   string
	Reason  string
	Time    time.Time
}

// TaskUnscheduled is published when Unschedule releases a task.
type TaskUnscheduled struct {
	RunID     string
	TaskKey   string
	Resources []string
	Time      time.Time
}
