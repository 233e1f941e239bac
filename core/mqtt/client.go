package mqtt

import "time"

// Action tells a resource terminal what to do with a work order.
type Action string

const (
	ActionAssign  Action = "assign"
	ActionRelease Action = "release"
)

// WorkOrder is the part of a committed task one resource has to execute.
type WorkOrder struct {
	RunID       string `json:"run_id"`
	TaskKey     string `json:"task_key"`
	ResourceKey string `json:"resource"`
	Kind        string `json:"kind"`
	State       string `json:"state,omitempty"`
	Action      Action `json:"action"`
	StartW      int64  `json:"start_w,omitempty"`
	EndW        int64  `json:"end_w,omitempty"`
}

// Client represents an MQTT client capable of sending work orders to
// resource terminals and waiting for their acknowledgments.
type Client interface {
	// SendWorkOrder publishes o on the resource specific topic and returns
	// the command identifier used to track the acknowledgment.
	SendWorkOrder(o WorkOrder) (commandID string, err error)

	// WaitForAck waits for an acknowledgment for the provided command
	// identifier or until the timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}
