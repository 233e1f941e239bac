package scheduler

import "errors"

// ErrNotInitialized is returned by Schedule and Unschedule before the
// landscape, the settings and the scoring policy are all set.
var ErrNotInitialized = errors.New("scheduler not initialized")

// Agents recording per-task diagnostics.
const (
	AgentExplode      = "explode"
	AgentAvailability = "availability"
	AgentStartTime    = "starttime"
	AgentStateChange  = "statechange"
	AgentScoring      = "scoring"
	AgentUnschedule   = "unschedule"
)
