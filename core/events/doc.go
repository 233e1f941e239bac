// Package events defines the scheduling events published on the event bus.
//
// Available event types:
//   - BatchSelected: the neighborhood chosen for one loop iteration
//   - TaskCommitted: a task received its interval and resources
//   - TaskFailed: a task could not be placed in this run
//   - TaskUnscheduled: a task was released by Unschedule
package events
