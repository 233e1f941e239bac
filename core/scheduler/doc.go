// Package scheduler is the constructive scheduling loop. Each iteration
// picks a small neighborhood of pending tasks, expands every task into its
// resource combinations, scores the candidates and commits the best one,
// then invalidates the cached candidates touching the resources it used.
//
// A Scheduler serializes calls on its landscape; the engines it owns are not
// shared with other schedulers.
package scheduler
