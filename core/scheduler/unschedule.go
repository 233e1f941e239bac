package scheduler

import (
	"context"
	"fmt"

	"github.com/kilianp07/capsched/core/events"
	"github.com/kilianp07/capsched/core/model"
)

// Unschedule releases every movable scheduled task of tasks: its generated
// state-change tasks and its own assignments are removed and the contexts
// touching the freed resources are marked dirty. Tasks that already started
// and generated setup or teardown tasks get an error entry and are left in
// place.
func (s *Scheduler) Unschedule(ctx context.Context, tasks []*model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready() {
		return ErrNotInitialized
	}
	s.begin(OpUnschedule)
	defer s.finish(ctx)

	for _, in := range tasks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("unschedule interrupted: %w", err)
		}
		t, ok := s.land.Task(in.Key)
		if !ok {
			t = in
		}
		if !t.IsScheduled() {
			continue
		}
		if t.Kind != model.KindProduction {
			t.AddError(AgentUnschedule, "%s task of %s is released with its parent", t.Kind, t.Parent)
			continue
		}
		if !t.Movable() {
			t.AddError(AgentUnschedule, "task is %s and cannot be moved", t.Progress)
			continue
		}
		s.release(t)
	}
	return nil
}

func (s *Scheduler) release(t *model.Task) {
	freed := map[string]bool{}
	for _, k := range t.StateChangeTasks {
		gen, ok := s.land.Task(k)
		if !ok {
			continue
		}
		for _, rk := range gen.Resources {
			if res, ok := s.land.Resource(rk); ok && res.Release(k) {
				freed[rk] = true
			}
		}
		s.contexts.RemoveTask(k)
		s.land.Tasks.Delete(k)
	}
	resources := t.Resources
	for _, rk := range resources {
		if res, ok := s.land.Resource(rk); ok && res.Release(t.Key) {
			freed[rk] = true
		}
	}

	t.Reset()
	t.Processed = false
	s.contexts.InvalidateTask(t.Key)
	for rk := range freed {
		s.contexts.InvalidateResource(rk, func(o *model.Task) bool { return !o.IsScheduled() })
	}
	if s.settings.RequiresPreds {
		if proc, ok := s.land.Process(t); ok {
			s.restoreChain(proc)
		}
	}

	s.run.record.Released = append(s.run.record.Released, t.Key)
	s.publish(events.TaskUnscheduled{RunID: s.run.id, TaskKey: t.Key, Resources: resources, Time: s.now()})
	s.logger.Debugw("task unscheduled", map[string]any{"task": t.Key, "resources": resources})
}
