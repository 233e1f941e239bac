package scheduler

import (
	"github.com/google/uuid"

	"github.com/kilianp07/capsched/core/events"
	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/metrics"
	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/runlog"
	"github.com/kilianp07/capsched/core/starttime"
	"github.com/kilianp07/capsched/core/statechange"
)

// changeoverSpace derives the keys of generated setup and teardown tasks, so
// that repeated runs over the same input produce the same keys.
var changeoverSpace = uuid.MustParse("5c2f0e4a-8d0b-4f55-9a59-5f0c1e3e7b21")

// commit places t on the slot of c at the earliest start of its first
// window, or at the latest start of its last window when scheduling late.
func (s *Scheduler) commit(t *model.Task, c *ScheduleContext) {
	c.late = s.late()
	w, start := c.Placement()
	end := s.endFor(t, c, start)

	iv := interval.New(start, end)
	t.Scheduled = &iv
	t.State = model.Scheduled
	t.Resources = c.SlotKeys()
	t.Score = c.Score
	t.Processed = true
	for i, res := range c.slot {
		res.Assign(model.Assignment{
			TaskKey:  t.Key,
			Interval: interval.WithQty(start, end, c.reqs[i].Quantity()),
			State:    t.ProcessState,
			Kind:     t.Kind,
		})
	}
	s.record(t, w.Changeover)

	touched := map[string]bool{}
	for _, res := range c.slot {
		touched[res.Key] = true
	}
	for _, ch := range w.Setups {
		s.changeover(t, c, ch, model.KindSetup, start-ch.Seconds, start)
		touched[ch.ResourceKey] = true
	}
	for _, ch := range w.Teardowns {
		s.changeover(t, c, ch, model.KindTeardown, end, end+ch.Seconds)
		touched[ch.ResourceKey] = true
	}

	for key := range touched {
		s.contexts.InvalidateResource(key, func(o *model.Task) bool {
			return !o.Processed && !o.IsScheduled()
		})
	}
	if s.settings.RequiresPreds {
		if proc, ok := s.land.Process(t); ok {
			s.truncate(proc, t)
		}
	}
	s.logger.Debugw("task committed", map[string]any{
		"task": t.Key, "start": start, "end": end, "resources": t.Resources, "score": t.Score,
	})
}

// endFor returns the completion of t started at start: the latest end over
// the slot resources, at least start plus the nominal duration.
func (s *Scheduler) endFor(t *model.Task, c *ScheduleContext, start int64) int64 {
	_, et := s.bounds(t)
	end := start + t.Duration.Duration()
	for i, res := range c.slot {
		if res.Class == interval.Consumable {
			continue
		}
		req := starttime.Request{StartW: start, EndW: et, Duration: t.Duration, Qty: c.reqs[i].Quantity()}
		if e, ok := s.starts.EndFor(start, req, res.Matrix); ok && e > end {
			end = e
		}
	}
	return end
}

// changeover commits a generated setup or teardown task for ch on behalf of
// parent.
func (s *Scheduler) changeover(parent *model.Task, c *ScheduleContext, ch statechange.Changeover, kind model.TaskKind, start, end int64) {
	res, ok := s.land.Resource(ch.ResourceKey)
	if !ok {
		return
	}
	qty := 1.0
	for i, r := range c.slot {
		if r.Key == ch.ResourceKey {
			qty = c.reqs[i].Quantity()
		}
	}
	key := uuid.NewSHA1(changeoverSpace, []byte(parent.Key+"|"+kind.String()+"|"+ch.ResourceKey)).String()
	iv := interval.New(start, end)
	gen := &model.Task{
		Key:          key,
		Kind:         kind,
		State:        model.Scheduled,
		Processed:    true,
		Duration:     model.Duration{Type: model.DurationFixed, Seconds: end - start},
		Window:       model.Window{EarliestW: start, LatestW: end},
		ProcessState: ch.To,
		Scheduled:    &iv,
		Resources:    []string{ch.ResourceKey},
		Parent:       parent.Key,
	}
	gen.BaseWindow = gen.Window
	s.land.Tasks.Put(gen.Key, gen)
	res.Assign(model.Assignment{TaskKey: key, Interval: interval.WithQty(start, end, qty), State: ch.To, Kind: kind})
	parent.StateChangeTasks = append(parent.StateChangeTasks, key)
	s.record(gen, ch.Seconds)
}

// record accounts for a committed task in the run, the metrics and the bus.
func (s *Scheduler) record(t *model.Task, changeover int64) {
	now := s.now()
	commits.WithLabelValues(t.Kind.String()).Inc()
	s.run.record.Committed = append(s.run.record.Committed, runlog.Commit{
		TaskKey:   t.Key,
		Kind:      t.Kind.String(),
		Parent:    t.Parent,
		Resources: t.Resources,
		StartW:    t.Scheduled.StartW,
		EndW:      t.Scheduled.EndW,
		Score:     t.Score,
	})
	s.run.commits = append(s.run.commits, metrics.CommitRecord{
		RunID:      s.run.id,
		TaskKey:    t.Key,
		Kind:       t.Kind.String(),
		Resources:  t.Resources,
		StartW:     t.Scheduled.StartW,
		EndW:       t.Scheduled.EndW,
		Score:      t.Score,
		Changeover: changeover,
		Time:       now,
	})
	s.publish(events.TaskCommitted{
		RunID:      s.run.id,
		TaskKey:    t.Key,
		Kind:       t.Kind.String(),
		Parent:     t.Parent,
		Resources:  t.Resources,
		StartW:     t.Scheduled.StartW,
		EndW:       t.Scheduled.EndW,
		State:      t.ProcessState,
		Score:      t.Score,
		Changeover: changeover,
		Time:       now,
	})
}

// truncate narrows the windows of the unscheduled members of proc around
// the commit of t: successors may not start before t ends and predecessors
// must end before t starts.
func (s *Scheduler) truncate(proc *model.Process, t *model.Task) {
	for _, k := range proc.Successors(t.Key) {
		n, ok := s.land.Task(k)
		if !ok || n.IsScheduled() {
			continue
		}
		if t.Scheduled.EndW > n.Window.EarliestW {
			n.Window.EarliestW = t.Scheduled.EndW
			s.contexts.InvalidateTask(k)
		}
	}
	for _, k := range proc.Predecessors(t.Key) {
		n, ok := s.land.Task(k)
		if !ok || n.IsScheduled() {
			continue
		}
		if t.Scheduled.StartW < n.Window.LatestW {
			n.Window.LatestW = t.Scheduled.StartW
			s.contexts.InvalidateTask(k)
		}
	}
}

// restoreChain resets the windows of the unscheduled members of proc and
// truncates them again by every scheduled member.
func (s *Scheduler) restoreChain(proc *model.Process) {
	for _, k := range proc.Tasks {
		if n, ok := s.land.Task(k); ok && !n.IsScheduled() && n.Window != n.BaseWindow {
			n.Window = n.BaseWindow
			s.contexts.InvalidateTask(k)
		}
	}
	for _, k := range proc.Tasks {
		if n, ok := s.land.Task(k); ok && n.IsScheduled() && n.Scheduled != nil {
			s.truncate(proc, n)
		}
	}
}
