package scheduler

import (
	"fmt"
	"sort"

	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/scoring"
	"github.com/kilianp07/capsched/core/starttime"
	"github.com/kilianp07/capsched/core/statechange"
)

// bounds returns the earliest start and latest end allowed for t.
func (s *Scheduler) bounds(t *model.Task) (int64, int64) {
	return t.Window.EarliestW, t.Window.LatestW + s.settings.MaxLateness
}

// evaluate recomputes the start windows of a dirty context. Every slot
// resource is brought up to date first, then the windows of all resources
// are intersected and the changeover overlay is applied.
func (s *Scheduler) evaluate(c *ScheduleContext) {
	if !c.Recompute {
		return
	}
	c.Recompute = false
	c.Windows = nil
	c.Errors = nil
	c.Raw = nil
	c.Score = 0
	recomputes.Inc()
	if len(c.SlotErrors) > 0 {
		for _, e := range c.SlotErrors {
			c.Errors = append(c.Errors, model.TaskError{Agent: AgentExplode, Reason: e})
		}
		return
	}

	t := c.task
	st, et := s.bounds(t)
	dur := t.Duration.Duration()
	if t.Duration.Type != model.DurationRunRate && dur > et-st {
		c.Errors = append(c.Errors, model.TaskError{Agent: AgentStartTime, Reason: "duration exceeds window"})
		return
	}

	var windows interval.List
	for i, res := range c.slot {
		s.avail.Recalculate(res, s.land)
		req := c.reqs[i]
		var got interval.List
		ok := true
		if res.Class == interval.Consumable {
			got = starttime.MaterialStartTimes(st, et-dur, req.Quantity(), res.Matrix.Available)
			ok = got.Len() > 0
		} else {
			got, ok = s.starts.ComputeStartTimes(starttime.Request{
				StartW: st, EndW: et, Duration: t.Duration, Qty: req.Quantity(),
			}, res.Matrix)
		}
		if !ok {
			c.Errors = append(c.Errors, model.TaskError{Agent: AgentAvailability, Reason: fmt.Sprintf("no availability for resource %s", res.Key)})
			return
		}
		if i == 0 {
			windows = got
			continue
		}
		windows = s.starts.Intersect(windows, got)
		if windows.IsEmpty() {
			c.Errors = append(c.Errors, model.TaskError{Agent: AgentStartTime, Reason: "no common start time for slot"})
			return
		}
	}

	ws := statechange.Wrap(windows)
	if s.changes.Applies(t, c.slot, s.land.StateChanges) {
		ws = s.changes.Apply(ws, t, c.slot, s.land.StateChanges)
		qty := make([]float64, len(c.reqs))
		for i, r := range c.reqs {
			qty[i] = r.Quantity()
		}
		bounds := interval.New(min(st, s.land.Horizon.StartW), max(et, s.land.Horizon.EndW))
		ws = statechange.Feasible(s.changes.Fit(ws, t, c.slot, qty, bounds))
		if len(ws) == 0 {
			c.Errors = append(c.Errors, model.TaskError{Agent: AgentStateChange, Reason: "changeover does not fit any window"})
			return
		}
	}
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].StartW < ws[j].StartW })
	c.Windows = ws
}

// refresh evaluates the dirty contexts of tasks and scores all feasible
// contexts together. Each task's Score becomes its best blended score.
func (s *Scheduler) refresh(tasks []*model.Task) {
	var cands []scoring.Candidate
	var ctxs []*ScheduleContext
	for _, t := range tasks {
		for _, c := range s.contextsFor(t) {
			c.late = s.late()
			s.evaluate(c)
			if c.Feasible() {
				cands = append(cands, c)
				ctxs = append(ctxs, c)
			}
		}
	}
	results := s.scorer.ComputeScores(s.land, cands)
	for i, c := range ctxs {
		c.Raw = results[i].Raw
		c.Score = results[i].Blended
	}
	for _, t := range tasks {
		if best := s.best(t); best != nil {
			t.Score = best.Score
		}
	}
}

// contextsFor returns the contexts of t, exploding it on first use.
func (s *Scheduler) contextsFor(t *model.Task) []*ScheduleContext {
	if cs := s.contexts.ForTask(t.Key); len(cs) > 0 {
		return cs
	}
	return s.explode(t)
}

// dirty reports whether any context of t needs evaluating.
func (s *Scheduler) dirty(t *model.Task) bool {
	for _, c := range s.contexts.ForTask(t.Key) {
		if c.Recompute {
			return true
		}
	}
	return false
}

// best returns the feasible context of t with the lowest score. Ties go to
// the earliest start, or the latest when the policy prefers late starts,
// then to the lower rank, then to insertion order.
func (s *Scheduler) best(t *model.Task) *ScheduleContext {
	var best *ScheduleContext
	late := s.scorer.PrefersLatest()
	for _, c := range s.contexts.ForTask(t.Key) {
		if !c.Feasible() {
			continue
		}
		if best == nil || better(c, best, late) {
			best = c
		}
	}
	return best
}

func better(a, b *ScheduleContext, late bool) bool {
	const eps = 1e-12
	if a.Score < b.Score-eps {
		return true
	}
	if a.Score > b.Score+eps {
		return false
	}
	if late {
		if a.LatestStart() != b.LatestStart() {
			return a.LatestStart() > b.LatestStart()
		}
	} else if a.EarliestStart() != b.EarliestStart() {
		return a.EarliestStart() < b.EarliestStart()
	}
	return a.rank < b.rank
}
