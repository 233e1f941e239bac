package scheduler

import (
	"sort"

	"github.com/kilianp07/capsched/core/model"
)

// projection is the sort key of a pending task.
type projection struct {
	task *model.Task
	// at is the projected end (forward) or latest start (backward).
	at    int64
	order int
}

// project estimates where t would go from its feasible contexts, falling
// back to its window. Dirty contexts are evaluated first.
func (s *Scheduler) project(t *model.Task) int64 {
	dur := t.Duration.Duration()
	if s.settings.Backward() {
		_, et := s.bounds(t)
		lst := et - dur
		found := false
		for _, c := range s.contexts.ForTask(t.Key) {
			s.evaluate(c)
			if !c.Feasible() {
				continue
			}
			if v := c.LatestStart(); !found || v > lst {
				lst, found = v, true
			}
		}
		return lst
	}
	est := t.Window.EarliestW
	found := false
	for _, c := range s.contexts.ForTask(t.Key) {
		s.evaluate(c)
		if !c.Feasible() {
			continue
		}
		if v := c.EarliestStart(); !found || v < est {
			est, found = v, true
		}
	}
	return est + dur
}

// neighborhood selects the next batch among the pending tasks: sorted by
// projected end (latest start descending when scheduling backward), then
// by score, rank, window start and duration. With RequiresPreds the nearest
// pending predecessor of each selected task is spliced in front of it while
// the batch stays within TopTasksToSchedule.
func (s *Scheduler) neighborhood(pending []*model.Task) []*model.Task {
	ps := make([]projection, 0, len(pending))
	for i, t := range pending {
		if t.Processed || t.IsScheduled() {
			continue
		}
		ps = append(ps, projection{task: t, at: s.project(t), order: i})
	}
	backward := s.settings.Backward()
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.at != b.at {
			if backward {
				return a.at > b.at
			}
			return a.at < b.at
		}
		if a.task.Score != b.task.Score {
			return a.task.Score < b.task.Score
		}
		if a.task.Rank != b.task.Rank {
			return a.task.Rank < b.task.Rank
		}
		if a.task.Window.EarliestW != b.task.Window.EarliestW {
			return a.task.Window.EarliestW < b.task.Window.EarliestW
		}
		if da, db := a.task.Duration.Duration(), b.task.Duration.Duration(); da != db {
			return da < db
		}
		return a.order < b.order
	})

	limit := s.settings.TopTasksToSchedule
	if limit <= 0 {
		limit = 1
	}
	batch := make([]*model.Task, 0, limit)
	for _, p := range ps {
		if len(batch) == limit {
			break
		}
		batch = append(batch, p.task)
	}
	if s.settings.RequiresPreds {
		batch = s.splice(batch, limit)
	}
	return batch
}

// splice puts the nearest pending chain neighbour of each task in front of
// it, the predecessor when scheduling forward and the successor backward.
// A neighbour already in the batch is moved forward.
func (s *Scheduler) splice(batch []*model.Task, limit int) []*model.Task {
	added := map[string]bool{}
	out := make([]*model.Task, 0, limit)
	for _, t := range batch {
		if n := s.nearestPending(t); n != nil && !added[n.Key] {
			out = append(out, n)
			added[n.Key] = true
		}
		if !added[t.Key] {
			out = append(out, t)
			added[t.Key] = true
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Scheduler) nearestPending(t *model.Task) *model.Task {
	proc, ok := s.land.Process(t)
	if !ok {
		return nil
	}
	neighbours := proc.Predecessors(t.Key)
	if s.settings.Backward() {
		neighbours = proc.Successors(t.Key)
	}
	for _, k := range neighbours {
		n, ok := s.land.Task(k)
		if !ok || n.IsScheduled() || n.Processed {
			continue
		}
		return n
	}
	return nil
}
