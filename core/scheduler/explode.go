package scheduler

import (
	"sort"

	"github.com/kilianp07/capsched/core/model"
)

// explode returns one context per resource combination of t: the Cartesian
// product of the ranked preference lists of its requirements, without
// combinations that repeat a resource. Combinations naming an unknown
// resource get a slot error instead of being evaluated. Existing contexts
// are reused.
func (s *Scheduler) explode(t *model.Task) []*ScheduleContext {
	reqs := t.Requirements()
	if len(reqs) == 0 {
		return nil
	}
	prefs := make([][]model.Preference, len(reqs))
	for i, r := range reqs {
		p := append([]model.Preference(nil), r.Preferences...)
		sort.SliceStable(p, func(a, b int) bool { return p[a].Rank < p[b].Rank })
		prefs[i] = p
	}

	var out []*ScheduleContext
	chosen := make([]model.Preference, len(reqs))
	used := map[string]bool{}
	var walk func(i int)
	walk = func(i int) {
		if i == len(reqs) {
			out = append(out, s.contexts.Add(s.newContext(t, reqs, chosen)))
			return
		}
		for _, p := range prefs[i] {
			if used[p.ResourceKey] {
				continue
			}
			used[p.ResourceKey] = true
			chosen[i] = p
			walk(i + 1)
			delete(used, p.ResourceKey)
		}
	}
	walk(0)
	return out
}

func (s *Scheduler) newContext(t *model.Task, reqs []model.Requirement, chosen []model.Preference) *ScheduleContext {
	keys := make([]string, len(chosen))
	c := &ScheduleContext{task: t, Recompute: true}
	for i, p := range chosen {
		keys[i] = p.ResourceKey
		c.rank += p.Rank
		res, ok := s.land.Resource(p.ResourceKey)
		if !ok {
			c.SlotErrors = append(c.SlotErrors, "unknown resource "+p.ResourceKey)
			continue
		}
		c.slot = append(c.slot, res)
		c.reqs = append(c.reqs, reqs[i])
	}
	c.Hash = contextHash(t.Key, keys)
	return c
}
