package scheduler

import (
	"strings"

	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/statechange"
)

// ScheduleContext is one candidate placement: a task on one combination of
// resources, with its feasible start windows and score.
type ScheduleContext struct {
	Hash string
	task *model.Task
	// slot and reqs are parallel: slot[i] satisfies reqs[i].
	slot []*model.Resource
	reqs []model.Requirement
	rank int

	Windows []statechange.Window
	Raw     []float64
	Score   float64
	// SlotErrors are permanent problems with the combination itself.
	SlotErrors []string
	// Errors are the problems found by the last evaluation.
	Errors []model.TaskError

	Recompute bool
	// late places the commit at the latest start of the last window.
	late bool
}

func contextHash(taskKey string, slot []string) string {
	return taskKey + "|" + strings.Join(slot, ",")
}

func (c *ScheduleContext) Task() *model.Task       { return c.task }
func (c *ScheduleContext) Slot() []*model.Resource { return c.slot }
func (c *ScheduleContext) Rank() int               { return c.rank }

// SlotKeys returns the resource keys of the slot.
func (c *ScheduleContext) SlotKeys() []string {
	out := make([]string, len(c.slot))
	for i, r := range c.slot {
		out[i] = r.Key
	}
	return out
}

// Feasible reports whether the last evaluation found start windows.
func (c *ScheduleContext) Feasible() bool {
	return len(c.SlotErrors) == 0 && len(c.Errors) == 0 && len(c.Windows) > 0
}

func (c *ScheduleContext) EarliestStart() int64 {
	if len(c.Windows) == 0 {
		return c.task.Window.EarliestW
	}
	return c.Windows[0].StartW
}

func (c *ScheduleContext) LatestStart() int64 {
	if len(c.Windows) == 0 {
		return c.task.Window.LatestW - c.task.Duration.Duration()
	}
	return c.Windows[len(c.Windows)-1].EndW
}

// Placement returns the window a commit takes and the start inside it: the
// earliest start of the first window, or the latest start of the last one
// when scheduling late.
func (c *ScheduleContext) Placement() (statechange.Window, int64) {
	if len(c.Windows) == 0 {
		return statechange.Window{}, c.EarliestStart()
	}
	if c.late {
		w := c.Windows[len(c.Windows)-1]
		return w, w.EndW
	}
	return c.Windows[0], c.Windows[0].StartW
}

func (c *ScheduleContext) Start() int64 {
	_, start := c.Placement()
	return start
}

func (c *ScheduleContext) Changeover() int64 {
	w, _ := c.Placement()
	return w.Changeover
}

func (c *ScheduleContext) Penalty() float64 {
	w, _ := c.Placement()
	return w.Penalty
}

// Contexts indexes candidates by hash with secondary indexes by task and by
// resource. At most one context exists per hash and iteration follows
// insertion order.
type Contexts struct {
	byHash     *model.Collection[*ScheduleContext]
	byTask     map[string][]string
	byResource map[string]map[string]struct{}
}

// NewContexts returns an empty index.
func NewContexts() *Contexts {
	return &Contexts{
		byHash:     model.NewCollection[*ScheduleContext](),
		byTask:     map[string][]string{},
		byResource: map[string]map[string]struct{}{},
	}
}

// Len returns the number of contexts.
func (cs *Contexts) Len() int { return cs.byHash.Len() }

// Get returns the context stored under hash.
func (cs *Contexts) Get(hash string) (*ScheduleContext, bool) { return cs.byHash.Get(hash) }

// Add stores c unless a context with the same hash exists, in which case the
// existing one is returned.
func (cs *Contexts) Add(c *ScheduleContext) *ScheduleContext {
	if old, ok := cs.byHash.Get(c.Hash); ok {
		return old
	}
	cs.byHash.Put(c.Hash, c)
	cs.byTask[c.task.Key] = append(cs.byTask[c.task.Key], c.Hash)
	for _, r := range c.slot {
		set, ok := cs.byResource[r.Key]
		if !ok {
			set = map[string]struct{}{}
			cs.byResource[r.Key] = set
		}
		set[c.Hash] = struct{}{}
	}
	return c
}

// ForTask returns the contexts of taskKey in insertion order.
func (cs *Contexts) ForTask(taskKey string) []*ScheduleContext {
	hashes := cs.byTask[taskKey]
	out := make([]*ScheduleContext, 0, len(hashes))
	for _, h := range hashes {
		if c, ok := cs.byHash.Get(h); ok {
			out = append(out, c)
		}
	}
	return out
}

// ForResource returns the number of contexts referencing resourceKey.
func (cs *Contexts) ForResource(resourceKey string) int { return len(cs.byResource[resourceKey]) }

// InvalidateResource marks dirty every context using resourceKey whose task
// passes keep, and returns how many were marked.
func (cs *Contexts) InvalidateResource(resourceKey string, keep func(*model.Task) bool) int {
	n := 0
	for h := range cs.byResource[resourceKey] {
		c, ok := cs.byHash.Get(h)
		if !ok || (keep != nil && !keep(c.task)) {
			continue
		}
		c.Recompute = true
		n++
	}
	return n
}

// InvalidateTask marks every context of taskKey dirty.
func (cs *Contexts) InvalidateTask(taskKey string) {
	for _, c := range cs.ForTask(taskKey) {
		c.Recompute = true
	}
}

// RemoveTask drops every context of taskKey.
func (cs *Contexts) RemoveTask(taskKey string) {
	for _, h := range cs.byTask[taskKey] {
		c, ok := cs.byHash.Get(h)
		if !ok {
			continue
		}
		for _, r := range c.slot {
			delete(cs.byResource[r.Key], h)
		}
		cs.byHash.Delete(h)
	}
	delete(cs.byTask, taskKey)
}
