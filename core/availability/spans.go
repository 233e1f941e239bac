package availability

import (
	"sort"

	"github.com/kilianp07/capsched/core/model"
)

// StateSpans returns the gaps between the process-state assignments of res
// within h. Each span records the state before and after it together with
// the counters of the run of equal states that ends at Prev. Setup and
// teardown assignments start a new run and count as a changeover.
func StateSpans(res *model.Resource, h model.Horizon) []model.StateSpan {
	procs := res.ProcessAssignments()
	sort.SliceStable(procs, func(i, j int) bool {
		return procs[i].Interval.StartW < procs[j].Interval.StartW
	})

	var out []model.StateSpan
	cur := model.StateSpan{StartW: h.StartW, Prev: res.InitialState}
	for _, a := range procs {
		changeover := a.Kind != model.KindProduction
		cur.EndW = a.Interval.StartW
		cur.Next = a.State
		cur.NextIsSetup = changeover
		if cur.EndW > cur.StartW {
			out = append(out, cur)
		}

		next := model.StateSpan{
			StartW:      a.Interval.EndW,
			Prev:        a.State,
			RunTasks:    cur.RunTasks,
			RunSeconds:  cur.RunSeconds,
			Changeovers: cur.Changeovers,
		}
		if changeover || a.State != cur.Prev {
			next.RunTasks = 0
			next.RunSeconds = 0
			if changeover {
				next.Changeovers++
			}
		}
		if !changeover {
			next.RunTasks++
			next.RunSeconds += a.Interval.Len()
		}
		cur = next
	}
	cur.EndW = h.EndW
	if cur.EndW == 0 {
		_, cur.EndW, _ = res.Original.Bounds()
	}
	cur.Next = ""
	cur.NextIsSetup = false
	if cur.EndW > cur.StartW {
		out = append(out, cur)
	}
	return out
}
