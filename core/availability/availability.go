// Package availability turns resource calendars and commitments into the
// classified availability lists the start-time engine searches.
package availability

import (
	"math"
	"sort"

	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/logger"
	"github.com/kilianp07/capsched/core/model"
)

// Engine rebuilds availability matrices.
type Engine struct {
	set    *interval.Engine
	logger logger.Logger
}

// New returns an availability engine sharing the given set-algebra engine.
func New(set *interval.Engine, log logger.Logger) *Engine {
	if set == nil {
		set = interval.NewEngine()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Engine{set: set, logger: log}
}

// Recalculate brings the matrix of res up to date. Available is derived
// again only when the resource is marked for recompute; the buckets and
// state spans are rebuilt whenever the matrix is dirty.
func (e *Engine) Recalculate(res *model.Resource, l *model.Landscape) {
	if res.Matrix == nil {
		res.Matrix = model.NewAvailableMatrix()
	}
	m := res.Matrix
	if res.Recompute || m.Recompute {
		assigned := res.AssignmentList(e.set)
		m.Available = e.set.Subtract(res.Original, assigned, res.Class)
		m.Recompute = false
		res.Recompute = false
		m.Recalc = true
	}
	if !m.Recalc {
		return
	}
	flow := false
	if l != nil {
		flow = l.Settings.FlowAround
	}
	positive := positiveSegments(m.Available)
	m.Buckets[model.BucketFixed] = model.Classified{List: positive, Ranges: buildRanges(positive, false, false)}
	m.Buckets[model.BucketFloat] = model.Classified{List: positive, Ranges: buildRanges(positive, true, flow)}
	coverage := e.coverage(res.Original)
	m.Buckets[model.BucketUntracked] = model.Classified{List: coverage, Ranges: buildRanges(coverage, false, false)}

	var h model.Horizon
	if l != nil {
		h = l.Horizon
	}
	m.StateSpans = StateSpans(res, h)
	m.Recalc = false
	e.logger.Debugw("availability recalculated", map[string]any{
		"resource": res.Key,
		"segments": m.Available.Len(),
		"fixed":    len(m.Buckets[model.BucketFixed].Ranges),
		"float":    len(m.Buckets[model.BucketFloat].Ranges),
		"spans":    len(m.StateSpans),
	})
}

// coverage returns the calendar as untracked, merged coverage.
func (e *Engine) coverage(original interval.List) interval.List {
	merged := e.set.Execute(original, interval.List{}, interval.ModeUnion, interval.Reusable)
	items := merged.Items()
	for i := range items {
		items[i] = interval.New(items[i].StartW, items[i].EndW)
	}
	return e.set.Collapse(interval.NewList(items...), interval.Reusable)
}

func positiveSegments(l interval.List) interval.List {
	out := make([]interval.Interval, 0, l.Len())
	for _, iv := range l.Items() {
		if iv.Empty() || iv.Available() <= 1e-9 {
			continue
		}
		out = append(out, iv)
	}
	return interval.NewList(out...)
}

// thresholds returns the distinct available quantities of l, ascending.
func thresholds(l interval.List) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, iv := range l.Items() {
		q := iv.Available()
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	sort.Float64s(out)
	return out
}

// buildRanges builds, for every distinct quantity q, the ranges of segments
// offering at least q. Without gaps a range ends at the first time gap
// between segments. Without flow a range ends at the first segment below q;
// with flow each q gets a single range from its first to its last
// qualifying segment.
func buildRanges(l interval.List, gaps, flow bool) []interval.Range {
	var out []interval.Range
	for _, q := range thresholds(l) {
		if flow {
			first, last := interval.None, interval.None
			for i := 0; i < l.Len(); i++ {
				if l.At(i).Available() >= q-1e-9 {
					if first == interval.None {
						first = i
					}
					last = i
				}
			}
			if first != interval.None {
				out = append(out, interval.NewRange(l, first, last, q))
			}
			continue
		}
		first := interval.None
		for i := 0; i < l.Len(); i++ {
			iv := l.At(i)
			ok := iv.Available() >= q-1e-9
			if ok && first != interval.None && !gaps && l.At(i-1).EndW != iv.StartW {
				out = append(out, interval.NewRange(l, first, i-1, q))
				first = interval.None
			}
			switch {
			case ok && first == interval.None:
				first = i
			case !ok && first != interval.None:
				out = append(out, interval.NewRange(l, first, i-1, q))
				first = interval.None
			}
		}
		if first != interval.None {
			out = append(out, interval.NewRange(l, first, l.Len()-1, q))
		}
	}
	return out
}

// RangesFor returns the ranges of b that can carry qty: those built for the
// smallest threshold reaching qty. Ranges of larger thresholds are subsets
// of these.
func RangesFor(c *model.Classified, qty float64) []interval.Range {
	best := math.Inf(1)
	found := false
	for _, r := range c.Ranges {
		if r.Qty >= qty-1e-9 && (!found || r.Qty < best) {
			best = r.Qty
			found = true
		}
	}
	if !found {
		return nil
	}
	var out []interval.Range
	for _, r := range c.Ranges {
		if r.Qty == best {
			out = append(out, r)
		}
	}
	return out
}
