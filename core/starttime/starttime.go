// Package starttime computes the feasible start-time windows of a duration
// on a resource's classified availability.
//
// A start-time window is a closed interval [StartW, EndW] of instants at
// which work may begin; a window with StartW == EndW allows a single start.
package starttime

import (
	"math"

	"github.com/kilianp07/capsched/core/availability"
	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/model"
)

// Engine evaluates start times.
type Engine struct {
	set *interval.Engine
}

// New returns a start-time engine sharing the given set-algebra engine.
func New(set *interval.Engine) *Engine {
	if set == nil {
		set = interval.NewEngine()
	}
	return &Engine{set: set}
}

// Request is one duration placed on one resource.
type Request struct {
	// StartW is the earliest start and EndW the latest end.
	StartW   int64
	EndW     int64
	Duration model.Duration
	// Qty is the capacity the work occupies; zero means one unit.
	Qty float64
}

func (r Request) qty() float64 {
	if r.Qty <= 0 {
		return 1
	}
	return r.Qty
}

// ComputeStartTimes returns every start window of req on m. The boolean is
// false when no range can hold the duration.
func (e *Engine) ComputeStartTimes(req Request, m *model.AvailableMatrix) (interval.List, bool) {
	var out interval.List
	if req.EndW <= req.StartW {
		return out, false
	}
	c := m.Bucket(req.Duration.Bucket())
	for _, r := range e.Evaluate(req, c) {
		if !r.Valid {
			continue
		}
		e.collect(&out, req, c.List, r)
	}
	return out, out.Len() > 0
}

// Evaluate runs both duration sweeps on every range of c able to carry the
// request and returns the evaluated copies.
func (e *Engine) Evaluate(req Request, c *model.Classified) []interval.Range {
	ranges := availability.RangesFor(c, req.qty())
	out := make([]interval.Range, 0, len(ranges))
	for _, r := range ranges {
		if !satisfiable(req.Duration, r) {
			continue
		}
		if req.Duration.Type == model.DurationStatic {
			staticBounds(req, c.List, &r)
		} else {
			fwd := ComputeDurationForward(req, c.List, &r)
			bwd := ComputeDurationBackward(req, c.List, &r)
			r.Valid = fwd && bwd && r.EST <= r.LST
		}
		out = append(out, r)
	}
	return out
}

func satisfiable(d model.Duration, r interval.Range) bool {
	switch d.Type {
	case model.DurationStatic:
		return true
	case model.DurationRunRate:
		return r.RunQty >= d.Quantity-1e-9
	default:
		return r.Duration >= d.Duration()
	}
}

// staticBounds only checks that the work fits between the range bounds and
// the request window.
func staticBounds(req Request, l interval.List, r *interval.Range) {
	start, end := r.Span(l)
	d := req.Duration.Duration()
	r.EST = max(start, req.StartW)
	r.EET = r.EST + d
	r.LETT = min(end, req.EndW)
	r.LST = r.LETT - d
	r.Valid = r.EET <= req.EndW && r.LST >= req.StartW && r.EST <= r.LST
}

// contiguous reports whether the duration type needs an uninterrupted span.
func contiguous(t model.DurationType) bool {
	return t == model.DurationFixed || t == model.DurationUntracked || t == model.DurationStatic
}

// ComputeDurationForward finds the earliest start and end of the request in
// r, setting EST and EET. Contiguous durations restart accumulating after a
// gap or a segment below the range threshold. A FIXED duration also
// restarts on a segment shorter than itself, so it never carries across
// segments of different quantity.
func ComputeDurationForward(req Request, l interval.List, r *interval.Range) bool {
	need := need(req.Duration)
	var acc float64
	start := int64(math.MinInt64)
	var prevEnd int64
	for i := r.First; i <= r.Last; i++ {
		seg := l.At(i)
		if !r.Counts(seg) {
			if contiguous(req.Duration.Type) {
				acc, start = 0, math.MinInt64
			}
			continue
		}
		seg = seg.Bounded(req.StartW, req.EndW)
		if seg.Empty() {
			continue
		}
		if short(req.Duration, seg, need) {
			acc, start = 0, math.MinInt64
			continue
		}
		if contiguous(req.Duration.Type) && start != math.MinInt64 && seg.StartW != prevEnd {
			acc, start = 0, math.MinInt64
		}
		if start == math.MinInt64 {
			start = seg.StartW
		}
		gain := yield(req.Duration, seg)
		if acc+gain >= need-1e-9 {
			r.EST = start
			r.EET = seg.StartW + span(req.Duration, seg, need-acc)
			return true
		}
		acc += gain
		prevEnd = seg.EndW
	}
	return false
}

// ComputeDurationBackward is the mirror of ComputeDurationForward from the
// tail of r, setting LST and LETT.
func ComputeDurationBackward(req Request, l interval.List, r *interval.Range) bool {
	need := need(req.Duration)
	var acc float64
	end := int64(math.MaxInt64)
	var prevStart int64
	for i := r.Last; i >= r.First; i-- {
		seg := l.At(i)
		if !r.Counts(seg) {
			if contiguous(req.Duration.Type) {
				acc, end = 0, math.MaxInt64
			}
			continue
		}
		seg = seg.Bounded(req.StartW, req.EndW)
		if seg.Empty() {
			continue
		}
		if short(req.Duration, seg, need) {
			acc, end = 0, math.MaxInt64
			continue
		}
		if contiguous(req.Duration.Type) && end != math.MaxInt64 && seg.EndW != prevStart {
			acc, end = 0, math.MaxInt64
		}
		if end == math.MaxInt64 {
			end = seg.EndW
		}
		gain := yield(req.Duration, seg)
		if acc+gain >= need-1e-9 {
			r.LETT = end
			r.LST = seg.EndW - span(req.Duration, seg, need-acc)
			return true
		}
		acc += gain
		prevStart = seg.StartW
	}
	return false
}

// short reports whether seg is too short to hold a FIXED duration on its
// own.
func short(d model.Duration, seg interval.Interval, need float64) bool {
	return d.Type == model.DurationFixed && float64(seg.Len()) < need-1e-9
}

// need is the amount a duration has to accumulate: seconds, or units for
// run-rate durations.
func need(d model.Duration) float64 {
	if d.Type == model.DurationRunRate {
		return d.Quantity
	}
	return float64(d.Duration())
}

// yield is what seg contributes towards need.
func yield(d model.Duration, seg interval.Interval) float64 {
	if d.Type == model.DurationRunRate {
		return float64(seg.Len()) * seg.RunRate
	}
	return float64(seg.Len())
}

// span is the time needed inside seg to accumulate rest.
func span(d model.Duration, seg interval.Interval, rest float64) int64 {
	if rest <= 0 {
		return 0
	}
	if d.Type == model.DurationRunRate {
		return int64(math.Ceil(rest/seg.RunRate - 1e-9))
	}
	return int64(math.Ceil(rest - 1e-9))
}

// collect unions the start windows of a valid range into out. Contiguous
// durations may start anywhere in [EST, LST]; the others may start inside
// any counted segment of that bound.
func (e *Engine) collect(out *interval.List, req Request, l interval.List, r interval.Range) {
	if contiguous(req.Duration.Type) {
		interval.Union(out, interval.New(r.EST, r.LST))
		return
	}
	for i := r.First; i <= r.Last; i++ {
		seg := l.At(i)
		if !r.Counts(seg) {
			continue
		}
		lo := max(seg.StartW, r.EST)
		hi := min(seg.EndW-1, r.LST)
		if hi < lo {
			continue
		}
		interval.Union(out, interval.New(lo, hi))
	}
}

// EndFor returns the completion time of work starting at start, or false
// when the work cannot complete inside the request window.
func (e *Engine) EndFor(start int64, req Request, m *model.AvailableMatrix) (int64, bool) {
	if contiguous(req.Duration.Type) {
		end := start + req.Duration.Duration()
		return end, end <= req.EndW
	}
	c := m.Bucket(req.Duration.Bucket())
	for _, r := range availability.RangesFor(c, req.qty()) {
		lo, hi := r.Span(c.List)
		if start < lo || start >= hi {
			continue
		}
		sub := req
		sub.StartW = start
		if ComputeDurationForward(sub, c.List, &r) {
			return r.EET, r.EET <= req.EndW
		}
	}
	return 0, false
}
