package interval

import "math"

// Range is a window over the contiguous run l[First..Last] of a List,
// together with derived earliest/latest start and end values. Ranges are
// rebuilt whenever the underlying list changes.
type Range struct {
	First int
	Last  int

	// EST/EET are the earliest start and end found by the forward sweep,
	// LST/LETT the latest start and end found by the backward sweep.
	EST  int64
	EET  int64
	LST  int64
	LETT int64

	// Qty is the quantity threshold every counted segment satisfies.
	Qty float64
	// Duration is the time covered by counted segments.
	Duration int64
	// RunQty is the sum of segment length times run-rate.
	RunQty float64

	Valid bool
}

// NewRange builds an unevaluated range over l[first..last] counting segments
// whose quantity reaches threshold.
func NewRange(l List, first, last int, threshold float64) Range {
	r := Range{First: first, Last: last, Qty: threshold}
	r.Aggregate(l)
	return r
}

// Aggregate recomputes Duration and RunQty walking backward from Last to
// First. Segments below the threshold are skipped.
func (r *Range) Aggregate(l List) {
	r.Duration = 0
	r.RunQty = 0
	for i := r.Last; i >= r.First; i-- {
		iv := l.items[i]
		if !r.Counts(iv) {
			continue
		}
		r.Duration += iv.Len()
		r.RunQty += float64(iv.Len()) * iv.RunRate
	}
}

// Counts reports whether segment iv contributes to the range.
func (r Range) Counts(iv Interval) bool {
	return iv.Available() >= r.Qty-qtyEpsilon
}

// Span returns the outer bounds of the range in l.
func (r Range) Span(l List) (int64, int64) {
	return l.items[r.First].StartW, l.items[r.Last].EndW
}

// Segments returns the counted segments of the range.
func (r Range) Segments(l List) List {
	out := List{items: make([]Interval, 0, r.Last-r.First+1)}
	for i := r.First; i <= r.Last; i++ {
		if r.Counts(l.items[i]) {
			out.items = append(out.items, l.items[i])
		}
	}
	return out
}

// Window returns the start-time window [EST, LST] of a valid range.
func (r Range) Window() (Interval, bool) {
	if !r.Valid || r.LST < r.EST {
		return Interval{}, false
	}
	return New(r.EST, r.LST), true
}

// Unbounded reports whether the range threshold is infinite, which happens
// for ranges made only of untracked segments.
func (r Range) Unbounded() bool { return math.IsInf(r.Qty, 1) }
