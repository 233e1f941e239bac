package starttime

import (
	"math"

	"github.com/kilianp07/capsched/core/interval"
)

// MaterialStartTimes returns the starts in [st, et] at which qty units can
// be drawn from the stock profile. Drawing lowers the stock for the rest of
// the profile, so a start qualifies only while the lowest stock level from
// that point onwards covers qty.
func MaterialStartTimes(st, et int64, qty float64, stock interval.List) interval.List {
	n := stock.Len()
	suffix := make([]float64, n+1)
	suffix[n] = math.Inf(1)
	for i := n - 1; i >= 0; i-- {
		suffix[i] = min(stock.At(i).Available(), suffix[i+1])
	}

	var out interval.List
	open := false
	var cur interval.Interval
	for i := 0; i < n; i++ {
		seg := stock.At(i)
		ok := suffix[i] >= qty-1e-9
		lo := max(seg.StartW, st)
		hi := min(seg.EndW-1, et)
		if !ok || hi < lo {
			if open {
				out.Append(cur)
				open = false
			}
			continue
		}
		if open && cur.EndW+1 == lo {
			cur.EndW = hi
			continue
		}
		if open {
			out.Append(cur)
		}
		cur = interval.New(lo, hi)
		open = true
	}
	if open {
		out.Append(cur)
	}
	return out
}

// Intersect returns the instants shared by two lists of closed start
// windows.
func (e *Engine) Intersect(a, b interval.List) interval.List {
	res := e.set.Intersect(toHalfOpen(a), toHalfOpen(b))
	items := res.Items()
	out := make([]interval.Interval, 0, len(items))
	for _, iv := range items {
		if iv.Empty() {
			continue
		}
		iv.EndW--
		out = append(out, iv)
	}
	return interval.NewList(out...)
}

// Shift moves every window of l by the given offsets and drops windows left
// empty.
func Shift(l interval.List, startBy, endBy int64) interval.List {
	var out interval.List
	for _, iv := range l.Items() {
		iv.StartW += startBy
		iv.EndW += endBy
		if iv.EndW >= iv.StartW {
			out.Append(iv)
		}
	}
	return out
}

// toHalfOpen converts closed windows to half-open intervals. Closed windows
// sharing an endpoint overlap once converted and are merged.
func toHalfOpen(l interval.List) interval.List {
	var out interval.List
	for _, iv := range l.Items() {
		iv.EndW++
		if last, ok := out.Last(); ok && iv.StartW < last.EndW {
			last.EndW = max(last.EndW, iv.EndW)
			out.Set(out.Len()-1, last)
			continue
		}
		out.Append(iv)
	}
	return out
}
