// Package interval implements ordered lists of time spans and the set algebra
// used to derive resource availability from calendars and commitments.
//
// All times are integer seconds since the Unix epoch. An Interval covers the
// half-open span [StartW, EndW). Lists are slice backed: neighbours of the
// element at index i live at i-1 and i+1, and a Range addresses a contiguous
// run of a List by index rather than by pointer.
package interval

import (
	"fmt"
	"math"
)

// qtyEpsilon is the tolerance used when comparing quantities.
const qtyEpsilon = 1e-9

// Interval is a time span carrying an optional quantity and run-rate.
// Tracked reports whether Qty holds a value; an untracked interval places no
// quantity constraint on work scheduled inside it.
type Interval struct {
	StartW    int64   `json:"start_w"`
	EndW      int64   `json:"end_w"`
	Qty       float64 `json:"qty,omitempty"`
	Tracked   bool    `json:"tracked,omitempty"`
	RunRate   float64 `json:"run_rate,omitempty"`
	FlowLeft  float64 `json:"flow_left,omitempty"`
	FlowRight float64 `json:"flow_right,omitempty"`
}

// New returns an untracked interval.
func New(start, end int64) Interval {
	return Interval{StartW: start, EndW: end}
}

// WithQty returns a tracked interval carrying qty.
func WithQty(start, end int64, qty float64) Interval {
	return Interval{StartW: start, EndW: end, Qty: qty, Tracked: true}
}

// Len returns the length of the interval in seconds.
func (iv Interval) Len() int64 { return iv.EndW - iv.StartW }

// Empty reports whether the interval covers no time.
func (iv Interval) Empty() bool { return iv.EndW <= iv.StartW }

// Contains reports whether t lies in [StartW, EndW).
func (iv Interval) Contains(t int64) bool { return t >= iv.StartW && t < iv.EndW }

// Overlaps reports whether the two intervals share time. Touching endpoints
// do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.StartW < o.EndW && o.StartW < iv.EndW
}

// Touches reports whether o starts exactly where iv ends or vice versa.
func (iv Interval) Touches(o Interval) bool {
	return iv.EndW == o.StartW || o.EndW == iv.StartW
}

// SameQty reports whether both intervals carry the same quantity data.
func (iv Interval) SameQty(o Interval) bool {
	if iv.Tracked != o.Tracked {
		return false
	}
	if math.Abs(iv.RunRate-o.RunRate) > qtyEpsilon {
		return false
	}
	return !iv.Tracked || math.Abs(iv.Qty-o.Qty) <= qtyEpsilon
}

// Available returns the usable quantity of the interval. Untracked intervals
// are unbounded.
func (iv Interval) Available() float64 {
	if !iv.Tracked {
		return math.Inf(1)
	}
	return iv.Qty
}

// Bounded returns the part of the interval inside [st, et].
func (iv Interval) Bounded(st, et int64) Interval {
	out := iv
	if out.StartW < st {
		out.StartW = st
	}
	if out.EndW > et {
		out.EndW = et
	}
	if out.EndW < out.StartW {
		out.EndW = out.StartW
	}
	return out
}

func (iv Interval) String() string {
	if !iv.Tracked {
		return fmt.Sprintf("[%d,%d)", iv.StartW, iv.EndW)
	}
	return fmt.Sprintf("[%d,%d)x%g", iv.StartW, iv.EndW, iv.Qty)
}

// Class distinguishes resources whose capacity is returned after use from
// those whose stock is used up.
type Class int

const (
	Reusable Class = iota
	Consumable
)

func (c Class) String() string {
	switch c {
	case Reusable:
		return "REUSABLE"
	case Consumable:
		return "CONSUMABLE"
	default:
		return "unknown"
	}
}

// ParseClass converts the textual class used in landscape files.
func ParseClass(s string) (Class, error) {
	switch s {
	case "", "REUSABLE", "reusable":
		return Reusable, nil
	case "CONSUMABLE", "consumable":
		return Consumable, nil
	default:
		return Reusable, fmt.Errorf("unknown resource class %q", s)
	}
}
