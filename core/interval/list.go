package interval

import (
	"fmt"
	"sort"
	"strings"
)

// None marks the absence of a neighbour index.
const None = -1

// List is an ordered, non-overlapping sequence of intervals. StartW is
// non-decreasing and touching neighbours are allowed.
//
// A List keeps an optional snapshot of its original values so that working
// copies can be restored with Reset.
type List struct {
	items    []Interval
	original []Interval
}

// NewList builds a list from intervals that are already ordered.
func NewList(ivs ...Interval) List {
	items := make([]Interval, len(ivs))
	copy(items, ivs)
	return List{items: items}
}

// FromUnsorted sorts the intervals by start and end before building the list.
// Overlaps are not resolved; use Engine.Execute with ModeUnion for that.
func FromUnsorted(ivs []Interval) List {
	l := NewList(ivs...)
	sort.SliceStable(l.items, func(i, j int) bool {
		if l.items[i].StartW != l.items[j].StartW {
			return l.items[i].StartW < l.items[j].StartW
		}
		return l.items[i].EndW < l.items[j].EndW
	})
	return l
}

// Len returns the number of intervals.
func (l List) Len() int { return len(l.items) }

// IsEmpty reports whether the list has no intervals.
func (l List) IsEmpty() bool { return len(l.items) == 0 }

// At returns the interval at index i.
func (l List) At(i int) Interval { return l.items[i] }

// Set replaces the interval at index i.
func (l *List) Set(i int, iv Interval) { l.items[i] = iv }

// Prev returns the index before i or None.
func (l List) Prev(i int) int {
	if i <= 0 {
		return None
	}
	return i - 1
}

// Next returns the index after i or None.
func (l List) Next(i int) int {
	if i+1 >= len(l.items) {
		return None
	}
	return i + 1
}

// Append adds iv at the tail. The caller keeps the ordering invariant.
func (l *List) Append(iv Interval) { l.items = append(l.items, iv) }

// Insert places iv at index i, shifting later intervals right.
func (l *List) Insert(i int, iv Interval) {
	l.items = append(l.items, Interval{})
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = iv
}

// Remove deletes the interval at index i.
func (l *List) Remove(i int) {
	l.items = append(l.items[:i], l.items[i+1:]...)
}

// Items returns a copy of the intervals.
func (l List) Items() []Interval {
	out := make([]Interval, len(l.items))
	copy(out, l.items)
	return out
}

// Clone returns a deep copy including the snapshot.
func (l List) Clone() List {
	c := List{items: l.Items()}
	if l.original != nil {
		c.original = make([]Interval, len(l.original))
		copy(c.original, l.original)
	}
	return c
}

// First returns the head interval.
func (l List) First() (Interval, bool) {
	if len(l.items) == 0 {
		return Interval{}, false
	}
	return l.items[0], true
}

// Last returns the tail interval.
func (l List) Last() (Interval, bool) {
	if len(l.items) == 0 {
		return Interval{}, false
	}
	return l.items[len(l.items)-1], true
}

// Snapshot records the current values as the original state.
func (l *List) Snapshot() {
	l.original = make([]Interval, len(l.items))
	copy(l.original, l.items)
}

// Reset restores the values recorded by Snapshot. Lists without a snapshot
// are left untouched.
func (l *List) Reset() {
	if l.original == nil {
		return
	}
	l.items = make([]Interval, len(l.original))
	copy(l.items, l.original)
}

// Find returns the index of the interval containing t or None.
func (l List) Find(t int64) int {
	i := sort.Search(len(l.items), func(i int) bool { return l.items[i].EndW > t })
	if i < len(l.items) && l.items[i].Contains(t) {
		return i
	}
	return None
}

// Coverage returns the total covered time.
func (l List) Coverage() int64 {
	var total int64
	for _, iv := range l.items {
		total += iv.Len()
	}
	return total
}

// Bounds returns the start of the first and the end of the last interval.
func (l List) Bounds() (int64, int64, bool) {
	if len(l.items) == 0 {
		return 0, 0, false
	}
	return l.items[0].StartW, l.items[len(l.items)-1].EndW, true
}

// Validate checks the ordering invariant.
func (l List) Validate() error {
	for i, iv := range l.items {
		if iv.EndW < iv.StartW {
			return fmt.Errorf("interval %d ends before it starts: %s", i, iv)
		}
		if i == 0 {
			continue
		}
		prev := l.items[i-1]
		if iv.StartW < prev.StartW {
			return fmt.Errorf("interval %d starts before its predecessor: %s < %s", i, iv, prev)
		}
		if iv.StartW < prev.EndW {
			return fmt.Errorf("interval %d overlaps its predecessor: %s / %s", i, prev, iv)
		}
	}
	return nil
}

func (l List) String() string {
	parts := make([]string, len(l.items))
	for i, iv := range l.items {
		parts[i] = iv.String()
	}
	return strings.Join(parts, " ")
}
