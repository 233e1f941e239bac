package model

import "github.com/kilianp07/capsched/core/interval"

// Bucket indexes the classified availability lists of a matrix.
type Bucket int

const (
	BucketFixed Bucket = iota
	BucketFloat
	BucketUntracked

	bucketCount
)

func (b Bucket) String() string {
	switch b {
	case BucketFixed:
		return "FIXED"
	case BucketFloat:
		return "FLOAT"
	case BucketUntracked:
		return "UNTRACKED"
	default:
		return "unknown"
	}
}

// Classified is one availability bucket: the segments it draws on and the
// ranges built over them.
type Classified struct {
	List   interval.List
	Ranges []interval.Range
}

// StateSpan is a gap between two process-state assignments on a resource.
// Work placed in the gap changes over from Prev and, unless Next is a setup,
// must leave the resource ready to change over into Next.
type StateSpan struct {
	StartW      int64  `json:"start_w"`
	EndW        int64  `json:"end_w"`
	Prev        string `json:"prev"`
	Next        string `json:"next"`
	NextIsSetup bool   `json:"next_is_setup"`
	// Run counters of the run of equal states ending at Prev.
	RunTasks    int   `json:"run_tasks"`
	RunSeconds  int64 `json:"run_seconds"`
	Changeovers int   `json:"changeovers"`
}

// Interval returns the span as an untracked interval.
func (s StateSpan) Interval() interval.Interval { return interval.New(s.StartW, s.EndW) }

// AvailableMatrix caches the availability of one resource. It is owned by
// the resource and rebuilt by the availability engine when dirty.
type AvailableMatrix struct {
	Available  interval.List
	Buckets    [bucketCount]Classified
	StateSpans []StateSpan

	// Recompute forces Available to be derived again from the calendar and
	// the assignments. Recalc forces the buckets and spans to be rebuilt.
	Recompute bool
	Recalc    bool
}

// NewAvailableMatrix returns a dirty, empty matrix.
func NewAvailableMatrix() *AvailableMatrix {
	return &AvailableMatrix{Recompute: true, Recalc: true}
}

// Bucket returns the classified list for b.
func (m *AvailableMatrix) Bucket(b Bucket) *Classified { return &m.Buckets[b] }

// Dirty reports whether any part of the matrix needs rebuilding.
func (m *AvailableMatrix) Dirty() bool { return m.Recompute || m.Recalc }

// SpanAt returns the state span containing t.
func (m *AvailableMatrix) SpanAt(t int64) (StateSpan, bool) {
	for _, s := range m.StateSpans {
		if t >= s.StartW && t < s.EndW {
			return s, true
		}
	}
	return StateSpan{}, false
}
