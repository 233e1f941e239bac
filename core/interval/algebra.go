package interval

// Mode selects the operation performed by Engine.Execute.
type Mode int

const (
	// ModeAdd sums quantities over the union of both lists.
	ModeAdd Mode = iota
	// ModeSubtract keeps the coverage of A and removes B's quantity from it.
	ModeSubtract
	// ModeUnion returns the coverage of A or B.
	ModeUnion
	// ModeIntersect returns the coverage of A and B.
	ModeIntersect
	// ModeComplement returns the coverage of A not covered by B.
	ModeComplement
)

func (m Mode) String() string {
	switch m {
	case ModeAdd:
		return "ADD"
	case ModeSubtract:
		return "SUBTRACT"
	case ModeUnion:
		return "UNION"
	case ModeIntersect:
		return "INTERSECT"
	case ModeComplement:
		return "COMPLEMENT"
	default:
		return "unknown"
	}
}

// Relation is the position of the current A interval relative to the current
// B interval during a sweep. Exactly one relation holds for any pair.
type Relation int

const (
	DisjointBefore Relation = iota
	TouchingBefore
	DisjointAfter
	TouchingAfter
	AContainsB
	BContainsA
	AOverlapsLeft
	BOverlapsLeft
	Equal
)

func (r Relation) String() string {
	switch r {
	case DisjointBefore:
		return "disjoint-before"
	case TouchingBefore:
		return "touching-before"
	case DisjointAfter:
		return "disjoint-after"
	case TouchingAfter:
		return "touching-after"
	case AContainsB:
		return "a-contains-b"
	case BContainsA:
		return "b-contains-a"
	case AOverlapsLeft:
		return "a-overlaps-left"
	case BOverlapsLeft:
		return "b-overlaps-left"
	case Equal:
		return "equal"
	default:
		return "unknown"
	}
}

// Classify returns the relation between a and b.
func Classify(a, b Interval) Relation {
	switch {
	case a.StartW == b.StartW && a.EndW == b.EndW:
		return Equal
	case a.EndW < b.StartW:
		return DisjointBefore
	case a.EndW == b.StartW:
		return TouchingBefore
	case a.StartW > b.EndW:
		return DisjointAfter
	case a.StartW == b.EndW:
		return TouchingAfter
	case a.StartW <= b.StartW && a.EndW >= b.EndW:
		return AContainsB
	case b.StartW <= a.StartW && b.EndW >= a.EndW:
		return BContainsA
	case a.StartW < b.StartW:
		return AOverlapsLeft
	default:
		return BOverlapsLeft
	}
}

// Engine runs pairwise merges of ordered interval lists. An Engine holds no
// state between calls; schedulers own one instance and pass it down.
type Engine struct{}

// NewEngine returns a set-algebra engine.
func NewEngine() *Engine { return &Engine{} }

// Execute merges a and b under mode. Both inputs must be ordered and
// non-overlapping; the result is too. Adjacent pieces with equal quantity are
// not merged here, see Collapse.
//
// For the Consumable class every B interval adds its quantity to a running
// total from its start onwards, so later pieces of A see the cumulative
// consumption rather than only the overlapping B interval.
func (e *Engine) Execute(a, b List, mode Mode, class Class) List {
	s := &sweep{mode: mode, class: class, lastB: None}
	s.out.items = make([]Interval, 0, a.Len()+b.Len())

	ai, bi := 0, 0
	var ca, cb Interval
	if a.Len() > 0 {
		ca = a.At(0)
	}
	if b.Len() > 0 {
		cb = b.At(0)
	}
	advA := func() {
		ai++
		if ai < a.Len() {
			ca = a.At(ai)
		}
	}
	advB := func() {
		bi++
		if bi < b.Len() {
			cb = b.At(bi)
		}
	}

	for ai < a.Len() && bi < b.Len() {
		switch Classify(ca, cb) {
		case DisjointBefore, TouchingBefore:
			s.aOnly(ca, ca.StartW, ca.EndW)
			advA()
		case DisjointAfter, TouchingAfter:
			s.bOnly(bi, cb, cb.StartW, cb.EndW)
			advB()
		case Equal:
			s.both(ca, bi, cb, ca.StartW, ca.EndW)
			advA()
			advB()
		case AContainsB:
			if ca.StartW < cb.StartW {
				s.aOnly(ca, ca.StartW, cb.StartW)
			}
			s.both(ca, bi, cb, cb.StartW, cb.EndW)
			if ca.EndW == cb.EndW {
				advA()
			} else {
				ca.StartW = cb.EndW
			}
			advB()
		case BContainsA:
			if cb.StartW < ca.StartW {
				s.bOnly(bi, cb, cb.StartW, ca.StartW)
			}
			s.both(ca, bi, cb, ca.StartW, ca.EndW)
			if cb.EndW == ca.EndW {
				advB()
			} else {
				cb.StartW = ca.EndW
			}
			advA()
		case AOverlapsLeft:
			s.aOnly(ca, ca.StartW, cb.StartW)
			s.both(ca, bi, cb, cb.StartW, ca.EndW)
			cb.StartW = ca.EndW
			advA()
		case BOverlapsLeft:
			s.bOnly(bi, cb, cb.StartW, ca.StartW)
			s.both(ca, bi, cb, ca.StartW, cb.EndW)
			ca.StartW = cb.EndW
			advB()
		}
	}
	for ai < a.Len() {
		s.aOnly(ca, ca.StartW, ca.EndW)
		advA()
	}
	for bi < b.Len() {
		s.bOnly(bi, cb, cb.StartW, cb.EndW)
		advB()
	}
	return s.out
}

// sweep accumulates the output of one Execute call.
type sweep struct {
	mode  Mode
	class Class
	out   List
	cumB  float64
	lastB int
}

// enter books B's quantity into the running total the first time the sweep
// reaches B interval bi.
func (s *sweep) enter(bi int, b Interval) {
	if s.class != Consumable || bi == s.lastB {
		return
	}
	s.lastB = bi
	if b.Tracked {
		s.cumB += b.Qty
	}
}

func (s *sweep) emit(src Interval, start, end int64, qty float64) {
	piece := src
	piece.StartW = start
	piece.EndW = end
	if piece.Tracked {
		piece.Qty = qty
	}
	s.out.items = append(s.out.items, piece)
}

func (s *sweep) aOnly(a Interval, start, end int64) {
	switch s.mode {
	case ModeAdd:
		s.emit(a, start, end, a.Qty+s.cumB)
	case ModeSubtract:
		s.emit(a, start, end, a.Qty-s.cumB)
	case ModeUnion, ModeComplement:
		s.emit(a, start, end, a.Qty)
	}
}

func (s *sweep) bOnly(bi int, b Interval, start, end int64) {
	s.enter(bi, b)
	switch s.mode {
	case ModeAdd:
		q := b.Qty
		if s.class == Consumable {
			q = s.cumB
		}
		s.emit(b, start, end, q)
	case ModeUnion:
		s.emit(b, start, end, b.Qty)
	}
}

func (s *sweep) both(a Interval, bi int, b Interval, start, end int64) {
	s.enter(bi, b)
	qb := 0.0
	if b.Tracked {
		qb = b.Qty
	}
	if s.class == Consumable {
		qb = s.cumB
	}
	switch s.mode {
	case ModeAdd:
		s.emit(a, start, end, a.Qty+qb)
	case ModeSubtract:
		s.emit(a, start, end, a.Qty-qb)
	case ModeUnion, ModeIntersect:
		s.emit(a, start, end, a.Qty)
	}
}

// Collapse merges touching pieces that carry the same quantity and drops
// empty pieces. For the Reusable class pieces with zero quantity are dropped
// as well. Collapse is idempotent.
func (e *Engine) Collapse(l List, class Class) List {
	out := make([]Interval, 0, l.Len())
	for _, iv := range l.items {
		if iv.Empty() {
			continue
		}
		if class == Reusable && iv.Tracked && iv.Qty > -qtyEpsilon && iv.Qty < qtyEpsilon {
			continue
		}
		if n := len(out); n > 0 && out[n-1].EndW == iv.StartW && out[n-1].SameQty(iv) {
			out[n-1].EndW = iv.EndW
			out[n-1].FlowRight = iv.FlowRight
			continue
		}
		out = append(out, iv)
	}
	return List{items: out}
}

// Merge copies quantity data from withQty onto the pieces of coverage. Each
// piece takes the quantity of the withQty interval containing its start;
// boundaries of coverage are never moved. Pieces whose start is not covered
// are left as they are.
func (e *Engine) Merge(coverage, withQty List) List {
	out := coverage.Clone()
	j := 0
	for i := range out.items {
		iv := out.items[i]
		for j < withQty.Len() && withQty.items[j].EndW <= iv.StartW {
			j++
		}
		if j >= withQty.Len() {
			break
		}
		src := withQty.items[j]
		if src.StartW > iv.StartW {
			continue
		}
		iv.Qty = src.Qty
		iv.Tracked = src.Tracked
		iv.RunRate = src.RunRate
		iv.FlowLeft = src.FlowLeft
		iv.FlowRight = src.FlowRight
		out.items[i] = iv
	}
	out.original = nil
	return out
}

// Subtract is shorthand for Execute(a, b, ModeSubtract, class) followed by
// Collapse.
func (e *Engine) Subtract(a, b List, class Class) List {
	return e.Collapse(e.Execute(a, b, ModeSubtract, class), class)
}

// Intersect returns the coverage shared by a and b with A's quantities.
func (e *Engine) Intersect(a, b List) List {
	return e.Execute(a, b, ModeIntersect, Reusable)
}
