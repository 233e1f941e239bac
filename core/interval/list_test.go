package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnion_TouchingNotMerged(t *testing.T) {
	l := NewList(New(0, 5))
	Union(&l, New(5, 9))
	assert.Equal(t, []Interval{New(0, 5), New(5, 9)}, l.Items())
}

func TestUnion_CrossingMerged(t *testing.T) {
	l := NewList(New(0, 5), New(8, 10), New(12, 14), New(30, 40))
	Union(&l, New(4, 13))
	assert.Equal(t, []Interval{New(0, 14), New(30, 40)}, l.Items())
}

func TestUnion_InsertsInOrder(t *testing.T) {
	var l List
	for _, iv := range []Interval{New(20, 25), New(0, 3), New(10, 12), New(10, 12)} {
		Union(&l, iv)
	}
	require.NoError(t, l.Validate())
	assert.Equal(t, []Interval{New(0, 3), New(10, 12), New(20, 25)}, l.Items())
}

func TestUnion_PointWindows(t *testing.T) {
	l := NewList(New(3, 8))
	Union(&l, New(5, 5))
	assert.Equal(t, []Interval{New(3, 8)}, l.Items())
	Union(&l, New(9, 9))
	Union(&l, New(9, 9))
	assert.Equal(t, []Interval{New(3, 8), New(9, 9)}, l.Items())
}

func TestList_SnapshotReset(t *testing.T) {
	l := NewList(WithQty(0, 10, 1))
	l.Snapshot()
	l.Set(0, WithQty(0, 10, 0))
	l.Append(WithQty(10, 20, 1))
	l.Reset()
	assert.Equal(t, []Interval{WithQty(0, 10, 1)}, l.Items())
}

func TestList_Find(t *testing.T) {
	l := NewList(New(0, 5), New(10, 15))
	assert.Equal(t, 0, l.Find(0))
	assert.Equal(t, None, l.Find(5))
	assert.Equal(t, 1, l.Find(14))
	assert.Equal(t, None, l.Find(15))
}

func TestList_Validate(t *testing.T) {
	assert.NoError(t, NewList(New(0, 5), New(5, 6)).Validate())
	assert.Error(t, NewList(New(0, 5), New(4, 6)).Validate())
	assert.Error(t, NewList(New(5, 3)).Validate())
}

func TestRange_Aggregate(t *testing.T) {
	l := NewList(WithQty(0, 10, 2), WithQty(10, 20, 1), WithQty(20, 30, 3))
	l.Set(2, Interval{StartW: 20, EndW: 30, Qty: 3, Tracked: true, RunRate: 2})

	r := NewRange(l, 0, 2, 2)
	assert.Equal(t, int64(20), r.Duration)
	assert.InDelta(t, 20.0, r.RunQty, 1e-9)
	assert.Equal(t, 2, r.Segments(l).Len())

	s, e := r.Span(l)
	assert.Equal(t, int64(0), s)
	assert.Equal(t, int64(30), e)
}
