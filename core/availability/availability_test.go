package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/model"
)

type span struct {
	first, last int
	qty         float64
}

func spansOf(rs []interval.Range) []span {
	out := make([]span, len(rs))
	for i, r := range rs {
		out[i] = span{r.First, r.Last, r.Qty}
	}
	return out
}

func TestRecalculateBuckets(t *testing.T) {
	cal := interval.NewList(
		interval.WithQty(0, 10, 1),
		interval.WithQty(20, 30, 2),
		interval.WithQty(30, 40, 1),
	)
	res := model.NewResource("m1", "press", interval.Reusable, cal)
	l := model.NewLandscape(model.Horizon{StartW: 0, EndW: 100})
	l.AddResource(res)

	New(nil, nil).Recalculate(res, l)
	m := res.Matrix
	require.False(t, m.Dirty())
	assert.False(t, res.Recompute)
	assert.Equal(t, 3, m.Available.Len())

	fixed := m.Bucket(model.BucketFixed)
	assert.Equal(t, []span{{0, 0, 1}, {1, 2, 1}, {1, 1, 2}}, spansOf(fixed.Ranges))
	assert.Equal(t, int64(20), fixed.Ranges[1].Duration)

	float := m.Bucket(model.BucketFloat)
	assert.Equal(t, []span{{0, 2, 1}, {1, 1, 2}}, spansOf(float.Ranges))
	assert.Equal(t, int64(30), float.Ranges[0].Duration)

	untracked := m.Bucket(model.BucketUntracked)
	require.Equal(t, 2, untracked.List.Len())
	assert.Equal(t, interval.New(20, 40), untracked.List.At(1))
	assert.Len(t, untracked.Ranges, 2)
}

func TestFlowAroundSkipsDips(t *testing.T) {
	cal := interval.NewList(
		interval.WithQty(0, 10, 2),
		interval.WithQty(10, 20, 1),
		interval.WithQty(20, 30, 2),
	)
	res := model.NewResource("m1", "press", interval.Reusable, cal)
	l := model.NewLandscape(model.Horizon{StartW: 0, EndW: 100})

	e := New(nil, nil)
	e.Recalculate(res, l)
	assert.Equal(t, []span{{0, 2, 1}, {0, 0, 2}, {2, 2, 2}}, spansOf(res.Matrix.Bucket(model.BucketFloat).Ranges))

	l.Settings.FlowAround = true
	res.Matrix.Recalc = true
	e.Recalculate(res, l)
	float := res.Matrix.Bucket(model.BucketFloat)
	assert.Equal(t, []span{{0, 2, 1}, {0, 2, 2}}, spansOf(float.Ranges))
	assert.Equal(t, int64(20), float.Ranges[1].Duration)

	got := RangesFor(float, 1.5)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Qty)
	assert.Nil(t, RangesFor(float, 3))
}

func TestRecalculateSubtractsAssignments(t *testing.T) {
	res := model.NewResource("m1", "press", interval.Reusable, interval.NewList(interval.WithQty(0, 100, 1)))
	e := New(nil, nil)
	e.Recalculate(res, nil)
	assert.Equal(t, 1, res.Matrix.Available.Len())

	res.Assign(model.Assignment{TaskKey: "t1", Interval: interval.WithQty(10, 20, 1)})
	e.Recalculate(res, nil)
	assert.Equal(t, "[0,10)x1 [20,100)x1", res.Matrix.Available.String())
	assert.Len(t, res.Matrix.Bucket(model.BucketFixed).Ranges, 2)

	require.True(t, res.Release("t1"))
	e.Recalculate(res, nil)
	assert.Equal(t, "[0,100)x1", res.Matrix.Available.String())
}

func TestRecalculateConsumableStock(t *testing.T) {
	res := model.NewResource("flour", "stock", interval.Consumable, interval.NewList(interval.WithQty(0, 100, 50)))
	res.Assign(model.Assignment{TaskKey: "t1", Interval: interval.WithQty(10, 40, 5)})
	New(nil, nil).Recalculate(res, nil)
	assert.Equal(t, "[0,10)x50 [10,100)x45", res.Matrix.Available.String())
}

func TestStateSpans(t *testing.T) {
	res := model.NewResource("m1", "press", interval.Reusable, interval.NewList(interval.WithQty(0, 100, 1)))
	res.InitialState = "BLUE"
	res.Assign(model.Assignment{TaskKey: "a1", Interval: interval.WithQty(10, 20, 1), State: "BLUE"})
	res.Assign(model.Assignment{TaskKey: "s", Interval: interval.WithQty(20, 30, 1), State: "RED", Kind: model.KindSetup})
	res.Assign(model.Assignment{TaskKey: "a3", Interval: interval.WithQty(30, 50, 1), State: "RED"})
	res.Assign(model.Assignment{TaskKey: "a4", Interval: interval.WithQty(60, 70, 1), State: "RED"})
	res.Assign(model.Assignment{TaskKey: "plain", Interval: interval.WithQty(80, 90, 1)})

	got := StateSpans(res, model.Horizon{StartW: 0, EndW: 100})
	want := []model.StateSpan{
		{StartW: 0, EndW: 10, Prev: "BLUE", Next: "BLUE"},
		{StartW: 50, EndW: 60, Prev: "RED", Next: "RED", RunTasks: 1, RunSeconds: 20, Changeovers: 1},
		{StartW: 70, EndW: 100, Prev: "RED", RunTasks: 2, RunSeconds: 30, Changeovers: 1},
	}
	assert.Equal(t, want, got)
}

func TestStateSpansWithoutAssignments(t *testing.T) {
	res := model.NewResource("m1", "press", interval.Reusable, interval.NewList(interval.WithQty(0, 50, 1)))
	got := StateSpans(res, model.Horizon{})
	require.Len(t, got, 1)
	assert.Equal(t, int64(50), got[0].EndW)
}
