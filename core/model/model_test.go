package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/capsched/core/interval"
)

func TestCollectionKeepsInsertionOrder(t *testing.T) {
	c := NewCollection[int]()
	c.Put("b", 1)
	c.Put("a", 2)
	c.Put("c", 3)
	c.Put("a", 4)
	assert.Equal(t, []string{"b", "a", "c"}, c.Keys())
	assert.Equal(t, []int{1, 4, 3}, c.Values())

	c.Delete("a")
	assert.Equal(t, []string{"b", "c"}, c.Keys())
	assert.False(t, c.Has("a"))
	assert.Equal(t, 2, c.Len())
}

func TestStateChangeLookupFallback(t *testing.T) {
	sc := NewStateChanges()
	sc.Add(&StateChange{StateChangeKey: StateChangeKey{ResourceType: "press", From: "BLUE", To: "RED"}, Seconds: 1800})
	sc.Add(&StateChange{StateChangeKey: StateChangeKey{ResourceType: "press", To: "GREEN"}, Seconds: 600})
	sc.Add(&StateChange{StateChangeKey: StateChangeKey{ResourceType: "press", From: "RED"}, Seconds: 300})
	sc.Add(&StateChange{StateChangeKey: StateChangeKey{ResourceType: "press"}, Seconds: 60})

	tests := []struct {
		from, to string
		want     int64
	}{
		{"BLUE", "RED", 1800},
		{"BLUE", "GREEN", 600},
		{"RED", "BLUE", 300},
		{"GREEN", "BLUE", 60},
	}
	for _, tt := range tests {
		got, ok := sc.Lookup("press", tt.from, tt.to, "")
		require.True(t, ok, "%s->%s", tt.from, tt.to)
		assert.Equal(t, tt.want, got.Seconds, "%s->%s", tt.from, tt.to)
	}

	_, ok := sc.Lookup("oven", "BLUE", "RED", "")
	assert.False(t, ok)
	assert.True(t, sc.Configured("press"))
	assert.False(t, sc.Configured("oven"))
}

func TestStateChangeLimited(t *testing.T) {
	sc := &StateChange{MaxRunTasks: 2, MaxRunSeconds: 7200}
	assert.False(t, sc.Limited(StateSpan{RunTasks: 1, RunSeconds: 3600}, 3600))
	assert.True(t, sc.Limited(StateSpan{RunTasks: 2}, 60))
	assert.True(t, sc.Limited(StateSpan{RunTasks: 1, RunSeconds: 5000}, 3600))
}

func TestBuildProcessesOrdersBySequence(t *testing.T) {
	tasks := NewCollection[*Task]()
	tasks.Put("c", &Task{Key: "c", Sequence: 3, Link: &Link{Name: "p"}})
	tasks.Put("a", &Task{Key: "a", Sequence: 1, Link: &Link{Name: "p"}})
	tasks.Put("x", &Task{Key: "x", Sequence: 1})
	tasks.Put("b", &Task{Key: "b", Sequence: 2, Link: &Link{Name: "p"}})

	p := BuildProcesses(tasks)
	require.Equal(t, 1, p.Len())
	proc, ok := p.Get("p")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, proc.Tasks)
	assert.Equal(t, []string{"b", "a"}, proc.Predecessors("c"))
	assert.Equal(t, []string{"c"}, proc.Successors("b"))
	assert.Empty(t, proc.Successors("c"))
}

func TestResourceAssignRelease(t *testing.T) {
	r := NewResource("m1", "press", interval.Reusable, interval.NewList(interval.WithQty(0, 100, 1)))
	r.Recompute = false
	r.Matrix.Recompute = false
	r.Matrix.Recalc = false

	r.Assign(Assignment{TaskKey: "t2", Interval: interval.WithQty(50, 60, 1)})
	r.Assign(Assignment{TaskKey: "t1", Interval: interval.WithQty(10, 20, 1), State: "RED"})
	assert.True(t, r.Recompute)
	assert.True(t, r.Matrix.Dirty())
	assert.Equal(t, "t1", r.Assignments[0].TaskKey)
	assert.Len(t, r.ProcessAssignments(), 1)

	assigned := r.AssignmentList(interval.NewEngine())
	assert.Equal(t, 2, assigned.Len())

	assert.True(t, r.Release("t1"))
	assert.False(t, r.Release("t1"))
	assert.Len(t, r.Assignments, 1)
}

func TestConsumableAssignmentListMarksStart(t *testing.T) {
	r := NewResource("flour", "stock", interval.Consumable, interval.NewList(interval.WithQty(0, 100, 50)))
	r.Assign(Assignment{TaskKey: "t1", Interval: interval.WithQty(10, 40, 5)})
	r.Assign(Assignment{TaskKey: "t2", Interval: interval.WithQty(10, 20, 3)})

	l := r.AssignmentList(interval.NewEngine())
	require.Equal(t, 1, l.Len())
	assert.Equal(t, interval.WithQty(10, 11, 8), l.At(0))
}

func TestLandscapeDefaults(t *testing.T) {
	l := NewLandscape(Horizon{StartW: 0, EndW: 1000})
	task := &Task{Key: "t", Duration: Duration{Seconds: 10}, Capacity: []Requirement{{Type: "press", Preferences: []Preference{{ResourceKey: "ghost"}}}}}
	l.AddTask(task)
	assert.Equal(t, Window{EarliestW: 0, LatestW: 1000}, task.Window)
	assert.Equal(t, task.Window, task.BaseWindow)
	require.NoError(t, l.Validate())
	assert.Equal(t, []string{"t/ghost"}, l.UnknownPreferences())
}

func TestSettingsDefaults(t *testing.T) {
	var s Settings
	s.SetDefaults()
	require.NoError(t, s.Validate())
	assert.Equal(t, Forward, s.Direction)
	assert.Equal(t, 1, s.TasksPerLoop)

	s.Direction = "SIDEWAYS"
	assert.Error(t, s.Validate())

	d, err := ParseDirection("backward")
	require.NoError(t, err)
	assert.Equal(t, Backward, d)
}

func TestDurationBucket(t *testing.T) {
	assert.Equal(t, BucketFixed, Duration{Type: DurationStatic}.Bucket())
	assert.Equal(t, BucketFloat, Duration{Type: DurationRunRate}.Bucket())
	assert.Equal(t, BucketUntracked, Duration{Type: DurationUntracked}.Bucket())
	assert.Error(t, Duration{Type: DurationRunRate}.Validate())
	assert.NoError(t, Duration{Type: DurationFixed, Seconds: 1}.Validate())
}
