package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/capsched/core/events"
	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/runlog"
	"github.com/kilianp07/capsched/core/scoring"
	"github.com/kilianp07/capsched/core/statechange"
	"github.com/kilianp07/capsched/internal/eventbus"
)

const (
	hour = int64(3600)
	day  = 24 * hour
)

var base = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).Unix()

// workweek returns five days open 08:00-17:00.
func workweek() interval.List {
	var l interval.List
	for d := int64(0); d < 5; d++ {
		l.Append(interval.WithQty(base+d*day+8*hour, base+d*day+17*hour, 1))
	}
	return l
}

func landscape(resources ...string) *model.Landscape {
	l := model.NewLandscape(model.Horizon{StartW: base, EndW: base + 5*day})
	for _, k := range resources {
		l.AddResource(model.NewResource(k, "press", interval.Reusable, workweek()))
	}
	return l
}

func job(key string, dur int64, resources ...string) *model.Task {
	req := model.Requirement{Type: "press", Qty: 1}
	for i, r := range resources {
		req.Preferences = append(req.Preferences, model.Preference{ResourceKey: r, Rank: i})
	}
	return &model.Task{
		Key:      key,
		Duration: model.Duration{Type: model.DurationFixed, Seconds: dur},
		Capacity: []model.Requirement{req},
	}
}

func newScheduler(t *testing.T, l *model.Landscape, set model.Settings, opts ...Option) *Scheduler {
	t.Helper()
	s := New(opts...)
	require.NoError(t, s.InitLandscape(l))
	require.NoError(t, s.InitSettings(set))
	require.NoError(t, s.InitScoring(scoring.DefaultPolicy()))
	return s
}

func at(h int64) int64 { return base + h*hour }

func TestSingleTaskStartsAtCalendarOpen(t *testing.T) {
	l := landscape("m1")
	s := newScheduler(t, l, model.Settings{})
	task := job("t1", hour, "m1")

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{task}))

	require.True(t, task.IsScheduled(), "errors: %v", task.Errors)
	assert.Equal(t, interval.New(at(8), at(9)), *task.Scheduled)
	assert.Equal(t, []string{"m1"}, task.Resources)
	res, _ := l.Resource("m1")
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, "t1", res.Assignments[0].TaskKey)
}

func TestSecondTaskFollowsFirst(t *testing.T) {
	l := landscape("m1")
	s := newScheduler(t, l, model.Settings{})
	a, b := job("a", hour, "m1"), job("b", hour, "m1")

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{a, b}))

	require.True(t, a.IsScheduled())
	require.True(t, b.IsScheduled())
	assert.Equal(t, interval.New(at(8), at(9)), *a.Scheduled)
	assert.Equal(t, interval.New(at(9), at(10)), *b.Scheduled)
	assert.False(t, a.Scheduled.Overlaps(*b.Scheduled))
}

func colourLandscape() (*model.Landscape, *model.Task, *model.Task) {
	l := landscape("m1")
	l.StateChanges.Add(&model.StateChange{
		StateChangeKey: model.StateChangeKey{ResourceType: "press", From: "BLUE", To: "RED"},
		Seconds:        1800,
	})
	blue, red := job("blue", hour, "m1"), job("red", hour, "m1")
	blue.ProcessState, red.ProcessState = "BLUE", "RED"
	return l, blue, red
}

func TestChangeoverGeneratesSetupTask(t *testing.T) {
	l, blue, red := colourLandscape()
	s := newScheduler(t, l, model.Settings{})

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{blue, red}))

	require.True(t, blue.IsScheduled())
	require.True(t, red.IsScheduled(), "errors: %v", red.Errors)
	assert.Equal(t, interval.New(at(8), at(9)), *blue.Scheduled)
	assert.GreaterOrEqual(t, red.Scheduled.StartW, blue.Scheduled.EndW+1800)

	require.Len(t, red.StateChangeTasks, 1)
	setup, ok := l.Task(red.StateChangeTasks[0])
	require.True(t, ok)
	assert.Equal(t, model.KindSetup, setup.Kind)
	assert.Equal(t, "red", setup.Parent)
	assert.Equal(t, "RED", setup.ProcessState)
	assert.Equal(t, interval.New(red.Scheduled.StartW-1800, red.Scheduled.StartW), *setup.Scheduled)

	res, _ := l.Resource("m1")
	kinds := map[model.TaskKind]int{}
	for _, a := range res.Assignments {
		kinds[a.Kind]++
	}
	assert.Equal(t, map[model.TaskKind]int{model.KindProduction: 2, model.KindSetup: 1}, kinds)
}

// overlapping returns the first pair of assignments on res that share time.
func overlapping(res *model.Resource) (model.Assignment, model.Assignment, bool) {
	for i, a := range res.Assignments {
		for _, b := range res.Assignments[i+1:] {
			if a.Interval.Overlaps(b.Interval) {
				return a, b, true
			}
		}
	}
	return model.Assignment{}, model.Assignment{}, false
}

func TestSetupDoesNotOverlapStatelessTask(t *testing.T) {
	l, _, red := colourLandscape()
	m1, _ := l.Resource("m1")
	m1.InitialState = "BLUE"
	plain := job("plain", hour, "m1")
	s := newScheduler(t, l, model.Settings{})

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{plain, red}))

	require.True(t, plain.IsScheduled())
	require.True(t, red.IsScheduled(), "errors: %v", red.Errors)
	assert.Equal(t, interval.New(at(8), at(9)), *plain.Scheduled)
	assert.Equal(t, at(9)+1800, red.Scheduled.StartW)
	a, b, found := overlapping(m1)
	assert.False(t, found, "%v overlaps %v", a, b)
}

func TestSetupStaysInsideCalendar(t *testing.T) {
	l, _, red := colourLandscape()
	m1, _ := l.Resource("m1")
	m1.InitialState = "BLUE"
	s := newScheduler(t, l, model.Settings{})

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{red}))

	require.True(t, red.IsScheduled(), "errors: %v", red.Errors)
	require.Len(t, red.StateChangeTasks, 1)
	setup, ok := l.Task(red.StateChangeTasks[0])
	require.True(t, ok)
	assert.Equal(t, interval.New(at(8), at(8)+1800), *setup.Scheduled)
	assert.Equal(t, at(8)+1800, red.Scheduled.StartW)
}

func TestTeardownDoesNotOverlapStatelessTask(t *testing.T) {
	l := landscape("m1")
	l.StateChanges.Add(&model.StateChange{
		StateChangeKey: model.StateChangeKey{ResourceType: "press", From: "RED", To: "BLUE"},
		Seconds:        1800,
	})
	m1, _ := l.Resource("m1")
	m1.Assign(model.Assignment{TaskKey: "plain", Interval: interval.WithQty(at(9), at(10), 1)})
	m1.Assign(model.Assignment{TaskKey: "blue", Interval: interval.WithQty(at(11), at(12), 1), State: "BLUE"})
	red := job("red", hour, "m1")
	red.ProcessState = "RED"
	s := newScheduler(t, l, model.Settings{})

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{red}))

	require.True(t, red.IsScheduled(), "errors: %v", red.Errors)
	assert.Equal(t, interval.New(at(12), at(13)), *red.Scheduled)
	a, b, found := overlapping(m1)
	assert.False(t, found, "%v overlaps %v", a, b)
}

type snapshot struct {
	scheduled   map[string]interval.Interval
	assignments []model.Assignment
}

func runOnce(t *testing.T) snapshot {
	l, blue, red := colourLandscape()
	l.AddResource(model.NewResource("m2", "press", interval.Reusable, workweek()))
	tasks := []*model.Task{blue, red, job("c", 2*hour, "m1", "m2"), job("d", hour, "m2", "m1")}
	s := newScheduler(t, l, model.Settings{})
	require.NoError(t, s.Schedule(context.Background(), tasks))

	out := snapshot{scheduled: map[string]interval.Interval{}}
	for _, task := range l.Tasks.Values() {
		if task.Scheduled != nil {
			out.scheduled[task.Key] = *task.Scheduled
		}
	}
	for _, r := range l.Resources.Values() {
		out.assignments = append(out.assignments, r.Assignments...)
	}
	return out
}

func TestScheduleIsDeterministic(t *testing.T) {
	first := runOnce(t)
	second := runOnce(t)
	assert.Equal(t, first, second)
	assert.Len(t, first.scheduled, 5)
}

func TestScheduleUnscheduleRoundTrip(t *testing.T) {
	l, blue, red := colourLandscape()
	s := newScheduler(t, l, model.Settings{})
	tasks := []*model.Task{blue, red}
	require.NoError(t, s.Schedule(context.Background(), tasks))
	require.Equal(t, 3, l.Tasks.Len())

	require.NoError(t, s.Unschedule(context.Background(), tasks))

	for _, task := range tasks {
		assert.Equal(t, model.NotScheduled, task.State)
		assert.Nil(t, task.Scheduled)
		assert.Empty(t, task.StateChangeTasks)
		assert.Zero(t, task.Score)
	}
	res, _ := l.Resource("m1")
	assert.Empty(t, res.Assignments)
	assert.Equal(t, 2, l.Tasks.Len())
	assert.Equal(t, OpUnschedule, s.LastRun().Operation)

	require.NoError(t, s.Schedule(context.Background(), tasks))
	assert.Equal(t, interval.New(at(8), at(9)), *blue.Scheduled)
}

func TestUnscheduleKeepsStartedTasks(t *testing.T) {
	l := landscape("m1")
	s := newScheduler(t, l, model.Settings{})
	task := job("t1", hour, "m1")
	require.NoError(t, s.Schedule(context.Background(), []*model.Task{task}))
	task.Progress = model.Started

	require.NoError(t, s.Unschedule(context.Background(), []*model.Task{task}))

	assert.True(t, task.IsScheduled())
	require.Len(t, task.Errors, 1)
	assert.Equal(t, AgentUnschedule, task.Errors[0].Agent)
}

func TestUnscheduleLeavesGeneratedTasksToParent(t *testing.T) {
	l, blue, red := colourLandscape()
	s := newScheduler(t, l, model.Settings{})
	require.NoError(t, s.Schedule(context.Background(), []*model.Task{blue, red}))
	require.Len(t, red.StateChangeTasks, 1)
	setup, _ := l.Task(red.StateChangeTasks[0])

	require.NoError(t, s.Unschedule(context.Background(), []*model.Task{setup}))

	assert.True(t, setup.IsScheduled())
	require.Len(t, setup.Errors, 1)
	assert.Equal(t, AgentUnschedule, setup.Errors[0].Agent)
	assert.True(t, red.IsScheduled())
	assert.Equal(t, []string{setup.Key}, red.StateChangeTasks)
	res, _ := l.Resource("m1")
	assert.Len(t, res.Assignments, 3)
}

func TestProjectionUsesFeasibleStart(t *testing.T) {
	l := landscape("m1", "m2")
	s := newScheduler(t, l, model.Settings{})
	long := job("long", 8*hour, "m1")
	require.NoError(t, s.Schedule(context.Background(), []*model.Task{long}))

	after, early := job("after", hour, "m1"), job("early", hour, "m2")
	early.Window = model.Window{EarliestW: at(12), LatestW: base + 5*day}
	l.AddTask(after)
	l.AddTask(early)
	s.explode(after)
	s.explode(early)

	batch := s.neighborhood([]*model.Task{after, early})

	require.Len(t, batch, 2)
	assert.Equal(t, "early", batch[0].Key)
	assert.Equal(t, at(17), s.project(after))
}

func TestPlacementFollowsDirection(t *testing.T) {
	c := &ScheduleContext{Windows: []statechange.Window{
		{StartW: 10, EndW: 20},
		{StartW: 30, EndW: 40, Changeover: 1800, Penalty: 0.5},
	}}
	assert.Equal(t, int64(10), c.Start())
	assert.Zero(t, c.Changeover())
	assert.Zero(t, c.Penalty())

	c.late = true
	w, start := c.Placement()
	assert.Equal(t, int64(30), w.StartW)
	assert.Equal(t, int64(40), start)
	assert.Equal(t, int64(1800), c.Changeover())
	assert.Equal(t, 0.5, c.Penalty())
}

func TestScheduleRequiresInitialization(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Schedule(context.Background(), nil), ErrNotInitialized)
	assert.ErrorIs(t, s.Unschedule(context.Background(), nil), ErrNotInitialized)

	require.NoError(t, s.InitLandscape(landscape("m1")))
	require.NoError(t, s.InitSettings(model.Settings{}))
	assert.ErrorIs(t, s.Schedule(context.Background(), nil), ErrNotInitialized)
}

func TestInitScoringRejectsBadPolicies(t *testing.T) {
	s := New()
	err := s.InitScoring(scoring.Policy{Rules: []scoring.RuleConfig{{Name: scoring.RuleEarliestStart, Weight: 0.5}}})
	assert.ErrorIs(t, err, scoring.ErrWeights)
	err = s.InitScoring(scoring.Policy{Rules: []scoring.RuleConfig{{Name: "nope", Weight: 1}}})
	assert.ErrorIs(t, err, scoring.ErrUnknownRule)
}

func TestUnknownResourceIsRecordedOnTask(t *testing.T) {
	l := landscape("m1")
	s := newScheduler(t, l, model.Settings{})
	ghost := job("ghost", hour, "nowhere")

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{ghost}))

	assert.False(t, ghost.IsScheduled())
	require.NotEmpty(t, ghost.Errors)
	assert.Equal(t, model.TaskError{Agent: AgentExplode, Reason: "unknown resource nowhere"}, ghost.Errors[0])
}

func TestUnknownPreferenceFallsBackToKnownResource(t *testing.T) {
	l := landscape("m1")
	s := newScheduler(t, l, model.Settings{})
	task := job("t1", hour, "nowhere", "m1")

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{task}))

	require.True(t, task.IsScheduled())
	assert.Equal(t, []string{"m1"}, task.Resources)
}

func TestDurationLongerThanAnyShift(t *testing.T) {
	l := landscape("m1")
	s := newScheduler(t, l, model.Settings{})
	long := job("long", 10*hour, "m1")

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{long}))

	assert.False(t, long.IsScheduled())
	require.NotEmpty(t, long.Errors)
	assert.Equal(t, AgentAvailability, long.Errors[0].Agent)
	assert.Equal(t, 1, s.LastRun().Failed)
}

func TestScheduleStopsOnCancelledContext(t *testing.T) {
	l := landscape("m1")
	s := newScheduler(t, l, model.Settings{})
	task := job("t1", hour, "m1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Schedule(ctx, []*model.Task{task})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, task.IsScheduled())
}

func TestChainTruncationOrdersProcess(t *testing.T) {
	l := landscape("m1", "m2")
	s := newScheduler(t, l, model.Settings{RequiresPreds: true})
	first, second := job("first", hour, "m1"), job("second", hour, "m2")
	first.Link, second.Link = &model.Link{Name: "p"}, &model.Link{Name: "p"}
	first.Sequence, second.Sequence = 1, 2

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{second, first}))

	require.True(t, first.IsScheduled())
	require.True(t, second.IsScheduled())
	assert.Equal(t, at(8), first.Scheduled.StartW)
	assert.Equal(t, first.Scheduled.EndW, second.Scheduled.StartW)
	assert.Equal(t, first.Scheduled.EndW, second.Window.EarliestW)

	require.NoError(t, s.Unschedule(context.Background(), []*model.Task{first, second}))
	assert.Equal(t, second.BaseWindow, second.Window)
}

func TestLookaheadPullsInPredecessor(t *testing.T) {
	l := landscape("m1")
	first, second := job("first", hour, "m1"), job("second", hour, "m1")
	first.Link, second.Link = &model.Link{Name: "p"}, &model.Link{Name: "p"}
	first.Sequence, second.Sequence = 1, 2
	l.AddTask(first)
	s := newScheduler(t, l, model.Settings{RequiresPreds: true})

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{second}))

	assert.True(t, first.IsScheduled())
	assert.True(t, second.IsScheduled())
	assert.LessOrEqual(t, first.Scheduled.EndW, second.Scheduled.StartW)
}

func TestBackwardSchedulingUsesLatestStart(t *testing.T) {
	l := landscape("m1")
	s := newScheduler(t, l, model.Settings{Direction: model.Backward})
	task := job("t1", hour, "m1")

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{task}))

	require.True(t, task.IsScheduled())
	assert.Equal(t, interval.New(base+4*day+16*hour, base+4*day+17*hour), *task.Scheduled)
}

type memStore struct {
	mu   sync.Mutex
	recs []runlog.RunRecord
}

func (m *memStore) Append(_ context.Context, r runlog.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(context.Context, runlog.Query) ([]runlog.RunRecord, error) {
	return m.recs, nil
}

func (m *memStore) Close() error { return nil }

func TestRunIsReportedOnBusStoreAndMetrics(t *testing.T) {
	ResetMetrics(nil)
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	store := &memStore{}
	l, blue, red := colourLandscape()
	s := newScheduler(t, l, model.Settings{}, WithBus(bus), WithRunLog(store))

	require.NoError(t, s.Schedule(context.Background(), []*model.Task{blue, red}))

	require.Len(t, store.recs, 1)
	rec := store.recs[0]
	assert.Equal(t, OpSchedule, rec.Operation)
	assert.Len(t, rec.Committed, 3)
	assert.True(t, rec.Touches("red"))
	assert.Equal(t, 2.0, testutil.ToFloat64(commits.WithLabelValues("PRODUCTION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(commits.WithLabelValues("SETUP")))

	var committed []string
	for len(sub) > 0 {
		if ev, ok := (<-sub).(events.TaskCommitted); ok {
			committed = append(committed, ev.TaskKey)
		}
	}
	assert.Contains(t, committed, "blue")
	assert.Contains(t, committed, "red")
	assert.Len(t, committed, 3)
}

func TestContextsIndex(t *testing.T) {
	l := landscape("m1", "m2")
	s := newScheduler(t, l, model.Settings{})
	task := job("t1", hour, "m1", "m2")
	l.AddTask(task)

	cs := s.explode(task)
	require.Len(t, cs, 2)
	assert.Equal(t, "t1|m1", cs[0].Hash)
	assert.Equal(t, 1, s.contexts.ForResource("m2"))

	again := s.explode(task)
	assert.Same(t, cs[0], again[0])
	assert.Equal(t, 2, s.contexts.Len())

	for _, c := range cs {
		c.Recompute = false
	}
	assert.Equal(t, 1, s.contexts.InvalidateResource("m1", nil))
	assert.True(t, cs[0].Recompute)
	assert.False(t, cs[1].Recompute)

	s.contexts.RemoveTask("t1")
	assert.Zero(t, s.contexts.Len())
	assert.Zero(t, s.contexts.ForResource("m1"))
}

func TestExplodeSkipsRepeatedResources(t *testing.T) {
	l := landscape("m1", "m2")
	s := newScheduler(t, l, model.Settings{})
	task := job("pair", hour, "m1", "m2")
	task.Capacity = append(task.Capacity, task.Capacity[0])

	cs := s.explode(task)

	require.Len(t, cs, 2)
	assert.Equal(t, []string{"m1", "m2"}, cs[0].SlotKeys())
	assert.Equal(t, []string{"m2", "m1"}, cs[1].SlotKeys())
}
