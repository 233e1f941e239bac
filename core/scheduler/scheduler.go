package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/capsched/core/availability"
	"github.com/kilianp07/capsched/core/events"
	"github.com/kilianp07/capsched/core/factory"
	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/logger"
	"github.com/kilianp07/capsched/core/metrics"
	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/runlog"
	"github.com/kilianp07/capsched/core/scoring"
	"github.com/kilianp07/capsched/core/starttime"
	"github.com/kilianp07/capsched/core/statechange"
	"github.com/kilianp07/capsched/internal/eventbus"
)

// Operation names used in run records and metrics.
const (
	OpSchedule   = "schedule"
	OpUnschedule = "unschedule"
)

// Scheduler places tasks on the resources of one landscape.
type Scheduler struct {
	mu sync.Mutex

	land        *model.Landscape
	settings    model.Settings
	hasSettings bool
	scorer      *scoring.Engine
	rules       *factory.Registry[scoring.Rule]
	contexts    *Contexts

	set     *interval.Engine
	avail   *availability.Engine
	starts  *starttime.Engine
	changes *statechange.Engine

	logger logger.Logger
	bus    eventbus.EventBus
	sink   metrics.MetricsSink
	store  runlog.Store
	now    func() time.Time

	run  *run
	last metrics.RunSummary
}

// run collects what one call did.
type run struct {
	id      string
	op      string
	started time.Time
	iter    int
	commits []metrics.CommitRecord
	record  runlog.RunRecord
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(s *Scheduler) { s.logger = l } }

// WithBus publishes scheduling events on bus.
func WithBus(bus eventbus.EventBus) Option { return func(s *Scheduler) { s.bus = bus } }

// WithSink records commits, failures and run summaries on sink.
func WithSink(sink metrics.MetricsSink) Option { return func(s *Scheduler) { s.sink = sink } }

// WithRunLog appends one record per call to store.
func WithRunLog(store runlog.Store) Option { return func(s *Scheduler) { s.store = store } }

// WithRules replaces the scoring rule registry.
func WithRules(reg *factory.Registry[scoring.Rule]) Option {
	return func(s *Scheduler) { s.rules = reg }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// New returns a scheduler with its own engines. The landscape, the settings
// and the scoring policy must be set before scheduling.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   logger.NopLogger{},
		sink:     metrics.NopSink{},
		store:    runlog.NopStore{},
		rules:    scoring.NewRegistry(),
		contexts: NewContexts(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.set = interval.NewEngine()
	s.avail = availability.New(s.set, s.logger)
	s.starts = starttime.New(s.set)
	s.changes = statechange.New()
	return s
}

// InitLandscape validates l and makes it the working landscape. Cached
// contexts of a previous landscape are dropped.
func (s *Scheduler) InitLandscape(l *model.Landscape) error {
	if l == nil {
		return fmt.Errorf("nil landscape")
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid landscape: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.land = l
	s.contexts = NewContexts()
	if s.hasSettings {
		l.Settings = s.settings
	}
	l.RebuildProcesses()
	for _, p := range l.UnknownPreferences() {
		s.logger.Warnf("preference references unknown resource: %s", p)
	}
	return nil
}

// InitSettings applies defaults to set, validates it and applies it to the
// landscape. Every resource and context is marked dirty.
func (s *Scheduler) InitSettings(set model.Settings) error {
	set.SetDefaults()
	if err := set.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = set
	s.hasSettings = true
	if s.land != nil {
		s.land.Settings = set
		for _, r := range s.land.Resources.Values() {
			r.MarkDirty()
		}
		s.contexts = NewContexts()
	}
	return nil
}

// InitScoring builds the scoring engine for p.
func (s *Scheduler) InitScoring(p scoring.Policy) error {
	eng, err := scoring.NewEngine(s.rules, p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scorer = eng
	for _, c := range s.contexts.byHash.Values() {
		c.Recompute = true
	}
	return nil
}

// Landscape returns the working landscape.
func (s *Scheduler) Landscape() *model.Landscape {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.land
}

// Contexts returns the candidate index.
func (s *Scheduler) Contexts() *Contexts { return s.contexts }

// LastRun returns the summary of the last completed call.
func (s *Scheduler) LastRun() metrics.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) ready() bool {
	return s.land != nil && s.hasSettings && s.scorer != nil
}

// late reports whether commits take the latest start of the chosen context.
func (s *Scheduler) late() bool {
	return s.settings.Backward() || s.scorer.PrefersLatest()
}

// Schedule places tasks constructively. Results are written to the tasks
// and to the resource assignments; tasks that cannot be placed keep their
// diagnostics in Errors. The returned error is ErrNotInitialized, or the
// context error when ctx is cancelled between iterations.
func (s *Scheduler) Schedule(ctx context.Context, tasks []*model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready() {
		return ErrNotInitialized
	}
	s.begin(OpSchedule)
	defer s.finish(ctx)

	working := s.initScheduling(tasks)
	s.refresh(working)

	bound := len(working) + 10
	for s.run.iter < bound {
		if err := ctx.Err(); err != nil {
			s.logger.Warnf("schedule %s interrupted after %d iterations: %v", s.run.id, s.run.iter, err)
			return fmt.Errorf("schedule interrupted: %w", err)
		}
		batch := s.neighborhood(working)
		if len(batch) == 0 {
			return nil
		}
		s.run.iter++
		iterations.Inc()
		s.publish(events.BatchSelected{RunID: s.run.id, Iteration: s.run.iter, Tasks: keys(batch)})
		s.refresh(batch)

		done := 0
		for _, t := range batch {
			if done >= s.settings.TasksPerLoop {
				break
			}
			if t.Processed || t.IsScheduled() {
				continue
			}
			if s.dirty(t) {
				s.refresh([]*model.Task{t})
			}
			best := s.best(t)
			if best == nil {
				s.fail(t)
				continue
			}
			s.commit(t, best)
			done++
		}
	}
	s.logger.Warnf("schedule %s stopped at iteration bound %d", s.run.id, bound)
	return nil
}

// initScheduling registers the input tasks, resets their per-run state and
// returns the working set. With RequiresPreds the unscheduled chain
// neighbours of every input task join the working set and the windows of
// the chain are truncated by the members already scheduled.
func (s *Scheduler) initScheduling(tasks []*model.Task) []*model.Task {
	var working []*model.Task
	seen := map[string]bool{}
	add := func(t *model.Task) {
		if seen[t.Key] || t.Kind != model.KindProduction || t.IsScheduled() {
			return
		}
		seen[t.Key] = true
		t.Processed = false
		t.Errors = nil
		s.contexts.InvalidateTask(t.Key)
		working = append(working, t)
	}
	for _, t := range tasks {
		if cur, ok := s.land.Task(t.Key); !ok || cur != t {
			if ok {
				s.contexts.RemoveTask(t.Key)
			}
			s.land.AddTask(t)
		}
	}
	s.land.RebuildProcesses()
	for _, t := range tasks {
		add(t)
	}
	if !s.settings.RequiresPreds {
		return working
	}
	for i := 0; i < len(working); i++ {
		t := working[i]
		proc, ok := s.land.Process(t)
		if !ok {
			continue
		}
		neighbours := proc.Predecessors(t.Key)
		if s.settings.Backward() {
			neighbours = proc.Successors(t.Key)
		}
		for _, k := range neighbours {
			if n, ok := s.land.Task(k); ok {
				add(n)
			}
		}
	}
	for _, t := range working {
		if proc, ok := s.land.Process(t); ok {
			s.restoreChain(proc)
		}
	}
	return working
}

// fail records why t could not be placed and removes it from this run.
func (s *Scheduler) fail(t *model.Task) {
	cs := s.contexts.ForTask(t.Key)
	if len(cs) == 0 {
		t.AddError(AgentExplode, "no feasible resource combination")
	}
	seen := map[model.TaskError]bool{}
	for _, c := range cs {
		for _, e := range c.Errors {
			if !seen[e] {
				seen[e] = true
				t.Errors = append(t.Errors, e)
			}
		}
	}
	if len(cs) > 0 && len(seen) == 0 {
		t.AddError(AgentScoring, "no context matching best score")
	}
	t.Processed = true
	for _, e := range t.Errors {
		failures.WithLabelValues(e.Agent).Inc()
		s.run.record.Failed = append(s.run.record.Failed, runlog.Failure{TaskKey: t.Key, Agent: e.Agent, Reason: e.Reason})
		s.publish(events.TaskFailed{RunID: s.run.id, TaskKey: t.Key, Agent: e.Agent, Reason: e.Reason, Time: s.now()})
		if r, ok := s.sink.(metrics.FailureRecorder); ok {
			if err := r.RecordFailure(metrics.FailureEvent{RunID: s.run.id, TaskKey: t.Key, Agent: e.Agent, Reason: e.Reason, Time: s.now()}); err != nil {
				s.logger.Warnf("record failure of %s: %v", t.Key, err)
			}
		}
	}
	s.logger.Debugw("task not scheduled", map[string]any{"task": t.Key, "errors": len(t.Errors)})
}

func (s *Scheduler) begin(op string) {
	s.run = &run{id: uuid.NewString(), op: op, started: s.now()}
	s.run.record = runlog.RunRecord{RunID: s.run.id, Operation: op, Timestamp: s.run.started}
}

// finish stores the run record and summary. It runs even when ctx is
// cancelled.
func (s *Scheduler) finish(ctx context.Context) {
	r := s.run
	elapsed := s.now().Sub(r.started)
	r.record.Iterations = r.iter
	r.record.DurationMS = elapsed.Milliseconds()
	runDurations.WithLabelValues(r.op).Observe(elapsed.Seconds())

	if len(r.commits) > 0 {
		if err := s.sink.RecordCommits(r.commits); err != nil {
			s.logger.Warnf("record commits of run %s: %v", r.id, err)
		}
	}
	s.last = metrics.RunSummary{
		RunID:      r.id,
		Operation:  r.op,
		Tasks:      len(r.record.Committed) + len(r.record.Released),
		Committed:  len(r.record.Committed),
		Failed:     len(r.record.Failed),
		Iterations: r.iter,
		Duration:   elapsed,
		Time:       r.started,
	}
	if rr, ok := s.sink.(metrics.RunRecorder); ok {
		if err := rr.RecordRun(s.last); err != nil {
			s.logger.Warnf("record run %s: %v", r.id, err)
		}
	}
	if err := s.store.Append(context.WithoutCancel(ctx), r.record); err != nil {
		s.logger.Errorf("append run %s to run log: %v", r.id, err)
	}
	s.logger.Infof("%s run %s: %d committed, %d failed, %d released in %d iterations",
		r.op, r.id, len(r.record.Committed), len(r.record.Failed), len(r.record.Released), r.iter)
	s.run = nil
}

func (s *Scheduler) publish(ev eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func keys(ts []*model.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Key
	}
	return out
}
