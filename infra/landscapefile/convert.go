package landscapefile

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/model"
)

// Landscape builds the model described by the document. The returned tasks
// are the production tasks in document order; generated setup and teardown
// tasks found in the document are registered in the landscape only.
func (f *File) Landscape() (*model.Landscape, []*model.Task, error) {
	l := model.NewLandscape(model.Horizon{StartW: model.Seconds(f.Horizon.Start), EndW: model.Seconds(f.Horizon.End)})
	if err := l.Horizon.Validate(); err != nil {
		return nil, nil, err
	}
	var errs []error
	for _, r := range f.Resources {
		res, err := r.model()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.AddResource(res)
	}
	for _, sc := range f.StateChanges {
		l.StateChanges.Add(&model.StateChange{
			StateChangeKey: model.StateChangeKey{ResourceType: sc.ResourceType, From: sc.From, To: sc.To, ChangeType: sc.ChangeType},
			Seconds:        sc.Seconds,
			Penalty:        sc.Penalty,
			MaxRunTasks:    sc.MaxRunTasks,
			MaxRunSeconds:  sc.MaxRunSeconds,
		})
	}
	var tasks []*model.Task
	for _, t := range f.Tasks {
		task, err := t.model()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.AddTask(task)
		if task.Kind == model.KindProduction {
			tasks = append(tasks, task)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}
	l.RebuildProcesses()
	return l, tasks, nil
}

func (r Resource) model() (*model.Resource, error) {
	class, err := interval.ParseClass(r.Class)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", r.Key, err)
	}
	ivs := make([]interval.Interval, 0, len(r.Calendar))
	for _, s := range r.Calendar {
		iv := interval.New(model.Seconds(s.Start), model.Seconds(s.End))
		if s.Qty != nil {
			iv = interval.WithQty(iv.StartW, iv.EndW, *s.Qty)
		}
		iv.RunRate = s.RunRate
		ivs = append(ivs, iv)
	}
	res := model.NewResource(r.Key, r.Type, class, interval.FromUnsorted(ivs))
	res.InitialState = r.InitialState
	for _, a := range r.Assignments {
		kind, err := parseKind(a.Kind)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", r.Key, err)
		}
		qty := a.Qty
		if qty == 0 {
			qty = 1
		}
		res.Assign(model.Assignment{
			TaskKey:  a.Task,
			Interval: interval.WithQty(model.Seconds(a.Start), model.Seconds(a.End), qty),
			State:    a.State,
			Kind:     kind,
		})
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func (t Task) model() (*model.Task, error) {
	dt, err := model.ParseDurationType(t.Duration.Type)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.Key, err)
	}
	kind, err := parseKind(t.Kind)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.Key, err)
	}
	progress, err := parseProgress(t.Progress)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.Key, err)
	}
	out := &model.Task{
		Key:          t.Key,
		Sequence:     t.Sequence,
		Rank:         t.Rank,
		Kind:         kind,
		Progress:     progress,
		ProcessState: t.ProcessState,
		SkipSetup:    t.SkipSetup,
		Duration:     model.Duration{Type: dt, Seconds: t.Duration.Seconds, Quantity: t.Duration.Quantity},
		Capacity:     requirements(t.Capacity),
		Materials:    requirements(t.Materials),
		Score:        t.Score,
		Parent:       t.Parent,
		Resources:    t.Resources,
	}
	if t.Process != "" {
		out.Link = &model.Link{Name: t.Process}
	}
	if t.Earliest != nil {
		out.Window.EarliestW = model.Seconds(*t.Earliest)
	}
	if t.Latest != nil {
		out.Window.LatestW = model.Seconds(*t.Latest)
	}
	if t.State == model.Scheduled.String() && t.Start != nil && t.End != nil {
		iv := interval.New(model.Seconds(*t.Start), model.Seconds(*t.End))
		out.State = model.Scheduled
		out.Scheduled = &iv
		out.StateChangeTasks = t.Changes
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func requirements(in []Requirement) []model.Requirement {
	out := make([]model.Requirement, 0, len(in))
	for _, r := range in {
		req := model.Requirement{Type: r.Type, Qty: r.Qty}
		for _, p := range r.Preferences {
			req.Preferences = append(req.Preferences, model.Preference{ResourceKey: p.Resource, Rank: p.Rank})
		}
		out = append(out, req)
	}
	return out
}

func parseKind(s string) (model.TaskKind, error) {
	switch s {
	case "", model.KindProduction.String():
		return model.KindProduction, nil
	case model.KindSetup.String():
		return model.KindSetup, nil
	case model.KindTeardown.String():
		return model.KindTeardown, nil
	default:
		return model.KindProduction, fmt.Errorf("unknown task kind %q", s)
	}
}

func parseProgress(s string) (model.Progress, error) {
	switch s {
	case "", model.NotStarted.String():
		return model.NotStarted, nil
	case model.Started.String():
		return model.Started, nil
	case model.Completed.String():
		return model.Completed, nil
	default:
		return model.NotStarted, fmt.Errorf("unknown progress %q", s)
	}
}

// FromLandscape encodes l including the schedule: every task with its
// committed interval and diagnostics, and every resource with its
// assignments.
func FromLandscape(l *model.Landscape) *File {
	doc := &File{Horizon: Horizon{Start: model.Time(l.Horizon.StartW), End: model.Time(l.Horizon.EndW)}}
	for _, r := range l.Resources.Values() {
		doc.Resources = append(doc.Resources, resourceDoc(r))
	}
	for _, sc := range l.StateChanges.Values() {
		doc.StateChanges = append(doc.StateChanges, StateChange{
			ResourceType:  sc.ResourceType,
			From:          sc.From,
			To:            sc.To,
			ChangeType:    sc.ChangeType,
			Seconds:       sc.Seconds,
			Penalty:       sc.Penalty,
			MaxRunTasks:   sc.MaxRunTasks,
			MaxRunSeconds: sc.MaxRunSeconds,
		})
	}
	for _, t := range l.Tasks.Values() {
		doc.Tasks = append(doc.Tasks, TaskDoc(t))
	}
	return doc
}

func resourceDoc(r *model.Resource) Resource {
	out := Resource{Key: r.Key, Type: r.Type, Class: r.Class.String(), InitialState: r.InitialState}
	for _, iv := range r.Original.Items() {
		s := Segment{Start: model.Time(iv.StartW), End: model.Time(iv.EndW), RunRate: iv.RunRate}
		if iv.Tracked {
			q := iv.Qty
			s.Qty = &q
		}
		out.Calendar = append(out.Calendar, s)
	}
	for _, a := range r.Assignments {
		out.Assignments = append(out.Assignments, Assignment{
			Task:  a.TaskKey,
			Start: model.Time(a.Interval.StartW),
			End:   model.Time(a.Interval.EndW),
			Qty:   a.Interval.Qty,
			State: a.State,
			Kind:  a.Kind.String(),
		})
	}
	return out
}

// TaskDoc encodes one task.
func TaskDoc(t *model.Task) Task {
	out := Task{
		Key:          t.Key,
		Sequence:     t.Sequence,
		Rank:         t.Rank,
		Process:      t.ProcessName(),
		ProcessState: t.ProcessState,
		SkipSetup:    t.SkipSetup,
		Progress:     t.Progress.String(),
		Duration:     Duration{Type: t.Duration.Type.String(), Seconds: t.Duration.Seconds, Quantity: t.Duration.Quantity},
		Earliest:     timePtr(t.Window.EarliestW),
		Latest:       timePtr(t.Window.LatestW),
		Capacity:     requirementDocs(t.Capacity),
		Materials:    requirementDocs(t.Materials),
		Kind:         t.Kind.String(),
		State:        t.State.String(),
		Resources:    t.Resources,
		Score:        t.Score,
		Parent:       t.Parent,
		Changes:      t.StateChangeTasks,
	}
	if t.Scheduled != nil {
		out.Start = timePtr(t.Scheduled.StartW)
		out.End = timePtr(t.Scheduled.EndW)
	}
	for _, e := range t.Errors {
		out.Errors = append(out.Errors, TaskError{Agent: e.Agent, Reason: e.Reason})
	}
	return out
}

func requirementDocs(in []model.Requirement) []Requirement {
	if len(in) == 0 {
		return nil
	}
	out := make([]Requirement, 0, len(in))
	for _, r := range in {
		req := Requirement{Type: r.Type, Qty: r.Qty}
		for _, p := range r.Preferences {
			req.Preferences = append(req.Preferences, Preference{Resource: p.ResourceKey, Rank: p.Rank})
		}
		out = append(out, req)
	}
	return out
}

func timePtr(w int64) *time.Time {
	t := model.Time(w)
	return &t
}
