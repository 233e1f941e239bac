// Package statechange overlays changeover time on start-time windows.
package statechange

import (
	"github.com/kilianp07/capsched/core/interval"
	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/starttime"
)

// Changeover is a transition required on one resource.
type Changeover struct {
	ResourceKey string  `json:"resource_key"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Seconds     int64   `json:"seconds"`
	Penalty     float64 `json:"penalty,omitempty"`
}

// Window is a closed start-time window annotated with the changeovers a
// start inside it requires.
type Window struct {
	StartW int64 `json:"start_w"`
	EndW   int64 `json:"end_w"`
	// Changeover is the longest setup required on any slot resource.
	Changeover int64        `json:"changeover"`
	Setups     []Changeover `json:"setups,omitempty"`
	Teardowns  []Changeover `json:"teardowns,omitempty"`
	Penalty    float64      `json:"penalty,omitempty"`
	// Infeasible is set when the changeovers do not fit the window.
	Infeasible bool `json:"infeasible,omitempty"`
}

// Interval returns the window bounds.
func (w Window) Interval() interval.Interval { return interval.New(w.StartW, w.EndW) }

// Wrap turns plain start windows into unannotated windows.
func Wrap(l interval.List) []Window {
	out := make([]Window, 0, l.Len())
	for _, iv := range l.Items() {
		out = append(out, Window{StartW: iv.StartW, EndW: iv.EndW})
	}
	return out
}

// Feasible drops the windows flagged infeasible.
func Feasible(ws []Window) []Window {
	out := make([]Window, 0, len(ws))
	for _, w := range ws {
		if !w.Infeasible {
			out = append(out, w)
		}
	}
	return out
}

// Engine applies changeover rules.
type Engine struct {
	starts *starttime.Engine
}

// New returns a state-change engine.
func New() *Engine { return &Engine{starts: starttime.New(nil)} }

// Applies reports whether task is subject to changeovers on any slot
// resource.
func (e *Engine) Applies(task *model.Task, slot []*model.Resource, rules *model.StateChanges) bool {
	if task.SkipSetup || task.ProcessState == "" || rules == nil {
		return false
	}
	for _, r := range slot {
		if rules.Configured(r.Type) {
			return true
		}
	}
	return false
}

// Apply splits every window along the state spans of the slot resources and
// annotates each piece with the setup required from the previous state and
// the teardown required before a differing next state. Setups push the
// earliest start past the gap start, teardowns pull the latest start in
// front of the next state. Pieces left empty are flagged infeasible.
//
// The state spans of every slot resource must be current.
func (e *Engine) Apply(windows []Window, task *model.Task, slot []*model.Resource, rules *model.StateChanges) []Window {
	if !e.Applies(task, slot, rules) {
		return windows
	}
	out := windows
	for _, res := range slot {
		if !rules.Configured(res.Type) || res.Matrix == nil {
			continue
		}
		var next []Window
		for _, w := range out {
			next = append(next, e.split(w, task, res, rules)...)
		}
		out = next
	}
	return out
}

func (e *Engine) split(w Window, task *model.Task, res *model.Resource, rules *model.StateChanges) []Window {
	if w.Infeasible {
		return []Window{w}
	}
	dur := task.Duration.Duration()
	state := task.ProcessState
	var out []Window
	for _, span := range res.Matrix.StateSpans {
		lo := max(w.StartW, span.StartW)
		hi := min(w.EndW, span.EndW-1)
		if hi < lo {
			continue
		}
		p := w
		p.StartW, p.EndW = lo, hi
		p.Setups = append([]Changeover(nil), w.Setups...)
		p.Teardowns = append([]Changeover(nil), w.Teardowns...)

		if span.Prev != "" {
			sc, ok := rules.Lookup(res.Type, span.Prev, state, "")
			needed := span.Prev != state || (ok && sc.Limited(span, dur))
			if ok && needed && sc.Seconds > 0 {
				p.StartW = max(p.StartW, span.StartW+sc.Seconds)
				p.Setups = append(p.Setups, Changeover{ResourceKey: res.Key, From: span.Prev, To: state, Seconds: sc.Seconds, Penalty: sc.Penalty})
				p.Changeover = max(p.Changeover, sc.Seconds)
				p.Penalty += sc.Penalty
			}
		}
		if span.Next != "" && span.Next != state && !span.NextIsSetup {
			if sc, ok := rules.Lookup(res.Type, state, span.Next, ""); ok && sc.Seconds > 0 {
				p.EndW = min(p.EndW, span.EndW-sc.Seconds-dur)
				p.Teardowns = append(p.Teardowns, Changeover{ResourceKey: res.Key, From: state, To: span.Next, Seconds: sc.Seconds, Penalty: sc.Penalty})
				p.Penalty += sc.Penalty
			}
		}
		if p.EndW < p.StartW {
			p.Infeasible = true
			p.StartW, p.EndW = lo, hi
		}
		out = append(out, p)
	}
	return out
}

// Fit narrows every window to the starts whose setups and teardowns find
// free capacity on their resources: a setup occupies the span right before
// the start and a teardown the span right after the nominal end. qty holds
// the quantity the task takes on each slot resource and bounds limits where
// changeover work may be placed. Windows left without a start are flagged
// infeasible.
//
// The availability of every slot resource must be current.
func (e *Engine) Fit(windows []Window, task *model.Task, slot []*model.Resource, qty []float64, bounds interval.Interval) []Window {
	dur := task.Duration.Duration()
	var out []Window
	for _, w := range windows {
		if w.Infeasible || (len(w.Setups) == 0 && len(w.Teardowns) == 0) {
			out = append(out, w)
			continue
		}
		allowed := interval.NewList(w.Interval())
		for _, ch := range w.Setups {
			got := e.free(ch, slot, qty, bounds)
			allowed = e.starts.Intersect(allowed, starttime.Shift(got, ch.Seconds, ch.Seconds))
		}
		for _, ch := range w.Teardowns {
			got := e.free(ch, slot, qty, bounds)
			allowed = e.starts.Intersect(allowed, starttime.Shift(got, -dur, -dur))
		}
		if allowed.IsEmpty() {
			w.Infeasible = true
			out = append(out, w)
			continue
		}
		for _, iv := range allowed.Items() {
			p := w
			p.StartW, p.EndW = iv.StartW, iv.EndW
			out = append(out, p)
		}
	}
	return out
}

// free returns the starts at which the changeover work of ch fits on its
// resource.
func (e *Engine) free(ch Changeover, slot []*model.Resource, qty []float64, bounds interval.Interval) interval.List {
	for i, res := range slot {
		if res.Key != ch.ResourceKey || res.Matrix == nil {
			continue
		}
		q := 1.0
		if i < len(qty) {
			q = qty[i]
		}
		got, _ := e.starts.ComputeStartTimes(starttime.Request{
			StartW:   bounds.StartW,
			EndW:     bounds.EndW,
			Duration: model.Duration{Type: model.DurationFixed, Seconds: ch.Seconds},
			Qty:      q,
		}, res.Matrix)
		return got
	}
	return interval.List{}
}
