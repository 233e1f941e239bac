package scoring

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/capsched/core/factory"
	"github.com/kilianp07/capsched/core/model"
)

const (
	RuleEarliestStart = "earliest-start-time"
	RuleLatestStart   = "latest-start-time"
	RuleWhitespace    = "whitespace-stddev"
	RuleChangeover    = "changeover-duration"
	RuleResourceRank  = "resource-rank"
	RuleLateness      = "lateness"
)

// EarliestStart prefers candidates that can start first.
type EarliestStart struct{}

func (EarliestStart) Name() string         { return RuleEarliestStart }
func (EarliestStart) Objective() Objective { return Minimize }
func (EarliestStart) Score(_ *model.Landscape, c Candidate) float64 {
	return float64(c.EarliestStart())
}

// LatestStart prefers candidates that can start last. Backward schedules
// weight it above EarliestStart.
type LatestStart struct{}

func (LatestStart) Name() string         { return RuleLatestStart }
func (LatestStart) Objective() Objective { return Maximize }
func (LatestStart) Score(_ *model.Landscape, c Candidate) float64 {
	return float64(c.LatestStart())
}

// Whitespace prefers candidates that leave evenly sized idle gaps on their
// resources. The raw score is the standard deviation of the idle gaps
// between assignments once the task is placed at its start, averaged over
// the slot.
type Whitespace struct {
	// Edges counts the gaps to the horizon bounds.
	Edges bool `json:"edges"`
}

func (Whitespace) Name() string         { return RuleWhitespace }
func (Whitespace) Objective() Objective { return Minimize }
func (w Whitespace) Score(l *model.Landscape, c Candidate) float64 {
	slot := c.Slot()
	if len(slot) == 0 {
		return 0
	}
	start := c.Start()
	end := start + c.Task().Duration.Duration()
	var total float64
	for _, res := range slot {
		total += w.deviation(l, res, start, end)
	}
	return total / float64(len(slot))
}

func (w Whitespace) deviation(l *model.Landscape, res *model.Resource, start, end int64) float64 {
	type span struct{ s, e int64 }
	spans := []span{{start, end}}
	for _, a := range res.Assignments {
		spans = append(spans, span{a.Interval.StartW, a.Interval.EndW})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].s < spans[j].s })

	var gaps []float64
	if w.Edges && l != nil {
		gaps = append(gaps, float64(max(0, spans[0].s-l.Horizon.StartW)))
	}
	for i := 1; i < len(spans); i++ {
		gaps = append(gaps, float64(max(0, spans[i].s-spans[i-1].e)))
	}
	if w.Edges && l != nil {
		gaps = append(gaps, float64(max(0, l.Horizon.EndW-spans[len(spans)-1].e)))
	}
	if len(gaps) < 2 {
		return 0
	}
	return stat.StdDev(gaps, nil)
}

// ChangeoverDuration prefers candidates needing shorter setups. The setup
// time is scaled by one plus the changeover penalty.
type ChangeoverDuration struct{}

func (ChangeoverDuration) Name() string         { return RuleChangeover }
func (ChangeoverDuration) Objective() Objective { return Minimize }
func (ChangeoverDuration) Score(_ *model.Landscape, c Candidate) float64 {
	return float64(c.Changeover()) * (1 + c.Penalty())
}

// ResourceRank prefers the resources ranked first by the task.
type ResourceRank struct{}

func (ResourceRank) Name() string         { return RuleResourceRank }
func (ResourceRank) Objective() Objective { return Minimize }
func (ResourceRank) Score(_ *model.Landscape, c Candidate) float64 {
	return float64(c.Rank())
}

// Lateness prefers candidates finishing inside the task's base window.
type Lateness struct{}

func (Lateness) Name() string         { return RuleLateness }
func (Lateness) Objective() Objective { return Minimize }
func (Lateness) Score(_ *model.Landscape, c Candidate) float64 {
	t := c.Task()
	end := c.Start() + t.Duration.Duration()
	return float64(max(0, end-t.BaseWindow.LatestW))
}

func stateless(r Rule) factory.Factory[Rule] {
	return func(map[string]any) (Rule, error) { return r, nil }
}

// NewRegistry returns a registry holding the built-in rules.
func NewRegistry() *factory.Registry[Rule] {
	reg := factory.NewRegistry[Rule]()
	reg.MustRegister(RuleEarliestStart, stateless(EarliestStart{}))
	reg.MustRegister(RuleLatestStart, stateless(LatestStart{}))
	reg.MustRegister(RuleChangeover, stateless(ChangeoverDuration{}))
	reg.MustRegister(RuleResourceRank, stateless(ResourceRank{}))
	reg.MustRegister(RuleLateness, stateless(Lateness{}))
	reg.MustRegister(RuleWhitespace, func(conf map[string]any) (Rule, error) {
		var w Whitespace
		if err := factory.Decode(conf, &w); err != nil {
			return nil, err
		}
		return w, nil
	})
	return reg
}
