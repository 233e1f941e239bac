package scoring

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/capsched/core/factory"
	"github.com/kilianp07/capsched/core/model"
)

var (
	// ErrWeights is returned when the enabled rule weights do not sum to 1.
	ErrWeights = errors.New("scoring rule weights must sum to 1")
	// ErrUnknownRule is returned for a rule name with no registered factory.
	ErrUnknownRule = errors.New("unknown scoring rule")
)

const weightTolerance = 1e-9

// RuleConfig enables one rule.
type RuleConfig struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	// Penalty multiplies the weighted score; zero means 1.
	Penalty float64        `json:"penalty,omitempty"`
	Enabled *bool          `json:"enabled,omitempty"`
	Conf    map[string]any `json:"conf,omitempty"`
}

func (c RuleConfig) enabled() bool { return c.Enabled == nil || *c.Enabled }

// Policy is the set of rules scoring a run.
type Policy struct {
	Rules []RuleConfig `json:"rules"`
}

// DefaultPolicy scores by earliest start only.
func DefaultPolicy() Policy {
	return Policy{Rules: []RuleConfig{{Name: RuleEarliestStart, Weight: 1}}}
}

type weighted struct {
	rule    Rule
	weight  float64
	penalty float64
}

// Engine scores candidates under a policy.
type Engine struct {
	rules []weighted
}

// Result is the scoring of one candidate.
type Result struct {
	// Raw holds the per-rule raw scores in policy order.
	Raw     []float64
	Blended float64
}

// NewEngine builds the enabled rules of p through reg. The weights of the
// enabled rules must sum to 1.
func NewEngine(reg *factory.Registry[Rule], p Policy) (*Engine, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	e := &Engine{}
	var sum float64
	for _, rc := range p.Rules {
		if !rc.enabled() {
			continue
		}
		r, err := reg.Create(factory.ModuleConfig{Type: rc.Name, Conf: rc.Conf})
		if errors.Is(err, factory.ErrUnknownType) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rc.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rc.Name, err)
		}
		pen := rc.Penalty
		if pen == 0 {
			pen = 1
		}
		e.rules = append(e.rules, weighted{rule: r, weight: rc.Weight, penalty: pen})
		sum += rc.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("%w: got %g", ErrWeights, sum)
	}
	return e, nil
}

// Rules returns the names of the enabled rules in policy order.
func (e *Engine) Rules() []string {
	out := make([]string, len(e.rules))
	for i, w := range e.rules {
		out[i] = w.rule.Name()
	}
	return out
}

// Weight returns the weight of the named rule, zero when disabled.
func (e *Engine) Weight(name string) float64 {
	for _, w := range e.rules {
		if w.rule.Name() == name {
			return w.weight
		}
	}
	return 0
}

// PrefersLatest reports whether the latest-start rule outweighs the
// earliest-start rule, in which case candidates are placed at their latest
// start.
func (e *Engine) PrefersLatest() bool {
	return e.Weight(RuleLatestStart) > e.Weight(RuleEarliestStart)
}

// ComputeScores scores every candidate. Each rule's raw scores are min-max
// normalized across the candidates, weighted, negated for maximizing rules,
// multiplied by the rule penalty and summed.
func (e *Engine) ComputeScores(l *model.Landscape, cands []Candidate) []Result {
	out := make([]Result, len(cands))
	for i := range out {
		out[i].Raw = make([]float64, len(e.rules))
	}
	if len(cands) == 0 {
		return out
	}
	col := make([]float64, len(cands))
	for j, w := range e.rules {
		for i, c := range cands {
			col[i] = w.rule.Score(l, c)
			out[i].Raw[j] = col[i]
		}
		lo, hi := floats.Min(col), floats.Max(col)
		for i := range cands {
			norm := 0.0
			if hi > lo {
				norm = (col[i] - lo) / (hi - lo)
			}
			v := norm * w.weight
			if w.rule.Objective() == Maximize {
				v = -v
			}
			out[i].Blended += v * w.penalty
		}
	}
	return out
}
