// Package scoring blends weighted, normalized rule scores into one
// comparable value per scheduling candidate. Lower blended scores are
// better.
package scoring

import "github.com/kilianp07/capsched/core/model"

// Objective tells whether a rule prefers low or high raw scores.
type Objective int

const (
	Minimize Objective = iota
	Maximize
)

func (o Objective) String() string {
	if o == Maximize {
		return "MAXIMIZE"
	}
	return "MINIMIZE"
}

// Candidate is the view of a schedule candidate the rules score.
type Candidate interface {
	Task() *model.Task
	Slot() []*model.Resource
	// EarliestStart and LatestStart bound the feasible starts.
	EarliestStart() int64
	LatestStart() int64
	// Start is where the candidate would be committed.
	Start() int64
	// Changeover is the longest setup a start at Start requires and
	// Penalty the summed changeover penalty of that start.
	Changeover() int64
	Penalty() float64
	// Rank is the summed preference rank of the slot resources.
	Rank() int
}

// Rule computes a raw score for a candidate.
type Rule interface {
	Name() string
	Objective() Objective
	Score(l *model.Landscape, c Candidate) float64
}
