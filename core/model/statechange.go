package model

import "fmt"

// AnyState is the wildcard used by state-change defaults.
const AnyState = "*"

// StateChangeKey identifies a changeover rule.
type StateChangeKey struct {
	ResourceType string `json:"resource_type"`
	From         string `json:"from"`
	To           string `json:"to"`
	ChangeType   string `json:"change_type,omitempty"`
}

func (k StateChangeKey) String() string {
	return fmt.Sprintf("%s:%s->%s:%s", k.ResourceType, k.From, k.To, k.ChangeType)
}

// StateChange is the transition time required when a resource moves between
// process states.
type StateChange struct {
	StateChangeKey
	// Seconds is the setup time placed before work in the To state.
	Seconds int64   `json:"seconds"`
	Penalty float64 `json:"penalty,omitempty"`
	// MaxRunTasks and MaxRunSeconds force a changeover once a run of equal
	// states reaches the limit. Zero means unlimited.
	MaxRunTasks   int   `json:"max_run_tasks,omitempty"`
	MaxRunSeconds int64 `json:"max_run_seconds,omitempty"`
}

// StateChanges indexes changeover rules by resource type.
type StateChanges struct {
	*Collection[*StateChange]
	types map[string]bool
}

// NewStateChanges returns an empty rule set.
func NewStateChanges() *StateChanges {
	return &StateChanges{Collection: NewCollection[*StateChange](), types: map[string]bool{}}
}

// Add registers sc, replacing a rule with the same key.
func (s *StateChanges) Add(sc *StateChange) {
	if sc.From == "" {
		sc.From = AnyState
	}
	if sc.To == "" {
		sc.To = AnyState
	}
	s.Put(sc.StateChangeKey.String(), sc)
	s.types[sc.ResourceType] = true
}

// Configured reports whether any rule exists for resource type typ.
func (s *StateChanges) Configured(typ string) bool {
	return s != nil && s.types[typ]
}

// Lookup resolves the rule for a transition, falling back from the exact
// pair to the to-default, the from-default and finally the default-default.
func (s *StateChanges) Lookup(typ, from, to, changeType string) (*StateChange, bool) {
	if s == nil {
		return nil, false
	}
	candidates := [][2]string{{from, to}, {AnyState, to}, {from, AnyState}, {AnyState, AnyState}}
	for _, c := range candidates {
		k := StateChangeKey{ResourceType: typ, From: c[0], To: c[1], ChangeType: changeType}
		if sc, ok := s.Get(k.String()); ok {
			return sc, true
		}
	}
	return nil, false
}

// Limited reports whether the run counters in span exceed the limits of sc.
func (sc *StateChange) Limited(span StateSpan, addSeconds int64) bool {
	if sc.MaxRunTasks > 0 && span.RunTasks+1 > sc.MaxRunTasks {
		return true
	}
	return sc.MaxRunSeconds > 0 && span.RunSeconds+addSeconds > sc.MaxRunSeconds
}
