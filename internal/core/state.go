package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/comalice/xchart/internal/primitives"
)

// State is the immutable snapshot produced by a macrostep. It is safe to share
// read-only; the engine never mutates a State after returning it.
type State struct {
	Value      StateValue
	Context    any
	Actions    []primitives.Action
	Activities map[string]bool
	// Changed is nil for an initial state.
	Changed *bool
	Event   primitives.Event
	// History is the previous snapshot, with its own History cleared.
	History *State

	machine *Machine
	config  Configuration
	done    bool
}

func (s *State) delimiter() string {
	if s.machine != nil {
		return s.machine.tree.delimiter
	}
	return "."
}

// Matches reports whether the state is in value, a dotted path such as "red.walk".
func (s *State) Matches(value string) bool {
	return MatchesState(value, s.Value, s.delimiter())
}

// MatchesValue is Matches for a partial nested value.
func (s *State) MatchesValue(value StateValue) bool {
	return MatchesState(value, s.Value, s.delimiter())
}

// IsChanged reports whether the macrostep changed configuration, context or emitted actions.
func (s *State) IsChanged() bool {
	return s.Changed != nil && *s.Changed
}

// Done reports whether the top-level state (every region, for a parallel root) is final.
func (s *State) Done() bool {
	return s.done
}

// NextEvents returns the events handled by any active state, sorted. States that are
// not bound to a machine (restored and not yet used) return nil.
func (s *State) NextEvents() []string {
	if s.machine == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, id := range s.config {
		for _, ev := range s.machine.tree.nodes[id].Events() {
			if ev != primitives.NullEvent {
				seen[ev] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for ev := range seen {
		out = append(out, ev)
	}
	slices.Sort(out)
	return out
}

// Configuration returns the state identifiers of all active states in document order.
func (s *State) Configuration() []string {
	if s.machine == nil {
		return nil
	}
	return s.machine.tree.stateIDs(s.config)
}

// Inert returns a copy without actions, for re-delivery where effects must not repeat.
func (s *State) Inert() *State {
	cp := *s
	cp.Actions = nil
	return &cp
}

func (s *State) withoutHistory() *State {
	cp := *s
	cp.History = nil
	return &cp
}

func (s *State) String() string {
	if v, ok := s.Value.(string); ok {
		return v
	}
	keys := leafPaths(s.Value, "", s.delimiter())
	return strings.Join(keys, ",")
}

func leafPaths(v StateValue, prefix, delim string) []string {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + delim + k
	}
	switch val := v.(type) {
	case string:
		return []string{join(val)}
	case map[string]any:
		if len(val) == 0 {
			if prefix == "" {
				return nil
			}
			return []string{prefix}
		}
		var out []string
		for _, k := range slices.Sorted(maps.Keys(val)) {
			out = append(out, leafPaths(val[k], join(k), delim)...)
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

type stateJSON struct {
	Value      StateValue          `json:"value"`
	Context    any                 `json:"context,omitempty"`
	Actions    []primitives.Action `json:"actions,omitempty"`
	Activities map[string]bool     `json:"activities,omitempty"`
	Changed    *bool               `json:"changed,omitempty"`
	Event      primitives.Event    `json:"event"`
	Done       bool                `json:"done,omitempty"`
	History    *stateJSON          `json:"history,omitempty"`
}

func (s *State) toJSON() *stateJSON {
	out := &stateJSON{
		Value:      s.Value,
		Context:    s.Context,
		Actions:    s.Actions,
		Activities: s.Activities,
		Changed:    s.Changed,
		Event:      s.Event,
		Done:       s.done,
	}
	if s.History != nil {
		out.History = s.History.toJSON()
	}
	return out
}

func (j *stateJSON) toState() *State {
	s := &State{
		Value:      j.Value,
		Context:    j.Context,
		Actions:    j.Actions,
		Activities: j.Activities,
		Changed:    j.Changed,
		Event:      j.Event,
		done:       j.Done,
	}
	if j.History != nil {
		s.History = j.History.toState()
	}
	return s
}

// MarshalJSON encodes the plain data of the snapshot. Bound implementations are
// dropped; they are rebound by name when the state is next used with a machine.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toJSON())
}

// UnmarshalJSON decodes a snapshot produced by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var j stateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*s = *j.toState()
	return nil
}

// RestoreState decodes a serialized snapshot. The result is unbound until it is
// passed to a machine.
func RestoreState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("restore state: %w", err)
	}
	if s.Value == nil {
		return nil, &InvalidInputError{Code: CodeInvalidValue, Message: "snapshot has no value"}
	}
	return &s, nil
}
