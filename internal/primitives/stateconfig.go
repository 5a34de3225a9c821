// StateConfig represents a state in the statechart document: atomic, compound, parallel,
// final or history, with its handlers, entry/exit actions, activities, delayed
// transitions, invocations and ordered children.
package primitives

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StateType defines the possible types of states in the statechart.
type StateType string

const (
	Atomic         StateType = "atomic"
	Compound       StateType = "compound"
	Parallel       StateType = "parallel"
	Final          StateType = "final"
	ShallowHistory StateType = "shallowHistory"
	DeepHistory    StateType = "deepHistory"
)

// IsHistory reports whether t is one of the history pseudostate types.
func (t StateType) IsHistory() bool {
	return t == ShallowHistory || t == DeepHistory
}

func (t *StateType) UnmarshalYAML(value *yaml.Node) error {
	switch value.Value {
	case "history", "shallow":
		*t = ShallowHistory
	case "deep":
		*t = DeepHistory
	default:
		*t = StateType(value.Value)
	}
	return nil
}

// InvokeConfig declares a child machine started when the state is entered and stopped
// when it is exited. Src names a machine in the services registry.
type InvokeConfig struct {
	ID      string         `json:"id,omitempty" yaml:"id,omitempty"`
	Src     string         `json:"src" yaml:"src"`
	Data    map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Forward bool           `json:"forward,omitempty" yaml:"forward,omitempty"`
	OnDone  Transitions    `json:"onDone,omitempty" yaml:"onDone,omitempty"`
}

// Invocations is a list of invocations; a document may give a single mapping.
type Invocations []InvokeConfig

func (l *Invocations) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		var ic InvokeConfig
		if err := value.Decode(&ic); err != nil {
			return err
		}
		*l = Invocations{ic}
		return nil
	case yaml.ScalarNode:
		*l = Invocations{{Src: value.Value}}
		return nil
	}
	var list []InvokeConfig
	if err := value.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Names is a list of names; a document may give a single string.
type Names []string

func (n *Names) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Tag == "!!null" {
			*n = nil
			return nil
		}
		*n = Names{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*n = list
	return nil
}

// States is an ordered list of child states. In documents it is a mapping from key to
// state whose order is document order.
type States []*StateConfig

func (s *States) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		out := make(States, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			child := &StateConfig{}
			if val.Tag != "!!null" {
				if err := val.Decode(child); err != nil {
					return fmt.Errorf("state %q: %w", key.Value, err)
				}
			}
			child.Key = key.Value
			out = append(out, child)
		}
		*s = out
		return nil
	case yaml.SequenceNode:
		var list []*StateConfig
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: states must be a mapping", value.Line)
}

// StateConfig defines a state configuration, supporting hierarchical nesting.
type StateConfig struct {
	Key        string        `json:"key" yaml:"key,omitempty"`
	ID         string        `json:"id,omitempty" yaml:"id,omitempty"`
	Type       StateType     `json:"type,omitempty" yaml:"type,omitempty"`
	Initial    string        `json:"initial,omitempty" yaml:"initial,omitempty"`
	On         TransitionMap `json:"on,omitempty" yaml:"on,omitempty"`
	Entry      Actions       `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit       Actions       `json:"exit,omitempty" yaml:"exit,omitempty"`
	Activities Names         `json:"activities,omitempty" yaml:"activities,omitempty"`
	After      AfterList     `json:"after,omitempty" yaml:"after,omitempty"`
	Invoke     Invocations   `json:"invoke,omitempty" yaml:"invoke,omitempty"`
	Children   States        `json:"states,omitempty" yaml:"states,omitempty"`
}

// NewStateConfig creates a new StateConfig with key and type. An empty type is
// inferred at compile time: compound with children, atomic otherwise.
func NewStateConfig(key string, typ StateType) *StateConfig {
	return &StateConfig{
		Key:  key,
		Type: typ,
	}
}

// WithID sets the globally unique identifier used by "#id" references.
func (s *StateConfig) WithID(id string) *StateConfig {
	s.ID = id
	return s
}

// WithInitial sets the initial child key (compound only).
func (s *StateConfig) WithInitial(initial string) *StateConfig {
	s.Initial = initial
	return s
}

// AddTransition adds a candidate for an event.
func (s *StateConfig) AddTransition(event string, trans TransitionConfig) *StateConfig {
	s.On.Add(event, trans)
	return s
}

// Forbid declares event on this state with no transition.
func (s *StateConfig) Forbid(event string) *StateConfig {
	s.On.Forbid(event)
	return s
}

// WithEntry sets entry actions.
func (s *StateConfig) WithEntry(entry ...Action) *StateConfig {
	s.Entry = entry
	return s
}

// AddEntry adds an entry action.
func (s *StateConfig) AddEntry(action Action) *StateConfig {
	s.Entry = append(s.Entry, action)
	return s
}

// WithExit sets exit actions.
func (s *StateConfig) WithExit(exit ...Action) *StateConfig {
	s.Exit = exit
	return s
}

// AddExit adds an exit action.
func (s *StateConfig) AddExit(action Action) *StateConfig {
	s.Exit = append(s.Exit, action)
	return s
}

// AddActivity declares an activity started on entry and stopped on exit.
func (s *StateConfig) AddActivity(name string) *StateConfig {
	s.Activities = append(s.Activities, name)
	return s
}

// AddAfter adds a transition taken after delay.
func (s *StateConfig) AddAfter(delay time.Duration, trans TransitionConfig) *StateConfig {
	s.After = append(s.After, DelayedTransition{Delay: delay, TransitionConfig: trans})
	return s
}

// AddAfterRef adds a transition taken after the delay registered under name.
func (s *StateConfig) AddAfterRef(name string, trans TransitionConfig) *StateConfig {
	s.After = append(s.After, DelayedTransition{DelayRef: name, TransitionConfig: trans})
	return s
}

// AddInvoke declares a child machine invocation.
func (s *StateConfig) AddInvoke(inv InvokeConfig) *StateConfig {
	s.Invoke = append(s.Invoke, inv)
	return s
}

// WithChildren sets child states.
func (s *StateConfig) WithChildren(children ...*StateConfig) *StateConfig {
	s.Children = children
	return s
}

// AddChild adds a child state.
func (s *StateConfig) AddChild(child *StateConfig) *StateConfig {
	s.Children = append(s.Children, child)
	return s
}

// State creates and adds a child state (type inferred, or specified).
// Returns the child for fluent chaining: parent.State("child").Transition("evt", "target").
func (s *StateConfig) State(key string, typ ...StateType) *StateConfig {
	var t StateType
	if len(typ) > 0 {
		t = typ[0]
	}
	child := NewStateConfig(key, t)
	s.AddChild(child)
	return child
}

// Transition adds a simple transition from event to target.
// Usage: .Transition("evt", "target") or .Transition("evt", "", Transition("a", "b").If(g)).
func (s *StateConfig) Transition(event, target string, transOpts ...TransitionConfig) *StateConfig {
	trans := Transition(target)
	if target == "" {
		trans = TransitionConfig{}
	}
	if len(transOpts) > 0 {
		trans = transOpts[0]
	}
	return s.AddTransition(event, trans)
}

// Child returns the direct child with the given key.
func (s *StateConfig) Child(key string) *StateConfig {
	for _, child := range s.Children {
		if child.Key == key {
			return child
		}
	}
	return nil
}

// ResolvedType returns Type, inferring compound or atomic when unset.
func (s *StateConfig) ResolvedType() StateType {
	if s.Type != "" {
		return s.Type
	}
	if len(s.Children) > 0 {
		return Compound
	}
	return Atomic
}

// Flatten returns every state of the subtree keyed by dotted path relative to s.
func (s *StateConfig) Flatten() map[string]*StateConfig {
	m := make(map[string]*StateConfig)
	for _, child := range s.Children {
		child.flattenHelper("", m)
	}
	return m
}

func (s *StateConfig) flattenHelper(prefix string, m map[string]*StateConfig) {
	path := s.Key
	if prefix != "" {
		path = prefix + "." + s.Key
	}
	m[path] = s
	for _, child := range s.Children {
		child.flattenHelper(path, m)
	}
}

// Validate performs recursive structural validation of the StateConfig tree.
func (s *StateConfig) Validate() error {
	if s.Key == "" {
		return errors.New("state key is required")
	}
	if strings.ContainsAny(s.Key, ".#") {
		return fmt.Errorf("state key %q cannot contain '.' or '#'", s.Key)
	}

	validTypes := map[StateType]struct{}{
		"":             {},
		Atomic:         {},
		Compound:       {},
		Parallel:       {},
		Final:          {},
		ShallowHistory: {},
		DeepHistory:    {},
	}
	if _, ok := validTypes[s.Type]; !ok {
		return fmt.Errorf("invalid state type %q for state %s", s.Type, s.Key)
	}

	switch s.ResolvedType() {
	case Atomic, Final:
		if s.Initial != "" {
			return fmt.Errorf("%s state %s cannot have Initial", s.ResolvedType(), s.Key)
		}
		if len(s.Children) > 0 {
			return fmt.Errorf("%s state %s cannot have Children", s.ResolvedType(), s.Key)
		}
	case Compound:
		if len(s.Children) == 0 {
			return fmt.Errorf("compound state %s requires Children", s.Key)
		}
		if s.Initial != "" && s.Child(s.Initial) == nil {
			return fmt.Errorf("initial child %q not found in children of %s", s.Initial, s.Key)
		}
	case Parallel:
		if len(s.Children) == 0 {
			return fmt.Errorf("parallel state %s requires Children", s.Key)
		}
		if s.Initial != "" {
			return fmt.Errorf("parallel state %s cannot have Initial", s.Key)
		}
	case ShallowHistory, DeepHistory:
		if len(s.Children) > 0 {
			return fmt.Errorf("history state %s cannot have Children (restored at runtime)", s.Key)
		}
	}

	seen := make(map[string]struct{}, len(s.Children))
	for _, child := range s.Children {
		if _, dup := seen[child.Key]; dup {
			return fmt.Errorf("duplicate child %q in %s", child.Key, s.Key)
		}
		seen[child.Key] = struct{}{}
	}

	for _, h := range s.On {
		for i := range h.Transitions {
			if err := h.Transitions[i].Validate(); err != nil {
				return fmt.Errorf("state %s, event %q, transition %d: %w", s.Key, h.Event, i, err)
			}
		}
	}
	for i := range s.After {
		if err := s.After[i].Validate(); err != nil {
			return fmt.Errorf("state %s, after %s: %w", s.Key, s.After[i].Label(), err)
		}
	}
	for i, inv := range s.Invoke {
		if inv.Src == "" {
			return fmt.Errorf("state %s, invoke %d: src is required", s.Key, i)
		}
	}

	for i, child := range s.Children {
		if err := child.Validate(); err != nil {
			return fmt.Errorf("child %d (%s) of %s failed validation: %w", i, child.Key, s.Key, err)
		}
	}

	return nil
}
