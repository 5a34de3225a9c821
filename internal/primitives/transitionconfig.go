// TransitionConfig defines a candidate transition: targets, an optional guard and
// in-state predicate, actions and the internal flag.
//
// Target references:
//   - "#id" or "#id.child" resolves by state identifier;
//   - ".child" is relative to the declaring state (internal unless stated otherwise);
//   - "." is the declaring state itself (internal);
//   - "sibling.child" is relative to the declaring state's parent.
//
// A TransitionConfig with no targets is targetless: it only runs its actions.
package primitives

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Targets is a list of target references. In documents it may be a single string.
type Targets []string

func (t *Targets) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || value.Value == "" {
			*t = nil
			return nil
		}
		*t = Targets{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*t = list
		return nil
	}
	return fmt.Errorf("line %d: target must be a string or a list", value.Line)
}

// TransitionConfig defines a single transition candidate.
type TransitionConfig struct {
	Target   Targets `json:"target,omitempty" yaml:"target,omitempty"`
	Cond     *Guard  `json:"cond,omitempty" yaml:"cond,omitempty"`
	In       string  `json:"in,omitempty" yaml:"in,omitempty"`
	Actions  Actions `json:"actions,omitempty" yaml:"actions,omitempty"`
	Internal *bool   `json:"internal,omitempty" yaml:"internal,omitempty"`
}

// Transition creates a TransitionConfig for the given targets.
func Transition(targets ...string) TransitionConfig {
	return TransitionConfig{Target: targets}
}

// If sets the guard.
func (t TransitionConfig) If(g *Guard) TransitionConfig {
	t.Cond = g
	return t
}

// InState sets the in-state predicate.
func (t TransitionConfig) InState(ref string) TransitionConfig {
	t.In = ref
	return t
}

// Do appends actions.
func (t TransitionConfig) Do(actions ...Action) TransitionConfig {
	t.Actions = append(append(Actions(nil), t.Actions...), actions...)
	return t
}

// WithInternal marks the transition internal or external explicitly.
func (t TransitionConfig) WithInternal(internal bool) TransitionConfig {
	t.Internal = &internal
	return t
}

// Validate checks target reference syntax.
func (t *TransitionConfig) Validate() error {
	for _, target := range t.Target {
		if err := validateReference(target); err != nil {
			return err
		}
	}
	if t.In != "" {
		if err := validateReference(t.In); err != nil {
			return fmt.Errorf("in: %w", err)
		}
	}
	return nil
}

func validateReference(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return errors.New("target is empty")
	}
	if ref == "." {
		return nil
	}
	body := strings.TrimPrefix(strings.TrimPrefix(ref, "#"), ".")
	for i, seg := range strings.Split(body, ".") {
		if strings.TrimSpace(seg) == "" {
			return fmt.Errorf("invalid target path %q: empty segment at index %d", ref, i)
		}
	}
	return nil
}

// Transitions is an ordered candidate list. In documents it may be written as a target
// string, a single mapping or a list of either.
type Transitions []TransitionConfig

func (l *Transitions) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var t Targets
		if err := value.Decode(&t); err != nil {
			return err
		}
		*l = Transitions{{Target: t}}
		return nil
	case yaml.MappingNode:
		var tc TransitionConfig
		if err := value.Decode(&tc); err != nil {
			return err
		}
		*l = Transitions{tc}
		return nil
	case yaml.SequenceNode:
		out := make(Transitions, 0, len(value.Content))
		for _, item := range value.Content {
			var one Transitions
			if err := item.Decode(&one); err != nil {
				return err
			}
			out = append(out, one...)
		}
		*l = out
		return nil
	}
	return fmt.Errorf("line %d: unsupported transition form", value.Line)
}

// Handler binds an event name to its candidates. A forbidden handler declares the
// event with no transition, which stops bubbling to ancestors.
type Handler struct {
	Event       string      `json:"event"`
	Transitions Transitions `json:"transitions,omitempty"`
	Forbidden   bool        `json:"forbidden,omitempty"`
}

// TransitionMap is an ordered event to handler map.
type TransitionMap []Handler

// Lookup returns the handler declared for event.
func (m TransitionMap) Lookup(event string) (Handler, bool) {
	for _, h := range m {
		if h.Event == event {
			return h, true
		}
	}
	return Handler{}, false
}

// Add appends a candidate to the handler of event, creating it in order if needed.
func (m *TransitionMap) Add(event string, t TransitionConfig) {
	for i := range *m {
		if (*m)[i].Event == event {
			(*m)[i].Transitions = append((*m)[i].Transitions, t)
			(*m)[i].Forbidden = false
			return
		}
	}
	*m = append(*m, Handler{Event: event, Transitions: Transitions{t}})
}

// Forbid declares event with no transition.
func (m *TransitionMap) Forbid(event string) {
	for i := range *m {
		if (*m)[i].Event == event {
			(*m)[i] = Handler{Event: event, Forbidden: true}
			return
		}
	}
	*m = append(*m, Handler{Event: event, Forbidden: true})
}

// Events returns declared event names in document order.
func (m TransitionMap) Events() []string {
	events := make([]string, 0, len(m))
	for _, h := range m {
		events = append(events, h.Event)
	}
	return events
}

func (m *TransitionMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: on must be a mapping", value.Line)
	}
	out := make(TransitionMap, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
			out = append(out, Handler{Event: key.Value, Forbidden: true})
			continue
		}
		var ts Transitions
		if err := val.Decode(&ts); err != nil {
			return fmt.Errorf("event %q: %w", key.Value, err)
		}
		out = append(out, Handler{Event: key.Value, Transitions: ts})
	}
	*m = out
	return nil
}

// DelayedTransition is a candidate taken once its state has been active for Delay
// (or the delay registered under DelayRef).
type DelayedTransition struct {
	Delay            time.Duration `json:"delay,omitempty" yaml:"-"`
	DelayRef         string        `json:"delayRef,omitempty" yaml:"-"`
	TransitionConfig `yaml:",inline"`
}

// Label renders the delay as it appears in the synthetic event name.
func (d DelayedTransition) Label() string {
	if d.DelayRef != "" {
		return d.DelayRef
	}
	return FormatDelay(d.Delay)
}

// AfterList is an ordered list of delayed transitions. In documents it is either a
// mapping from delay to transitions or a list of mappings with a `delay` key.
type AfterList []DelayedTransition

func (l *AfterList) UnmarshalYAML(value *yaml.Node) error {
	var out AfterList
	switch value.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			delay, ref, err := parseDelay(key)
			if err != nil {
				return err
			}
			var ts Transitions
			if err := val.Decode(&ts); err != nil {
				return fmt.Errorf("after %q: %w", key.Value, err)
			}
			for _, tc := range ts {
				out = append(out, DelayedTransition{Delay: delay, DelayRef: ref, TransitionConfig: tc})
			}
		}
	case yaml.SequenceNode:
		for _, item := range value.Content {
			var aux struct {
				Delay            yaml.Node `yaml:"delay"`
				TransitionConfig `yaml:",inline"`
			}
			if err := item.Decode(&aux); err != nil {
				return err
			}
			delay, ref, err := parseDelay(&aux.Delay)
			if err != nil {
				return err
			}
			out = append(out, DelayedTransition{Delay: delay, DelayRef: ref, TransitionConfig: aux.TransitionConfig})
		}
	default:
		return fmt.Errorf("line %d: after must be a mapping or a list", value.Line)
	}
	*l = out
	return nil
}
