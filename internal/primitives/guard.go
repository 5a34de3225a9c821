package primitives

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StateMatcher is the view of the interim state offered to guards.
type StateMatcher interface {
	Matches(value string) bool
}

// GuardMeta is passed to guard implementations.
type GuardMeta struct {
	Guard Guard
	// State reflects the configuration as of the candidates already selected in the
	// current selection pass.
	State StateMatcher
}

// GuardFunc evaluates a transition condition. A returned error aborts the step.
type GuardFunc func(ctx context.Context, ext any, e Event, meta GuardMeta) (bool, error)

// Guard references a condition by registry name, or carries it inline.
type Guard struct {
	Name   string         `json:"name,omitempty" yaml:"name,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Fn     GuardFunc      `json:"-" yaml:"-"`
}

// Cond references a guard registered under name.
func Cond(name string) *Guard {
	return &Guard{Name: name}
}

// CondFunc creates an inline guard.
func CondFunc(fn GuardFunc) *Guard {
	return &Guard{Fn: fn}
}

func (g *Guard) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*g = Guard{Name: value.Value}
		return nil
	}
	var aux struct {
		Name   string         `yaml:"name"`
		Type   string         `yaml:"type"`
		Params map[string]any `yaml:"params"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	name := aux.Name
	if name == "" {
		name = aux.Type
	}
	if name == "" {
		return fmt.Errorf("line %d: guard name is required", value.Line)
	}
	*g = Guard{Name: name, Params: aux.Params}
	return nil
}

func (g *Guard) String() string {
	if g == nil {
		return ""
	}
	if g.Name != "" {
		return g.Name
	}
	return "<inline>"
}
