// Package builder assembles state trees from nested constructor calls with functional
// options, as an alternative to the dotted-name Builder and to definition documents.
//
//	cfg := builder.Machine("light",
//		builder.New("green", builder.On("TIMER", "yellow")),
//		builder.New("yellow", builder.On("TIMER", "green")),
//	)
package builder

import (
	"github.com/comalice/xchart"
	"github.com/comalice/xchart/internal/primitives"
)

// Option configures a state.
type Option func(*xchart.StateConfig)

// TransOption configures a transition.
type TransOption func(*xchart.TransitionConfig)

// New creates a basic leaf state
func New(key string, opts ...Option) *xchart.StateConfig {
	s := primitives.NewStateConfig(key, "")
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Composite creates a compound state with children in order (first = initial).
func Composite(key string, children ...*xchart.StateConfig) *xchart.StateConfig {
	s := primitives.NewStateConfig(key, primitives.Compound)
	if len(children) > 0 {
		s.Initial = children[0].Key
	}
	s.WithChildren(children...)
	return s
}

// Parallel creates a parallel state whose children are its regions.
func Parallel(key string, regions ...*xchart.StateConfig) *xchart.StateConfig {
	return primitives.NewStateConfig(key, primitives.Parallel).WithChildren(regions...)
}

// Final creates a final state.
func Final(key string, opts ...Option) *xchart.StateConfig {
	s := New(key, opts...)
	s.Type = primitives.Final
	return s
}

// Machine creates a definition whose compound root enters the first child.
func Machine(id string, children ...*xchart.StateConfig) *xchart.MachineConfig {
	cfg := primitives.NewMachineConfig(id, "")
	if len(children) > 0 {
		cfg.Initial = children[0].Key
	}
	cfg.WithChildren(children...)
	return cfg
}

// With applies options to an existing state, typically one built by Composite or
// Parallel.
func With(s *xchart.StateConfig, opts ...Option) *xchart.StateConfig {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnEntry appends entry actions.
func OnEntry(actions ...xchart.Action) Option {
	return func(s *xchart.StateConfig) { s.Entry = append(s.Entry, actions...) }
}

// OnExit appends exit actions.
func OnExit(actions ...xchart.Action) Option {
	return func(s *xchart.StateConfig) { s.Exit = append(s.Exit, actions...) }
}

// On adds an outbound transition. An empty target makes it targetless.
func On(event, target string, opts ...TransOption) Option {
	return func(s *xchart.StateConfig) {
		var t xchart.TransitionConfig
		if target != "" {
			t = primitives.Transition(target)
		}
		for _, opt := range opts {
			opt(&t)
		}
		s.AddTransition(event, t)
	}
}

func WithGuard(g *xchart.Guard) TransOption {
	return func(t *xchart.TransitionConfig) { *t = t.If(g) }
}

func WithAction(actions ...xchart.Action) TransOption {
	return func(t *xchart.TransitionConfig) { *t = t.Do(actions...) }
}
