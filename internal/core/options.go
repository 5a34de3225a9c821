// Options for configuring Machine instances.
package core

import "github.com/comalice/xchart/internal/primitives"

// Option applies configuration to Machine via functional options pattern.
type Option func(*Machine)

// WithImplementations overlays all registries at once.
func WithImplementations(impl Implementations) Option {
	return func(m *Machine) {
		m.impl = m.impl.merge(impl)
	}
}

// WithActions registers action implementations by name.
func WithActions(actions map[string]primitives.Action) Option {
	return WithImplementations(Implementations{Actions: actions})
}

// WithGuards registers guard implementations by name.
func WithGuards(guards map[string]primitives.GuardFunc) Option {
	return WithImplementations(Implementations{Guards: guards})
}

// WithActivities registers activity implementations by name.
func WithActivities(activities map[string]ActivityFunc) Option {
	return WithImplementations(Implementations{Activities: activities})
}

// WithDelays registers named delays.
func WithDelays(delays map[string]primitives.DelayFunc) Option {
	return WithImplementations(Implementations{Delays: delays})
}

// WithServices registers machines that states may invoke by name.
func WithServices(services map[string]*Machine) Option {
	return WithImplementations(Implementations{Services: services})
}

// WithContext overrides the initial extended state of the definition.
func WithContext(ext any) Option {
	return func(m *Machine) {
		m.context = ext
	}
}

// WithMaxMicrosteps bounds eventless transitions per macrostep.
func WithMaxMicrosteps(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxMicrosteps = n
		}
	}
}

// WithStrict rejects events the definition does not declare.
func WithStrict() Option {
	return func(m *Machine) {
		m.strict = true
	}
}

// TransitionOption configures a single Transition call.
type TransitionOption func(*transitionOptions)

type transitionOptions struct {
	context    any
	hasContext bool
}

// OverrideContext resolves the step against ext instead of the state's context.
func OverrideContext(ext any) TransitionOption {
	return func(o *transitionOptions) {
		o.context = ext
		o.hasContext = true
	}
}
