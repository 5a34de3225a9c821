// Package primitives includes builder helpers for MachineConfig.
package primitives

import "time"

// MachineBuilder builds a hierarchical MachineConfig fluently.
type MachineBuilder struct {
	config *MachineConfig
	stack  []*StateConfig // For nesting Up()
}

// NewMachineBuilder creates a new MachineBuilder with a compound root.
func NewMachineBuilder(id, initial string) *MachineBuilder {
	cfg := NewMachineConfig(id, initial)
	return &MachineBuilder{
		config: cfg,
		stack:  []*StateConfig{cfg.Root()},
	}
}

// ParallelRoot makes the root a parallel state.
func (b *MachineBuilder) ParallelRoot() *MachineBuilder {
	b.config.Type = Parallel
	b.config.Initial = ""
	return b
}

// WithContext sets the initial extended state.
func (b *MachineBuilder) WithContext(ext any) *MachineBuilder {
	b.config.Context = ext
	return b
}

// Root returns a StateBuilder positioned on the root state.
func (b *MachineBuilder) Root() *StateBuilder {
	b.stack = b.stack[:1]
	return &StateBuilder{state: b.config.Root(), mb: b}
}

// Compound starts a compound child of the root.
func (b *MachineBuilder) Compound(key string) *StateBuilder {
	return b.Root().Compound(key)
}

// Parallel starts a parallel child of the root.
func (b *MachineBuilder) Parallel(key string) *StateBuilder {
	return b.Root().Parallel(key)
}

// Atomic starts an atomic child of the root.
func (b *MachineBuilder) Atomic(key string) *StateBuilder {
	return b.Root().Atomic(key)
}

// State sugar for Atomic.
func (b *MachineBuilder) State(key string) *StateBuilder {
	return b.Atomic(key)
}

// StateBuilder for fluent transitions/nesting.
type StateBuilder struct {
	state *StateConfig
	mb    *MachineBuilder
}

// Config returns the state being built.
func (sb *StateBuilder) Config() *StateConfig {
	return sb.state
}

// Transition adds transition.
func (sb *StateBuilder) Transition(event, target string, opts ...TransitionConfig) *StateBuilder {
	sb.state.Transition(event, target, opts...)
	return sb
}

// Forbid declares event with no transition.
func (sb *StateBuilder) Forbid(event string) *StateBuilder {
	sb.state.Forbid(event)
	return sb
}

// Always adds an eventless transition.
func (sb *StateBuilder) Always(target string, opts ...TransitionConfig) *StateBuilder {
	return sb.Transition(NullEvent, target, opts...)
}

// After adds a delayed transition.
func (sb *StateBuilder) After(delay time.Duration, target string) *StateBuilder {
	sb.state.AddAfter(delay, Transition(target))
	return sb
}

// Entry appends entry actions.
func (sb *StateBuilder) Entry(actions ...Action) *StateBuilder {
	sb.state.Entry = append(sb.state.Entry, actions...)
	return sb
}

// Exit appends exit actions.
func (sb *StateBuilder) Exit(actions ...Action) *StateBuilder {
	sb.state.Exit = append(sb.state.Exit, actions...)
	return sb
}

// Activity declares an activity.
func (sb *StateBuilder) Activity(name string) *StateBuilder {
	sb.state.AddActivity(name)
	return sb
}

// Invoke declares a child machine invocation.
func (sb *StateBuilder) Invoke(inv InvokeConfig) *StateBuilder {
	sb.state.AddInvoke(inv)
	return sb
}

// WithID sets the state identifier.
func (sb *StateBuilder) WithID(id string) *StateBuilder {
	sb.state.WithID(id)
	return sb
}

// Compound nests compound child.
func (sb *StateBuilder) Compound(key string) *StateBuilder {
	child := sb.parent().State(key, Compound)
	sb.mb.stack = append(sb.mb.stack, child)
	return &StateBuilder{state: child, mb: sb.mb}
}

// Parallel nests parallel child.
func (sb *StateBuilder) Parallel(key string) *StateBuilder {
	child := sb.parent().State(key, Parallel)
	sb.mb.stack = append(sb.mb.stack, child)
	return &StateBuilder{state: child, mb: sb.mb}
}

// Atomic/State nests atomic child.
func (sb *StateBuilder) Atomic(key string) *StateBuilder {
	child := sb.parent().State(key, Atomic)
	return &StateBuilder{state: child, mb: sb.mb}
}

// Final nests final child.
func (sb *StateBuilder) Final(key string) *StateBuilder {
	child := sb.parent().State(key, Final)
	return &StateBuilder{state: child, mb: sb.mb}
}

// History nests history child.
func (sb *StateBuilder) History(key string, shallow bool) *StateBuilder {
	typ := ShallowHistory
	if !shallow {
		typ = DeepHistory
	}
	child := sb.parent().State(key, typ)
	return &StateBuilder{state: child, mb: sb.mb}
}

// parent is the innermost open compound or parallel state.
func (sb *StateBuilder) parent() *StateConfig {
	return sb.mb.stack[len(sb.mb.stack)-1]
}

// Up pops stack to parent.
func (sb *StateBuilder) Up() *StateBuilder {
	if len(sb.mb.stack) > 1 {
		sb.mb.stack = sb.mb.stack[:len(sb.mb.stack)-1]
		parent := sb.mb.stack[len(sb.mb.stack)-1]
		return &StateBuilder{state: parent, mb: sb.mb}
	}
	return &StateBuilder{state: sb.mb.stack[0], mb: sb.mb}
}

// WithInitial sets initial for the innermost open compound state.
func (sb *StateBuilder) WithInitial(initial string) *StateBuilder {
	sb.parent().WithInitial(initial)
	return sb
}

// Build validates and returns the config.
func (b *MachineBuilder) Build() (*MachineConfig, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// MustBuild is Build that panics on an invalid document.
func (b *MachineBuilder) MustBuild() *MachineConfig {
	cfg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cfg
}
