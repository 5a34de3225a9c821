package xchart

import (
	"strings"
	"time"

	"github.com/comalice/xchart/internal/primitives"
)

// Builder provides a fluent API for constructing machines using dotted state names
// ("parent.child") instead of nested StateConfig values.
type Builder struct {
	config *primitives.MachineConfig
	states map[string]*primitives.StateConfig
}

// StateBuilder provides fluent methods for configuring individual states.
type StateBuilder struct {
	b     *Builder
	state *primitives.StateConfig
	name  string
}

// NewBuilder creates a builder for a machine whose root is a compound state entering
// initial. initial may be omitted to enter the first declared child.
func NewBuilder(id, initial string) *Builder {
	return &Builder{
		config: primitives.NewMachineConfig(id, lastSegment(initial)),
		states: make(map[string]*primitives.StateConfig),
	}
}

// Parallel makes the root a parallel state.
func (b *Builder) Parallel() *Builder {
	b.config.Type = primitives.Parallel
	b.config.Initial = ""
	return b
}

// Context sets the initial extended state.
func (b *Builder) Context(ext any) *Builder {
	b.config.Context = ext
	return b
}

// State creates or retrieves a state by dotted name. Parents that do not exist yet
// are created as compound states entering their first child.
func (b *Builder) State(name string) *StateBuilder {
	return &StateBuilder{b: b, state: b.lookup(name), name: name}
}

func (b *Builder) lookup(name string) *primitives.StateConfig {
	if s, ok := b.states[name]; ok {
		return s
	}
	parentPath, key := splitPath(name)
	parent := b.config.Root()
	if parentPath != "" {
		parent = b.lookup(parentPath)
	}
	s := parent.State(key)
	b.states[name] = s
	return s
}

// Config validates and returns the definition.
func (b *Builder) Config() (*MachineConfig, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// Build validates the definition and compiles it.
func (b *Builder) Build(opts ...Option) (*Machine, error) {
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	return NewMachine(cfg, opts...)
}

// ref turns a dotted name into an absolute target reference.
func (b *Builder) ref(name string) string {
	if name == "" || strings.HasPrefix(name, "#") {
		return name
	}
	return "#" + b.config.MachineID() + "." + name
}

// splitPath splits a hierarchical path into parent and name components.
// For example, "parent.child" returns ("parent", "child").
func splitPath(path string) (parent, name string) {
	idx := strings.LastIndex(path, ".")
	if idx == -1 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func lastSegment(path string) string {
	_, name := splitPath(path)
	return name
}

// Atomic marks this state as atomic.
func (sb *StateBuilder) Atomic() *StateBuilder {
	sb.state.Type = primitives.Atomic
	return sb
}

// Compound marks this state as compound, entering initial (a key or a dotted name).
func (sb *StateBuilder) Compound(initial string) *StateBuilder {
	sb.state.Type = primitives.Compound
	sb.state.Initial = lastSegment(initial)
	return sb
}

// Parallel marks this state as parallel. Its children are its regions.
func (sb *StateBuilder) Parallel() *StateBuilder {
	sb.state.Type = primitives.Parallel
	return sb
}

// Final marks this state as final.
func (sb *StateBuilder) Final() *StateBuilder {
	sb.state.Type = primitives.Final
	return sb
}

// History marks this state as a history pseudostate of its parent.
func (sb *StateBuilder) History(deep bool) *StateBuilder {
	sb.state.Type = primitives.ShallowHistory
	if deep {
		sb.state.Type = primitives.DeepHistory
	}
	return sb
}

// ID sets the identifier used by "#id" references and in Configuration.
func (sb *StateBuilder) ID(id string) *StateBuilder {
	sb.state.WithID(id)
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

// On adds a transition to target (a dotted name from the root, or "#id") when event
// occurs. guard may be nil.
func (sb *StateBuilder) On(event, target string, guard *Guard, actions ...Action) *StateBuilder {
	sb.state.AddTransition(event, sb.transition(target, guard, actions))
	return sb
}

// OnInternal adds a targetless transition: its actions run without exiting or
// entering any state.
func (sb *StateBuilder) OnInternal(event string, guard *Guard, actions ...Action) *StateBuilder {
	return sb.On(event, "", guard, actions...)
}

// Forbid declares event handled by this state with no transition, stopping it from
// reaching ancestors.
func (sb *StateBuilder) Forbid(event string) *StateBuilder {
	sb.state.Forbid(event)
	return sb
}

// Always adds an eventless transition.
func (sb *StateBuilder) Always(target string, guard *Guard, actions ...Action) *StateBuilder {
	return sb.On(primitives.NullEvent, target, guard, actions...)
}

// After adds a transition taken delay after the state is entered.
func (sb *StateBuilder) After(delay time.Duration, target string, actions ...Action) *StateBuilder {
	sb.state.AddAfter(delay, sb.transition(target, nil, actions))
	return sb
}

// AfterRef adds a delayed transition whose delay is looked up in the delay registry.
func (sb *StateBuilder) AfterRef(delay, target string, actions ...Action) *StateBuilder {
	sb.state.AddAfterRef(delay, sb.transition(target, nil, actions))
	return sb
}

// Activity declares an activity running while the state is active.
func (sb *StateBuilder) Activity(name string) *StateBuilder {
	sb.state.AddActivity(name)
	return sb
}

// Invoke declares a child machine invocation. A non-empty onDone is the dotted name
// of the state entered when the child completes.
func (sb *StateBuilder) Invoke(inv InvokeConfig, onDone string) *StateBuilder {
	if onDone != "" {
		inv.OnDone = primitives.Transitions{primitives.Transition(sb.b.ref(onDone))}
	}
	sb.state.AddInvoke(inv)
	return sb
}

func (sb *StateBuilder) transition(target string, guard *Guard, actions []Action) primitives.TransitionConfig {
	var tc primitives.TransitionConfig
	if target != "" {
		tc = primitives.Transition(sb.b.ref(target))
	}
	if guard != nil {
		tc = tc.If(guard)
	}
	if len(actions) > 0 {
		tc = tc.Do(actions...)
	}
	return tc
}
