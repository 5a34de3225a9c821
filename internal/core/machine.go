// Package core compiles statechart definitions and resolves transitions.
//
// A Machine is immutable. Transition is a pure function of (state, event, registries):
// it never executes actions, never reads a clock and never logs. It returns the next
// State with the ordered action descriptors an executor must carry out.
package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/comalice/xchart/internal/primitives"
)

// DefaultMaxMicrosteps bounds the eventless transitions taken in one macrostep.
const DefaultMaxMicrosteps = 1000

// ActivityFunc starts an activity and returns the function that stops it.
type ActivityFunc func(ctx context.Context, ext any, act primitives.Activity) (stop func(), err error)

// Implementations are the registries names in a definition are bound against.
type Implementations struct {
	// Actions maps names to descriptors. A registered assign or send is resolved in
	// place of the name; any other descriptor contributes its Exec.
	Actions    map[string]primitives.Action
	Guards     map[string]primitives.GuardFunc
	Activities map[string]ActivityFunc
	Delays     map[string]primitives.DelayFunc
	Services   map[string]*Machine
}

// merge returns i overlaid with o. Neither input is modified.
func (i Implementations) merge(o Implementations) Implementations {
	return Implementations{
		Actions:    overlay(i.Actions, o.Actions),
		Guards:     overlay(i.Guards, o.Guards),
		Activities: overlay(i.Activities, o.Activities),
		Delays:     overlay(i.Delays, o.Delays),
		Services:   overlay(i.Services, o.Services),
	}
}

func overlay[V any](base, over map[string]V) map[string]V {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]V, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

// FixedDelay is a DelayFunc that always returns d.
func FixedDelay(d time.Duration) primitives.DelayFunc {
	return func(any, primitives.Event) time.Duration { return d }
}

// Machine is a compiled statechart definition bound to its registries.
type Machine struct {
	config        *primitives.MachineConfig
	tree          *tree
	impl          Implementations
	context       any
	maxMicrosteps int
	strict        bool
	declared      map[string]struct{}
}

// NewMachine compiles cfg. Definition errors are returned as *StructuralError.
func NewMachine(cfg *primitives.MachineConfig, opts ...Option) (*Machine, error) {
	if cfg == nil {
		return nil, newStructuralError(CodeInvalidDefinition, "", "machine config is nil")
	}
	t, err := compile(cfg)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		config:        cfg,
		tree:          t,
		context:       cfg.Context,
		maxMicrosteps: DefaultMaxMicrosteps,
		declared:      make(map[string]struct{}),
	}
	for _, n := range t.nodes {
		for _, h := range n.handlers {
			m.declared[h.event] = struct{}{}
		}
	}

	// Apply functional options
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ID returns the machine identifier.
func (m *Machine) ID() string { return m.tree.machineID }

// Config returns the definition the machine was compiled from.
func (m *Machine) Config() *primitives.MachineConfig { return m.config }

// Context returns the initial extended state.
func (m *Machine) Context() any { return m.context }

// Implementations returns the bound registries.
func (m *Machine) Implementations() Implementations { return m.impl }

// Delimiter returns the path separator of state values.
func (m *Machine) Delimiter() string { return m.tree.delimiter }

// WithOptions derives a machine with overlaid registries and, optionally, a new
// initial extended state. The receiver is left untouched.
func (m *Machine) WithOptions(impl Implementations, ext ...any) *Machine {
	cp := *m
	cp.impl = m.impl.merge(impl)
	if len(ext) > 0 {
		cp.context = ext[0]
	}
	return &cp
}

// WithContext derives a machine with a new initial extended state.
func (m *Machine) WithContext(ext any) *Machine {
	return m.WithOptions(Implementations{}, ext)
}

// Events returns every event name the definition declares, excluding eventless and
// synthetic delayed events.
func (m *Machine) Events() []string {
	out := make([]string, 0, len(m.declared))
	for ev := range m.declared {
		if ev == primitives.NullEvent || strings.HasPrefix(ev, primitives.AfterEventPrefix) {
			continue
		}
		out = append(out, ev)
	}
	slices.Sort(out)
	return out
}

func (m *Machine) accepts(event string) bool {
	if _, ok := m.declared[event]; ok {
		return true
	}
	return strings.HasPrefix(event, primitives.DoneInvokePrefix)
}

// StateNode looks a node up by "#id" or by dotted path from the root.
func (m *Machine) StateNode(ref string) (*Node, bool) {
	var id NodeID
	var ok bool
	if strings.HasPrefix(ref, "#") {
		id, ok = m.tree.resolveID(ref[1:])
	} else {
		id, ok = m.tree.descend(root, strings.Split(ref, m.tree.delimiter))
	}
	if !ok {
		return nil, false
	}
	return m.tree.nodes[id], true
}

// Validate reports every reference that would fail at resolution time: unresolved
// targets and in-state predicates, invalid multi-target transitions, and names with
// no implementation among guards, delays and services.
func (m *Machine) Validate() error {
	var errs []error
	t := m.tree
	for _, c := range t.candidates {
		src := t.nodes[c.Source].StateID
		if _, err := t.effectiveTargets(c); err != nil {
			errs = append(errs, err)
		}
		if c.In != "" && c.InNode == NoNode {
			errs = append(errs, newStructuralError(CodeUnresolvedIn, src, "event %q: cannot resolve in-state %q", c.Event, c.In))
		}
		if c.Cond != nil && c.Cond.Fn == nil {
			if _, ok := m.impl.Guards[c.Cond.Name]; !ok {
				errs = append(errs, newStructuralError(CodeUnknownGuard, src, "event %q: guard %q is not implemented", c.Event, c.Cond.Name))
			}
		}
	}
	for _, n := range t.nodes {
		for _, d := range n.After {
			if d.DelayRef == "" {
				continue
			}
			if _, ok := m.impl.Delays[d.DelayRef]; !ok {
				errs = append(errs, newStructuralError(CodeUnknownDelay, n.StateID, "delay %q is not implemented", d.DelayRef))
			}
		}
		for _, act := range n.Activities {
			if act.Type != primitives.ActivityInvoke {
				continue
			}
			if _, ok := m.impl.Services[act.Src]; !ok {
				errs = append(errs, newStructuralError(CodeUnknownService, n.StateID, "service %q is not registered", act.Src))
			}
		}
	}
	return errors.Join(errs...)
}

// ToEvent normalizes an event given as a name, an Event or a *Event.
func ToEvent(event any) (primitives.Event, error) {
	missing := func(msg string) error {
		return &InvalidInputError{Code: CodeMissingEvent, Message: msg}
	}
	var e primitives.Event
	switch v := event.(type) {
	case nil:
		return e, missing("event is required")
	case string:
		e = primitives.Event{Type: v}
	case primitives.Event:
		e = v
	case *primitives.Event:
		if v == nil {
			return e, missing("event is required")
		}
		e = *v
	default:
		return e, missing(fmt.Sprintf("unsupported event type %T", event))
	}
	if e.Type == "" {
		return e, missing("event type is required")
	}
	return e, nil
}

// InitialState resolves the default configuration: entry actions root to leaf, then
// eventless transitions to quiescence.
func (m *Machine) InitialState(ctx context.Context) (*State, error) {
	s := m.newMacrostep(ctx, nil, nil, m.context, primitives.Event{Type: primitives.InitEvent})
	b := newEntryBuilder(m.tree, historySource{t: m.tree})
	b.addDescendants(root)
	s.cur = newConfiguration(b.set)
	s.input = s.cur
	if err := s.enter(b.sorted()); err != nil {
		return nil, err
	}
	if err := s.run(primitives.NullEvent); err != nil {
		return nil, err
	}
	return s.snapshot(nil), nil
}

// ResolveState binds a state or state value to this machine, repairing the
// configuration. Values naming nonexistent states return *InvalidInputError.
func (m *Machine) ResolveState(from any) (*State, error) {
	switch v := from.(type) {
	case *State:
		if v == nil {
			return nil, &InvalidInputError{Code: CodeInvalidValue, Message: "state is nil"}
		}
		return m.bind(v)
	case State:
		return m.bind(&v)
	}
	cfg, err := m.tree.resolveValue(from)
	if err != nil {
		return nil, err
	}
	return m.stateFor(cfg, m.context), nil
}

func (m *Machine) bind(s *State) (*State, error) {
	if s.machine != nil && s.machine.tree == m.tree && s.config != nil {
		return s, nil
	}
	cfg, err := m.tree.resolveValue(s.Value)
	if err != nil {
		return nil, err
	}
	cp := *s
	cp.machine = m
	cp.config = cfg
	cp.Value = m.tree.value(cfg)
	cp.done = m.tree.isDone(cfg, root)
	return &cp, nil
}

func (m *Machine) stateFor(cfg Configuration, ext any) *State {
	activities := make(map[string]bool)
	for _, id := range cfg {
		for _, act := range m.tree.nodes[id].Activities {
			activities[act.ID] = true
		}
	}
	return &State{
		Value:      m.tree.value(cfg),
		Context:    ext,
		Activities: activities,
		Event:      primitives.Event{Type: primitives.InitEvent},
		machine:    m,
		config:     cfg,
		done:       m.tree.isDone(cfg, root),
	}
}

// Transition resolves one macrostep. from is a *State, a State, a state value
// (dotted string or nested map) or nil for the initial state; event is a name, an
// Event or a *Event.
func (m *Machine) Transition(ctx context.Context, from any, event any, opts ...TransitionOption) (*State, error) {
	e, err := ToEvent(event)
	if err != nil {
		return nil, err
	}
	if m.strict && !m.accepts(e.Type) {
		return nil, &InvalidInputError{Code: CodeUnknownEvent, Event: e.Type, Message: "event is not accepted by strict machine " + m.ID()}
	}
	var o transitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	if s, ok := from.(*State); ok && s == nil {
		from = nil
	}
	var state *State
	if from == nil {
		state, err = m.InitialState(ctx)
	} else {
		state, err = m.ResolveState(from)
	}
	if err != nil {
		return nil, err
	}
	ext := state.Context
	if o.hasContext {
		ext = o.context
	}
	var prior Configuration
	if state.History != nil {
		if h, err := m.bind(state.History); err == nil {
			prior = h.config
		}
	}

	s := m.newMacrostep(ctx, state.config, prior, ext, e)
	if err := s.run(e.Type); err != nil {
		return nil, err
	}
	return s.snapshot(state), nil
}

// BindAction attaches the registered implementation to a descriptor that has none,
// as happens for actions of a restored snapshot.
func (m *Machine) BindAction(a primitives.Action) primitives.Action {
	if a.Exec != nil || a.IsBuiltin() {
		return a
	}
	if reg, ok := m.impl.Actions[a.Type]; ok && !reg.IsBuiltin() {
		a.Exec = reg.Exec
		if a.Params == nil {
			a.Params = reg.Params
		}
	}
	return a
}
