// Package xchart is a hierarchical statechart engine with parallel regions, history,
// guards, delayed transitions and invoked child machines.
//
// A Machine is compiled from a definition document (YAML/JSON or the fluent Builder)
// and resolves transitions as a pure function of state and event:
//
//	m, err := xchart.Load(doc, xchart.WithGuards(guards))
//	next, err := m.Transition(ctx, "green", "TIMER")
//
// An Interpreter runs a machine over time, executing the actions each macrostep
// produces:
//
//	i := xchart.Interpret(m)
//	err := i.Start(ctx)
//	err = i.Send(ctx, "TIMER")
package xchart

import (
	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/internal/primitives"
	"github.com/comalice/xchart/interpreter"
)

type (
	Machine         = core.Machine
	State           = core.State
	StateValue      = core.StateValue
	Implementations = core.Implementations
	Option          = core.Option
	ActivityFunc    = core.ActivityFunc

	MachineConfig    = primitives.MachineConfig
	StateConfig      = primitives.StateConfig
	TransitionConfig = primitives.TransitionConfig
	InvokeConfig     = primitives.InvokeConfig
	Event            = primitives.Event
	Action           = primitives.Action
	ActionFunc       = primitives.ActionFunc
	ActionMeta       = primitives.ActionMeta
	Activity         = primitives.Activity
	Guard            = primitives.Guard
	GuardFunc        = primitives.GuardFunc
	GuardMeta        = primitives.GuardMeta
	DelayFunc        = primitives.DelayFunc
	MachineBuilder   = primitives.MachineBuilder

	Interpreter       = interpreter.Interpreter
	InterpreterOption = interpreter.Option

	StructuralError   = core.StructuralError
	InvalidInputError = core.InvalidInputError
	LifecycleError    = core.LifecycleError
)

var (
	ErrStructural   = core.ErrStructural
	ErrInvalidInput = core.ErrInvalidInput
	ErrLifecycle    = core.ErrLifecycle
)

// Machine options.
var (
	WithImplementations = core.WithImplementations
	WithActions         = core.WithActions
	WithGuards          = core.WithGuards
	WithActivities      = core.WithActivities
	WithDelays          = core.WithDelays
	WithServices        = core.WithServices
	WithContext         = core.WithContext
	WithMaxMicrosteps   = core.WithMaxMicrosteps
	WithStrict          = core.WithStrict
)

// Action and guard constructors.
var (
	Named       = primitives.Named
	Exec        = primitives.Exec
	Assign      = primitives.Assign
	AssignProps = primitives.AssignProps
	Send        = primitives.Send
	SendParent  = primitives.SendParent
	Cancel      = primitives.Cancel
	Log         = primitives.Log
	Cond        = primitives.Cond
	CondFunc    = primitives.CondFunc
)

// NewMachine compiles a definition.
func NewMachine(cfg *MachineConfig, opts ...Option) (*Machine, error) {
	return core.NewMachine(cfg, opts...)
}

// Load compiles a YAML or JSON definition document.
func Load(doc []byte, opts ...Option) (*Machine, error) {
	cfg, err := primitives.LoadYAML(doc)
	if err != nil {
		return nil, err
	}
	return core.NewMachine(cfg, opts...)
}

// LoadFile compiles the definition document at path.
func LoadFile(path string, opts ...Option) (*Machine, error) {
	cfg, err := primitives.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return core.NewMachine(cfg, opts...)
}

// MustLoad is Load that panics on error, for definitions embedded in programs.
func MustLoad(doc []byte, opts ...Option) *Machine {
	m, err := Load(doc, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMachineBuilder creates a builder that nests states by opening and closing
// scopes (Compound, Parallel, Up) rather than by dotted names.
func NewMachineBuilder(id, initial string) *MachineBuilder {
	return primitives.NewMachineBuilder(id, initial)
}

// Interpret creates an interpreter for m. Call Start to run it.
func Interpret(m *Machine, opts ...InterpreterOption) *Interpreter {
	return interpreter.New(m, opts...)
}

// RestoreState decodes a snapshot produced by State.MarshalJSON. The result is bound
// to a machine by Machine.ResolveState or by passing it to Transition or Start.
func RestoreState(data []byte) (*State, error) {
	return core.RestoreState(data)
}

// MatchesState reports whether child is within parent, using "." as delimiter.
func MatchesState(parent, child StateValue) bool {
	return core.MatchesState(parent, child, ".")
}

// NewEvent creates an event with a payload.
func NewEvent(eventType string, data any) Event {
	return primitives.NewEvent(eventType, data)
}
