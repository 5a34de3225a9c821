package primitives

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Builtin action types. The resolver interprets these; every other type is an
// application action executed by the caller.
const (
	ActionAssign = "xchart.assign"
	ActionSend   = "xchart.send"
	ActionCancel = "xchart.cancel"
	ActionLog    = "xchart.log"
	ActionStart  = "xchart.start"
	ActionStop   = "xchart.stop"
)

// ParentTarget addresses the parent of an invoked machine in a send action.
const ParentTarget = "#_parent"

// ActivityInvoke is the activity type used for invoked child machines.
const ActivityInvoke = "xchart.invoke"

// ActionFunc executes an application action. ext is the extended state (context) value
// at the position of the action in the macrostep.
type ActionFunc func(ctx context.Context, ext any, e Event, meta ActionMeta) error

// ActionMeta describes the descriptor being executed.
type ActionMeta struct {
	Action Action
}

// AssignFunc reduces the whole extended state.
type AssignFunc func(ext any, e Event) any

// PropAssigner computes one property of a map-shaped extended state.
type PropAssigner func(ext any, e Event) any

// EventExpr computes the event of a send action.
type EventExpr func(ext any, e Event) Event

// DelayFunc computes a delay at the time the owning action is resolved.
type DelayFunc func(ext any, e Event) time.Duration

// LogExpr computes the value written by a log action.
type LogExpr func(ext any, e Event) any

// Action is a side-effect descriptor. Exactly which fields are meaningful depends on Type.
type Action struct {
	Type   string         `json:"type" yaml:"type"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Exec   ActionFunc     `json:"-" yaml:"-"`

	// assign
	Assign      AssignFunc     `json:"-" yaml:"-"`
	Assignments map[string]any `json:"-" yaml:"-"`

	// send and cancel
	Event     *Event        `json:"event,omitempty" yaml:"event,omitempty"`
	EventExpr EventExpr     `json:"-" yaml:"-"`
	To        string        `json:"to,omitempty" yaml:"to,omitempty"`
	ID        string        `json:"id,omitempty" yaml:"id,omitempty"`
	Delay     time.Duration `json:"delay,omitempty" yaml:"-"`
	DelayRef  string        `json:"delayRef,omitempty" yaml:"-"`
	DelayExpr DelayFunc     `json:"-" yaml:"-"`

	// log
	Label string  `json:"label,omitempty" yaml:"label,omitempty"`
	Expr  LogExpr `json:"-" yaml:"-"`
	Value any     `json:"value,omitempty" yaml:"-"`

	// start and stop
	Activity *Activity `json:"activity,omitempty" yaml:"-"`
}

// Activity describes a long-lived effect bound to the lifetime of a state.
type Activity struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Src     string         `json:"src,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Forward bool           `json:"forward,omitempty"`
}

// IsBuiltin reports whether the action is interpreted by the engine itself.
func (a Action) IsBuiltin() bool {
	switch a.Type {
	case ActionAssign, ActionSend, ActionCancel, ActionLog, ActionStart, ActionStop:
		return true
	}
	return false
}

// Bound reports whether the descriptor carries an implementation.
func (a Action) Bound() bool {
	return a.Exec != nil
}

func (a Action) String() string {
	switch a.Type {
	case ActionSend:
		if a.Event != nil {
			return fmt.Sprintf("%s(%s)", a.Type, a.Event.Type)
		}
	case ActionCancel:
		return fmt.Sprintf("%s(%s)", a.Type, a.ID)
	case ActionStart, ActionStop:
		if a.Activity != nil {
			return fmt.Sprintf("%s(%s)", a.Type, a.Activity.ID)
		}
	}
	return a.Type
}

// UnmarshalYAML accepts a bare action name or a mapping. Builtin send actions may
// carry a delay in milliseconds, a duration string or the name of a registered delay.
func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*a = Action{Type: value.Value}
		return nil
	}
	var aux struct {
		Type        string         `yaml:"type"`
		Params      map[string]any `yaml:"params"`
		Assignments map[string]any `yaml:"assign"`
		Event       *Event         `yaml:"event"`
		To          string         `yaml:"to"`
		ID          string         `yaml:"id"`
		Delay       yaml.Node      `yaml:"delay"`
		Label       string         `yaml:"label"`
		Activity    string         `yaml:"activity"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.Type == "" {
		return fmt.Errorf("line %d: action type is required", value.Line)
	}
	delay, ref, err := parseDelay(&aux.Delay)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*a = Action{
		Type:     aux.Type,
		Params:   aux.Params,
		Event:    aux.Event,
		To:       aux.To,
		ID:       aux.ID,
		Delay:    delay,
		DelayRef: ref,
		Label:    aux.Label,
	}
	if aux.Type == ActionAssign {
		a.Assignments = aux.Assignments
	}
	if aux.Activity != "" {
		a.Activity = &Activity{Type: aux.Activity, ID: aux.Activity}
	}
	if a.Type == ActionSend && a.Event != nil && a.ID == "" {
		a.ID = a.Event.Type
	}
	return nil
}

// Actions is an ordered action list. In documents it may be written as a single name.
type Actions []Action

func (l *Actions) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = Actions{{Type: value.Value}}
		return nil
	case yaml.MappingNode:
		var a Action
		if err := value.Decode(&a); err != nil {
			return err
		}
		*l = Actions{a}
		return nil
	}
	var list []Action
	if err := value.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Named references an action implementation by name.
func Named(name string) Action {
	return Action{Type: name}
}

// Exec creates an inline action.
func Exec(name string, fn ActionFunc) Action {
	return Action{Type: name, Exec: fn}
}

// Assign creates an action that replaces the extended state with fn(ext, event).
func Assign(fn AssignFunc) Action {
	return Action{Type: ActionAssign, Assign: fn}
}

// AssignProps creates an action that updates properties of a map-shaped extended state.
// Values are constants or PropAssigner functions.
func AssignProps(props map[string]any) Action {
	return Action{Type: ActionAssign, Assignments: props}
}

// SendOption configures a send action.
type SendOption func(*Action)

// WithDelay schedules the send after a literal duration.
func WithDelay(d time.Duration) SendOption {
	return func(a *Action) { a.Delay = d }
}

// WithDelayRef schedules the send after a delay registered under name.
func WithDelayRef(name string) SendOption {
	return func(a *Action) { a.DelayRef = name }
}

// WithDelayExpr schedules the send after a delay computed at resolution time.
func WithDelayExpr(fn DelayFunc) SendOption {
	return func(a *Action) { a.DelayExpr = fn }
}

// WithSendID sets the identifier used to cancel the send.
func WithSendID(id string) SendOption {
	return func(a *Action) { a.ID = id }
}

// WithTarget addresses the send to an invoked child (by invocation id) or ParentTarget.
func WithTarget(to string) SendOption {
	return func(a *Action) { a.To = to }
}

// Send creates an action that raises e on the running instance.
func Send(e Event, opts ...SendOption) Action {
	a := Action{Type: ActionSend, Event: &e, ID: e.Type}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// SendExpr creates a send action whose event is computed from the extended state.
func SendExpr(fn EventExpr, opts ...SendOption) Action {
	a := Action{Type: ActionSend, EventExpr: fn}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// SendParent creates a send action addressed to the invoking parent.
func SendParent(e Event, opts ...SendOption) Action {
	return Send(e, append([]SendOption{WithTarget(ParentTarget)}, opts...)...)
}

// Cancel creates an action that cancels a pending delayed send by id.
func Cancel(id string) Action {
	return Action{Type: ActionCancel, ID: id}
}

// Log creates an action that records expr(ext, event) under label.
func Log(label string, expr LogExpr) Action {
	return Action{Type: ActionLog, Label: label, Expr: expr}
}

// Start creates an activity start descriptor.
func Start(act Activity) Action {
	return Action{Type: ActionStart, Activity: &act}
}

// Stop creates an activity stop descriptor.
func Stop(act Activity) Action {
	return Action{Type: ActionStop, Activity: &act}
}
