// Package interpreter runs a core.Machine over time: it owns the live State,
// processes events one macrostep at a time and carries out the actions each
// macrostep produces (delayed sends, activities, invoked child machines).
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/internal/extensibility"
	"github.com/comalice/xchart/internal/primitives"
	"github.com/comalice/xchart/internal/production"
)

// Status is the lifecycle stage of an interpreter.
type Status int

const (
	NotStarted Status = iota
	Running
	Stopped
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Listener observes states produced by the interpreter.
type Listener func(state *core.State)

type child struct {
	*Interpreter
	forward bool
}

// Interpreter is a live instance of a machine. Events are processed run-to-completion
// in FIFO order; an event sent while a macrostep is in progress is queued and handled
// by the goroutine already processing.
type Interpreter struct {
	machine        *core.Machine
	id             string
	session        string
	logger         *log.Logger
	clock          Clock
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	runner         extensibility.ActionRunner
	publisher      production.Publisher
	sources        []extensibility.EventSource
	execute        bool

	parent   *Interpreter
	invokeID string

	mu           sync.Mutex
	status       Status
	state        *core.State
	queue        []primitives.Event
	processing   bool
	ctx          context.Context
	cancel       context.CancelFunc
	timers       map[string]Timer
	activities   map[string]func()
	children     map[string]*child
	onTransition []Listener
	onDone       []Listener
	onStop       []func()
}

// New creates an interpreter for m. It does nothing until Start.
func New(m *core.Machine, opts ...Option) *Interpreter {
	i := &Interpreter{
		machine:        m,
		id:             m.ID(),
		session:        uuid.NewString(),
		clock:          RealClock{},
		tracerProvider: noop.NewTracerProvider(),
		runner:         &extensibility.DefaultActionRunner{},
		execute:        true,
		timers:         make(map[string]Timer),
		activities:     make(map[string]func()),
		children:       make(map[string]*child),
	}

	// Apply functional options
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: i.id, Level: log.InfoLevel})
	}
	i.tracer = i.tracerProvider.Tracer(tracerName)
	return i
}

// ID returns the interpreter id: the machine id, the invocation id of a child, or
// the value given with WithID.
func (i *Interpreter) ID() string { return i.id }

// SessionID identifies this instance across its lifetime.
func (i *Interpreter) SessionID() string { return i.session }

// Machine returns the machine being interpreted.
func (i *Interpreter) Machine() *core.Machine { return i.machine }

// Status returns the lifecycle stage.
func (i *Interpreter) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// State returns the current state, or nil before Start.
func (i *Interpreter) State() *core.State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Child returns the running invocation with the given id.
func (i *Interpreter) Child(id string) (*Interpreter, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	c, ok := i.children[id]
	if !ok {
		return nil, false
	}
	return c.Interpreter, true
}

// OnTransition registers a listener called after every macrostep, including the
// initial one.
func (i *Interpreter) OnTransition(l Listener) *Interpreter {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onTransition = append(i.onTransition, l)
	return i
}

// OnDone registers a listener called once when the machine reaches a top-level final state.
func (i *Interpreter) OnDone(l Listener) *Interpreter {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onDone = append(i.onDone, l)
	return i
}

// OnStop registers a function called when the interpreter stops.
func (i *Interpreter) OnStop(fn func()) *Interpreter {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onStop = append(i.onStop, fn)
	return i
}

// Start enters the initial state, or resumes from a restored state. Starting a
// running interpreter does nothing; a stopped interpreter cannot be restarted.
func (i *Interpreter) Start(ctx context.Context, from ...*core.State) error {
	i.mu.Lock()
	switch i.status {
	case Running:
		i.mu.Unlock()
		return nil
	case Stopped:
		i.mu.Unlock()
		return core.NewLifecycleError(core.CodeStopped, i.id, "", "interpreter cannot be restarted")
	}
	i.status = Running
	i.processing = true
	i.ctx, i.cancel = context.WithCancel(context.WithoutCancel(ctx))
	i.mu.Unlock()

	restored := len(from) > 0 && from[0] != nil
	err := i.start(ctx, from, restored)
	if err != nil {
		i.mu.Lock()
		if i.status == Running {
			i.status = NotStarted
		}
		i.processing = false
		i.queue = nil
		cancel := i.cancel
		i.mu.Unlock()
		cancel()
		return err
	}

	i.mu.Lock()
	sources := slices.Clone(i.sources)
	ctxSources := i.ctx
	i.mu.Unlock()
	for _, src := range sources {
		go i.pump(ctxSources, src)
	}
	i.logger.Debug("started", "session", i.session, "restored", restored)
	return i.drain(ctx)
}

func (i *Interpreter) start(ctx context.Context, from []*core.State, restored bool) (err error) {
	ctx, span := i.startSpan(ctx, primitives.Event{Type: primitives.InitEvent})
	var s *core.State
	defer func() { endSpan(span, s, err) }()

	if restored {
		s, err = i.machine.ResolveState(from[0])
	} else {
		s, err = i.machine.InitialState(ctx)
	}
	if err != nil {
		return err
	}
	return i.update(ctx, s, restored)
}

// Send queues an event and, unless another goroutine is already processing, drains
// the queue. event is a name, a primitives.Event or a *primitives.Event.
func (i *Interpreter) Send(ctx context.Context, event any) error {
	e, err := core.ToEvent(event)
	if err != nil {
		return err
	}
	i.mu.Lock()
	switch i.status {
	case NotStarted:
		i.mu.Unlock()
		return core.NewLifecycleError(core.CodeNotStarted, i.id, e.Type, "event sent before start")
	case Stopped:
		i.mu.Unlock()
		return core.NewLifecycleError(core.CodeStopped, i.id, e.Type, "event sent after stop")
	}
	i.queue = append(i.queue, e)
	if i.processing {
		i.mu.Unlock()
		return nil
	}
	i.processing = true
	i.mu.Unlock()
	return i.drain(ctx)
}

// NextState returns the state the current state would move to on event, without
// changing the interpreter or executing anything.
func (i *Interpreter) NextState(ctx context.Context, event any) (*core.State, error) {
	return i.machine.Transition(ctx, i.State(), event)
}

// drain processes queued events until the queue is empty or the interpreter stops.
// The caller must have set processing.
func (i *Interpreter) drain(ctx context.Context) error {
	for {
		i.mu.Lock()
		if i.status != Running || len(i.queue) == 0 {
			i.processing = false
			i.mu.Unlock()
			return nil
		}
		e := i.queue[0]
		i.queue = i.queue[1:]
		i.mu.Unlock()

		if err := i.process(ctx, e); err != nil {
			i.mu.Lock()
			i.queue = nil
			i.processing = false
			i.mu.Unlock()
			i.logger.Error("macrostep failed", "event", e.Type, "err", err)
			return err
		}
	}
}

func (i *Interpreter) process(ctx context.Context, e primitives.Event) (err error) {
	ctx, span := i.startSpan(ctx, e)
	var next *core.State
	defer func() { endSpan(span, next, err) }()

	i.forward(ctx, e)
	next, err = i.machine.Transition(ctx, i.State(), e)
	if err != nil {
		return err
	}
	return i.update(ctx, next, false)
}

// update installs s as the current state, executes its actions and notifies
// listeners.
func (i *Interpreter) update(ctx context.Context, s *core.State, restored bool) error {
	i.mu.Lock()
	prev := i.state
	i.state = s
	i.mu.Unlock()

	i.logger.Debug("macrostep",
		"event", s.Event.Type,
		"value", s.String(),
		"changed", s.IsChanged(),
		"actions", len(s.Actions))

	if i.execute {
		if err := i.Execute(ctx, s); err != nil {
			return err
		}
		if restored {
			if err := i.resumeActivities(ctx, s); err != nil {
				return err
			}
		}
	}
	i.publish(ctx, prev, s)

	i.mu.Lock()
	listeners := slices.Clone(i.onTransition)
	i.mu.Unlock()
	for _, l := range listeners {
		l(s)
	}

	if s.Done() {
		i.complete(ctx, s)
	}
	return nil
}

func (i *Interpreter) publish(ctx context.Context, prev, s *core.State) {
	if i.publisher == nil {
		return
	}
	from := ""
	if prev != nil {
		from = prev.String()
	}
	err := i.publisher.Publish(ctx, production.PublishedEvent{
		Event: s.Event,
		State: s,
		Metadata: production.Metadata{
			MachineID:  i.machine.ID(),
			SessionID:  i.session,
			Transition: from + " -> " + s.String(),
			Changed:    s.IsChanged(),
			Timestamp:  i.clock.Now(),
		},
	})
	if err != nil {
		i.logger.Warn("publish failed", "event", s.Event.Type, "err", err)
	}
}

// complete notifies done listeners and the parent, then stops.
func (i *Interpreter) complete(ctx context.Context, s *core.State) {
	i.mu.Lock()
	listeners := slices.Clone(i.onDone)
	i.mu.Unlock()
	for _, l := range listeners {
		l(s)
	}
	if i.parent != nil {
		done := primitives.NewEvent(primitives.DoneInvokeEvent(i.invokeID), s.Context)
		if err := i.parent.Send(ctx, done); err != nil && !errors.Is(err, core.ErrLifecycle) {
			i.logger.Error("notify parent", "event", done.Type, "err", err)
		}
	}
	i.logger.Debug("done", "value", s.String())
	_ = i.Stop()
}

// Stop cancels pending delayed sends, stops activities and child interpreters and
// discards queued events. It is safe to call more than once.
func (i *Interpreter) Stop() error {
	i.mu.Lock()
	if i.status == Stopped {
		i.mu.Unlock()
		return nil
	}
	wasRunning := i.status == Running
	i.status = Stopped
	i.queue = nil
	timers := i.timers
	activities := i.activities
	children := i.children
	i.timers = make(map[string]Timer)
	i.activities = make(map[string]func())
	i.children = make(map[string]*child)
	cancel := i.cancel
	stopFns := slices.Clone(i.onStop)
	i.mu.Unlock()

	if !wasRunning {
		return nil
	}
	for _, t := range timers {
		t.Stop()
	}
	for _, id := range slices.Sorted(maps.Keys(activities)) {
		activities[id]()
	}
	for _, id := range slices.Sorted(maps.Keys(children)) {
		_ = children[id].Stop()
	}
	if cancel != nil {
		cancel()
	}
	for _, fn := range stopFns {
		fn()
	}
	i.logger.Debug("stopped", "session", i.session)
	return nil
}

// forward passes e on to children invoked with forward set.
func (i *Interpreter) forward(ctx context.Context, e primitives.Event) {
	if strings.HasPrefix(e.Type, primitives.AfterEventPrefix) {
		return
	}
	i.mu.Lock()
	var targets []*Interpreter
	for _, id := range slices.Sorted(maps.Keys(i.children)) {
		if c := i.children[id]; c.forward {
			targets = append(targets, c.Interpreter)
		}
	}
	i.mu.Unlock()
	for _, t := range targets {
		if err := t.Send(ctx, e); err != nil && !errors.Is(err, core.ErrLifecycle) {
			i.logger.Warn("forward failed", "child", t.id, "event", e.Type, "err", err)
		}
	}
}

func (i *Interpreter) pump(ctx context.Context, src extensibility.EventSource) {
	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := i.Send(ctx, e); err != nil {
				if errors.Is(err, core.ErrLifecycle) {
					return
				}
				i.logger.Error("event source", "event", e.Type, "err", err)
			}
		}
	}
}
