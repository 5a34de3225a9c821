package interpreter

import (
	"context"
	"errors"
	"fmt"

	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/internal/primitives"
)

// Execute carries out the actions of s in order. It is called after every
// macrostep unless the interpreter was created WithExecute(false). Actions left
// once the interpreter stops are dropped.
func (i *Interpreter) Execute(ctx context.Context, s *core.State) error {
	for _, a := range s.Actions {
		if i.Status() == Stopped {
			return nil
		}
		if err := i.exec(ctx, s, a); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) exec(ctx context.Context, s *core.State, a primitives.Action) error {
	switch a.Type {
	case primitives.ActionSend:
		return i.send(ctx, a)
	case primitives.ActionCancel:
		i.cancelTimer(a.ID)
	case primitives.ActionLog:
		label := a.Label
		if label == "" {
			label = "log"
		}
		i.logger.Info(label, "value", a.Value)
	case primitives.ActionStart:
		if a.Activity == nil {
			return fmt.Errorf("start action without activity")
		}
		return i.startActivity(ctx, s.Context, *a.Activity)
	case primitives.ActionStop:
		if a.Activity == nil {
			return fmt.Errorf("stop action without activity")
		}
		i.stopActivity(a.Activity.ID)
	case primitives.ActionAssign:
		// applied by the resolver
	default:
		return i.runner.Run(ctx, s.Context, s.Event, i.machine.BindAction(a))
	}
	return nil
}

func (i *Interpreter) send(ctx context.Context, a primitives.Action) error {
	if a.Event == nil {
		return fmt.Errorf("send action without event")
	}
	e := *a.Event
	if a.Delay <= 0 {
		return i.deliver(ctx, a.To, e)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != Running {
		return nil
	}
	if old, ok := i.timers[a.ID]; ok {
		old.Stop()
	}
	var t Timer
	t = i.clock.AfterFunc(a.Delay, func() {
		i.mu.Lock()
		if cur, ok := i.timers[a.ID]; !ok || cur != t {
			i.mu.Unlock()
			return
		}
		delete(i.timers, a.ID)
		ctx := i.ctx
		i.mu.Unlock()
		if err := i.deliver(ctx, a.To, e); err != nil && !errors.Is(err, core.ErrLifecycle) {
			i.logger.Error("delayed send", "event", e.Type, "err", err)
		}
	})
	i.timers[a.ID] = t
	return nil
}

func (i *Interpreter) deliver(ctx context.Context, to string, e primitives.Event) error {
	switch to {
	case "":
		return i.Send(ctx, e)
	case primitives.ParentTarget:
		if i.parent == nil {
			return fmt.Errorf("send %s: interpreter %s has no parent", e.Type, i.id)
		}
		return i.parent.Send(ctx, e)
	}
	c, ok := i.Child(to)
	if !ok {
		return fmt.Errorf("send %s: no child %q", e.Type, to)
	}
	return c.Send(ctx, e)
}

func (i *Interpreter) cancelTimer(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if t, ok := i.timers[id]; ok {
		t.Stop()
		delete(i.timers, id)
	}
}

// PendingSends returns the ids of delayed sends that have not fired or been canceled.
func (i *Interpreter) PendingSends() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, 0, len(i.timers))
	for id := range i.timers {
		out = append(out, id)
	}
	return out
}

func (i *Interpreter) running(id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, act := i.activities[id]
	_, ch := i.children[id]
	return act || ch
}

func (i *Interpreter) startActivity(ctx context.Context, ext any, act primitives.Activity) error {
	if act.Type == primitives.ActivityInvoke {
		return i.spawn(ctx, act)
	}
	fn, ok := i.machine.Implementations().Activities[act.Type]
	if !ok {
		i.logger.Debug("activity not implemented", "activity", act.Type)
		return nil
	}
	stop, err := fn(ctx, ext, act)
	if err != nil {
		return fmt.Errorf("start activity %s: %w", act.ID, err)
	}
	if stop == nil {
		stop = func() {}
	}
	i.mu.Lock()
	if i.status != Running {
		i.mu.Unlock()
		stop()
		return nil
	}
	prev := i.activities[act.ID]
	i.activities[act.ID] = stop
	i.mu.Unlock()
	if prev != nil {
		prev()
	}
	return nil
}

func (i *Interpreter) stopActivity(id string) {
	i.mu.Lock()
	stop := i.activities[id]
	delete(i.activities, id)
	c := i.children[id]
	delete(i.children, id)
	i.mu.Unlock()
	if stop != nil {
		stop()
	}
	if c != nil {
		_ = c.Stop()
	}
}

// spawn starts the child interpreter of an invocation.
func (i *Interpreter) spawn(ctx context.Context, act primitives.Activity) error {
	svc, ok := i.machine.Implementations().Services[act.Src]
	if !ok {
		return core.NewLifecycleError(core.CodeUnknownService, i.id, "",
			fmt.Sprintf("invoke %s: service %q is not registered", act.ID, act.Src))
	}
	if act.Data != nil {
		var e primitives.Event
		if s := i.State(); s != nil {
			e = s.Event
		}
		ext, err := primitives.ApplyProps(svc.Context(), e, act.Data)
		if err != nil {
			return fmt.Errorf("invoke %s: %w", act.ID, err)
		}
		svc = svc.WithContext(ext)
	}

	c := New(svc,
		WithID(act.ID),
		WithLogger(i.logger.WithPrefix(act.ID)),
		WithClock(i.clock),
		WithTracerProvider(i.tracerProvider),
		WithActionRunner(i.runner),
		withParent(i, act.ID),
	)
	i.mu.Lock()
	if i.status != Running {
		i.mu.Unlock()
		return nil
	}
	i.children[act.ID] = &child{Interpreter: c, forward: act.Forward}
	i.mu.Unlock()

	if err := c.Start(ctx); err != nil {
		i.mu.Lock()
		delete(i.children, act.ID)
		i.mu.Unlock()
		return fmt.Errorf("invoke %s: %w", act.ID, err)
	}
	return nil
}

// resumeActivities starts the activities of a restored state that are marked
// active and not already running.
func (i *Interpreter) resumeActivities(ctx context.Context, s *core.State) error {
	for _, id := range s.Configuration() {
		n, ok := i.machine.StateNode("#" + id)
		if !ok {
			continue
		}
		for _, act := range n.Activities {
			if !s.Activities[act.ID] || i.running(act.ID) {
				continue
			}
			if err := i.startActivity(ctx, s.Context, act); err != nil {
				return err
			}
		}
	}
	return nil
}
