package core

import (
	"context"
	"maps"
	"slices"

	"github.com/comalice/xchart/internal/primitives"
)

// macrostep carries the working state of one resolution: the configuration being
// advanced, the extended state as modified by assigns so far and the resolved
// actions. It is discarded once the resulting State is built.
type macrostep struct {
	m        *Machine
	ctx      context.Context
	event    primitives.Event
	ext      any
	assigned bool
	out      []primitives.Action

	input  Configuration
	prior  Configuration
	cur    Configuration
	exited []NodeID
	steps  int
}

func (m *Machine) newMacrostep(ctx context.Context, cur, prior Configuration, ext any, e primitives.Event) *macrostep {
	return &macrostep{
		m:     m,
		ctx:   ctx,
		event: e,
		ext:   ext,
		input: cur,
		prior: prior,
		cur:   cur,
	}
}

func (s *macrostep) history() historySource {
	return historySource{t: s.m.tree, configs: []Configuration{s.cur, s.input, s.prior}}
}

// run selects and applies candidates for eventName, then eventless candidates until
// none is enabled.
func (s *macrostep) run(eventName string) error {
	for {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		selected, err := s.selectTransitions(eventName)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			if eventName == primitives.NullEvent {
				return nil
			}
			eventName = primitives.NullEvent
			continue
		}
		s.steps++
		if s.steps > s.m.maxMicrosteps {
			return newStructuralError(CodeMicrostepLimit, s.m.tree.machineID,
				"no quiescence after %d microsteps", s.m.maxMicrosteps)
		}
		ms, err := s.m.tree.computeMicrostep(s.cur, selected, s.history())
		if err != nil {
			return err
		}
		if err := s.apply(ms); err != nil {
			return err
		}
		s.exited = append(s.exited, ms.exit...)
		s.cur = ms.next
		eventName = primitives.NullEvent
	}
}

// apply resolves the actions of a microstep: every exit block, then transition
// actions in selection order, then every entry block.
func (s *macrostep) apply(ms microstep) error {
	if err := s.leave(ms.exit); err != nil {
		return err
	}
	for _, c := range ms.transitions {
		for _, a := range c.Actions {
			if err := s.exec(a); err != nil {
				return err
			}
		}
	}
	return s.enter(ms.entry)
}

// leave emits, per node: exit actions, cancellation of its delayed sends, stop of its
// activities and invocations.
func (s *macrostep) leave(ids []NodeID) error {
	for _, id := range ids {
		n := s.m.tree.nodes[id]
		for _, a := range n.Exit {
			if err := s.exec(a); err != nil {
				return err
			}
		}
		for _, d := range n.After {
			if err := s.exec(primitives.Cancel(d.Event)); err != nil {
				return err
			}
		}
		for _, act := range n.Activities {
			if err := s.exec(primitives.Stop(act)); err != nil {
				return err
			}
		}
	}
	return nil
}

// enter emits, per node: start of its activities and invocations, entry actions,
// scheduling of its delayed sends.
func (s *macrostep) enter(ids []NodeID) error {
	for _, id := range ids {
		n := s.m.tree.nodes[id]
		for _, act := range n.Activities {
			if err := s.exec(primitives.Start(act)); err != nil {
				return err
			}
		}
		for _, a := range n.Entry {
			if err := s.exec(a); err != nil {
				return err
			}
		}
		for _, d := range n.After {
			send := primitives.Action{
				Type:     primitives.ActionSend,
				Event:    &primitives.Event{Type: d.Event},
				ID:       d.Event,
				Delay:    d.Delay,
				DelayRef: d.DelayRef,
			}
			if err := s.exec(send); err != nil {
				return err
			}
		}
	}
	return nil
}

// snapshot builds the State reached by the macrostep. from is nil for the initial state.
func (s *macrostep) snapshot(from *State) *State {
	t := s.m.tree
	activities := make(map[string]bool)
	if from != nil {
		maps.Copy(activities, from.Activities)
	}
	for _, id := range s.exited {
		for _, act := range t.nodes[id].Activities {
			activities[act.ID] = false
		}
	}
	for _, id := range s.cur {
		for _, act := range t.nodes[id].Activities {
			activities[act.ID] = true
		}
	}

	st := &State{
		Value:      t.value(s.cur),
		Context:    s.ext,
		Actions:    s.out,
		Activities: activities,
		Event:      s.event,
		machine:    s.m,
		config:     s.cur,
		done:       t.isDone(s.cur, root),
	}
	if from != nil {
		changed := !slices.Equal(s.cur, s.input) || len(s.out) > 0 || s.assigned
		st.Changed = &changed
		st.History = from.withoutHistory()
	}
	return st
}
