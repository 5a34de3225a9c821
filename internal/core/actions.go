package core

import (
	"github.com/comalice/xchart/internal/primitives"
)

// exec resolves one action descriptor at its position in the macrostep. Assigns are
// applied to the extended state and consumed; every other descriptor is resolved and
// appended to the output.
func (s *macrostep) exec(a primitives.Action) error {
	switch a.Type {
	case primitives.ActionAssign:
		return s.assign(a)
	case primitives.ActionSend:
		resolved, err := s.resolveSend(a)
		if err != nil {
			return err
		}
		s.out = append(s.out, resolved)
	case primitives.ActionLog:
		if a.Expr != nil {
			a.Value = a.Expr(s.ext, s.event)
		} else {
			a.Value = map[string]any{"context": s.ext, "event": s.event}
		}
		a.Expr = nil
		s.out = append(s.out, a)
	case primitives.ActionCancel, primitives.ActionStart, primitives.ActionStop:
		s.out = append(s.out, a)
	default:
		if a.Exec == nil {
			if reg, ok := s.m.impl.Actions[a.Type]; ok {
				if reg.IsBuiltin() {
					return s.exec(reg)
				}
				a.Exec = reg.Exec
				if a.Params == nil {
					a.Params = reg.Params
				}
			}
		}
		s.out = append(s.out, a)
	}
	return nil
}

func (s *macrostep) assign(a primitives.Action) error {
	switch {
	case a.Assign != nil:
		s.ext = a.Assign(s.ext, s.event)
	case a.Assignments != nil:
		next, err := primitives.ApplyProps(s.ext, s.event, a.Assignments)
		if err != nil {
			return &StructuralError{
				Code:    CodeInvalidContext,
				StateID: s.m.tree.machineID,
				Message: err.Error(),
				Err:     err,
			}
		}
		s.ext = next
	}
	s.assigned = true
	return nil
}

// resolveSend fixes the event and delay of a send action against the current
// extended state.
func (s *macrostep) resolveSend(a primitives.Action) (primitives.Action, error) {
	if a.EventExpr != nil {
		ev := a.EventExpr(s.ext, s.event)
		a.Event = &ev
		a.EventExpr = nil
	}
	if a.Event == nil {
		return a, newStructuralError(CodeInvalidDefinition, s.m.tree.machineID, "send action without event")
	}
	ev := *a.Event
	a.Event = &ev
	if a.ID == "" {
		a.ID = ev.Type
	}
	switch {
	case a.DelayExpr != nil:
		a.Delay = a.DelayExpr(s.ext, s.event)
		a.DelayExpr = nil
	case a.DelayRef != "":
		fn, ok := s.m.impl.Delays[a.DelayRef]
		if !ok {
			return a, newStructuralError(CodeUnknownDelay, s.m.tree.machineID,
				"delay %q is not implemented", a.DelayRef)
		}
		a.Delay = fn(s.ext, s.event)
	}
	return a, nil
}
