package core

import (
	"fmt"

	"github.com/comalice/xchart/internal/primitives"
)

// interimState is the view of the configuration offered to guards while candidates
// are being selected.
type interimState struct {
	t *tree
	c Configuration
}

func (s interimState) Matches(value string) bool {
	return MatchesState(value, s.t.value(s.c), s.t.delimiter)
}

// evalGuard evaluates the in-state predicate and condition of c against interim.
func (s *macrostep) evalGuard(c *Candidate, interim Configuration) (bool, error) {
	t := s.m.tree
	if c.In != "" {
		if c.InNode == NoNode {
			return false, newStructuralError(CodeUnresolvedIn, t.nodes[c.Source].StateID,
				"event %q: cannot resolve in-state %q", c.Event, c.In)
		}
		if !interim.Contains(c.InNode) {
			return false, nil
		}
	}
	if c.Cond == nil {
		return true, nil
	}
	fn := c.Cond.Fn
	if fn == nil {
		fn = s.m.impl.Guards[c.Cond.Name]
		if fn == nil {
			return false, newStructuralError(CodeUnknownGuard, t.nodes[c.Source].StateID,
				"event %q: guard %q is not implemented", c.Event, c.Cond.Name)
		}
	}
	ok, err := fn(s.ctx, s.ext, s.event, primitives.GuardMeta{
		Guard: *c.Cond,
		State: interimState{t: t, c: interim},
	})
	if err != nil {
		return false, fmt.Errorf("guard %s in %s: %w", c.Cond, t.nodes[c.Source].StateID, err)
	}
	return ok, nil
}
