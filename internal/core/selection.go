package core

import "slices"

// selectTransitions picks at most one candidate per active leaf. Each leaf walks
// towards the root; the first node declaring the event decides, unless every one of
// its candidates is guarded off, in which case the walk continues. A forbidden
// declaration ends the walk with no selection.
func (s *macrostep) selectTransitions(eventName string) ([]*Candidate, error) {
	t := s.m.tree
	var selected []*Candidate
	seen := make(map[*Candidate]bool)
	interim := s.cur
	for _, leaf := range t.leaves(s.cur) {
		c, err := s.pick(leaf, eventName, interim)
		if err != nil {
			return nil, err
		}
		if c == nil || seen[c] {
			continue
		}
		seen[c] = true
		selected = append(selected, c)
		if ms, err := t.computeMicrostep(interim, []*Candidate{c}, s.history()); err == nil {
			interim = ms.next
		}
	}
	return t.removeConflicts(s.cur, selected), nil
}

func (s *macrostep) pick(leaf NodeID, eventName string, interim Configuration) (*Candidate, error) {
	t := s.m.tree
	for id := leaf; id != NoNode; id = t.parent(id) {
		h, ok := t.nodes[id].handler(eventName)
		if !ok {
			continue
		}
		if h.forbidden {
			return nil, nil
		}
		for _, c := range h.candidates {
			ok, err := s.evalGuard(c, interim)
			if err != nil {
				return nil, err
			}
			if ok {
				return c, nil
			}
		}
	}
	return nil, nil
}

// removeConflicts drops candidates whose exit sets overlap an earlier selection. A
// candidate whose source descends from the earlier one's source replaces it;
// otherwise the earlier selection wins.
func (t *tree) removeConflicts(cur Configuration, selected []*Candidate) []*Candidate {
	if len(selected) < 2 {
		return selected
	}
	var filtered []*Candidate
	exits := make(map[*Candidate]map[NodeID]struct{}, len(selected))
	for _, c1 := range selected {
		e1 := t.exitOf(cur, c1)
		preempted := false
		var drop []*Candidate
		for _, c2 := range filtered {
			if !intersects(e1, exits[c2]) {
				continue
			}
			if t.isDescendant(c1.Source, c2.Source) {
				drop = append(drop, c2)
				continue
			}
			preempted = true
			break
		}
		if preempted {
			continue
		}
		filtered = slices.DeleteFunc(filtered, func(c *Candidate) bool {
			return slices.Contains(drop, c)
		})
		exits[c1] = e1
		filtered = append(filtered, c1)
	}
	return filtered
}

func intersects(a, b map[NodeID]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for id := range a {
		if _, ok := b[id]; ok {
			return true
		}
	}
	return false
}
