package core

// historySource resolves history pseudostates against the configurations visible to
// a microstep, most recent first.
type historySource struct {
	t       *tree
	configs []Configuration
}

// record returns the states remembered by history node h: the active child of its
// parent (shallow) or the active leaves below its parent (deep). The first
// configuration in which the parent is active is used.
func (h historySource) record(id NodeID) ([]NodeID, bool) {
	n := h.t.nodes[id]
	parent := n.Parent
	for _, c := range h.configs {
		if c == nil || !c.Contains(parent) {
			continue
		}
		var rec []NodeID
		if n.Deep {
			for _, s := range c {
				if h.t.nodes[s].IsLeaf() && h.t.isDescendant(s, parent) {
					rec = append(rec, s)
				}
			}
		} else if ch := h.t.activeChild(c, parent); ch != NoNode {
			rec = []NodeID{ch}
		}
		return rec, len(rec) > 0
	}
	return nil, false
}
