package core

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

// microstep is one application of a set of non-conflicting candidates.
type microstep struct {
	transitions []*Candidate
	exit        []NodeID
	entry       []NodeID
	next        Configuration
}

// effectiveTargets validates c's targets and returns those that take part in
// exit/entry. An internal transition to its own source enters nothing.
func (t *tree) effectiveTargets(c *Candidate) ([]NodeID, error) {
	if len(c.unresolved) > 0 {
		return nil, newStructuralError(CodeUnresolvedTarget, t.nodes[c.Source].StateID,
			"event %q: cannot resolve target %s", c.Event, strings.Join(c.unresolved, ", "))
	}
	for i := 0; i < len(c.Targets); i++ {
		for j := i + 1; j < len(c.Targets); j++ {
			a, b := c.Targets[i], c.Targets[j]
			anc := t.lca(a, b)
			if anc == NoNode || anc == a || anc == b || t.nodes[anc].Kind != KindParallel {
				return nil, newStructuralError(CodeInvalidMultiTarget, t.nodes[c.Source].StateID,
					"event %q: targets %s and %s are not in distinct regions of a parallel state",
					c.Event, t.nodes[a].StateID, t.nodes[b].StateID)
			}
		}
	}
	for _, target := range c.Targets {
		if target == root {
			return nil, newStructuralError(CodeUnresolvedTarget, t.nodes[c.Source].StateID,
				"event %q: the root state cannot be targeted", c.Event)
		}
	}
	if !c.Internal {
		return c.Targets, nil
	}
	out := make([]NodeID, 0, len(c.Targets))
	for _, target := range c.Targets {
		if target != c.Source {
			out = append(out, target)
		}
	}
	return out, nil
}

// domain returns the node whose active descendants a transition exits. An internal
// transition whose targets all descend from its source uses the source; otherwise
// the domain is the nearest proper ancestor of the source that is compound or
// parallel and contains every target, or the root for handlers the root declares.
// Targetless transitions have no domain.
func (t *tree) domain(c *Candidate, targets []NodeID) NodeID {
	if len(targets) == 0 {
		return NoNode
	}
	contains := func(anc NodeID) bool {
		for _, target := range targets {
			if !t.isDescendant(target, anc) {
				return false
			}
		}
		return true
	}
	src := t.nodes[c.Source]
	if c.Internal && (src.Kind == KindCompound || src.Kind == KindParallel) && contains(src.ID) {
		return src.ID
	}
	for anc := src.Parent; anc != NoNode; anc = t.nodes[anc].Parent {
		k := t.nodes[anc].Kind
		if (k == KindCompound || k == KindParallel) && contains(anc) {
			return anc
		}
	}
	if src.Parent == NoNode && contains(src.ID) {
		return src.ID
	}
	return NoNode
}

// scope returns the children of domain that a transition leaves and re-enters. For
// a parallel domain these are only the regions holding the source or a target; the
// other regions keep their configuration. A target that is a history node of the
// parallel domain restores every region.
func (t *tree) scope(c *Candidate, domain NodeID, targets []NodeID) []NodeID {
	if domain == NoNode {
		return nil
	}
	d := t.nodes[domain]
	if d.Kind != KindParallel {
		return d.Children
	}
	touched := make(map[NodeID]struct{}, len(targets)+1)
	mark := func(id NodeID) bool {
		r := t.regionOf(id, domain)
		if r == NoNode {
			return true
		}
		if t.nodes[r].Kind == KindHistory {
			return false
		}
		touched[r] = struct{}{}
		return true
	}
	if c.Source != domain && !mark(c.Source) {
		return d.Children
	}
	for _, target := range targets {
		if !mark(target) {
			return d.Children
		}
	}
	out := make([]NodeID, 0, len(touched))
	for _, ch := range d.Children {
		if _, ok := touched[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// exitSet returns the active nodes at or below the scope nodes.
func (t *tree) exitSet(c Configuration, scope []NodeID) []NodeID {
	var out []NodeID
	for _, id := range c {
		for _, s := range scope {
			if id == s || t.isDescendant(id, s) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// sortExit orders descendants before their ancestors and otherwise in document
// order: one leaf-to-root block per region, regions in declaration order.
func (t *tree) sortExit(ids []NodeID) {
	slices.SortFunc(ids, func(a, b NodeID) int {
		switch {
		case a == b:
			return 0
		case t.isDescendant(a, b):
			return -1
		case t.isDescendant(b, a):
			return 1
		}
		return cmp.Compare(a, b)
	})
}

// sortEntry orders by document order, which puts ancestors first and keeps each
// region's block together.
func (t *tree) sortEntry(ids []NodeID) {
	slices.Sort(ids)
}

// entryBuilder accumulates the entry set of a microstep.
type entryBuilder struct {
	t       *tree
	set     map[NodeID]struct{}
	history historySource
}

func newEntryBuilder(t *tree, h historySource) *entryBuilder {
	return &entryBuilder{t: t, set: make(map[NodeID]struct{}), history: h}
}

func (b *entryBuilder) covers(region NodeID) bool {
	if _, ok := b.set[region]; ok {
		return true
	}
	for s := range b.set {
		if b.t.isDescendant(s, region) {
			return true
		}
	}
	return false
}

// addDescendants adds id with its default or remembered descendants.
func (b *entryBuilder) addDescendants(id NodeID) {
	n := b.t.nodes[id]
	if n.Kind == KindHistory {
		parent := n.Parent
		if rec, ok := b.history.record(id); ok {
			for _, s := range rec {
				b.addDescendants(s)
			}
			for _, s := range rec {
				b.addAncestors(s, parent)
			}
			return
		}
		pn := b.t.nodes[parent]
		switch pn.Kind {
		case KindCompound:
			b.addDescendants(pn.Initial)
			b.addAncestors(pn.Initial, parent)
		case KindParallel:
			b.completeRegions(parent)
		}
		return
	}
	b.set[id] = struct{}{}
	switch n.Kind {
	case KindCompound:
		b.addDescendants(n.Initial)
	case KindParallel:
		b.completeRegions(id)
	}
}

// addAncestors adds the proper ancestors of id below stop, completing regions of
// any parallel ancestor.
func (b *entryBuilder) addAncestors(id, stop NodeID) {
	for anc := b.t.nodes[id].Parent; anc != NoNode && anc != stop; anc = b.t.nodes[anc].Parent {
		b.set[anc] = struct{}{}
		if b.t.nodes[anc].Kind == KindParallel {
			b.completeRegions(anc)
		}
	}
}

// completeRegions enters every region of parallel id that has no entry yet.
func (b *entryBuilder) completeRegions(id NodeID) {
	for _, ch := range b.t.nodes[id].Children {
		if b.t.nodes[ch].Kind == KindHistory {
			continue
		}
		if !b.covers(ch) {
			b.addDescendants(ch)
		}
	}
}

func (b *entryBuilder) sorted() []NodeID {
	out := slices.Collect(maps.Keys(b.set))
	b.t.sortEntry(out)
	return out
}

// computeMicrostep derives exit and entry sets for transitions taken from cur.
func (t *tree) computeMicrostep(cur Configuration, transitions []*Candidate, h historySource) (microstep, error) {
	ms := microstep{transitions: transitions}
	exitSet := make(map[NodeID]struct{})
	b := newEntryBuilder(t, h)

	type resolved struct {
		targets []NodeID
		domain  NodeID
		scope   []NodeID
	}
	rs := make([]resolved, len(transitions))
	for i, c := range transitions {
		targets, err := t.effectiveTargets(c)
		if err != nil {
			return ms, err
		}
		dom := t.domain(c, targets)
		if dom == NoNode && len(targets) > 0 {
			return ms, newStructuralError(CodeUnresolvedTarget, t.nodes[c.Source].StateID,
				"event %q: no common ancestor for targets", c.Event)
		}
		scope := t.scope(c, dom, targets)
		rs[i] = resolved{targets: targets, domain: dom, scope: scope}
		for _, id := range t.exitSet(cur, scope) {
			exitSet[id] = struct{}{}
		}
	}

	for _, r := range rs {
		for _, target := range r.targets {
			b.addDescendants(target)
		}
	}
	for _, r := range rs {
		for _, target := range r.targets {
			b.addAncestors(target, r.domain)
		}
		if r.domain != NoNode && t.nodes[r.domain].Kind == KindParallel {
			for _, region := range r.scope {
				if t.nodes[region].Kind != KindHistory && !b.covers(region) {
					b.addDescendants(region)
				}
			}
		}
	}

	ms.exit = slices.Collect(maps.Keys(exitSet))
	t.sortExit(ms.exit)
	ms.entry = b.sorted()

	next := cur.set()
	for _, id := range ms.exit {
		delete(next, id)
	}
	for _, id := range ms.entry {
		next[id] = struct{}{}
	}
	ms.next = newConfiguration(next)
	return ms, nil
}

// exitOf returns the exit set of a single candidate taken from cur; used for conflict
// detection. Errors surface later when the candidate is applied.
func (t *tree) exitOf(cur Configuration, c *Candidate) map[NodeID]struct{} {
	targets, err := t.effectiveTargets(c)
	if err != nil {
		return nil
	}
	out := make(map[NodeID]struct{})
	for _, id := range t.exitSet(cur, t.scope(c, t.domain(c, targets), targets)) {
		out[id] = struct{}{}
	}
	return out
}
