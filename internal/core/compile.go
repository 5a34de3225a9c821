package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/comalice/xchart/internal/primitives"
)

// compile validates cfg and builds the node arena. Target references that do not
// resolve are recorded on their candidates rather than failing compilation.
func compile(cfg *primitives.MachineConfig) (*tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &StructuralError{
			Code:    CodeInvalidDefinition,
			StateID: cfg.MachineID(),
			Message: err.Error(),
			Err:     err,
		}
	}
	t := &tree{
		byStateID: make(map[string]NodeID),
		machineID: cfg.MachineID(),
		delimiter: cfg.PathDelimiter(),
	}
	var sources []*primitives.StateConfig
	t.add(cfg.Root(), NoNode, nil, &sources)

	for i, sc := range sources {
		if err := t.link(t.nodes[i], sc); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// add appends sc and its subtree in preorder.
func (t *tree) add(sc *primitives.StateConfig, parent NodeID, path []string, sources *[]*primitives.StateConfig) NodeID {
	id := NodeID(len(t.nodes))
	n := &Node{
		ID:      id,
		Key:     sc.Key,
		Path:    path,
		Parent:  parent,
		Initial: NoNode,
		Entry:   slices.Clone(sc.Entry),
		Exit:    slices.Clone(sc.Exit),
	}
	if parent != NoNode {
		n.Depth = t.nodes[parent].Depth + 1
	}
	switch sc.ResolvedType() {
	case primitives.Compound:
		n.Kind = KindCompound
	case primitives.Parallel:
		n.Kind = KindParallel
	case primitives.Final:
		n.Kind = KindFinal
	case primitives.ShallowHistory:
		n.Kind = KindHistory
	case primitives.DeepHistory:
		n.Kind = KindHistory
		n.Deep = true
	default:
		n.Kind = KindAtomic
	}

	n.StateID = sc.ID
	if n.StateID == "" {
		n.StateID = t.machineID
		if len(path) > 0 {
			n.StateID += t.delimiter + strings.Join(path, t.delimiter)
		}
	}
	t.byStateID[n.StateID] = id

	for _, name := range sc.Activities {
		n.Activities = append(n.Activities, primitives.Activity{Type: name, ID: name})
	}
	for i, inv := range sc.Invoke {
		n.Activities = append(n.Activities, primitives.Activity{
			Type:    primitives.ActivityInvoke,
			ID:      invokeID(n.StateID, i, inv),
			Src:     inv.Src,
			Data:    inv.Data,
			Forward: inv.Forward,
		})
	}

	t.nodes = append(t.nodes, n)
	*sources = append(*sources, sc)

	for _, child := range sc.Children {
		childPath := append(slices.Clone(path), child.Key)
		n.Children = append(n.Children, t.add(child, id, childPath, sources))
	}
	return id
}

func invokeID(stateID string, index int, inv primitives.InvokeConfig) string {
	if inv.ID != "" {
		return inv.ID
	}
	return fmt.Sprintf("%s:invocation[%d]", stateID, index)
}

// link resolves initial children, handlers, delayed transitions and invocation
// completion handlers once every node has an ID.
func (t *tree) link(n *Node, sc *primitives.StateConfig) error {
	if n.Kind == KindCompound {
		if sc.Initial != "" {
			n.Initial = t.child(n.ID, sc.Initial)
		} else {
			for _, c := range n.Children {
				if t.nodes[c].Kind != KindHistory {
					n.Initial = c
					break
				}
			}
		}
		if n.Initial == NoNode || t.nodes[n.Initial].Kind == KindHistory {
			return newStructuralError(CodeInvalidDefinition, n.StateID, "compound state requires a non-history initial child")
		}
	}

	for _, h := range sc.On {
		hd := t.handlerFor(n, h.Event)
		if h.Forbidden {
			hd.forbidden = true
			continue
		}
		for _, tc := range h.Transitions {
			hd.candidates = append(hd.candidates, t.candidate(n, h.Event, tc))
		}
	}

	for i, d := range sc.After {
		event := primitives.AfterEvent(d.Label(), n.StateID, i)
		n.After = append(n.After, Delayed{Event: event, Delay: d.Delay, DelayRef: d.DelayRef})
		hd := t.handlerFor(n, event)
		hd.candidates = append(hd.candidates, t.candidate(n, event, d.TransitionConfig))
	}

	for i, inv := range sc.Invoke {
		if len(inv.OnDone) == 0 {
			continue
		}
		event := primitives.DoneInvokeEvent(invokeID(n.StateID, i, inv))
		hd := t.handlerFor(n, event)
		for _, tc := range inv.OnDone {
			hd.candidates = append(hd.candidates, t.candidate(n, event, tc))
		}
	}
	return nil
}

func (t *tree) handlerFor(n *Node, event string) *handler {
	if h, ok := n.handler(event); ok {
		return h
	}
	n.handlers = append(n.handlers, handler{event: event})
	return &n.handlers[len(n.handlers)-1]
}

// candidate compiles tc. Relative targets (leading delimiter) make a transition
// internal unless Internal says otherwise.
func (t *tree) candidate(src *Node, event string, tc primitives.TransitionConfig) *Candidate {
	c := &Candidate{
		Source:  src.ID,
		Event:   event,
		Refs:    slices.Clone([]string(tc.Target)),
		Cond:    tc.Cond,
		In:      tc.In,
		InNode:  NoNode,
		Actions: slices.Clone(tc.Actions),
	}
	internal := len(tc.Target) > 0
	for _, ref := range tc.Target {
		if !strings.HasPrefix(ref, t.delimiter) {
			internal = false
		}
		id, ok := t.resolveRef(src.ID, ref)
		if !ok {
			c.unresolved = append(c.unresolved, ref)
			continue
		}
		c.Targets = append(c.Targets, id)
	}
	if tc.Internal != nil {
		internal = *tc.Internal
	}
	c.Internal = internal
	if tc.In != "" {
		if id, ok := t.resolveIn(src.ID, tc.In); ok {
			c.InNode = id
		}
	}
	t.candidates = append(t.candidates, c)
	return c
}
