package core

import (
	"strings"
	"time"

	"github.com/comalice/xchart/internal/primitives"
)

// NodeID addresses a node in the compiled tree. IDs are assigned in preorder, so
// comparing IDs compares document order.
type NodeID int

// NoNode is the absent node reference.
const NoNode NodeID = -1

// Kind is the compiled kind of a node.
type Kind uint8

const (
	KindAtomic Kind = iota
	KindCompound
	KindParallel
	KindHistory
	KindFinal
)

var kindNames = [...]string{"atomic", "compound", "parallel", "history", "final"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is an immutable compiled state. Parent and children are arena indices.
type Node struct {
	ID         NodeID
	Key        string
	StateID    string
	Path       []string
	Kind       Kind
	Deep       bool
	Parent     NodeID
	Children   []NodeID
	Initial    NodeID
	Depth      int
	Entry      []primitives.Action
	Exit       []primitives.Action
	Activities []primitives.Activity
	After      []Delayed

	handlers []handler
}

// Delayed is a compiled delayed transition: the synthetic event sent on entry and
// cancelled on exit.
type Delayed struct {
	Event    string
	Delay    time.Duration
	DelayRef string
}

type handler struct {
	event      string
	candidates []*Candidate
	forbidden  bool
}

// Candidate is a compiled transition candidate.
type Candidate struct {
	Source   NodeID
	Event    string
	Refs     []string
	Targets  []NodeID
	Cond     *primitives.Guard
	In       string
	InNode   NodeID
	Actions  []primitives.Action
	Internal bool

	unresolved []string
}

func (n *Node) handler(event string) (*handler, bool) {
	for i := range n.handlers {
		if n.handlers[i].event == event {
			return &n.handlers[i], true
		}
	}
	return nil, false
}

// Events returns the event names this node declares, in document order.
func (n *Node) Events() []string {
	out := make([]string, 0, len(n.handlers))
	for _, h := range n.handlers {
		out = append(out, h.event)
	}
	return out
}

// IsLeaf reports whether the node can be an active leaf.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindAtomic || n.Kind == KindFinal
}

// tree is the arena of compiled nodes. The root is always node 0.
type tree struct {
	nodes      []*Node
	byStateID  map[string]NodeID
	candidates []*Candidate
	machineID  string
	delimiter  string
}

const root NodeID = 0

func (t *tree) node(id NodeID) *Node {
	return t.nodes[id]
}

func (t *tree) parent(id NodeID) NodeID {
	return t.nodes[id].Parent
}

// isDescendant reports whether id is a proper descendant of anc.
func (t *tree) isDescendant(id, anc NodeID) bool {
	if id == NoNode || anc == NoNode {
		return false
	}
	for p := t.nodes[id].Parent; p != NoNode; p = t.nodes[p].Parent {
		if p == anc {
			return true
		}
	}
	return false
}

func (t *tree) child(id NodeID, key string) NodeID {
	for _, c := range t.nodes[id].Children {
		if t.nodes[c].Key == key {
			return c
		}
	}
	return NoNode
}

func (t *tree) descend(from NodeID, segments []string) (NodeID, bool) {
	cur := from
	for _, seg := range segments {
		next := t.child(cur, seg)
		if next == NoNode {
			return NoNode, false
		}
		cur = next
	}
	return cur, true
}

// lca returns the deepest node that is an ancestor-or-self of both a and b.
func (t *tree) lca(a, b NodeID) NodeID {
	for x := a; x != NoNode; x = t.nodes[x].Parent {
		if x == b || t.isDescendant(b, x) {
			return x
		}
	}
	return NoNode
}

// regionOf returns the child of anc on the path to id.
func (t *tree) regionOf(id, anc NodeID) NodeID {
	for x := id; x != NoNode; x = t.nodes[x].Parent {
		if t.nodes[x].Parent == anc {
			return x
		}
	}
	return NoNode
}

func (t *tree) pathString(id NodeID) string {
	return strings.Join(t.nodes[id].Path, t.delimiter)
}

// resolveRef resolves a target reference declared on src.
func (t *tree) resolveRef(src NodeID, ref string) (NodeID, bool) {
	d := t.delimiter
	switch {
	case strings.HasPrefix(ref, "#"):
		return t.resolveID(ref[1:])
	case ref == d:
		return src, true
	case strings.HasPrefix(ref, d):
		return t.descend(src, strings.Split(ref[len(d):], d))
	}
	base := t.nodes[src].Parent
	if base == NoNode {
		base = src
	}
	return t.descend(base, strings.Split(ref, d))
}

// resolveID resolves "id" or "id.child.path" where id may itself contain the delimiter.
func (t *tree) resolveID(body string) (NodeID, bool) {
	if id, ok := t.byStateID[body]; ok {
		return id, true
	}
	segs := strings.Split(body, t.delimiter)
	for i := len(segs) - 1; i > 0; i-- {
		if id, ok := t.byStateID[strings.Join(segs[:i], t.delimiter)]; ok {
			return t.descend(id, segs[i:])
		}
	}
	return NoNode, false
}

// resolveIn resolves an in-state predicate: "#id" or a path relative to the
// grandparent of src, then to each further ancestor up to the root.
func (t *tree) resolveIn(src NodeID, ref string) (NodeID, bool) {
	if strings.HasPrefix(ref, "#") {
		return t.resolveID(ref[1:])
	}
	segs := strings.Split(ref, t.delimiter)
	base := root
	if p := t.nodes[src].Parent; p != NoNode && t.nodes[p].Parent != NoNode {
		base = t.nodes[p].Parent
	}
	for b := base; b != NoNode; b = t.nodes[b].Parent {
		if id, ok := t.descend(b, segs); ok {
			return id, true
		}
	}
	return NoNode, false
}
