package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// StateValue is the plain-data form of a configuration: the key of the active child
// of a compound root, or a nested map[string]any keyed by state keys.
type StateValue = any

// Configuration is the sorted set of active nodes. It is never mutated after creation.
type Configuration []NodeID

func newConfiguration(set map[NodeID]struct{}) Configuration {
	return Configuration(slices.Sorted(maps.Keys(set)))
}

// Contains reports whether id is active.
func (c Configuration) Contains(id NodeID) bool {
	_, ok := slices.BinarySearch(c, id)
	return ok
}

func (c Configuration) set() map[NodeID]struct{} {
	s := make(map[NodeID]struct{}, len(c))
	for _, id := range c {
		s[id] = struct{}{}
	}
	return s
}

// leaves returns the active atomic and final nodes in document order.
func (t *tree) leaves(c Configuration) []NodeID {
	var out []NodeID
	for _, id := range c {
		if t.nodes[id].IsLeaf() {
			out = append(out, id)
		}
	}
	return out
}

// activeChild returns the active child of compound id in c.
func (t *tree) activeChild(c Configuration, id NodeID) NodeID {
	for _, ch := range t.nodes[id].Children {
		if c.Contains(ch) {
			return ch
		}
	}
	return NoNode
}

// value renders c as a StateValue.
func (t *tree) value(c Configuration) StateValue {
	return t.valueOf(c, root)
}

func (t *tree) valueOf(c Configuration, id NodeID) StateValue {
	n := t.nodes[id]
	switch n.Kind {
	case KindCompound:
		ch := t.activeChild(c, id)
		if ch == NoNode {
			return map[string]any{}
		}
		cn := t.nodes[ch]
		if cn.IsLeaf() {
			return cn.Key
		}
		return map[string]any{cn.Key: t.valueOf(c, ch)}
	case KindParallel:
		out := make(map[string]any, len(n.Children))
		for _, ch := range n.Children {
			if !c.Contains(ch) {
				continue
			}
			if t.nodes[ch].IsLeaf() {
				out[t.nodes[ch].Key] = map[string]any{}
				continue
			}
			out[t.nodes[ch].Key] = t.valueOf(c, ch)
		}
		return out
	}
	return map[string]any{}
}

// isDone reports whether id has reached completion in c: a final node, a compound
// whose active child is final, or a parallel whose regions are all done.
func (t *tree) isDone(c Configuration, id NodeID) bool {
	n := t.nodes[id]
	switch n.Kind {
	case KindFinal:
		return true
	case KindCompound:
		ch := t.activeChild(c, id)
		return ch != NoNode && t.nodes[ch].Kind == KindFinal
	case KindParallel:
		for _, ch := range n.Children {
			if t.nodes[ch].Kind == KindHistory {
				continue
			}
			if !t.isDone(c, ch) {
				return false
			}
		}
		return true
	}
	return false
}

// stateIDs returns the state identifiers of c in document order.
func (t *tree) stateIDs(c Configuration) []string {
	out := make([]string, 0, len(c))
	for _, id := range c {
		out = append(out, t.nodes[id].StateID)
	}
	return out
}

// addDefault adds id and its default descendants.
func (t *tree) addDefault(id NodeID, set map[NodeID]struct{}) {
	set[id] = struct{}{}
	n := t.nodes[id]
	switch n.Kind {
	case KindCompound:
		t.addDefault(n.Initial, set)
	case KindParallel:
		for _, ch := range n.Children {
			if t.nodes[ch].Kind != KindHistory {
				t.addDefault(ch, set)
			}
		}
	}
}

// resolveValue builds a configuration from a StateValue, completing missing regions
// and children with their defaults. Keys naming nonexistent regions of a parallel
// node are discarded; any other unknown key is rejected.
func (t *tree) resolveValue(v StateValue) (Configuration, error) {
	norm, err := t.normalizeValue(v)
	if err != nil {
		return nil, err
	}
	set := make(map[NodeID]struct{})
	if err := t.collect(root, norm, set); err != nil {
		return nil, err
	}
	return newConfiguration(set), nil
}

// normalizeValue turns dotted strings into nested maps and map[string]string into
// map[string]any.
func (t *tree) normalizeValue(v StateValue) (StateValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		segs := strings.Split(val, t.delimiter)
		var out StateValue = segs[len(segs)-1]
		for i := len(segs) - 2; i >= 0; i-- {
			out = map[string]any{segs[i]: out}
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			n, err := t.normalizeValue(s)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, s := range val {
			n, err := t.normalizeValue(s)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}
	return nil, &InvalidInputError{
		Code:    CodeInvalidValue,
		Value:   fmt.Sprint(v),
		Message: fmt.Sprintf("unsupported state value type %T", v),
	}
}

func (t *tree) collect(id NodeID, v StateValue, set map[NodeID]struct{}) error {
	set[id] = struct{}{}
	n := t.nodes[id]
	switch n.Kind {
	case KindCompound:
		switch val := v.(type) {
		case nil:
			t.addDefault(n.Initial, set)
		case string:
			ch, err := t.valueChild(id, val)
			if err != nil {
				return err
			}
			t.addDefault(ch, set)
		case map[string]any:
			if len(val) == 0 {
				t.addDefault(n.Initial, set)
				return nil
			}
			if len(val) > 1 {
				return &InvalidInputError{
					Code:    CodeInvalidValue,
					Value:   n.StateID,
					Message: fmt.Sprintf("compound state cannot have %d active children", len(val)),
				}
			}
			for key, sub := range val {
				ch, err := t.valueChild(id, key)
				if err != nil {
					return err
				}
				if err := t.collect(ch, sub, set); err != nil {
					return err
				}
			}
		default:
			return &InvalidInputError{
				Code:    CodeInvalidValue,
				Value:   n.StateID,
				Message: fmt.Sprintf("unsupported state value type %T", v),
			}
		}
	case KindParallel:
		var keys map[string]any
		switch val := v.(type) {
		case string:
			keys = map[string]any{val: nil}
		case map[string]any:
			keys = val
		}
		for _, ch := range n.Children {
			if t.nodes[ch].Kind == KindHistory {
				continue
			}
			sub, ok := keys[t.nodes[ch].Key]
			if !ok {
				t.addDefault(ch, set)
				continue
			}
			if err := t.collect(ch, sub, set); err != nil {
				return err
			}
		}
	default:
		if !emptyValue(v) {
			return &InvalidInputError{
				Code:    CodeUnknownState,
				Value:   n.StateID,
				Message: fmt.Sprintf("%s state has no child %v", n.Kind, v),
			}
		}
	}
	return nil
}

func (t *tree) valueChild(parent NodeID, key string) (NodeID, error) {
	ch := t.child(parent, key)
	if ch == NoNode {
		return NoNode, &InvalidInputError{
			Code:    CodeUnknownState,
			Value:   t.nodes[parent].StateID + t.delimiter + key,
			Message: "state does not exist",
		}
	}
	if t.nodes[ch].Kind == KindHistory {
		return NoNode, &InvalidInputError{
			Code:    CodeInvalidValue,
			Value:   t.nodes[ch].StateID,
			Message: "history state cannot be active",
		}
	}
	return ch, nil
}

func emptyValue(v StateValue) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	}
	return false
}

// MatchesState reports whether child (a state value) is within parent. parent may be
// a dotted string or a partial nested value.
func MatchesState(parent, child StateValue, delimiter string) bool {
	pv := toStateValue(parent, delimiter)
	cv := toStateValue(child, delimiter)

	if cs, ok := cv.(string); ok {
		ps, ok := pv.(string)
		return ok && ps == cs
	}
	cm, ok := cv.(map[string]any)
	if !ok {
		return false
	}
	if ps, ok := pv.(string); ok {
		_, found := cm[ps]
		return found
	}
	pm, ok := pv.(map[string]any)
	if !ok {
		return false
	}
	for key, sub := range pm {
		csub, found := cm[key]
		if !found {
			return false
		}
		if emptyValue(sub) {
			continue
		}
		if !MatchesState(sub, csub, delimiter) {
			return false
		}
	}
	return true
}

func toStateValue(v StateValue, delimiter string) StateValue {
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, delimiter) {
			return val
		}
		segs := strings.Split(val, delimiter)
		var out StateValue = segs[len(segs)-1]
		for i := len(segs) - 2; i >= 0; i-- {
			out = map[string]any{segs[i]: out}
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	}
	return v
}
