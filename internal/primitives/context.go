// Helpers for map-shaped extended state. The engine treats extended state as an opaque
// value; property assignment is the only place it looks inside, and only for
// map[string]any (or nil).
package primitives

import (
	"fmt"
	"maps"
	"slices"
)

// CopyContext returns a shallow copy of a map-shaped extended state. nil yields an empty map.
func CopyContext(ext any) (map[string]any, error) {
	switch v := ext.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return maps.Clone(v), nil
	}
	return nil, fmt.Errorf("property assignment requires map[string]any context, got %T", ext)
}

// ApplyProps returns a copy of ext with each property assigned. Property functions all
// observe the extended state as it was before the assignment; properties are applied in
// key order.
func ApplyProps(ext any, e Event, props map[string]any) (any, error) {
	next, err := CopyContext(ext)
	if err != nil {
		return nil, err
	}
	for _, key := range slices.Sorted(maps.Keys(props)) {
		switch fn := props[key].(type) {
		case PropAssigner:
			next[key] = fn(ext, e)
		case func(any, Event) any:
			next[key] = fn(ext, e)
		default:
			next[key] = fn
		}
	}
	return next, nil
}
