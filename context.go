package xchart

import (
	"maps"

	"github.com/comalice/xchart/internal/primitives"
)

// Get retrieves a value from a map-shaped extended state. It reports false if ext is
// not a map[string]any, the key does not exist or the value is not a T.
func Get[T any](ext any, key string) (T, bool) {
	var zero T
	m, ok := ext.(map[string]any)
	if !ok {
		return zero, false
	}
	v, ok := m[key].(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set returns a copy of a map-shaped extended state with key set to value. ext is
// never modified; nil yields a new map.
func Set(ext any, key string, value any) (map[string]any, error) {
	next, err := primitives.CopyContext(ext)
	if err != nil {
		return nil, err
	}
	next[key] = value
	return next, nil
}

// Delete returns a copy of a map-shaped extended state without key.
func Delete(ext any, key string) (map[string]any, error) {
	next, err := primitives.CopyContext(ext)
	if err != nil {
		return nil, err
	}
	delete(next, key)
	return next, nil
}

// Merge returns a copy of a map-shaped extended state overlaid with values.
func Merge(ext any, values map[string]any) (map[string]any, error) {
	next, err := primitives.CopyContext(ext)
	if err != nil {
		return nil, err
	}
	maps.Copy(next, values)
	return next, nil
}
