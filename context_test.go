package xchart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/xchart"
)

func TestContextGet(t *testing.T) {
	ext := map[string]any{"count": 3, "name": "light"}

	n, ok := xchart.Get[int](ext, "count")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = xchart.Get[string](ext, "count")
	assert.False(t, ok, "wrong type")

	_, ok = xchart.Get[int](ext, "missing")
	assert.False(t, ok)

	_, ok = xchart.Get[int](42, "count")
	assert.False(t, ok, "non-map context")
}

func TestContextSetCopies(t *testing.T) {
	ext := map[string]any{"count": 1}

	next, err := xchart.Set(ext, "count", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 2}, next)
	assert.Equal(t, 1, ext["count"], "original untouched")

	fresh, err := xchart.Set(nil, "a", true)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": true}, fresh)
}

func TestContextDeleteAndMerge(t *testing.T) {
	ext := map[string]any{"a": 1, "b": 2}

	without, err := xchart.Delete(ext, "a")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": 2}, without)
	assert.Len(t, ext, 2)

	merged, err := xchart.Merge(ext, map[string]any{"b": 20, "c": 30})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 20, "c": 30}, merged)
	assert.Equal(t, 2, ext["b"])
}

func TestContextRejectsNonMapState(t *testing.T) {
	_, err := xchart.Set("scalar", "k", 1)
	assert.Error(t, err)
	_, err = xchart.Delete(7, "k")
	assert.Error(t, err)
	_, err = xchart.Merge([]int{1}, nil)
	assert.Error(t, err)
}

func TestContextHelpersInAssign(t *testing.T) {
	inc := xchart.Assign(func(ext any, e xchart.Event) any {
		n, _ := xchart.Get[int](ext, "count")
		by, _ := e.Data.(int)
		next, _ := xchart.Set(ext, "count", n+by)
		return next
	})
	m, err := xchart.Load([]byte(`
id: counter
initial: active
context:
  count: 0
states:
  active:
    on:
      INC:
        actions: inc
`), xchart.WithActions(map[string]xchart.Action{"inc": inc}))
	require.NoError(t, err)

	ctx := t.Context()
	s, err := m.Transition(ctx, "active", xchart.NewEvent("INC", 2))
	require.NoError(t, err)
	s, err = m.Transition(ctx, s, xchart.NewEvent("INC", 3))
	require.NoError(t, err)

	n, ok := xchart.Get[int](s.Context, "count")
	require.True(t, ok)
	assert.Equal(t, 5, n)
}
