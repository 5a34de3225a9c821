package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStateRepairsValues(t *testing.T) {
	m := loadMachine(t, multiTarget)

	tests := []struct {
		name string
		in   any
		want StateValue
	}{
		{"leaf", "idle", "idle"},
		{"parallel defaults", "P", map[string]any{"P": map[string]any{"R1": "x1", "R2": "y1"}}},
		{"dotted path", "P.R1.x2", map[string]any{"P": map[string]any{"R1": "x2", "R2": "y1"}}},
		{"string map", map[string]string{"P": "R2.y2"}, map[string]any{"P": map[string]any{"R1": "x1", "R2": "y2"}}},
		{"unknown region dropped", map[string]any{"P": map[string]any{"R1": "x2", "Ghost": "z"}},
			map[string]any{"P": map[string]any{"R1": "x2", "R2": "y1"}}},
		{"empty compound", map[string]any{}, "idle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := m.ResolveState(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Value)
		})
	}
}

func TestResolveStateRejectsInvalidValues(t *testing.T) {
	m := loadMachine(t, multiTarget)

	tests := []struct {
		name string
		in   any
		code ErrorCode
	}{
		{"unknown child", "nope", CodeUnknownState},
		{"value under atomic", map[string]any{"idle": "x"}, CodeUnknownState},
		{"two compound children", map[string]any{"idle": map[string]any{}, "P": map[string]any{}}, CodeInvalidValue},
		{"unknown nested", "P.R1.zz", CodeUnknownState},
		{"unsupported type", 42, CodeInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ResolveState(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			var ie *InvalidInputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.code, ie.Code)
		})
	}
}

func TestHistoryNodeCannotBeActive(t *testing.T) {
	m := loadMachine(t, historyMachine)
	_, err := m.ResolveState("A.shallow")
	var ie *InvalidInputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, CodeInvalidValue, ie.Code)
}

func TestAtomicRegionsRenderEmpty(t *testing.T) {
	m := loadMachine(t, `
id: editor
type: parallel
states:
  bold: {}
  italic:
    initial: plain
    states:
      plain:
        on:
          TOGGLE: slanted
      slanted: {}
`)
	s := initial(t, m)
	assert.Equal(t, map[string]any{"bold": map[string]any{}, "italic": "plain"}, s.Value)
	assert.True(t, s.Matches("bold"))
	assert.True(t, s.Matches("italic.plain"))
	assert.False(t, s.Matches("italic.slanted"))
	assert.Equal(t, "bold,italic.plain", s.String())

	s = step(t, m, s, "TOGGLE")
	assert.True(t, s.Matches("italic.slanted"))
}

func TestMatchesState(t *testing.T) {
	value := map[string]any{"P": map[string]any{"R1": "x2", "R2": "y1"}}

	assert.True(t, MatchesState("P", value, "."))
	assert.True(t, MatchesState("P.R1", value, "."))
	assert.True(t, MatchesState("P.R1.x2", value, "."))
	assert.True(t, MatchesState(map[string]any{"P": map[string]any{"R2": "y1"}}, value, "."))
	assert.False(t, MatchesState("P.R1.x1", value, "."))
	assert.False(t, MatchesState("idle", value, "."))
	assert.True(t, MatchesState("green", "green", "."))
	assert.False(t, MatchesState("green.walk", "green", "."))
	assert.True(t, MatchesState("red/walk", map[string]any{"red": "walk"}, "/"))
}

func TestConfigurationDocumentOrder(t *testing.T) {
	m := loadMachine(t, multiTarget)
	s := step(t, m, "idle", "GO")
	assert.Equal(t,
		[]string{"m", "m.P", "m.P.R1", "m.P.R1.x2", "m.P.R2", "m.P.R2.y2"},
		s.Configuration())
	assert.Equal(t, "P.R1.x2,P.R2.y2", s.String())
}
