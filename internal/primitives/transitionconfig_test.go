package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTransitionConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		tc          TransitionConfig
		wantErr     bool
		errContains string
	}{
		{name: "valid sibling", tc: Transition("next")},
		{name: "valid child path", tc: Transition(".a.b")},
		{name: "valid self", tc: Transition(".")},
		{name: "valid id", tc: Transition("#light.red")},
		{name: "targetless", tc: TransitionConfig{}},
		{
			name:        "empty target",
			tc:          Transition(""),
			wantErr:     true,
			errContains: "target is empty",
		},
		{
			name:        "empty target segment",
			tc:          Transition("parent..child"),
			wantErr:     true,
			errContains: "empty segment",
		},
		{
			name:        "bad in reference",
			tc:          TransitionConfig{In: "#a..b"},
			wantErr:     true,
			errContains: "in:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tc.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionConfigFluent(t *testing.T) {
	base := Transition("a", "b")
	tc := base.If(Cond("ok")).InState("#x").Do(Named("act")).WithInternal(true)
	assert.Equal(t, Targets{"a", "b"}, tc.Target)
	assert.Equal(t, "ok", tc.Cond.Name)
	assert.Equal(t, "#x", tc.In)
	require.NotNil(t, tc.Internal)
	assert.True(t, *tc.Internal)
	assert.Equal(t, "act", tc.Actions[0].Type)
	assert.Empty(t, base.Actions, "fluent helpers return copies")
}

func TestTransitionMapAddAndForbid(t *testing.T) {
	var m TransitionMap
	m.Add("A", Transition("x"))
	m.Add("B", Transition("y"))
	m.Add("A", Transition("z"))
	m.Forbid("C")

	assert.Equal(t, []string{"A", "B", "C"}, m.Events())
	h, ok := m.Lookup("A")
	require.True(t, ok)
	assert.Len(t, h.Transitions, 2)
	h, ok = m.Lookup("C")
	require.True(t, ok)
	assert.True(t, h.Forbidden)
	_, ok = m.Lookup("D")
	assert.False(t, ok)
}

func TestTransitionMapUnmarshalYAML(t *testing.T) {
	doc := `
TIMER: yellow
MULTI: [a, b]
GUARDED:
  - target: a
    cond: isReady
  - target: b
BLOCKED: null
'': done
BOTH:
  target: [".x", ".y"]
  actions: [notify]
`
	var m TransitionMap
	require.NoError(t, yaml.Unmarshal([]byte(doc), &m))
	assert.Equal(t, []string{"TIMER", "MULTI", "GUARDED", "BLOCKED", "", "BOTH"}, m.Events())

	h, _ := m.Lookup("TIMER")
	assert.Equal(t, Targets{"yellow"}, h.Transitions[0].Target)

	h, _ = m.Lookup("MULTI")
	require.Len(t, h.Transitions, 2)
	assert.Equal(t, Targets{"b"}, h.Transitions[1].Target)

	h, _ = m.Lookup("GUARDED")
	require.Len(t, h.Transitions, 2)
	assert.Equal(t, "isReady", h.Transitions[0].Cond.Name)
	assert.Nil(t, h.Transitions[1].Cond)

	h, _ = m.Lookup("BLOCKED")
	assert.True(t, h.Forbidden)

	h, _ = m.Lookup("BOTH")
	assert.Equal(t, Targets{".x", ".y"}, h.Transitions[0].Target)
	assert.Equal(t, "notify", h.Transitions[0].Actions[0].Type)
}

func TestAfterListUnmarshalYAML(t *testing.T) {
	var byKey AfterList
	require.NoError(t, yaml.Unmarshal([]byte("1000: yellow\n2s: red\nSLOW: [green]\n"), &byKey))
	require.Len(t, byKey, 3)
	assert.Equal(t, "1000", byKey[0].Label())
	assert.Equal(t, "2000", byKey[1].Label())
	assert.Equal(t, "SLOW", byKey[2].Label())
	assert.Equal(t, Targets{"green"}, byKey[2].Target)

	var byList AfterList
	require.NoError(t, yaml.Unmarshal([]byte("- delay: 500\n  target: next\n  cond: ok\n"), &byList))
	require.Len(t, byList, 1)
	assert.Equal(t, "500", byList[0].Label())
	assert.Equal(t, "ok", byList[0].Cond.Name)
}
