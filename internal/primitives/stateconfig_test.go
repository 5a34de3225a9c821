package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		newConfig   func() *StateConfig
		wantErr     bool
		errContains string
	}{
		{
			name:      "valid atomic",
			newConfig: func() *StateConfig { return NewStateConfig("idle", Atomic) },
		},
		{
			name: "valid inferred compound",
			newConfig: func() *StateConfig {
				s := NewStateConfig("parent", "")
				s.State("a")
				return s
			},
		},
		{
			name: "valid parallel",
			newConfig: func() *StateConfig {
				s := NewStateConfig("p", Parallel)
				s.State("r1").State("x")
				s.State("r2").State("y")
				return s
			},
		},
		{
			name:        "missing key",
			newConfig:   func() *StateConfig { return NewStateConfig("", Atomic) },
			wantErr:     true,
			errContains: "key is required",
		},
		{
			name:        "key with delimiter",
			newConfig:   func() *StateConfig { return NewStateConfig("a.b", Atomic) },
			wantErr:     true,
			errContains: "cannot contain",
		},
		{
			name:        "invalid type",
			newConfig:   func() *StateConfig { return NewStateConfig("x", "weird") },
			wantErr:     true,
			errContains: "invalid state type",
		},
		{
			name: "atomic with children",
			newConfig: func() *StateConfig {
				return NewStateConfig("x", Atomic).AddChild(NewStateConfig("y", Atomic))
			},
			wantErr:     true,
			errContains: "cannot have Children",
		},
		{
			name:        "compound without children",
			newConfig:   func() *StateConfig { return NewStateConfig("x", Compound) },
			wantErr:     true,
			errContains: "requires Children",
		},
		{
			name: "unknown initial",
			newConfig: func() *StateConfig {
				s := NewStateConfig("x", Compound).WithInitial("nope")
				s.State("a")
				return s
			},
			wantErr:     true,
			errContains: `initial child "nope" not found`,
		},
		{
			name: "parallel with initial",
			newConfig: func() *StateConfig {
				s := NewStateConfig("p", Parallel).WithInitial("r1")
				s.State("r1")
				return s
			},
			wantErr:     true,
			errContains: "cannot have Initial",
		},
		{
			name: "history with children",
			newConfig: func() *StateConfig {
				return NewStateConfig("h", ShallowHistory).AddChild(NewStateConfig("a", Atomic))
			},
			wantErr:     true,
			errContains: "history state h cannot have Children",
		},
		{
			name: "duplicate child keys",
			newConfig: func() *StateConfig {
				s := NewStateConfig("x", Compound)
				s.State("a")
				s.State("a")
				return s
			},
			wantErr:     true,
			errContains: "duplicate child",
		},
		{
			name: "bad transition target",
			newConfig: func() *StateConfig {
				return NewStateConfig("x", Atomic).Transition("E", "a..b")
			},
			wantErr:     true,
			errContains: "empty segment",
		},
		{
			name: "invoke without src",
			newConfig: func() *StateConfig {
				return NewStateConfig("x", Atomic).AddInvoke(InvokeConfig{ID: "child"})
			},
			wantErr:     true,
			errContains: "src is required",
		},
		{
			name: "nested child error",
			newConfig: func() *StateConfig {
				s := NewStateConfig("x", Compound)
				s.State("bad", Final).State("inner")
				return s
			},
			wantErr:     true,
			errContains: "child 0 (bad) of x failed validation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.newConfig().Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestStateConfigFluentBuilders(t *testing.T) {
	s := NewStateConfig("light", Compound).WithInitial("green").WithID("tl")
	s.State("green").
		Transition("TIMER", "yellow").
		Transition("NOOP", "").
		WithEntry(Named("enter_green")).
		AddExit(Named("exit_green")).
		AddActivity("blink").
		AddAfter(1000, Transition("yellow"))
	s.State("yellow").Forbid("TIMER")

	require.NoError(t, s.Validate())
	green := s.Child("green")
	require.NotNil(t, green)
	assert.Equal(t, Atomic, green.ResolvedType())
	assert.Equal(t, Compound, s.ResolvedType())
	assert.Equal(t, []string{"TIMER", "NOOP"}, green.On.Events())
	h, _ := green.On.Lookup("NOOP")
	assert.Empty(t, h.Transitions[0].Target)
	assert.Equal(t, Names{"blink"}, green.Activities)
	assert.Len(t, green.After, 1)
	h, _ = s.Child("yellow").On.Lookup("TIMER")
	assert.True(t, h.Forbidden)
	assert.Nil(t, s.Child("red"))
}

func TestStateConfigFlatten(t *testing.T) {
	root := NewStateConfig("root", Compound)
	a := root.State("a")
	a.State("a1")
	a.State("a2")
	root.State("b")

	flat := root.Flatten()
	assert.Len(t, flat, 4)
	assert.Contains(t, flat, "a.a1")
	assert.Contains(t, flat, "b")
	assert.Same(t, a, flat["a"])
}

func TestStateTypeAliases(t *testing.T) {
	assert.True(t, ShallowHistory.IsHistory())
	assert.True(t, DeepHistory.IsHistory())
	assert.False(t, Final.IsHistory())
}
