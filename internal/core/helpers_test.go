package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comalice/xchart/internal/primitives"
)

func loadMachine(t *testing.T, doc string, opts ...Option) *Machine {
	t.Helper()
	cfg, err := primitives.LoadYAML([]byte(doc))
	require.NoError(t, err)
	m, err := NewMachine(cfg, opts...)
	require.NoError(t, err)
	return m
}

func initial(t *testing.T, m *Machine) *State {
	t.Helper()
	s, err := m.InitialState(context.Background())
	require.NoError(t, err)
	return s
}

func step(t *testing.T, m *Machine, from any, event any) *State {
	t.Helper()
	s, err := m.Transition(context.Background(), from, event)
	require.NoError(t, err)
	return s
}

// actionNames renders actions as their String form: application actions by type,
// builtins with their argument.
func actionNames(actions []primitives.Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.String())
	}
	return out
}

const trafficLight = `
id: light
initial: green
states:
  green:
    on:
      TIMER: yellow
  yellow:
    on:
      TIMER: red
  red:
    on:
      TIMER: green
`
