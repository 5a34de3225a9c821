package testutil

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/internal/primitives"
)

// TrafficLight cycles green, yellow, red on TIMER.
const TrafficLight = `
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

// Pedestrian is a traffic light whose red state nests a walk/wait/stop signal.
const Pedestrian = `
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
    initial: walk
    on:
      TIMER: green
    states:
      walk:
        on:
          PED_TIMER: wait
      wait:
        on:
          PED_TIMER: stop
      stop: {}
`

// MustMachine compiles a YAML definition, failing the test on error.
func MustMachine(t testing.TB, doc string, opts ...core.Option) *core.Machine {
	t.Helper()
	cfg, err := primitives.LoadYAML([]byte(doc))
	require.NoError(t, err)
	m, err := core.NewMachine(cfg, opts...)
	require.NoError(t, err)
	return m
}

// Recorder records the names of actions as an executor runs them.
type Recorder struct {
	mu    sync.Mutex
	names []string
}

// Action returns an action named name that records its own name.
func (r *Recorder) Action(name string) primitives.Action {
	return primitives.Exec(name, func(context.Context, any, primitives.Event, primitives.ActionMeta) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.names = append(r.names, name)
		return nil
	})
}

// Actions builds an action registry of recording actions, for core.WithActions.
func (r *Recorder) Actions(names ...string) map[string]primitives.Action {
	out := make(map[string]primitives.Action, len(names))
	for _, name := range names {
		out[name] = r.Action(name)
	}
	return out
}

// Names returns the recorded names in execution order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.names)
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = nil
}
