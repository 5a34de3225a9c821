package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/internal/primitives"
	"github.com/comalice/xchart/interpreter"
)

const tickRate = 10 * time.Millisecond

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

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
    after:
      100: red
  red:
    on:
      TIMER: green
`

func loadMachine(t *testing.T, doc string, opts ...core.Option) *core.Machine {
	t.Helper()
	cfg, err := primitives.LoadYAML([]byte(doc))
	require.NoError(t, err)
	m, err := core.NewMachine(cfg, opts...)
	require.NoError(t, err)
	return m
}

func newRuntime(t *testing.T, m *core.Machine, capacity int) (*Runtime, *interpreter.SimulatedClock) {
	t.Helper()
	clock := interpreter.NewSimulatedClock(epoch)
	rt := NewRuntime(m, Config{
		TickRate:         tickRate,
		MaxEventsPerTick: capacity,
		Clock:            clock,
		Logger:           log.New(io.Discard),
	})
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() { _ = rt.Stop() })
	return rt, clock
}

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) action(name string) primitives.Action {
	return primitives.Exec(name, func(context.Context, any, primitives.Event, primitives.ActionMeta) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.names = append(r.names, name)
		return nil
	})
}

func (r *recorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestTickSchedule(t *testing.T) {
	rt, clock := newRuntime(t, loadMachine(t, trafficLight), 0)
	assert.Equal(t, uint64(0), rt.TickNumber())

	clock.Advance(10 * tickRate)
	assert.Equal(t, uint64(10), rt.TickNumber())
}

func TestEventsWaitForTick(t *testing.T) {
	rt, clock := newRuntime(t, loadMachine(t, trafficLight), 0)

	require.NoError(t, rt.SendEvent("TIMER"))
	assert.Equal(t, 1, rt.Pending())
	assert.Equal(t, "green", rt.State().Value)

	clock.Advance(tickRate)
	assert.Equal(t, "yellow", rt.State().Value)
	assert.Equal(t, 0, rt.Pending())
}

func TestDelayedTransitionsShareTheClock(t *testing.T) {
	rt, clock := newRuntime(t, loadMachine(t, trafficLight), 0)
	require.NoError(t, rt.SendEvent("TIMER"))
	clock.Advance(tickRate)
	require.Equal(t, "yellow", rt.State().Value)

	clock.Advance(99 * time.Millisecond)
	assert.Equal(t, "yellow", rt.State().Value)
	clock.Advance(time.Millisecond)
	assert.Equal(t, "red", rt.State().Value)
}

func TestPriorityOrdering(t *testing.T) {
	rec := &recorder{}
	m := loadMachine(t, `
id: m
initial: idle
states:
  idle:
    on:
      A:
        actions: a
      B:
        actions: b
      C:
        actions: c
`, core.WithActions(map[string]primitives.Action{
		"a": rec.action("a"),
		"b": rec.action("b"),
		"c": rec.action("c"),
	}))
	rt, clock := newRuntime(t, m, 0)

	require.NoError(t, rt.SendEvent("A"))
	require.NoError(t, rt.SendEventWithPriority("B", 5))
	require.NoError(t, rt.SendEventWithPriority("C", 5))
	clock.Advance(tickRate)

	assert.Equal(t, []string{"b", "c", "a"}, rec.recorded())
}

func TestSortEventsIsStable(t *testing.T) {
	events := []EventWithMeta{
		{Event: primitives.Event{Type: "x"}, SequenceNum: 2},
		{Event: primitives.Event{Type: "y"}, SequenceNum: 0, Priority: -1},
		{Event: primitives.Event{Type: "z"}, SequenceNum: 1},
	}
	sortEvents(events)
	var got []string
	for _, e := range events {
		got = append(got, e.Event.Type)
	}
	assert.Equal(t, []string{"z", "x", "y"}, got)
}

func TestQueueFull(t *testing.T) {
	rt, clock := newRuntime(t, loadMachine(t, trafficLight), 2)
	require.NoError(t, rt.SendEvent("TIMER"))
	require.NoError(t, rt.SendEvent("TIMER"))
	assert.ErrorIs(t, rt.SendEvent("TIMER"), ErrQueueFull)

	clock.Advance(tickRate)
	assert.Equal(t, "red", rt.State().Value)
	assert.NoError(t, rt.SendEvent("TIMER"))
}

func TestInvalidEvent(t *testing.T) {
	rt, _ := newRuntime(t, loadMachine(t, trafficLight), 0)
	var ie *core.InvalidInputError
	assert.ErrorAs(t, rt.SendEvent(nil), &ie)
}

func TestSendBeforeStartFails(t *testing.T) {
	rt := NewRuntime(loadMachine(t, trafficLight), Config{
		TickRate: tickRate,
		Clock:    interpreter.NewSimulatedClock(epoch),
		Logger:   log.New(io.Discard),
	})
	var le *core.LifecycleError
	require.ErrorAs(t, rt.SendEvent("TIMER"), &le)
	assert.Equal(t, core.CodeNotStarted, le.Code)
	assert.Equal(t, 0, rt.Pending())
}

func TestStopHaltsTicks(t *testing.T) {
	rt, clock := newRuntime(t, loadMachine(t, trafficLight), 0)
	clock.Advance(tickRate)
	require.NoError(t, rt.Stop())

	assert.Equal(t, 0, clock.Pending())
	clock.Advance(10 * tickRate)
	assert.Equal(t, uint64(1), rt.TickNumber())
	assert.True(t, errors.Is(rt.SendEvent("TIMER"), core.ErrLifecycle))
}

func TestTickContinuesPastFailedMacrosteps(t *testing.T) {
	boom := errors.New("boom")
	m := loadMachine(t, `
id: m
initial: a
states:
  a:
    on:
      FAIL:
        actions: explode
      GO: b
  b: {}
`, core.WithActions(map[string]primitives.Action{
		"explode": primitives.Exec("explode", func(context.Context, any, primitives.Event, primitives.ActionMeta) error {
			return boom
		}),
	}))
	rt, _ := newRuntime(t, m, 0)
	require.NoError(t, rt.SendEvent("FAIL"))
	require.NoError(t, rt.SendEvent("GO"))

	err := rt.Tick(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "seq 0")
	assert.Equal(t, "b", rt.State().Value)
	assert.Equal(t, uint64(1), rt.TickNumber())
}

func TestParallelRegionsUnderTicks(t *testing.T) {
	m := loadMachine(t, `
id: player
type: parallel
states:
  movement:
    initial: standing
    states:
      standing:
        on:
          MOVE: walking
      walking:
        on:
          STOP: standing
  weapon:
    initial: holstered
    states:
      holstered:
        on:
          MOVE: drawn
      drawn: {}
`)
	rt, clock := newRuntime(t, m, 0)
	require.NoError(t, rt.SendEvent("MOVE"))
	clock.Advance(tickRate)

	assert.Equal(t, map[string]any{"movement": "walking", "weapon": "drawn"}, rt.State().Value)

	require.NoError(t, rt.SendEvent("STOP"))
	clock.Advance(tickRate)
	assert.True(t, rt.State().Matches("movement.standing"))
	assert.True(t, rt.State().Matches("weapon.drawn"))
}

func TestMachineCompletionEndsTicks(t *testing.T) {
	m := loadMachine(t, `
id: m
initial: a
states:
  a:
    on:
      END: done
  done:
    type: final
`)
	rt, clock := newRuntime(t, m, 0)
	require.NoError(t, rt.SendEvent("END"))
	clock.Advance(tickRate)

	assert.Equal(t, interpreter.Stopped, rt.Status())
	assert.Equal(t, 0, clock.Pending())
}
