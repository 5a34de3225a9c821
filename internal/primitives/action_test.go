package primitives

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestActionConstructors(t *testing.T) {
	send := Send(NewEvent("PING", nil), WithDelay(time.Second))
	assert.Equal(t, ActionSend, send.Type)
	assert.Equal(t, "PING", send.ID)
	assert.Equal(t, time.Second, send.Delay)
	assert.True(t, send.IsBuiltin())
	assert.Equal(t, "xchart.send(PING)", send.String())

	parent := SendParent(NewEvent("UP", nil), WithSendID("up-1"))
	assert.Equal(t, ParentTarget, parent.To)
	assert.Equal(t, "up-1", parent.ID)

	ref := Send(NewEvent("LATER", nil), WithDelayRef("SLOW"), WithTarget("child"))
	assert.Equal(t, "SLOW", ref.DelayRef)
	assert.Equal(t, "child", ref.To)

	expr := SendExpr(func(ext any, e Event) Event { return NewEvent("X", ext) },
		WithDelayExpr(func(any, Event) time.Duration { return time.Minute }))
	assert.NotNil(t, expr.EventExpr)
	assert.NotNil(t, expr.DelayExpr)

	assert.Equal(t, "xchart.cancel(PING)", Cancel("PING").String())
	assert.Equal(t, "xchart.start(beep)", Start(Activity{Type: "beep", ID: "beep"}).String())
	assert.Equal(t, ActionStop, Stop(Activity{Type: "beep", ID: "beep"}).Type)
	assert.Equal(t, ActionLog, Log("lbl", nil).Type)

	named := Named("notify")
	assert.False(t, named.IsBuiltin())
	assert.False(t, named.Bound())
	inline := Exec("notify", func(context.Context, any, Event, ActionMeta) error { return nil })
	assert.True(t, inline.Bound())
	assert.Equal(t, "notify", inline.String())
}

func TestActionUnmarshalYAML(t *testing.T) {
	doc := `
- notify
- type: xchart.send
  event: {type: PING, data: 1}
  delay: 2s
  to: child
- type: xchart.send
  event: PONG
  delay: LONG
- type: xchart.assign
  assign: {count: 0}
- type: xchart.cancel
  id: PING
- type: custom
  params: {level: 3}
`
	var list Actions
	require.NoError(t, yaml.Unmarshal([]byte(doc), &list))
	require.Len(t, list, 6)
	assert.Equal(t, "notify", list[0].Type)

	assert.Equal(t, "PING", list[1].Event.Type)
	assert.Equal(t, 1, list[1].Event.Data)
	assert.Equal(t, 2*time.Second, list[1].Delay)
	assert.Equal(t, "child", list[1].To)
	assert.Equal(t, "PING", list[1].ID)

	assert.Equal(t, "LONG", list[2].DelayRef)
	assert.Zero(t, list[2].Delay)

	assert.Equal(t, map[string]any{"count": 0}, list[3].Assignments)
	assert.Equal(t, "PING", list[4].ID)
	assert.Equal(t, map[string]any{"level": 3}, list[5].Params)
}

func TestActionUnmarshalYAMLRequiresType(t *testing.T) {
	var a Action
	err := yaml.Unmarshal([]byte("params: {x: 1}\n"), &a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action type is required")
}

func TestGuardUnmarshalYAML(t *testing.T) {
	var byName Guard
	require.NoError(t, yaml.Unmarshal([]byte("isReady"), &byName))
	assert.Equal(t, "isReady", byName.Name)

	var withParams Guard
	require.NoError(t, yaml.Unmarshal([]byte("type: over\nparams: {limit: 5}\n"), &withParams))
	assert.Equal(t, "over", withParams.Name)
	assert.Equal(t, map[string]any{"limit": 5}, withParams.Params)
	assert.Equal(t, "over", withParams.String())

	inline := CondFunc(func(context.Context, any, Event, GuardMeta) (bool, error) { return true, nil })
	assert.Equal(t, "<inline>", inline.String())
}
