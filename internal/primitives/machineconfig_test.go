package primitives

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trafficLightYAML = `
id: light
initial: green
context:
  cycles: 0
states:
  green:
    entry: enter_green
    on:
      TIMER: yellow
    after:
      1000: yellow
  yellow:
    on:
      TIMER:
        target: red
        actions:
          - type: xchart.send
            event: PED_WAIT
            delay: 250
  red:
    initial: walk
    on:
      TIMER: green
      POWER_OUTAGE: null
    states:
      walk:
        on: { PED_TIMER: wait }
      wait:
        on: { PED_TIMER: stop }
      stop:
        type: final
      hist:
        type: history
`

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML([]byte(trafficLightYAML))
	require.NoError(t, err)

	assert.Equal(t, "light", cfg.MachineID())
	assert.Equal(t, map[string]any{"cycles": 0}, cfg.Context)

	keys := make([]string, 0, len(cfg.Children))
	for _, c := range cfg.Children {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"green", "yellow", "red"}, keys, "document order is preserved")

	green := cfg.Child("green")
	assert.Equal(t, Actions{{Type: "enter_green"}}, green.Entry)
	require.Len(t, green.After, 1)
	assert.Equal(t, time.Second, green.After[0].Delay)

	yellow := cfg.Child("yellow")
	h, ok := yellow.On.Lookup("TIMER")
	require.True(t, ok)
	send := h.Transitions[0].Actions[0]
	assert.Equal(t, ActionSend, send.Type)
	assert.Equal(t, "PED_WAIT", send.Event.Type)
	assert.Equal(t, "PED_WAIT", send.ID)
	assert.Equal(t, 250*time.Millisecond, send.Delay)

	red, err := cfg.FindState("red")
	require.NoError(t, err)
	h, _ = red.On.Lookup("POWER_OUTAGE")
	assert.True(t, h.Forbidden)

	stop, err := cfg.FindState("red.stop")
	require.NoError(t, err)
	assert.Equal(t, Final, stop.Type)
	hist, err := cfg.FindState("red.hist")
	require.NoError(t, err)
	assert.Equal(t, ShallowHistory, hist.Type)
}

func TestLoadJSONKeepsKeyOrder(t *testing.T) {
	doc := `{
  "id": "m",
  "type": "parallel",
  "states": {
    "zeta": {"initial": "z1", "states": {"z1": {}, "z2": {}}},
    "alpha": {"initial": "a1", "states": {"a1": {"on": {"GO": "a2"}}, "a2": {}}}
  }
}`
	cfg, err := LoadJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, Parallel, cfg.Type)
	assert.Equal(t, "zeta", cfg.Children[0].Key)
	assert.Equal(t, "alpha", cfg.Children[1].Key)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "light.yaml")
	require.NoError(t, os.WriteFile(path, []byte(trafficLightYAML), 0o600))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Key)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		errContains string
	}{
		{name: "unknown field", doc: "id: m\nstatez: {}\n", errContains: "decode machine"},
		{name: "no states", doc: "id: m\n", errContains: "at least one state"},
		{name: "bad initial", doc: "id: m\ninitial: x\nstates:\n  a: {}\n", errContains: `initial child "x" not found`},
		{name: "atomic root", doc: "id: m\ntype: atomic\nstates:\n  a: {}\n", errContains: "root state must be compound or parallel"},
		{name: "duplicate ids", doc: "id: m\nstates:\n  a: {id: x}\n  b: {id: x}\n", errContains: "duplicate state id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadYAML([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestMachineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *MachineConfig
		wantErr bool
	}{
		{
			name:    "missing id",
			config:  &MachineConfig{},
			wantErr: true,
		},
		{
			name: "valid hierarchical",
			config: func() *MachineConfig {
				m := NewMachineConfig("machine", "parent")
				m.State("parent", Compound).WithInitial("child").State("child")
				return m
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFindStateErrors(t *testing.T) {
	m := NewMachineConfig("m", "a")
	m.State("a").State("a1")

	_, err := m.FindState("")
	require.Error(t, err)
	_, err = m.FindState("zz")
	assert.EqualError(t, err, `state "zz" not found`)
	_, err = m.FindState("a.zz")
	assert.EqualError(t, err, `child "zz" not found in "a"`)
}
