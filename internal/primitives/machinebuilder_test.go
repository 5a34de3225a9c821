package primitives

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineBuilder(t *testing.T) {
	b := NewMachineBuilder("player", "stopped").WithContext(map[string]any{"volume": 5})
	b.Atomic("stopped").Transition("PLAY", "playing")
	playing := b.Compound("playing").WithInitial("normal")
	playing.Atomic("normal").Transition("FF", "fast").After(time.Second, "fast")
	playing.Atomic("fast").Always("normal")
	playing.History("hist", true)
	playing.Up().Final("ejected")

	cfg, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "player", cfg.MachineID())
	require.Len(t, cfg.Children, 3)
	assert.Equal(t, []string{"stopped", "playing", "ejected"},
		[]string{cfg.Children[0].Key, cfg.Children[1].Key, cfg.Children[2].Key})

	pl := cfg.Child("playing")
	assert.Equal(t, "normal", pl.Initial)
	assert.Len(t, pl.Children, 3)
	assert.Equal(t, ShallowHistory, pl.Child("hist").Type)
	h, ok := pl.Child("fast").On.Lookup(NullEvent)
	require.True(t, ok)
	assert.Equal(t, Targets{"normal"}, h.Transitions[0].Target)
	assert.Equal(t, Final, cfg.Child("ejected").Type)
}

func TestMachineBuilderParallelRoot(t *testing.T) {
	b := NewMachineBuilder("p", "").ParallelRoot()
	b.Compound("a").WithInitial("a1").Atomic("a1").Up()
	b.Compound("b").WithInitial("b1").Atomic("b1")
	cfg := b.MustBuild()
	assert.Equal(t, Parallel, cfg.Type)
	assert.Len(t, cfg.Children, 2)
}

func TestMachineBuilderInvalid(t *testing.T) {
	b := NewMachineBuilder("m", "missing")
	b.Atomic("a")
	_, err := b.Build()
	require.Error(t, err)
	assert.Panics(t, func() { b.MustBuild() })
}
