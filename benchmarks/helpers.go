// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"context"
	"fmt"

	"github.com/comalice/xchart"
	"github.com/comalice/xchart/builder"
	"github.com/comalice/xchart/internal/production"
)

// GenFlatConfig creates a flat machine with n atomic states cycling via "tick" events.
func GenFlatConfig(n int) *xchart.MachineConfig {
	if n < 1 {
		n = 1
	}
	states := make([]*xchart.StateConfig, n)
	for i := range n {
		target := fmt.Sprintf("s%d", (i+1)%n)
		states[i] = builder.New(fmt.Sprintf("s%d", i), builder.On("tick", target))
	}
	return builder.Machine(fmt.Sprintf("flat_%d", n), states...)
}

// GenDeepConfig creates a hierarchy depth levels deep whose innermost state flips
// between two leaves.
func GenDeepConfig(depth int) *xchart.MachineConfig {
	if depth < 1 {
		depth = 1
	}
	s := builder.Composite(fmt.Sprintf("c%d", depth-1),
		builder.New("leaf1", builder.On("tick", "leaf2")),
		builder.New("leaf2", builder.On("tick", "leaf1")),
	)
	for i := depth - 2; i >= 0; i-- {
		s = builder.Composite(fmt.Sprintf("c%d", i), s)
	}
	return builder.Machine(fmt.Sprintf("deep_%d", depth), s)
}

// GenWideTransitions creates one main state with many guarded "tick" candidates. Only
// the last guard passes, so selection evaluates every candidate.
func GenWideTransitions(numTransitions int) *xchart.MachineConfig {
	if numTransitions < 1 {
		numTransitions = 1
	}
	never := xchart.CondFunc(func(context.Context, any, xchart.Event, xchart.GuardMeta) (bool, error) {
		return false, nil
	})
	opts := make([]builder.Option, 0, numTransitions)
	states := []*xchart.StateConfig{nil}
	for i := range numTransitions {
		target := fmt.Sprintf("target%d", i)
		if i < numTransitions-1 {
			opts = append(opts, builder.On("tick", target, builder.WithGuard(never)))
		} else {
			opts = append(opts, builder.On("tick", target))
		}
		states = append(states, builder.New(target, builder.On("tick", "main")))
	}
	states[0] = builder.New("main", opts...)
	return builder.Machine(fmt.Sprintf("wide_%d", numTransitions), states...)
}

// MustMachine compiles cfg or panics.
func MustMachine(cfg *xchart.MachineConfig, opts ...xchart.Option) *xchart.Machine {
	m, err := xchart.NewMachine(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// GenSnapshotYAML encodes the state of a generated machine after one tick.
func GenSnapshotYAML(numStates int, hierarchical bool) []byte {
	cfg := GenFlatConfig(numStates)
	if hierarchical {
		cfg = GenDeepConfig(5)
	}
	s, err := MustMachine(cfg).Transition(context.Background(), nil, "tick")
	if err != nil {
		panic(err)
	}
	data, err := production.YAMLCodec{}.Encode(s)
	if err != nil {
		panic(err)
	}
	return data
}
