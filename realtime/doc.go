// Package realtime provides a tick-based deterministic runtime for xchart machines.
//
// The tick runtime differs from the event-driven interpreter only in event dispatch:
//   - Events are batched and processed at fixed tick boundaries
//   - Ordering within a tick is by priority, then by submission sequence
//   - Ticks are scheduled on an interpreter.Clock, so a SimulatedClock steps them
//
// # Example Usage
//
//	m, _ := xchart.Load(doc)
//	rt := realtime.NewRuntime(m, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//	})
//	rt.Start(ctx)
//	rt.SendEvent("JUMP")
//
// # Trade-offs vs Event-Driven
//
// Latency is up to one tick and throughput is bounded by MaxEventsPerTick per
// tick. In exchange, the same sequence of SendEvent calls always produces the same
// sequence of macrosteps, regardless of goroutine scheduling.
//
// # Use Cases
//
//   - Game logic at a fixed frame rate
//   - Fixed time-step simulations and control loops
//   - Reproducible test scenarios
//
// # Architecture
//
// Runtime embeds *interpreter.Interpreter: entry, transitions, delayed sends and
// invocations all go through the interpreter. Only event dispatch is replaced with
// tick batching.
package realtime
