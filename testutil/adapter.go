// Package testutil provides helpers for running the same scenarios against the
// event-driven interpreter and the tick-based runtime.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/interpreter"
	"github.com/comalice/xchart/realtime"
)

// RuntimeAdapter provides a common interface for both event-driven and tick-based runtimes
// This allows running the same test suite on both runtimes
type RuntimeAdapter interface {
	Start(ctx context.Context) error
	Stop() error
	SendEvent(event any) error
	Matches(value string) bool
	State() *core.State
	WaitForStability(timeout time.Duration) error
}

// EventDrivenAdapter wraps the event-driven interpreter
type EventDrivenAdapter struct {
	i *interpreter.Interpreter
}

// NewEventDrivenAdapter creates a new adapter for the event-driven interpreter
func NewEventDrivenAdapter(m *core.Machine, opts ...interpreter.Option) *EventDrivenAdapter {
	return &EventDrivenAdapter{
		i: interpreter.New(m, opts...),
	}
}

func (a *EventDrivenAdapter) Start(ctx context.Context) error {
	return a.i.Start(ctx)
}

func (a *EventDrivenAdapter) Stop() error {
	return a.i.Stop()
}

func (a *EventDrivenAdapter) SendEvent(event any) error {
	return a.i.Send(context.Background(), event)
}

func (a *EventDrivenAdapter) Matches(value string) bool {
	s := a.i.State()
	return s != nil && s.Matches(value)
}

func (a *EventDrivenAdapter) State() *core.State {
	return a.i.State()
}

// WaitForStability returns immediately: Send processes run-to-completion.
func (a *EventDrivenAdapter) WaitForStability(time.Duration) error {
	return nil
}

// TickBasedAdapter wraps the tick-based runtime
type TickBasedAdapter struct {
	rt       *realtime.Runtime
	tickRate time.Duration
}

// NewTickBasedAdapter creates a new adapter for the tick-based runtime
func NewTickBasedAdapter(m *core.Machine, tickRate time.Duration, opts ...interpreter.Option) *TickBasedAdapter {
	return &TickBasedAdapter{
		rt: realtime.NewRuntime(m, realtime.Config{
			TickRate: tickRate,
		}, opts...),
		tickRate: tickRate,
	}
}

func (a *TickBasedAdapter) Start(ctx context.Context) error {
	return a.rt.Start(ctx)
}

func (a *TickBasedAdapter) Stop() error {
	return a.rt.Stop()
}

func (a *TickBasedAdapter) SendEvent(event any) error {
	return a.rt.SendEvent(event)
}

func (a *TickBasedAdapter) Matches(value string) bool {
	s := a.rt.State()
	return s != nil && s.Matches(value)
}

func (a *TickBasedAdapter) State() *core.State {
	return a.rt.State()
}

// WaitForStability waits until every queued event has been processed.
func (a *TickBasedAdapter) WaitForStability(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for a.rt.Pending() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("%d events still pending after %v", a.rt.Pending(), timeout)
		}
		time.Sleep(a.tickRate / 2)
	}
	return nil
}
