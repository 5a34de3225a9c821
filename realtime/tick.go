package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/comalice/xchart/internal/core"
)

// Tick processes the events queued since the previous tick. It runs on the tick
// schedule once started; calling it directly steps the runtime by hand.
func (r *Runtime) Tick(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tick panic: %v", p)
		}
		r.mu.Lock()
		r.tickNum++
		r.inflight = 0
		r.mu.Unlock()
	}()

	events := r.collectEvents()
	sortEvents(events)
	return r.processEvents(ctx, events)
}

// collectEvents atomically retrieves and clears the event batch.
func (r *Runtime) collectEvents() []EventWithMeta {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.batch
	r.batch = make([]EventWithMeta, 0, r.capacity)
	r.inflight = len(events)
	return events
}

// processEvents sends each event through the interpreter. Processing continues past
// failed macrosteps and stops once the interpreter is no longer running.
func (r *Runtime) processEvents(ctx context.Context, events []EventWithMeta) error {
	var errs []error
	for _, em := range events {
		err := r.Interpreter.Send(ctx, em.Event)
		if errors.Is(err, core.ErrLifecycle) {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s (seq %d): %w", em.Event.Type, em.SequenceNum, err))
		}
	}
	return errors.Join(errs...)
}
