package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/interpreter"
)

// ErrQueueFull is returned by SendEvent when the batch of the next tick is at capacity.
var ErrQueueFull = errors.New("event queue full")

// Runtime provides tick-based deterministic execution by embedding the
// event-driven Interpreter and replacing only event dispatch.
type Runtime struct {
	*interpreter.Interpreter

	tickRate time.Duration
	clock    interpreter.Clock
	logger   *log.Logger

	mu       sync.Mutex
	batch    []EventWithMeta
	capacity int
	seq      uint64
	tickNum  uint64
	inflight int
	running  bool
	ctx      context.Context
	timer    interpreter.Timer
}

// Config configures the tick runtime.
type Config struct {
	TickRate         time.Duration // Fixed tick rate (e.g., 16.67ms for 60 FPS)
	MaxEventsPerTick int           // Event queue capacity (default: 1000)
	Clock            interpreter.Clock
	Logger           *log.Logger
}

// NewRuntime creates a tick-based runtime for m. opts configure the embedded
// interpreter; the clock and logger of cfg are passed on to it.
func NewRuntime(m *core.Machine, cfg Config, opts ...interpreter.Option) *Runtime {
	if cfg.MaxEventsPerTick <= 0 {
		cfg.MaxEventsPerTick = 1000
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 16667 * time.Microsecond // Default 60 FPS
	}
	if cfg.Clock == nil {
		cfg.Clock = interpreter.RealClock{}
	}
	base := []interpreter.Option{interpreter.WithClock(cfg.Clock)}
	if cfg.Logger != nil {
		base = append(base, interpreter.WithLogger(cfg.Logger))
	} else {
		cfg.Logger = log.Default()
	}

	return &Runtime{
		Interpreter: interpreter.New(m, append(base, opts...)...),
		tickRate:    cfg.TickRate,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		batch:       make([]EventWithMeta, 0, cfg.MaxEventsPerTick),
		capacity:    cfg.MaxEventsPerTick,
	}
}

// Start enters the initial state and schedules the first tick.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.Interpreter.Start(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	r.running = true
	r.ctx = context.WithoutCancel(ctx)
	r.schedule()
	return nil
}

// Stop cancels the tick schedule, discards queued events and stops the interpreter.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	r.running = false
	r.batch = r.batch[:0]
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	return r.Interpreter.Stop()
}

// schedule arms the next tick. The caller must hold mu.
func (r *Runtime) schedule() {
	r.timer = r.clock.AfterFunc(r.tickRate, r.onTick)
}

func (r *Runtime) onTick() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	ctx := r.ctx
	r.mu.Unlock()

	if err := r.Tick(ctx); err != nil {
		r.logger.Error("tick failed", "tick", r.TickNumber(), "err", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && r.Status() == interpreter.Running {
		r.schedule()
	}
}

// SendEvent queues an event for the next tick. event is a name, a primitives.Event
// or a *primitives.Event.
func (r *Runtime) SendEvent(event any) error {
	return r.SendEventWithPriority(event, 0)
}

// SendEventWithPriority queues an event; within a tick, higher priorities are
// processed first. Events are only accepted while the runtime is running.
func (r *Runtime) SendEventWithPriority(event any, priority int) error {
	e, err := core.ToEvent(event)
	if err != nil {
		return err
	}
	switch r.Status() {
	case interpreter.NotStarted:
		return core.NewLifecycleError(core.CodeNotStarted, r.ID(), e.Type, "event sent before start")
	case interpreter.Stopped:
		return core.NewLifecycleError(core.CodeStopped, r.ID(), e.Type, "event sent after stop")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batch) >= r.capacity {
		return ErrQueueFull
	}
	r.batch = append(r.batch, EventWithMeta{
		Event:       e,
		SequenceNum: r.seq,
		Priority:    priority,
	})
	r.seq++
	return nil
}

// TickNumber returns the number of ticks processed.
func (r *Runtime) TickNumber() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickNum
}

// Pending returns the number of events queued or being processed.
func (r *Runtime) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batch) + r.inflight
}
