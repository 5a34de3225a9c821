package extensibility

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/xchart/internal/primitives"
)

// EventSource feeds external events into an interpreter. The interpreter reads
// until the channel is closed or the interpreter stops.
type EventSource interface {
	Events() <-chan primitives.Event
}

// ChannelEventSource adapts a caller-owned channel. Closing the channel ends the
// source.
type ChannelEventSource struct {
	ch <-chan primitives.Event
}

func NewChannelEventSource(ch <-chan primitives.Event) *ChannelEventSource {
	return &ChannelEventSource{ch: ch}
}

func (s *ChannelEventSource) Events() <-chan primitives.Event { return s.ch }

// TimerEventSource emits the same event every period, for heartbeat and timeout
// machines. A tick that finds the buffer full is dropped and counted.
type TimerEventSource struct {
	out     chan primitives.Event
	event   primitives.Event
	done    chan struct{}
	stop    sync.Once
	dropped atomic.Uint64
}

// NewTimerEventSource starts emitting eventType with data every period.
func NewTimerEventSource(eventType string, data any, period time.Duration) *TimerEventSource {
	s := &TimerEventSource{
		out:   make(chan primitives.Event, 10),
		event: primitives.NewEvent(eventType, data),
		done:  make(chan struct{}),
	}
	go s.loop(time.NewTicker(period))
	return s
}

func (s *TimerEventSource) loop(ticker *time.Ticker) {
	defer close(s.out)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
		select {
		case s.out <- s.event:
		default:
			s.dropped.Add(1)
		}
	}
}

func (s *TimerEventSource) Events() <-chan primitives.Event { return s.out }

// Dropped returns how many ticks were discarded because nobody was reading.
func (s *TimerEventSource) Dropped() uint64 { return s.dropped.Load() }

// Stop ends the source and closes its channel. Safe to call more than once.
func (s *TimerEventSource) Stop() {
	s.stop.Do(func() { close(s.done) })
}
