package interpreter

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// Clock schedules delayed sends.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback. Stop reports whether it prevented the callback.
type Timer interface {
	Stop() bool
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SimulatedClock is a manually advanced clock for deterministic tests and replays.
// Due callbacks run synchronously inside Advance, ordered by due time and then by
// scheduling order.
type SimulatedClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*simTimer
}

type simTimer struct {
	clock *SimulatedClock
	due   time.Time
	seq   uint64
	f     func()
}

// NewSimulatedClock returns a clock reading start.
func NewSimulatedClock(start time.Time) *SimulatedClock {
	return &SimulatedClock{now: start}
}

func (c *SimulatedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *SimulatedClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &simTimer{clock: c, due: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due. Timers
// scheduled by a callback fire in the same call if they are due before the target.
func (c *SimulatedClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		next := c.popDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.due
		c.mu.Unlock()
		next.f()
	}
}

// Pending returns the number of timers not yet fired or stopped.
func (c *SimulatedClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *SimulatedClock) popDue(target time.Time) *simTimer {
	if len(c.timers) == 0 {
		return nil
	}
	i := slices.IndexFunc(c.timers, func(t *simTimer) bool {
		return !t.due.After(target)
	})
	if i < 0 {
		return nil
	}
	for j, t := range c.timers {
		if t.due.After(target) {
			continue
		}
		if earlier(t, c.timers[i]) {
			i = j
		}
	}
	t := c.timers[i]
	c.timers = slices.Delete(c.timers, i, i+1)
	return t
}

func earlier(a, b *simTimer) bool {
	if c := a.due.Compare(b.due); c != 0 {
		return c < 0
	}
	return cmp.Less(a.seq, b.seq)
}

func (t *simTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.timers, t)
	if i < 0 {
		return false
	}
	c.timers = slices.Delete(c.timers, i, i+1)
	return true
}
