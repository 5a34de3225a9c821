// Package production provides integrations for running machines in services:
// transition publishing and snapshot encoding.
package production

import (
	"context"
	"sync"
	"time"

	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/internal/primitives"
)

// Metadata describes the interpreter instance and macrostep a published event belongs to.
type Metadata struct {
	MachineID  string
	SessionID  string
	Transition string // "from -> to", in State.String form
	Changed    bool
	Timestamp  time.Time
}

// PublishedEvent bundles an event with its resulting state and machine metadata.
type PublishedEvent struct {
	Event    primitives.Event
	State    *core.State
	Metadata Metadata
}

// Publisher receives every macrostep an interpreter completes.
type Publisher interface {
	Publish(ctx context.Context, event PublishedEvent) error
}

// ChannelPublisher forwards events to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher struct {
	mu     sync.RWMutex
	ch     chan<- PublishedEvent
	closed bool
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- PublishedEvent) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event PublishedEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil
	}
	select {
	case p.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil // Non-blocking drop
	}
}

// Close closes the output channel. Later publishes are dropped.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
