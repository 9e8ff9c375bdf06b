package hub

import (
	"errors"
	"sync"
)

var (
	// errSinkClosed reports a write to a subscriber that already tore down.
	errSinkClosed = errors.New("hub: sink closed")
	// errSinkFull reports a write dropped because the subscriber is lagging.
	errSinkFull = errors.New("hub: sink full")
)

// Subscriber is one live streaming connection. It owns its frame sink: the
// channel is closed exactly once, on teardown, and only by the hub.
type Subscriber struct {
	// ID is unique for the lifetime of the process.
	ID string
	// Tenant is the owning tenant key; empty means the wildcard bucket.
	Tenant string
	// Survey optionally narrows delivery to a single survey's events.
	Survey string

	filter celFilter

	mu     sync.Mutex
	closed bool
	frames chan []byte
}

// Frames returns the subscriber's outbound frame stream. The channel is
// closed when the subscription tears down.
func (s *Subscriber) Frames() <-chan []byte { return s.frames }

// send queues a frame without blocking. A closed sink or a full buffer is
// reported to the caller; neither mutates registry state.
func (s *Subscriber) send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	select {
	case s.frames <- frame:
		return nil
	default:
		return errSinkFull
	}
}

// closeSink marks the subscriber closed and closes the channel. Idempotent.
func (s *Subscriber) closeSink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.frames)
}
