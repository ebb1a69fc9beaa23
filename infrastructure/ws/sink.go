package ws

import (
	"chat-relay/domain/event"
	"context"
	"fmt"
	"sync"
)

var (
	errSessionClosed  = fmt.Errorf("session closed")
	errSessionStalled = fmt.Errorf("session send buffer stalled")
)

// SessionSink bridges the fanout worker and one session's write pump.
// Consume is called by the fanout; the write pump drains the channel.
// A session whose buffer stays full until the sink timeout is closed on
// the spot: the write pump shuts down, the connection drops, and cleanup
// removes the session from the room. Later events then fail fast instead
// of stalling the shared fanout lane for another timeout.
type SessionSink struct {
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// close unblocks both pumps. Safe to call from the fanout and from the
// session cleanup concurrently.
func (s *SessionSink) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	data, ok := encodeFrame(e)
	if !ok {
		return nil
	}
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return errSessionClosed
	case <-ctx.Done():
		s.close()
		return errSessionStalled
	}
}
