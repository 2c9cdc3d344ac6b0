package rigging

import (
	"context"
	"sync"
)

// Signal is a coalescing change broadcast: the channel-flavored counterpart
// to Handler callbacks for callers built around select loops. Notifications
// carry no payload; a subscriber learns that something changed and re-reads
// whatever state it cares about. The zero value is ready to use.
type Signal struct {
	mu     sync.RWMutex
	subs   []chan struct{}
	closed bool
}

// Notify ticks every subscriber. Delivery is best-effort: sends are
// non-blocking and a subscriber that has not drained its previous tick is
// skipped, so slow consumers coalesce notifications instead of stalling the
// notifier. Returns ctx.Err when the context is already done.
func (s *Signal) Notify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscriber returns a channel that ticks on Notify. The channel has
// capacity 1; it is closed when the Signal closes. After Close, Subscriber
// returns an already-closed channel.
func (s *Signal) Subscriber() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	ch := make(chan struct{}, 1)
	s.subs = append(s.subs, ch)
	return ch
}

// Close closes every subscriber channel. Further Notify calls are no-ops.
func (s *Signal) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}
