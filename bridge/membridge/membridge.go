// Package membridge provides an in-memory bridge.Bridge backed by Go
// channels. Channel state is process-local, so it suits single-process
// wiring and tests; use redisbridge when events must cross hosts.
package membridge

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tautline/rigging-go/bridge"
)

// Bridge implements bridge.Bridge with per-channel envelope logs and
// subscriber sets. Envelope IDs are monotonically increasing across the
// whole bridge, so resume positions stay unambiguous even when a channel is
// cleaned up and recreated.
type Bridge struct {
	mu       sync.RWMutex
	channels map[string]*channelState
	lastID   atomic.Int64
}

type channelState struct {
	mu        sync.RWMutex
	log       []bridge.Envelope
	consumers map[*stream]struct{}
	closed    bool
}

type stream struct {
	owner  *channelState
	ch     chan bridge.Envelope
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// New creates an empty in-memory bridge.
func New() *Bridge {
	return &Bridge{channels: make(map[string]*channelState)}
}

func (b *Bridge) channel(name string) *channelState {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, ok := b.channels[name]
	if !ok {
		cs = &channelState{consumers: make(map[*stream]struct{})}
		b.channels[name] = cs
	}
	return cs
}

// Publish implements bridge.Bridge.
func (b *Bridge) Publish(ctx context.Context, channel string, env bridge.Envelope) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	env.ID = strconv.FormatInt(b.lastID.Add(1), 10)

	cs := b.channel(channel)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return "", fmt.Errorf("channel %q has been cleaned up", channel)
	}
	cs.log = append(cs.log, env)

	for s := range cs.consumers {
		select {
		case s.ch <- env:
		case <-s.ctx.Done():
			delete(cs.consumers, s)
		default:
			// Consumer buffer full; it resumes from the log via its
			// lastEventID on reconnect.
		}
	}
	return env.ID, nil
}

// Subscribe implements bridge.Bridge.
func (b *Bridge) Subscribe(ctx context.Context, channel string, lastEventID string) (bridge.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cs := b.channel(channel)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return nil, fmt.Errorf("channel %q has been cleaned up", channel)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := &stream{
		owner:  cs,
		ch:     make(chan bridge.Envelope, 128),
		ctx:    streamCtx,
		cancel: cancel,
	}
	cs.consumers[s] = struct{}{}

	if lastEventID != "" {
		start := -1
		for i, env := range cs.log {
			if env.ID == lastEventID {
				start = i + 1
				break
			}
		}
		if start >= 0 {
			for _, env := range cs.log[start:] {
				select {
				case s.ch <- env:
				case <-streamCtx.Done():
					delete(cs.consumers, s)
					return nil, streamCtx.Err()
				}
			}
		}
	}
	return s, nil
}

// Cleanup implements bridge.Bridge.
func (b *Bridge) Cleanup(ctx context.Context, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	cs, ok := b.channels[channel]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	delete(b.channels, channel)
	b.mu.Unlock()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.closed = true
	for s := range cs.consumers {
		s.cancel()
		close(s.ch)
	}
	cs.consumers = make(map[*stream]struct{})
	cs.log = nil
	return nil
}

// Next implements bridge.Stream.
func (s *stream) Next(ctx context.Context) (bridge.Envelope, error) {
	if s.closed.Load() {
		return bridge.Envelope{}, io.EOF
	}
	select {
	case env, ok := <-s.ch:
		if !ok {
			return bridge.Envelope{}, io.EOF
		}
		return env, nil
	case <-ctx.Done():
		return bridge.Envelope{}, ctx.Err()
	case <-s.ctx.Done():
		return bridge.Envelope{}, s.ctx.Err()
	}
}

// Close implements bridge.Stream.
func (s *stream) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.owner.mu.Lock()
		delete(s.owner.consumers, s)
		s.owner.mu.Unlock()
		s.cancel()
	}
	return nil
}

// Compile-time interface checks
var (
	_ bridge.Bridge = (*Bridge)(nil)
	_ bridge.Stream = (*stream)(nil)
)
