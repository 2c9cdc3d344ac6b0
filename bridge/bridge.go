// Package bridge relays entity events across process boundaries. A Bridge
// carries name+args envelopes over a transport with per-channel isolation and
// ordered delivery; Forward and Attach wire it to rigging observables so an
// event triggered on one side reappears on the other.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tautline/rigging-go"
	"github.com/tautline/rigging-go/internal/evlog"
)

// Bridge carries event envelopes between processes with channel-based
// isolation and ordered delivery within each channel.
type Bridge interface {
	// Publish stores and fans out an envelope on the channel, assigning its
	// ID. Returns the assigned ID.
	Publish(ctx context.Context, channel string, env Envelope) (eventID string, err error)

	// Subscribe returns a stream of the channel's envelopes. With an empty
	// lastEventID the stream starts at the next published envelope;
	// otherwise it resumes from the envelope after that ID.
	Subscribe(ctx context.Context, channel string, lastEventID string) (Stream, error)

	// Cleanup removes all state associated with a channel, including stored
	// envelopes and active subscriptions.
	Cleanup(ctx context.Context, channel string) error
}

// Stream provides ordered envelope consumption within a channel. Streams are
// safe for use by a single consumer.
type Stream interface {
	// Next blocks until the next envelope is available or the context is
	// canceled. Returns io.EOF once the stream is closed and drained.
	Next(ctx context.Context) (Envelope, error)

	// Close releases resources associated with the stream.
	Close() error
}

// Envelope is one entity event in transit.
type Envelope struct {
	// ID orders the envelope within its channel; assigned by Publish.
	ID string `json:"id"`
	// Name is the triggered event name.
	Name string `json:"name"`
	// Args is the JSON-encoded trigger argument list.
	Args []byte `json:"args,omitempty"`
}

// EncodeArgs serializes trigger arguments for an Envelope. Nil and empty
// argument lists encode to nil.
func EncodeArgs(args []any) ([]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode event args: %w", err)
	}
	return data, nil
}

// DecodeArgs reverses EncodeArgs. Numbers decode as float64, objects as
// map[string]any, per encoding/json defaults.
func DecodeArgs(data []byte) ([]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var args []any
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("decode event args: %w", err)
	}
	return args, nil
}

// ForwardOption configures Forward.
type ForwardOption func(*forwarder)

// WithEvents restricts forwarding to the named events. By default every
// event crosses the bridge.
func WithEvents(events ...string) ForwardOption {
	return func(f *forwarder) { f.events = events }
}

// WithLogger sets the logger used for publish failures.
func WithLogger(log *slog.Logger) ForwardOption {
	return func(f *forwarder) { f.log = log }
}

type forwarder struct {
	events []string
	log    *slog.Logger
}

// Forward publishes src's events to the channel: it subscribes to the
// source's AllEvents stream and serializes each trigger into an Envelope.
// Canceling the returned subscription stops forwarding. Arguments must be
// JSON-encodable; envelopes that fail to encode or publish are dropped and
// logged.
func Forward(ctx context.Context, src rigging.Observable, b Bridge, channel string, opts ...ForwardOption) (rigging.Subscription, error) {
	if src == nil {
		return nil, fmt.Errorf("forward: nil source")
	}
	if b == nil {
		return nil, fmt.Errorf("forward: nil bridge")
	}
	f := &forwarder{log: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}

	allowed := make(map[string]struct{}, len(f.events))
	for _, name := range f.events {
		allowed[name] = struct{}{}
	}

	sub := src.On(rigging.AllEvents, func(args ...any) {
		if len(args) == 0 {
			return
		}
		name, ok := args[0].(string)
		if !ok {
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[name]; !ok {
				return
			}
		}
		data, err := EncodeArgs(args[1:])
		if err != nil {
			f.log.Debug("bridge forward drop", evlog.Channel(channel), evlog.Event(name), evlog.Err(err))
			return
		}
		if _, err := b.Publish(ctx, channel, Envelope{Name: name, Args: data}); err != nil {
			f.log.Debug("bridge publish failed", evlog.Channel(channel), evlog.Event(name), evlog.Err(err))
		}
	})
	return sub, nil
}

// AttachOption configures Attach.
type AttachOption func(*attacher)

// WithLastEventID resumes the underlying subscription from the envelope
// after the given ID.
func WithLastEventID(id string) AttachOption {
	return func(a *attacher) { a.lastEventID = id }
}

// WithAttachLogger sets the logger used for decode failures and stream
// errors.
func WithAttachLogger(log *slog.Logger) AttachOption {
	return func(a *attacher) { a.log = log }
}

type attacher struct {
	lastEventID string
	log         *slog.Logger
}

// Attach re-triggers the channel's envelopes on dst. It consumes a Stream on
// its own goroutine until the context is canceled, the stream ends, or the
// returned stop func is called. Envelopes that fail to decode are dropped
// and logged.
func Attach(ctx context.Context, b Bridge, channel string, dst rigging.Triggerer, opts ...AttachOption) (stop func(), err error) {
	if b == nil {
		return nil, fmt.Errorf("attach: nil bridge")
	}
	if dst == nil {
		return nil, fmt.Errorf("attach: nil destination")
	}
	a := &attacher{log: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	stream, err := b.Subscribe(ctx, channel, a.lastEventID)
	if err != nil {
		return nil, fmt.Errorf("attach: subscribe %s: %w", channel, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer func() {
			// Best-effort stream close; the pump is already done with it.
			_ = stream.Close()
		}()
		for {
			env, err := stream.Next(runCtx)
			if err != nil {
				if runCtx.Err() == nil {
					a.log.Debug("bridge stream ended", evlog.Channel(channel), evlog.Err(err))
				}
				return
			}
			args, err := DecodeArgs(env.Args)
			if err != nil {
				a.log.Debug("bridge envelope drop", evlog.Channel(channel), evlog.Event(env.Name), evlog.Err(err))
				continue
			}
			dst.Trigger(env.Name, args...)
		}
	}()
	return cancel, nil
}
