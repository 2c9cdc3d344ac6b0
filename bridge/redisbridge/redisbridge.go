// Package redisbridge implements bridge.Bridge on Redis Streams, giving
// entity events per-channel ordering, retention, and resume across hosts.
package redisbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/tautline/rigging-go/bridge"
)

// Config for the Redis-backed bridge. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// RedisPassword for AUTH, empty for none. ENV: REDIS_PASSWORD
	RedisPassword string `env:"REDIS_PASSWORD,default="`
	// RedisDB selects the logical database. ENV: REDIS_DB
	RedisDB int `env:"REDIS_DB,default=0"`
	// KeyPrefix for all keys. ENV: RIGGING_KEY_PREFIX
	KeyPrefix string `env:"RIGGING_KEY_PREFIX,default=rigging:bridge:"`

	// Client overrides the connection settings above when non-nil.
	Client redis.UniversalClient
}

// Bridge implements bridge.Bridge. One Redis stream per channel.
type Bridge struct {
	client    redis.UniversalClient
	keyPrefix string
}

// New connects and verifies the Redis backend described by cfg.
func New(cfg Config) (*Bridge, error) {
	client := cfg.Client
	if client == nil {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		client = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "rigging:bridge:"
	}
	return &Bridge{client: client, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Bridge using envdecode to populate Config.
func NewFromEnv() (*Bridge, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Close closes the Redis client.
func (b *Bridge) Close() error { return b.client.Close() }

func (b *Bridge) streamKey(channel string) string { return b.keyPrefix + "stream:" + channel }

// Publish implements bridge.Bridge. The envelope ID is the Redis stream
// entry ID.
func (b *Bridge) Publish(ctx context.Context, channel string, env bridge.Envelope) (string, error) {
	key := b.streamKey(channel)
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]any{
			"name": env.Name,
			"args": env.Args,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish to stream %s: %w", key, err)
	}
	return id, nil
}

// Subscribe implements bridge.Bridge. The stream is fed by a reader
// goroutine that lives until the context is canceled, the stream is closed,
// or the connection fails.
func (b *Bridge) Subscribe(ctx context.Context, channel string, lastEventID string) (bridge.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithCancel(ctx)
	s := &stream{
		ch:     make(chan bridge.Envelope, 128),
		ctx:    streamCtx,
		cancel: cancel,
	}
	go s.pump(b.client, b.streamKey(channel), lastEventID)
	return s, nil
}

// Cleanup implements bridge.Bridge by deleting the channel's stream. Active
// readers keep blocking until their contexts end; Redis has no per-stream
// subscriber registry to tear down.
func (b *Bridge) Cleanup(ctx context.Context, channel string) error {
	if err := b.client.Del(ctx, b.streamKey(channel)).Err(); err != nil {
		return fmt.Errorf("cleanup channel %s: %w", channel, err)
	}
	return nil
}

type stream struct {
	ch     chan bridge.Envelope
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	errMu sync.Mutex
	err   error
}

func (s *stream) fail(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *stream) failure() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *stream) pump(client redis.UniversalClient, key, lastEventID string) {
	defer close(s.ch)
	start := lastEventID
	if start == "" {
		// "$" starts at the next entry appended to the stream.
		start = "$"
	}
	for {
		select {
		case <-s.ctx.Done():
			s.fail(s.ctx.Err())
			return
		default:
		}
		res, err := client.XRead(s.ctx, &redis.XReadArgs{
			Streams: []string{key, start},
			Count:   64,
			Block:   500 * time.Millisecond,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if s.ctx.Err() != nil {
				s.fail(s.ctx.Err())
				return
			}
			s.fail(fmt.Errorf("read stream %s: %w", key, err))
			return
		}
		for _, sr := range res {
			for _, m := range sr.Messages {
				start = m.ID
				select {
				case s.ch <- decodeMessage(m):
				case <-s.ctx.Done():
					s.fail(s.ctx.Err())
					return
				}
			}
		}
	}
}

func decodeMessage(m redis.XMessage) bridge.Envelope {
	env := bridge.Envelope{ID: m.ID}
	if v, ok := m.Values["name"].(string); ok {
		env.Name = v
	}
	switch v := m.Values["args"].(type) {
	case string:
		if v != "" {
			env.Args = []byte(v)
		}
	case []byte:
		if len(v) > 0 {
			env.Args = v
		}
	}
	return env
}

// Next implements bridge.Stream.
func (s *stream) Next(ctx context.Context) (bridge.Envelope, error) {
	if s.closed.Load() {
		return bridge.Envelope{}, io.EOF
	}
	select {
	case env, ok := <-s.ch:
		if !ok {
			if err := s.failure(); err != nil && !errors.Is(err, context.Canceled) {
				return bridge.Envelope{}, err
			}
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
		s.cancel()
	}
	return nil
}

// Compile-time interface checks
var (
	_ bridge.Bridge = (*Bridge)(nil)
	_ bridge.Stream = (*stream)(nil)
)
