// Package redis is a persist.Adapter over Redis, for clients that run on a
// server (for example a rendering tier holding per-visitor state).
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/persist"
	"github.com/redis/go-redis/v9"
)

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithPrefix namespaces every key, typically with a visitor or device id.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires idle snapshots. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ persist.Adapter = (*Store)(nil)

// NewStore wraps an existing client.
func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: "storefront:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(k string) string { return s.prefix + k }

// Get implements persist.Adapter. Reads refresh the TTL.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 {
		_ = s.client.Expire(ctx, s.key(key), s.ttl).Err()
	}
	return val, nil
}

// Set implements persist.Adapter.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

// Remove implements persist.Adapter.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
