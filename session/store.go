// Package session stores the single currently valid refresh token per
// identity in Redis.
//
// The store is the source of truth for refresh-token validity: a refresh
// token that parses and verifies but is absent from — or different from —
// the stored value must be rejected by callers. Entries live under
// "refresh_token:<identity>" with a TTL equal to the refresh-token
// lifetime, and every write replaces whatever was there before, so at most
// one session is live per identity at any time.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when no session entry exists for the
// identity (never stored, expired, or deleted by logout).
var ErrNotFound = errors.New("session not found")

// ErrUnavailable wraps Redis transport failures. Callers treat it as a
// recoverable infrastructure error, distinct from an absent session.
var ErrUnavailable = errors.New("session store unavailable")

// DefaultKeyPrefix matches the key layout used by the rest of the platform.
const DefaultKeyPrefix = "refresh_token:"

// Store is a Redis-backed refresh-token session store. All operations run
// under a bounded timeout so a slow Redis cannot stall request handling.
type Store struct {
	rdb       redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore creates a Store on the given Redis client. An empty prefix
// falls back to [DefaultKeyPrefix]; a non-positive opTimeout disables the
// per-operation deadline.
func NewStore(rdb redis.UniversalClient, prefix string, opTimeout time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, opTimeout: opTimeout}
}

func (s *Store) key(identity string) string {
	return s.prefix + identity
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Put stores refreshToken as the one live session for identity, expiring
// after ttl. Any prior entry is deleted first inside the same transaction
// so a stale value can never survive with its old TTL countdown.
func (s *Store) Put(ctx context.Context, identity, refreshToken string, ttl time.Duration) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	key := s.key(identity)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Set(ctx, key, refreshToken, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Get returns the stored refresh token for identity, or [ErrNotFound] when
// no live entry exists.
func (s *Store) Get(ctx context.Context, identity string) (string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	value, err := s.rdb.Get(ctx, s.key(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return value, nil
}

// Delete removes the session entry for identity and reports whether one
// was present. Deleting an absent entry is not an error.
func (s *Store) Delete(ctx context.Context, identity string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	deleted, err := s.rdb.Del(ctx, s.key(identity)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return deleted > 0, nil
}

// Ping reports Redis availability.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
