package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrStoreUnavailable indicates the backing Redis deployment is unreachable
	// or returned a transport-level failure. Callers must treat it as a hard
	// failure and never as absence.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrKeyNotFound is returned by Get and TTLRemaining for absent keys.
	ErrKeyNotFound = errors.New("credential store key not found")
)

// Store adapts a Redis client to the flat key/value contract the lifecycle
// manager and limiters are written against. It carries no key layout and no
// policy; every transport failure surfaces as [ErrStoreUnavailable] so the
// layers above can fail closed.
type Store struct {
	redis redis.UniversalClient
}

// New creates a [Store] backed by the given Redis client.
func New(redisClient redis.UniversalClient) *Store {
	return &Store{redis: redisClient}
}

// Put writes value under key with the given TTL, overwriting any prior value.
func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// PutIfAbsent writes value under key only when the key does not exist.
// Returns true when this call created the key. The write and the existence
// check are a single atomic SETNX round trip.
func (s *Store) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	created, err := s.redis.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return created, nil
}

// Get returns the value stored under key, or [ErrKeyNotFound].
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return value, nil
}

// Delete removes the given keys. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// TTLRemaining returns the remaining lifetime of key. Keys without an
// expiry report zero. Absent keys report [ErrKeyNotFound].
func (s *Store) TTLRemaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// go-redis passes TTL's -2 (no key) and -1 (no expiry) replies through
	// as raw durations rather than scaling them to seconds.
	switch {
	case ttl == -2:
		return 0, ErrKeyNotFound
	case ttl < 0:
		return 0, nil
	default:
		return ttl, nil
	}
}

// Incr atomically increments the integer stored under key and returns the
// new value. The caller is responsible for setting a TTL on the first
// increment via [Store.Expire].
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// Expire sets the TTL on an existing key.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// AddToSet adds member to the set stored under setKey.
func (s *Store) AddToSet(ctx context.Context, setKey, member string) error {
	if err := s.redis.SAdd(ctx, setKey, member).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RemoveFromSet removes member from the set stored under setKey.
// Removing an absent member is not an error.
func (s *Store) RemoveFromSet(ctx context.Context, setKey, member string) error {
	if err := s.redis.SRem(ctx, setKey, member).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Members returns all members of the set stored under setKey. An absent
// set reports an empty slice, which SMEMBERS already yields.
func (s *Store) Members(ctx context.Context, setKey string) ([]string, error) {
	members, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return members, nil
}
