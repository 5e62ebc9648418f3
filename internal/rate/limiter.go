// Package rate enforces fixed-window login rate limits per identifier and
// per client IP, ahead of (and independent from) the lockout governor.
package rate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/tokengate/tokengate/internal/kv"
)

const (
	loginUserKeyPrefix = "rate:login:user:"
	loginIPKeyPrefix   = "rate:login:ip:"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle bool
	MaxAttempts      int
	Window           time.Duration
}

// Limiter enforces per-identifier and per-IP login rate limits using
// store counters.
type Limiter struct {
	store  *kv.Store
	config Config
}

// New creates a rate [Limiter] over the given store.
func New(store *kv.Store, cfg Config) *Limiter {
	return &Limiter{store: store, config: cfg}
}

func loginUserKey(identifier string) string { return loginUserKeyPrefix + identifier }
func loginIPKey(ip string) string           { return loginIPKeyPrefix + ip }

// CheckLogin reports whether the identifier+IP pair is within the login
// attempt budget. Read-only; it never advances a window.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if err := l.checkCounter(ctx, loginUserKey(identifier)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records a failed login attempt for the identifier+IP pair.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	count, err := l.incrementWithTTL(ctx, loginUserKey(identifier))
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, loginIPKey(ip))
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetLogin clears the counters for the identifier+IP pair after a
// successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, ip string) error {
	keys := []string{loginUserKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	return l.store.Delete(ctx, keys...)
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	value, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return errors.New("rate: corrupt counter value")
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	// Fixed-window semantics: TTL is set only by the first hit in the window.
	if count == 1 {
		if err := l.store.Expire(ctx, key, l.config.Window); err != nil {
			return 0, err
		}
	}
	return count, nil
}
