package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/tokengate/tokengate/internal/kv"
)

const (
	failedLoginKeyPrefix = "login:failed:"
	lockoutKeyPrefix     = "user:lockout:"
)

// LockoutConfig holds the lockout policy.
type LockoutConfig struct {
	// Threshold is the failed-attempt count at which the identifier locks.
	Threshold int
	// LockoutDuration is how long a lockout record lives.
	LockoutDuration time.Duration
	// CounterWindow is the TTL placed on the failure counter by its first
	// increment; the counter acts as a rolling window of recent failures.
	CounterWindow time.Duration
}

// LockoutLimiter tracks failed authentication attempts per identifier and
// enforces temporary lockouts.
type LockoutLimiter struct {
	store  *kv.Store
	config LockoutConfig
}

// NewLockoutLimiter creates a lockout limiter over the given store.
func NewLockoutLimiter(store *kv.Store, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{store: store, config: cfg}
}

func failedLoginKey(identifier string) string { return failedLoginKeyPrefix + identifier }
func lockoutKey(identifier string) string     { return lockoutKeyPrefix + identifier }

// RecordFailedLogin atomically increments the identifier's failure counter
// and locks the account when the counter reaches the threshold. Returns
// true when a lockout record was written by this call.
//
// Two concurrent threshold-crossing failures may both observe the lock
// condition and both write the record; the second write only resets the
// same TTL. Callers triggering notifications on a true return must
// de-duplicate them.
func (l *LockoutLimiter) RecordFailedLogin(ctx context.Context, identifier string) (bool, error) {
	count, err := l.store.Incr(ctx, failedLoginKey(identifier))
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.store.Expire(ctx, failedLoginKey(identifier), l.config.CounterWindow); err != nil {
			return false, err
		}
	}

	if count < int64(l.config.Threshold) {
		return false, nil
	}
	if err := l.store.Put(ctx, lockoutKey(identifier), "1", l.config.LockoutDuration); err != nil {
		return false, err
	}
	return true, nil
}

// ClearFailedLogins deletes the failure counter. Called on any successful
// authentication.
func (l *LockoutLimiter) ClearFailedLogins(ctx context.Context, identifier string) error {
	return l.store.Delete(ctx, failedLoginKey(identifier))
}

// IsUserLocked reports whether a lockout record is present for the
// identifier. While present, every authentication attempt is rejected
// regardless of credential correctness.
func (l *LockoutLimiter) IsUserLocked(ctx context.Context, identifier string) (bool, error) {
	return l.store.Exists(ctx, lockoutKey(identifier))
}

// LockoutTimeRemaining returns the remaining lockout duration, or zero when
// the identifier is not locked.
func (l *LockoutLimiter) LockoutTimeRemaining(ctx context.Context, identifier string) (time.Duration, error) {
	remaining, err := l.store.TTLRemaining(ctx, lockoutKey(identifier))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return remaining, nil
}

// UnlockUserAccount removes both the lockout record and the failure
// counter. Administrative override.
func (l *LockoutLimiter) UnlockUserAccount(ctx context.Context, identifier string) error {
	return l.store.Delete(ctx, lockoutKey(identifier), failedLoginKey(identifier))
}
