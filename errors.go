package tokengate

import (
	"errors"

	"github.com/tokengate/tokengate/internal/kv"
)

var (
	// ErrEngineNotReady indicates the engine was not fully wired through
	// [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidToken indicates a token that fails signature, structure,
	// expiry, or blacklist checks. Reject; no retry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenFamilyExpired indicates the rotation chain exceeded the
	// absolute session lifetime. The subject must sign in again.
	ErrTokenFamilyExpired = errors.New("token family expired")
	// ErrTokenReplayDetected indicates a superseded refresh token was
	// presented. All of the subject's sessions have been terminated.
	ErrTokenReplayDetected = errors.New("token replay detected: all sessions terminated")
	// ErrInvalidCredentials is the generic sign-in failure. It never
	// distinguishes a bad identifier from a bad secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the identifier is temporarily locked out
	// after repeated failures. Wrapped messages carry a retry hint.
	ErrAccountLocked = errors.New("account locked")
	// ErrLoginRateLimited indicates the identifier or client IP exceeded
	// its login attempt budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrStoreUnavailable indicates the credential store is unreachable.
	// Every path fails closed on it: nothing is minted and nothing
	// validates against a degraded store.
	ErrStoreUnavailable = kv.ErrStoreUnavailable
)
