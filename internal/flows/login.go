package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Subject      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	LoginRateLimited   error
	AccountLocked      error
	InvalidCredentials error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	RememberMeMultiplier int

	ClientIPFromContext func(context.Context) string

	CheckLoginRate func(ctx context.Context, identifier, ip string) error
	RecordLoginHit func(ctx context.Context, identifier, ip string) error
	ResetLoginRate func(ctx context.Context, identifier, ip string) error

	IsUserLocked      func(ctx context.Context, identifier string) (bool, error)
	LockoutRemaining  func(ctx context.Context, identifier string) (time.Duration, error)
	RecordFailedLogin func(ctx context.Context, identifier string) (bool, error)
	ClearFailedLogins func(ctx context.Context, identifier string) error

	VerifyCredentials func(ctx context.Context, identifier, password string) (string, bool, error)

	NewFamilyID      func() string
	MintAccess       func(subject, familyID string, ttl time.Duration) (string, error)
	MintRefresh      func(subject, familyID string, ttl time.Duration) (string, error)
	SaveAccessToken  func(ctx context.Context, subject, token string, ttl time.Duration) error
	SaveRefreshToken func(ctx context.Context, subject, token string, ttl time.Duration, rememberMe bool) error

	NotifyLockout func(ctx context.Context, identifier string, retryAfter time.Duration)
	EmitAudit     func(ctx context.Context, event string, success bool, subject string, err error, meta func() map[string]string)
	Warn          func(string, ...any)

	Errors LoginErrors
}

// RunLogin executes the sign-in state machine: rate check, lock check,
// credential check, then token issuance or failure bookkeeping.
func RunLogin(ctx context.Context, identifier, password string, rememberMe bool, deps LoginDeps) (*LoginResult, error) {
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.VerifyCredentials == nil ||
		deps.IsUserLocked == nil ||
		deps.RecordFailedLogin == nil ||
		deps.ClearFailedLogins == nil ||
		deps.NewFamilyID == nil ||
		deps.MintAccess == nil ||
		deps.MintRefresh == nil ||
		deps.SaveAccessToken == nil ||
		deps.SaveRefreshToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckLoginRate != nil {
		// CheckLoginRate returns either the host's rate-limited sentinel or
		// a store failure; both reject, only the former is audited as such.
		if err := deps.CheckLoginRate(ctx, identifier, ip); err != nil {
			if errors.Is(err, deps.Errors.LoginRateLimited) {
				deps.EmitAudit(ctx, "login.rate_limited", false, "", err, func() map[string]string {
					return map[string]string{"identifier": identifier}
				})
			}
			return nil, err
		}
	}

	locked, err := deps.IsUserLocked(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, lockedError(ctx, identifier, deps)
	}

	subject, ok, err := deps.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		// Verifier infrastructure failure: fail closed without touching
		// the failure counter.
		return nil, err
	}
	if !ok {
		return nil, runFailedLogin(ctx, identifier, ip, deps)
	}

	if err := deps.ClearFailedLogins(ctx, identifier); err != nil {
		return nil, err
	}
	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, identifier, ip); err != nil {
			deps.Warn("tokengate: login rate reset failed")
		}
	}

	accessTTL, refreshTTL := deps.AccessTTL, deps.RefreshTTL
	if rememberMe && deps.RememberMeMultiplier > 1 {
		accessTTL *= time.Duration(deps.RememberMeMultiplier)
		refreshTTL *= time.Duration(deps.RememberMeMultiplier)
	}

	familyID := deps.NewFamilyID()

	access, err := deps.MintAccess(subject, familyID, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := deps.MintRefresh(subject, familyID, refreshTTL)
	if err != nil {
		return nil, err
	}

	if err := deps.SaveAccessToken(ctx, subject, access, accessTTL); err != nil {
		return nil, err
	}
	if err := deps.SaveRefreshToken(ctx, subject, refresh, refreshTTL, rememberMe); err != nil {
		return nil, err
	}

	deps.EmitAudit(ctx, "login.success", true, subject, nil, func() map[string]string {
		return map[string]string{"identifier": identifier}
	})

	return &LoginResult{
		Subject:      subject,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

// runFailedLogin performs the bad-credentials bookkeeping: count the
// failure, escalate to lockout at the threshold, and report a generic
// failure that never distinguishes identifier from secret.
func runFailedLogin(ctx context.Context, identifier, ip string, deps LoginDeps) error {
	if deps.RecordLoginHit != nil {
		if err := deps.RecordLoginHit(ctx, identifier, ip); err != nil {
			deps.Warn("tokengate: login rate increment failed")
		}
	}

	lockedNow, err := deps.RecordFailedLogin(ctx, identifier)
	if err != nil {
		return err
	}
	if lockedNow {
		if deps.NotifyLockout != nil {
			remaining := time.Duration(0)
			if deps.LockoutRemaining != nil {
				remaining, _ = deps.LockoutRemaining(ctx, identifier)
			}
			deps.NotifyLockout(ctx, identifier, remaining)
		}
		deps.EmitAudit(ctx, "login.lockout", false, "", deps.Errors.AccountLocked, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return lockedError(ctx, identifier, deps)
	}

	deps.EmitAudit(ctx, "login.failure", false, "", deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"identifier": identifier}
	})
	return deps.Errors.InvalidCredentials
}

func lockedError(ctx context.Context, identifier string, deps LoginDeps) error {
	remaining := time.Duration(0)
	if deps.LockoutRemaining != nil {
		remaining, _ = deps.LockoutRemaining(ctx, identifier)
	}
	if remaining > 0 {
		return fmt.Errorf("%w: retry in %d seconds", deps.Errors.AccountLocked, int64(remaining.Seconds()))
	}
	return deps.Errors.AccountLocked
}
