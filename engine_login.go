package tokengate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tokengate/tokengate/internal/flows"
	"github.com/tokengate/tokengate/internal/rate"
)

// Login authenticates identifier+password and issues a fresh token pair
// under a new token family. rememberMe extends both TTLs by the configured
// multiplier and marks the refresh token for extension across rotations.
//
// Failures map to the package sentinels: [ErrLoginRateLimited],
// [ErrAccountLocked], [ErrInvalidCredentials], [ErrStoreUnavailable].
func (e *Engine) Login(ctx context.Context, identifier, password string, rememberMe bool) (*TokenPair, error) {
	deps := flows.LoginDeps{
		AccessTTL:            e.config.Token.AccessTTL,
		RefreshTTL:           e.config.Token.RefreshTTL,
		RememberMeMultiplier: e.config.RememberMe.Multiplier,

		ClientIPFromContext: clientIPFromContext,

		IsUserLocked:      e.lockout.IsUserLocked,
		LockoutRemaining:  e.lockout.LockoutTimeRemaining,
		RecordFailedLogin: e.lockout.RecordFailedLogin,
		ClearFailedLogins: e.lockout.ClearFailedLogins,

		VerifyCredentials: e.verifier.Verify,

		NewFamilyID:      uuid.NewString,
		MintAccess:       e.issuer.MintAccess,
		MintRefresh:      e.issuer.MintRefresh,
		SaveAccessToken:  e.tokens.SaveAccessToken,
		SaveRefreshToken: e.tokens.SaveRefreshToken,

		EmitAudit: e.emitAudit,
		Warn:      e.warn,

		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			LoginRateLimited:   ErrLoginRateLimited,
			AccountLocked:      ErrAccountLocked,
			InvalidCredentials: ErrInvalidCredentials,
		},
	}

	if e.rate != nil {
		deps.CheckLoginRate = func(ctx context.Context, identifier, ip string) error {
			if err := e.rate.CheckLogin(ctx, identifier, ip); err != nil {
				if errors.Is(err, rate.ErrRateLimited) {
					return fmt.Errorf("%w: %v", ErrLoginRateLimited, err)
				}
				return err
			}
			return nil
		}
		deps.RecordLoginHit = func(ctx context.Context, identifier, ip string) error {
			err := e.rate.IncrementLogin(ctx, identifier, ip)
			if err != nil && !errors.Is(err, rate.ErrRateLimited) {
				return err
			}
			// Crossing the budget on this increment is reported by the next
			// check; the current attempt already failed on credentials.
			return nil
		}
		deps.ResetLoginRate = e.rate.ResetLogin
	}

	if e.notifier != nil {
		deps.NotifyLockout = func(ctx context.Context, identifier string, retryAfter time.Duration) {
			e.notifier.NotifyLockout(ctx, identifier, retryAfter)
		}
	}

	result, err := flows.RunLogin(ctx, identifier, password, rememberMe, deps)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    bearerTokenType,
		ExpiresIn:    result.ExpiresIn,
	}, nil
}
