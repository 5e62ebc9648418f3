package tokengate

import (
	"context"
	"fmt"
	"time"

	"github.com/tokengate/tokengate/internal/flows"
)

// Refresh rotates a refresh token: the presented value must match the
// subject's current slot exactly, and a new pair is issued under the same
// token family. A superseded or revoked value terminates every session the
// subject has ([ErrTokenReplayDetected]); a chain older than the family
// maximum returns [ErrTokenFamilyExpired] and requires a fresh login.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	result := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		AccessTTL:            e.config.Token.AccessTTL,
		RefreshTTL:           e.config.Token.RefreshTTL,
		RememberMeMultiplier: e.config.RememberMe.Multiplier,

		ParseRefresh: e.parseRefresh,

		IsTokenBlacklisted:   e.tokens.IsTokenBlacklisted,
		IsTokenFamilyExpired: e.tokens.IsTokenFamilyExpired,
		ValidateRefreshToken: e.tokens.ValidateRefreshToken,
		RevokeAllUserTokens:  e.tokens.RevokeAllUserTokens,
		IsRememberMeToken:    e.tokens.IsRememberMeToken,

		MintAccess:         e.issuer.MintAccess,
		MintRefresh:        e.issuer.MintRefresh,
		SaveAccessToken:    e.tokens.SaveAccessToken,
		RotateRefreshToken: e.tokens.RotateRefreshToken,

		Warn: e.warn,
	})

	switch result.Failure {
	case flows.RefreshFailureNone:
		e.emitAudit(ctx, "refresh.success", true, result.Subject, nil, func() map[string]string {
			return map[string]string{"family_id": result.FamilyID}
		})
		return &TokenPair{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			TokenType:    bearerTokenType,
			ExpiresIn:    result.ExpiresIn,
		}, nil

	case flows.RefreshFailureParse:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, result.Err)

	case flows.RefreshFailureFamilyExpired:
		e.emitAudit(ctx, "refresh.family_expired", false, result.Subject, ErrTokenFamilyExpired, func() map[string]string {
			return map[string]string{"family_id": result.FamilyID}
		})
		return nil, ErrTokenFamilyExpired

	case flows.RefreshFailureReplay:
		e.emitAudit(ctx, "refresh.replay", false, result.Subject, ErrTokenReplayDetected, func() map[string]string {
			return map[string]string{"family_id": result.FamilyID}
		})
		return nil, ErrTokenReplayDetected

	default:
		return nil, result.Err
	}
}

// parseRefresh adapts the issuer's claim shape to the flow's flat tuple.
func (e *Engine) parseRefresh(token string) (string, string, time.Time, error) {
	claims, err := e.issuer.ParseRefresh(token)
	if err != nil {
		return "", "", time.Time{}, err
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return claims.Subject, claims.FamilyID, expiresAt, nil
}
