package tokengate

import (
	"context"

	"github.com/tokengate/tokengate/internal/flows"
)

// Logout tears down the session named by refreshToken: the presented token
// is blacklisted for its remaining lifetime and the subject's current
// access/refresh slots are evicted. Logout is idempotent and always
// succeeds; an empty or invalid token performs no mutation and leaks
// nothing about token validity.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	flows.RunLogout(ctx, refreshToken, flows.LogoutDeps{
		ParseRefresh:        e.parseRefresh,
		BlacklistToken:      e.tokens.BlacklistToken,
		RemoveRefreshTokens: e.tokens.RemoveRefreshTokens,
		EmitAudit:           e.emitAudit,
		Warn:                e.warn,
	})
	return nil
}
