package flows

import (
	"context"
	"time"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Now time.Time

	ParseRefresh        func(token string) (subject, familyID string, expiresAt time.Time, err error)
	BlacklistToken      func(ctx context.Context, token string, ttl time.Duration) error
	RemoveRefreshTokens func(ctx context.Context, subject string) error

	EmitAudit func(ctx context.Context, event string, success bool, subject string, err error, meta func() map[string]string)
	Warn      func(string, ...any)
}

// RunLogout tears down the session named by an optional refresh token: the
// presented token is blacklisted for its remaining signed lifetime, and the
// subject's current access/refresh slots are evicted. The flow is
// idempotent and unconditionally succeeds from the caller's perspective: a
// missing, malformed, or already-invalid token performs no mutation and
// leaks nothing about token validity.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) {
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.Now.IsZero() {
		deps.Now = time.Now()
	}

	if token == "" {
		deps.EmitAudit(ctx, "logout", true, "", nil, nil)
		return
	}

	subject, _, expiresAt, err := deps.ParseRefresh(token)
	if err != nil {
		deps.EmitAudit(ctx, "logout", true, "", nil, nil)
		return
	}

	// The presented token may already have been rotated out of the slot;
	// blacklist it directly so it cannot be replayed after logout.
	if err := deps.BlacklistToken(ctx, token, expiresAt.Sub(deps.Now)); err != nil {
		deps.Warn("tokengate: logout blacklist failed")
	}
	if err := deps.RemoveRefreshTokens(ctx, subject); err != nil {
		// Logout still reports success; the slots carry TTLs and will
		// expire on their own if the store write was lost.
		deps.Warn("tokengate: logout teardown failed")
	}
	deps.EmitAudit(ctx, "logout", true, subject, nil, nil)
}
