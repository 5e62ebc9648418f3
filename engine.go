package tokengate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tokengate/tokengate/internal/audit"
	"github.com/tokengate/tokengate/internal/limiters"
	"github.com/tokengate/tokengate/internal/rate"
	"github.com/tokengate/tokengate/internal/tokens"
)

// Engine is the authentication orchestrator. It owns no credential data;
// verification is delegated to the caller's [CredentialVerifier] while the
// engine manages the token lifecycle around it. Safe for concurrent use.
type Engine struct {
	config   Config
	issuer   TokenIssuer
	verifier CredentialVerifier
	notifier LockoutNotifier

	tokens  *tokens.Manager
	lockout *limiters.LockoutLimiter
	rate    *rate.Limiter
	audit   *audit.Dispatcher

	logger *log.Logger
}

// Close drains and stops the audit pipeline. The engine must not be used
// after Close.
func (e *Engine) Close() {
	e.audit.Close()
}

// AuditDropped reports how many audit events were shed because the
// pipeline buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// ValidateAccess verifies an access token end to end: signature and claim
// checks through the issuer, then the blacklist. Returns the subject id on
// success. A store failure fails closed with [ErrStoreUnavailable].
func (e *Engine) ValidateAccess(ctx context.Context, token string) (string, error) {
	claims, err := e.issuer.ParseAccess(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	blacklisted, err := e.tokens.IsTokenBlacklisted(ctx, token)
	if err != nil {
		return "", err
	}
	if blacklisted {
		return "", fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// IsAccountLocked reports whether the identifier is currently locked out.
func (e *Engine) IsAccountLocked(ctx context.Context, identifier string) (bool, error) {
	return e.lockout.IsUserLocked(ctx, identifier)
}

// LockoutRemaining returns how long the identifier stays locked, or zero
// when it is not locked.
func (e *Engine) LockoutRemaining(ctx context.Context, identifier string) (time.Duration, error) {
	return e.lockout.LockoutTimeRemaining(ctx, identifier)
}

// UnlockAccount clears both the lockout record and the failure counter.
// Administrative override.
func (e *Engine) UnlockAccount(ctx context.Context, identifier string) error {
	if err := e.lockout.UnlockUserAccount(ctx, identifier); err != nil {
		return err
	}
	e.emitAudit(ctx, "account.unlocked", true, identifier, nil, nil)
	return nil
}

// RevokeAllSessions invalidates every outstanding token issued to the
// subject. Administrative revocation; the replay containment path uses the
// same underlying sweep.
func (e *Engine) RevokeAllSessions(ctx context.Context, subject string) error {
	if err := e.tokens.RevokeAllUserTokens(ctx, subject); err != nil {
		return err
	}
	e.emitAudit(ctx, "tokens.revoked", true, subject, nil, nil)
	return nil
}

func (e *Engine) warn(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// emitAudit queues an audit event when auditing is enabled. The meta
// closure is only invoked when an event will actually be built.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, subject string, opErr error, meta func() map[string]string) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   subject,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if meta != nil {
		event.Metadata = meta()
	}
	e.audit.Emit(ctx, event)
}
