package tokengate

import (
	"context"
	"time"

	"github.com/tokengate/tokengate/jwt"
)

// TokenPair is returned by [Engine.Login] and [Engine.Refresh].
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// bearerTokenType is the only token type the engine issues.
const bearerTokenType = "Bearer"

// CredentialVerifier is the interface callers must implement to integrate
// their credential storage. Verify reports the subject id on success and
// ok=false for wrong credentials; err is reserved for infrastructure
// failures and makes the engine fail closed without counting a failure.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, password string) (subject string, ok bool, err error)
}

// LockoutNotifier is told when an identifier crosses the lockout
// threshold. Two concurrent threshold-crossing failures can both trigger
// it; implementations that send mail must de-duplicate.
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, identifier string, retryAfter time.Duration)
}

// TokenIssuer mints and parses the signed token strings whose lifecycle
// this engine manages. [jwt.Manager] is the built-in implementation;
// callers with their own signing infrastructure can substitute it.
type TokenIssuer interface {
	MintAccess(subject, familyID string, ttl time.Duration) (string, error)
	MintRefresh(subject, familyID string, ttl time.Duration) (string, error)
	ParseAccess(token string) (*jwt.Claims, error)
	ParseRefresh(token string) (*jwt.Claims, error)
}
