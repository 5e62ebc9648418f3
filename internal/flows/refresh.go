package flows

import (
	"context"
	"time"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureParse
	RefreshFailureFamilyExpired
	RefreshFailureReplay
	RefreshFailureStore
	RefreshFailureMint
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	Subject      string
	FamilyID     string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	RememberMeMultiplier int

	ParseRefresh func(token string) (subject, familyID string, expiresAt time.Time, err error)

	IsTokenBlacklisted   func(ctx context.Context, token string) (bool, error)
	IsTokenFamilyExpired func(ctx context.Context, familyID string) (bool, error)
	ValidateRefreshToken func(ctx context.Context, subject, token string) (bool, error)
	RevokeAllUserTokens  func(ctx context.Context, subject string) error
	IsRememberMeToken    func(ctx context.Context, token string) (bool, error)

	MintAccess         func(subject, familyID string, ttl time.Duration) (string, error)
	MintRefresh        func(subject, familyID string, ttl time.Duration) (string, error)
	SaveAccessToken    func(ctx context.Context, subject, token string, ttl time.Duration) error
	RotateRefreshToken func(ctx context.Context, subject, oldToken, newToken, familyID string, ttl time.Duration) error

	Warn func(string, ...any)
}

// RunRefresh executes rotation-based refresh: family age check, exact-match
// validation, replay containment on mismatch, then re-issuance under the
// same family id.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	subject, familyID, _, err := deps.ParseRefresh(token)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureParse, Err: err}
	}

	expired, err := deps.IsTokenFamilyExpired(ctx, familyID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject, FamilyID: familyID}
	}
	if expired {
		return RefreshResult{Failure: RefreshFailureFamilyExpired, Subject: subject, FamilyID: familyID}
	}

	// A blacklisted value was rotated away, logged out, or revoked; it can
	// only be arriving here through theft or a very stale client. Either
	// way it gets the containment response, same as a slot mismatch.
	blacklisted, err := deps.IsTokenBlacklisted(ctx, token)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject, FamilyID: familyID}
	}

	if !blacklisted {
		valid, err := deps.ValidateRefreshToken(ctx, subject, token)
		if err != nil {
			return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject, FamilyID: familyID}
		}
		if valid {
			return runRotate(ctx, subject, familyID, token, deps)
		}
	}

	if err := deps.RevokeAllUserTokens(ctx, subject); err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject, FamilyID: familyID}
	}
	return RefreshResult{Failure: RefreshFailureReplay, Subject: subject, FamilyID: familyID}
}

func runRotate(ctx context.Context, subject, familyID, oldToken string, deps RefreshDeps) RefreshResult {
	remembered, err := deps.IsRememberMeToken(ctx, oldToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject, FamilyID: familyID}
	}

	accessTTL, refreshTTL := deps.AccessTTL, deps.RefreshTTL
	if remembered && deps.RememberMeMultiplier > 1 {
		accessTTL *= time.Duration(deps.RememberMeMultiplier)
		refreshTTL *= time.Duration(deps.RememberMeMultiplier)
	}

	access, err := deps.MintAccess(subject, familyID, accessTTL)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureMint, Err: err, Subject: subject, FamilyID: familyID}
	}
	refresh, err := deps.MintRefresh(subject, familyID, refreshTTL)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureMint, Err: err, Subject: subject, FamilyID: familyID}
	}

	// The access save lands before the rotation so the rotation is the
	// commit point: a store failure here leaves the old pair intact and
	// usable, instead of a rotated slot holding a token the caller never
	// received.
	if err := deps.SaveAccessToken(ctx, subject, access, accessTTL); err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject, FamilyID: familyID}
	}
	if err := deps.RotateRefreshToken(ctx, subject, oldToken, refresh, familyID, refreshTTL); err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject, FamilyID: familyID}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		Subject:      subject,
		FamilyID:     familyID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessTTL.Seconds()),
	}
}
