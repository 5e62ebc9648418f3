package tokens

import (
	"context"
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tokengate/tokengate/internal/kv"
)

const (
	accessKeyPrefix    = "token:access:"
	refreshKeyPrefix   = "token:refresh:"
	userIndexKeyPrefix = "user:tokens:"
	blacklistKeyPrefix = "token:blacklisted:"
	familyKeyPrefix    = "token:family:"
	rememberKeyPrefix  = "token:remember:"
)

// Config holds the lifecycle policy knobs the manager enforces.
type Config struct {
	// RememberMeThreshold is the minimum refresh TTL for which a remember-me
	// marker is written. Sessions at or below it are treated as short-lived
	// even when the caller asked for an extended session.
	RememberMeThreshold time.Duration
	// FamilyMaxLifetime bounds the total age of a rotation chain. Elapsed
	// time since family creation, not any individual token TTL, decides
	// when a chain can no longer be extended.
	FamilyMaxLifetime time.Duration
	// Clock overrides the wall clock for family-age computation. Nil means
	// time.Now.
	Clock func() time.Time
}

// Manager implements the session lifecycle contract over a flat key/value
// store. It is stateless; all mutable state lives in the store, so any
// number of instances across processes observe the same truth.
type Manager struct {
	store  *kv.Store
	config Config
}

// NewManager creates a lifecycle [Manager] over the given store.
func NewManager(store *kv.Store, cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Manager{store: store, config: cfg}
}

func accessKey(subject string) string    { return accessKeyPrefix + subject }
func refreshKey(subject string) string   { return refreshKeyPrefix + subject }
func userIndexKey(subject string) string { return userIndexKeyPrefix + subject }
func blacklistKey(token string) string   { return blacklistKeyPrefix + token }
func familyKey(familyID string) string   { return familyKeyPrefix + familyID }
func rememberKey(token string) string    { return rememberKeyPrefix + token }

// SaveAccessToken overwrites the subject's access slot and records the slot
// key in the subject's token index.
func (m *Manager) SaveAccessToken(ctx context.Context, subject, token string, ttl time.Duration) error {
	key := accessKey(subject)
	if err := m.store.Put(ctx, key, token, ttl); err != nil {
		return err
	}
	return m.store.AddToSet(ctx, userIndexKey(subject), key)
}

// SaveRefreshToken overwrites the subject's refresh slot, records the slot
// key in the token index, and writes a remember-me marker when the caller
// requested an extended session and the TTL exceeds the short-lived
// threshold. The marker shares the token's TTL so it can never outlive it.
func (m *Manager) SaveRefreshToken(ctx context.Context, subject, token string, ttl time.Duration, rememberMe bool) error {
	key := refreshKey(subject)
	if err := m.store.Put(ctx, key, token, ttl); err != nil {
		return err
	}
	if err := m.store.AddToSet(ctx, userIndexKey(subject), key); err != nil {
		return err
	}
	if rememberMe && ttl > m.config.RememberMeThreshold {
		return m.store.Put(ctx, rememberKey(token), "1", ttl)
	}
	return nil
}

// LatestAccessToken returns the subject's current access token, or the
// empty string when no access token is outstanding.
func (m *Manager) LatestAccessToken(ctx context.Context, subject string) (string, error) {
	token, err := m.store.Get(ctx, accessKey(subject))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// ValidateRefreshToken reports whether token is exactly the subject's
// current refresh value. Absence and mismatch are both false: only the
// single most recently stored value validates.
func (m *Manager) ValidateRefreshToken(ctx context.Context, subject, token string) (bool, error) {
	stored, err := m.store.Get(ctx, refreshKey(subject))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

// BlacklistToken marks a token value as never-again-valid for ttl. The TTL
// should be the token's remaining signed lifetime; a non-positive TTL means
// the token is already expired and needs no entry.
func (m *Manager) BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}
	return m.store.Put(ctx, blacklistKey(token), "1", ttl)
}

// IsTokenBlacklisted reports whether a token value has been blacklisted.
func (m *Manager) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	return m.store.Exists(ctx, blacklistKey(token))
}

// IsRememberMeToken reports whether a refresh token carries the extended
// session marker.
func (m *Manager) IsRememberMeToken(ctx context.Context, token string) (bool, error) {
	return m.store.Exists(ctx, rememberKey(token))
}

// RemoveRefreshTokens tears down the subject's current session on logout:
// both slots are read, blacklisted for their remaining lifetime, removed
// from the token index, and deleted, along with the refresh value's
// remember-me marker.
func (m *Manager) RemoveRefreshTokens(ctx context.Context, subject string) error {
	if err := m.evictSlot(ctx, subject, accessKey(subject), false); err != nil {
		return err
	}
	return m.evictSlot(ctx, subject, refreshKey(subject), true)
}

func (m *Manager) evictSlot(ctx context.Context, subject, key string, refresh bool) error {
	value, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil
		}
		return err
	}

	remaining, err := m.store.TTLRemaining(ctx, key)
	if err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
		return err
	}
	if err := m.BlacklistToken(ctx, value, remaining); err != nil {
		return err
	}
	if refresh {
		if err := m.store.Delete(ctx, rememberKey(value)); err != nil {
			return err
		}
	}
	if err := m.store.RemoveFromSet(ctx, userIndexKey(subject), key); err != nil {
		return err
	}
	return m.store.Delete(ctx, key)
}

// RevokeAllUserTokens blacklists and deletes every outstanding token key
// recorded in the subject's index, then deletes the index itself. This is
// the replay-containment response: after it runs, nothing previously
// issued to the subject validates.
func (m *Manager) RevokeAllUserTokens(ctx context.Context, subject string) error {
	indexKey := userIndexKey(subject)
	keys, err := m.store.Members(ctx, indexKey)
	if err != nil {
		return err
	}

	for _, key := range keys {
		value, err := m.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, kv.ErrKeyNotFound) {
				continue
			}
			return err
		}

		remaining, err := m.store.TTLRemaining(ctx, key)
		if err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
			return err
		}
		if err := m.BlacklistToken(ctx, value, remaining); err != nil {
			return err
		}
		if strings.HasPrefix(key, refreshKeyPrefix) {
			if err := m.store.Delete(ctx, rememberKey(value)); err != nil {
				return err
			}
		}
		if err := m.store.Delete(ctx, key); err != nil {
			return err
		}
	}

	return m.store.Delete(ctx, indexKey)
}

// IsTokenFamilyExpired reports whether the rotation chain identified by
// familyID has exceeded the absolute session lifetime. The first call for
// a family atomically creates its creation-timestamp record and reports
// not-expired; later calls compare elapsed wall-clock time against the
// configured maximum. The record is create-once: rotation never refreshes
// the timestamp.
func (m *Manager) IsTokenFamilyExpired(ctx context.Context, familyID string) (bool, error) {
	now := m.config.Clock()
	key := familyKey(familyID)

	created, err := m.store.PutIfAbsent(ctx, key, strconv.FormatInt(now.Unix(), 10), m.config.FamilyMaxLifetime)
	if err != nil {
		return false, err
	}
	if created {
		return false, nil
	}

	value, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			// Lost a race with expiry between SETNX and GET; the family is
			// at the end of its lifetime either way.
			return true, nil
		}
		return false, err
	}

	createdAt, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, errors.New("tokens: corrupt family record")
	}
	return now.Sub(time.Unix(createdAt, 0)) > m.config.FamilyMaxLifetime, nil
}

// EnsureTokenFamily creates the family record if absent, without resetting
// an existing timestamp.
func (m *Manager) EnsureTokenFamily(ctx context.Context, familyID string) error {
	now := m.config.Clock()
	_, err := m.store.PutIfAbsent(ctx, familyKey(familyID), strconv.FormatInt(now.Unix(), 10), m.config.FamilyMaxLifetime)
	return err
}

// RotateRefreshToken replaces the subject's refresh slot with newToken
// under the same family: the old value is blacklisted for its remaining
// lifetime, a remember-me marker on the old value is carried forward to
// the new one, and the family record is created when missing (never
// overwritten). A concurrent legitimate rotation simply becomes the new
// ground truth; a replayed old value loses the next exact-match check.
func (m *Manager) RotateRefreshToken(ctx context.Context, subject, oldToken, newToken, familyID string, ttl time.Duration) error {
	slotKey := refreshKey(subject)

	remaining, err := m.store.TTLRemaining(ctx, slotKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			return err
		}
		remaining = ttl
	}
	if err := m.BlacklistToken(ctx, oldToken, remaining); err != nil {
		return err
	}

	remembered, err := m.IsRememberMeToken(ctx, oldToken)
	if err != nil {
		return err
	}
	if remembered {
		if err := m.store.Delete(ctx, rememberKey(oldToken)); err != nil {
			return err
		}
		if err := m.store.Put(ctx, rememberKey(newToken), "1", ttl); err != nil {
			return err
		}
	}

	if err := m.store.Put(ctx, slotKey, newToken, ttl); err != nil {
		return err
	}
	if err := m.store.AddToSet(ctx, userIndexKey(subject), slotKey); err != nil {
		return err
	}
	return m.EnsureTokenFamily(ctx, familyID)
}
