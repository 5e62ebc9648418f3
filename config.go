package tokengate

import (
	"errors"
	"time"
)

// Config defines the engine's policy surface. Instances are configured
// during initialization and treated as immutable after [Builder.Build].
type Config struct {
	Token      TokenConfig
	RememberMe RememberMeConfig
	Lockout    LockoutConfig
	Family     FamilyConfig
	RateLimit  RateLimitConfig
	Audit      AuditConfig
}

// TokenConfig holds token issuance parameters for the built-in issuer and
// the base TTLs applied to every minted pair.
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// RememberMeConfig controls the extended-session variant.
type RememberMeConfig struct {
	// Multiplier scales both base TTLs when the caller requests an
	// extended session.
	Multiplier int
	// MarkerThreshold is the minimum refresh TTL for which a remember-me
	// marker is persisted; TTLs at or below it stay short-lived.
	MarkerThreshold time.Duration
}

// LockoutConfig controls failed-login escalation.
type LockoutConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	// CounterWindow is the rolling window over which failures accumulate.
	CounterWindow time.Duration
}

// FamilyConfig bounds the total age of a refresh rotation chain.
type FamilyConfig struct {
	MaxLifetime time.Duration
}

// RateLimitConfig controls the fixed-window login throttle that runs
// ahead of the lockout governor.
type RateLimitConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxAttempts      int
	Window           time.Duration
}

// AuditConfig controls the asynchronous audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the configuration the builder starts from. Callers
// typically take it, override what they need, and pass the result to
// [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		RememberMe: RememberMeConfig{
			Multiplier:      14,
			MarkerThreshold: 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
			LockoutDuration:   15 * time.Minute,
			CounterWindow:     time.Hour,
		},
		Family: FamilyConfig{
			MaxLifetime: 30 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			EnableIPThrottle: true,
			MaxAttempts:      20,
			Window:           15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate rejects configurations the engine cannot run safely with.
func (c Config) Validate() error {
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.AccessTTL > c.Token.RefreshTTL {
		return errors.New("access TTL must not exceed refresh TTL")
	}
	if c.RememberMe.Multiplier < 1 {
		return errors.New("remember-me multiplier must be at least 1")
	}
	if c.RememberMe.MarkerThreshold <= 0 {
		return errors.New("remember-me marker threshold must be positive")
	}
	if c.Lockout.MaxFailedAttempts < 1 {
		return errors.New("lockout threshold must be at least 1")
	}
	if c.Lockout.LockoutDuration <= 0 || c.Lockout.CounterWindow <= 0 {
		return errors.New("lockout durations must be positive")
	}
	if c.Family.MaxLifetime <= 0 {
		return errors.New("family max lifetime must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts < 1 || c.RateLimit.Window <= 0 {
			return errors.New("rate limit requires positive attempts and window")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = append([]byte(nil), cfg.Token.PrivateKey...)
	out.Token.PublicKey = append([]byte(nil), cfg.Token.PublicKey...)
	return out
}
