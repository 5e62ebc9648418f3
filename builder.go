package tokengate

import (
	"errors"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/tokengate/tokengate/internal/audit"
	"github.com/tokengate/tokengate/internal/kv"
	"github.com/tokengate/tokengate/internal/limiters"
	"github.com/tokengate/tokengate/internal/rate"
	"github.com/tokengate/tokengate/internal/tokens"
	"github.com/tokengate/tokengate/jwt"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build, which validates the configuration and wires all components.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	verifier  CredentialVerifier
	issuer    TokenIssuer
	notifier  LockoutNotifier
	auditSink AuditSink

	built bool
}

// New returns a [Builder] seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the credential store.
// Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithVerifier supplies the caller's credential verifier. Required.
func (b *Builder) WithVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithIssuer replaces the built-in JWT issuer.
func (b *Builder) WithIssuer(issuer TokenIssuer) *Builder {
	b.issuer = issuer
	return b
}

// WithNotifier supplies the lockout notification dispatcher.
func (b *Builder) WithNotifier(n LockoutNotifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink supplies the audit event sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// Build validates the configuration, wires every component, and returns
// the ready [Engine]. A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.verifier == nil {
		return nil, errors.New("credential verifier required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	issuer := b.issuer
	if issuer == nil {
		manager, err := jwt.NewManager(jwt.Config{
			SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
			PrivateKey:    cfg.Token.PrivateKey,
			PublicKey:     cfg.Token.PublicKey,
			Issuer:        cfg.Token.Issuer,
			Leeway:        cfg.Token.Leeway,
		})
		if err != nil {
			return nil, err
		}
		issuer = manager
	}

	store := kv.New(b.redis)

	engine := &Engine{
		config:   cfg,
		issuer:   issuer,
		verifier: b.verifier,
		notifier: b.notifier,
		tokens: tokens.NewManager(store, tokens.Config{
			RememberMeThreshold: cfg.RememberMe.MarkerThreshold,
			FamilyMaxLifetime:   cfg.Family.MaxLifetime,
		}),
		lockout: limiters.NewLockoutLimiter(store, limiters.LockoutConfig{
			Threshold:       cfg.Lockout.MaxFailedAttempts,
			LockoutDuration: cfg.Lockout.LockoutDuration,
			CounterWindow:   cfg.Lockout.CounterWindow,
		}),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		logger: log.New(os.Stderr, "tokengate: ", log.LstdFlags),
	}

	if cfg.RateLimit.Enabled {
		engine.rate = rate.New(store, rate.Config{
			EnableIPThrottle: cfg.RateLimit.EnableIPThrottle,
			MaxAttempts:      cfg.RateLimit.MaxAttempts,
			Window:           cfg.RateLimit.Window,
		})
	}

	b.built = true
	return engine, nil
}
