package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm for minted tokens.
type SigningMethod string

const (
	// MethodEd25519 signs with Ed25519 (default).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

// TokenType tags a claim set as access or refresh so one kind can never be
// presented as the other.
type TokenType string

const (
	// TypeAccess is the short-lived API credential.
	TypeAccess TokenType = "access"
	// TypeRefresh is the longer-lived rotation credential.
	TypeRefresh TokenType = "refresh"
)

// ErrInvalidToken is returned for any token that fails signature, expiry,
// structure, or type checks. The cause is wrapped but callers should match
// on this sentinel.
var ErrInvalidToken = errors.New("invalid token")

// Config holds issuer configuration. PrivateKey is required for minting;
// for Ed25519, PublicKey alone is enough for a verify-only manager.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Manager mints and parses signed token strings. Safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the claim set carried by every minted token.
type Claims struct {
	FamilyID  string `json:"fid,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodEd25519
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PrivateKey) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires a private or public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// MintAccess mints an access token for subject under familyID.
func (m *Manager) MintAccess(subject, familyID string, ttl time.Duration) (string, error) {
	return m.mint(subject, familyID, TypeAccess, ttl)
}

// MintRefresh mints a refresh token for subject under familyID.
func (m *Manager) MintRefresh(subject, familyID string, ttl time.Duration) (string, error) {
	return m.mint(subject, familyID, TypeRefresh, ttl)
}

func (m *Manager) mint(subject, familyID string, tokenType TokenType, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	if ttl <= 0 {
		return "", errors.New("non-positive ttl")
	}

	now := time.Now()
	claims := Claims{
		FamilyID:  familyID,
		TokenType: string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signKey, err := m.signKey()
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(m.method(), claims).SignedString(signKey)
}

// ParseAccess verifies tokenStr and returns its claims, rejecting anything
// that is not a live access token.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TypeAccess)
}

// ParseRefresh verifies tokenStr and returns its claims, rejecting anything
// that is not a live refresh token. Refresh tokens must carry a family id.
func (m *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr, TypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.FamilyID == "" {
		return nil, fmt.Errorf("%w: missing family id", ErrInvalidToken)
	}
	return claims, nil
}

func (m *Manager) parse(tokenStr string, expected TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != string(expected) {
		return nil, fmt.Errorf("%w: unexpected token type", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	if len(m.config.PrivateKey) == 0 {
		return nil, errors.New("manager is verify-only: no private key")
	}
	return parseEdPrivateKey(m.config.PrivateKey)
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	if len(m.config.PublicKey) > 0 {
		return parseEdPublicKey(m.config.PublicKey)
	}
	priv, err := parseEdPrivateKey(m.config.PrivateKey)
	if err != nil {
		return nil, err
	}
	return priv.Public(), nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	switch len(key) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	default:
		return nil, errors.New("invalid ed25519 private key size")
	}
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, errors.New("invalid ed25519 public key size")
	}
	return ed25519.PublicKey(key), nil
}
