package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the access-token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// ErrParse covers any signature, structure, or claim failure during Parse.
// The concrete cause is wrapped for logs; callers branch only on expiry via
// [IsExpired].
var ErrParse = errors.New("access token invalid")

// Config is fixed at construction and treated as immutable afterwards.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// AccessClaims is the decoded payload of an access token. Subject carries
// the user id.
type AccessClaims struct {
	Role  string   `json:"role"`
	Team  string   `json:"team,omitempty"`
	Perms []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies access tokens. Safe for concurrent use.
type Manager struct {
	config Config
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access TTL must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("leeway out of range")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a secret key")
		}
	case MethodEd25519:
		if _, err := edPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := edPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// Sign mints an access token for the subject with exp = iat + AccessTTL.
func (m *Manager) Sign(subject, role, team string, perms []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.config.AccessTTL)

	claims := AccessClaims{
		Role:  role,
		Team:  team,
		Perms: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signKey, err := m.signKey()
	if err != nil {
		return "", time.Time{}, err
	}

	signed, err := jwt.NewWithClaims(m.method(), claims).SignedString(signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, algorithm, issuer, audience, and expiry.
func (m *Manager) Parse(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
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

	parsed, err := jwt.NewParser(options...).ParseWithClaims(
		tokenStr,
		&AccessClaims{},
		func(*jwt.Token) (interface{}, error) { return m.verifyKey() },
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrParse
	}
	return claims, nil
}

// ParseExpired decodes claims from a token whose signature must verify but
// whose exp may have passed. Logout needs this: a just-expired token still
// identifies whose refresh slot to revoke.
func (m *Manager) ParseExpired(tokenStr string) (*AccessClaims, error) {
	claims, err := m.Parse(tokenStr)
	if err == nil {
		return claims, nil
	}
	if !IsExpired(err) {
		return nil, err
	}

	parsed, parseErr := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithoutClaimsValidation(),
	).ParseWithClaims(
		tokenStr,
		&AccessClaims{},
		func(*jwt.Token) (interface{}, error) { return m.verifyKey() },
	)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, parseErr)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok {
		return nil, ErrParse
	}
	return claims, nil
}

// IsExpired reports whether a Parse failure was expiry rather than a bad
// signature or malformed token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
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
	return edPrivateKey(m.config.PrivateKey)
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	return edPublicKey(m.config.PublicKey)
}

func edPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func edPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
