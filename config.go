package authcore

import (
	"errors"
	"time"
)

// Config is fixed at Build and treated as immutable afterwards.
type Config struct {
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	ActionTokens ActionTokenConfig
	Csrf         CsrfConfig
	Registration RegistrationConfig
	Keys         KeyPrefixConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

// JWTConfig controls access-token signing and the refresh-token lifetime.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// PasswordConfig carries the Argon2id cost parameters.
type PasswordConfig struct {
	MemoryKB       uint32
	Iterations     uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// AttemptRule bounds one action to Limit attempts per Window.
type AttemptRule struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfig sets the attempt budget per entry point. A zero rule
// disables limiting for that action.
type RateLimitConfig struct {
	Login             AttemptRule
	Refresh           AttemptRule
	PasswordReset     AttemptRule
	EmailVerification AttemptRule
	Register          AttemptRule
}

// ActionTokenConfig sets lifetimes for single-use tokens.
type ActionTokenConfig struct {
	ResetTTL        time.Duration
	VerificationTTL time.Duration
}

// CsrfConfig sets the anti-forgery value lifetime. Zero means "as long as
// the refresh token".
type CsrfConfig struct {
	TTL time.Duration
}

// RegistrationConfig controls account creation.
type RegistrationConfig struct {
	DefaultRole string
	// RequireVerification gates login on email verification. When false,
	// Register creates accounts directly in StatusActive.
	RequireVerification bool
}

// KeyPrefixConfig namespaces the Redis keys; defaults are fine unless the
// instance is shared.
type KeyPrefixConfig struct {
	Refresh   string
	Blacklist string
	Action    string
	Csrf      string
	RateLimit string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls Prometheus collector registration.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// DefaultConfig returns the configuration the Builder starts from. Callers
// adjust fields and pass the result to [Builder.WithConfig]; signing keys
// always have to be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    14 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			MemoryKB:       64 * 1024,
			Iterations:     3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		RateLimit: RateLimitConfig{
			Login:             AttemptRule{Limit: 10, Window: 15 * time.Minute},
			Refresh:           AttemptRule{Limit: 30, Window: time.Minute},
			PasswordReset:     AttemptRule{Limit: 5, Window: time.Hour},
			EmailVerification: AttemptRule{Limit: 5, Window: time.Hour},
			Register:          AttemptRule{Limit: 10, Window: time.Hour},
		},
		ActionTokens: ActionTokenConfig{
			ResetTTL:        time.Hour,
			VerificationTTL: 24 * time.Hour,
		},
		Registration: RegistrationConfig{
			DefaultRole:         "member",
			RequireVerification: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "authcore",
		},
	}
}

func (c *Config) validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.AccessTTL > time.Hour {
		return errors.New("access TTL must be within (0, 1h]")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.ActionTokens.ResetTTL <= 0 || c.ActionTokens.VerificationTTL <= 0 {
		return errors.New("action token TTLs must be positive")
	}
	if c.Csrf.TTL == 0 {
		c.Csrf.TTL = c.JWT.RefreshTTL
	}
	if c.Registration.DefaultRole == "" {
		return errors.New("default role must be set")
	}
	return nil
}
