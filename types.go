package authcore

import (
	"context"
	"time"
)

// AccountStatus is the lifecycle state of a user account.
type AccountStatus uint8

const (
	StatusActive AccountStatus = iota
	StatusPendingVerification
	StatusSuspended
)

func (s AccountStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPendingVerification:
		return "pending_verification"
	case StatusSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// User is the identity record the engine reads from and writes through the
// [UserDirectory]. PasswordHash is empty for federated-only accounts.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Role          string
	TeamID        string
	Status        AccountStatus
	ProviderID    string
	EmailVerified bool
}

// CreateUserInput is the input for [UserDirectory.Create].
type CreateUserInput struct {
	Email         string
	PasswordHash  string
	Role          string
	TeamID        string
	Status        AccountStatus
	ProviderID    string
	DisplayName   string
	AvatarURL     string
	EmailVerified bool
}

// UserDirectory is the interface the host application implements over its
// persistent user store. The engine lowercases emails before every call;
// uniqueness enforcement is the directory's burden.
//
// Lookup methods must return (or wrap) [ErrUserNotFound] for missing
// records and [ErrDuplicateEmail] for unique violations on Create.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByProvider(ctx context.Context, providerID string) (*User, error)
	Create(ctx context.Context, input CreateUserInput) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateStatus(ctx context.Context, id string, status AccountStatus) error
	// MarkEmailVerified sets email_verified and flips the account to
	// StatusActive in one write.
	MarkEmailVerified(ctx context.Context, id string) error
	AttachProvider(ctx context.Context, id, providerID string) error
}

// MailKind selects the outbound template.
type MailKind string

const (
	MailPasswordReset MailKind = "password_reset"
	MailVerifyEmail   MailKind = "verify_email"
)

// Mailer delivers account emails. A failed send is logged by the engine but
// never fails the operation that triggered it; the issued token stays valid
// and re-delivery is the host's concern.
type Mailer interface {
	Send(ctx context.Context, to string, kind MailKind, params map[string]string) error
}

// TokenPair is the result of Login, RefreshAccessToken, and
// LinkFederatedIdentity. CsrfToken is freshly generated on every login and
// federated login; refresh keeps the session's existing value.
type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	CsrfToken       string
}

// Identity is the verified caller identity produced by ValidateAccessToken.
type Identity struct {
	UserID      string
	Role        string
	TeamID      string
	Permissions []string
}

// ExternalIdentity is an already-verified identity from a federated
// provider. The engine trusts the provider's email verification.
type ExternalIdentity struct {
	ProviderID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

// RegisterRequest is the input for Register. Role defaults to
// [RegistrationConfig.DefaultRole] when empty.
type RegisterRequest struct {
	Email    string
	Password string
	Role     string
	TeamID   string
}

// RegisterResult reports the created account. No tokens are issued until
// the email is verified.
type RegisterResult struct {
	UserID string
	Status AccountStatus
}
