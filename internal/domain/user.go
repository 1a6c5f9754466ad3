package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ACCOUNT DOMAIN TYPES
// =============================================================================

// Role controls access to administrative routes.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Owner is the opaque identity a cart is keyed by.
// The cart engine never creates or mutates owners.
type Owner struct {
	ID    uuid.UUID
	Email string
}

// IsZero reports whether the owner could not be resolved.
func (o Owner) IsZero() bool {
	return o.ID == uuid.Nil
}

// Account is a persisted user record.
type Account struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal converts the account into the context principal.
func (a *Account) Principal() *User {
	return &User{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}

// Session is a persisted login session.
type Session struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// =============================================================================
// ACCOUNT ERRORS
// =============================================================================

var (
	ErrAccountNotFound    = &Error{Code: ENOTFOUND, Message: "User not found"}
	ErrSessionNotFound    = &Error{Code: EUNAUTHORIZED, Message: "Session not found or expired"}
	ErrBadCredentials     = &Error{Code: EUNAUTHORIZED, Message: "Bad credentials"}
	ErrUsernameTaken      = &Error{Code: ECONFLICT, Message: "Username is already taken"}
	ErrEmailTaken         = &Error{Code: ECONFLICT, Message: "Email is already in use"}
	ErrAuthenticationNeed = &Error{Code: EUNAUTHORIZED, Message: "Full authentication is required to access this resource"}
)

// =============================================================================
// ACCOUNT STORAGE AND SERVICE CONTRACTS
// =============================================================================

// AccountStore persists user accounts.
// Lookups return ErrAccountNotFound when no record matches.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
}

// SessionStore persists login sessions.
// GetSession returns ErrSessionNotFound when the token is unknown.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes sessions that expired before now and
	// returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SignupParams are the fields required to register an account.
type SignupParams struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// AccountService is the identity collaborator: it issues sessions and
// resolves them back into principals.
type AccountService interface {
	// Register creates a new account with a hashed password.
	Register(ctx context.Context, params SignupParams) (*Account, error)

	// Authenticate verifies credentials and issues a session.
	Authenticate(ctx context.Context, username, password string) (*Account, *Session, error)

	// ResolveSession returns the principal for a session token.
	ResolveSession(ctx context.Context, token string) (*User, error)

	// Logout deletes the session. Unknown tokens are ignored.
	Logout(ctx context.Context, token string) error

	// EnsureAdmin creates the bootstrap admin account if it does not exist.
	EnsureAdmin(ctx context.Context, params SignupParams) error
}
