// Package domain provides the storefront's core types, service contracts and
// context helpers.
//
// Context helpers centralize request-scoped data access so that owner-scoped
// operations always read the authenticated principal the same way.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// userContextKey stores the authenticated principal in context.
	userContextKey contextKey = iota

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// User represents the authenticated principal stored in context.
// The cart engine only reads ID (the owner key) and Email (contact key).
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
	Role     Role
}

// IsAdmin reports whether the principal may use administrative operations.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Owner returns the cart owner identity for this principal.
func (u *User) Owner() Owner {
	if u == nil {
		return Owner{}
	}
	return Owner{ID: u.ID, Email: u.Email}
}

// --- User Context Helpers ---

// NewContextWithUser returns a new context with the user attached.
func NewContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the user from context.
// Returns nil if no user is present.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// UserIDFromContext retrieves the user ID from context.
// Returns uuid.Nil if no user is present.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return uuid.Nil
}

// OwnerFromContext returns the cart owner for the authenticated principal.
// The zero Owner is returned when no principal is present.
func OwnerFromContext(ctx context.Context) Owner {
	return UserFromContext(ctx).Owner()
}

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
