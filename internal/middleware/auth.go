package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dukerupert/larder/internal/cookie"
	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/telemetry"
)

type contextKey string

// SessionResolver turns a session token into the authenticated principal.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*domain.User, error)
}

// WithUser resolves the principal from the session cookie or an
// "Authorization: Bearer <token>" header and adds it to the request context.
// This middleware is optional - it adds the user if present but doesn't require authentication
func WithUser(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := sessions.ResolveSession(r.Context(), token)
			if err != nil {
				// Invalid session, continue without user
				if domain.ErrorCode(err) == domain.EINTERNAL {
					GetLogger(r.Context()).Error("failed to resolve session", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := domain.NewContextWithUser(r.Context(), user)
			telemetry.SetUserOnContext(ctx, user.ID.String(), user.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken returns the bearer token if present, otherwise the session
// cookie value.
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return cookie.Get(r, cookie.SessionCookieName)
}

// RequireAuth rejects requests without an authenticated principal with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin ensures the user is an admin, returning 403 if not
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			respondUnauthorized(w, r)
			return
		}
		if !user.IsAdmin() {
			respondForbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext retrieves the user from the request context
// Returns nil if no user is authenticated
func GetUserFromContext(ctx context.Context) *domain.User {
	return domain.UserFromContext(ctx)
}
