package api

import (
	"net/http"

	"github.com/dukerupert/larder/internal/cookie"
	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/middleware"
)

// AuthHandler serves signup, signin and the principal lookups.
type AuthHandler struct {
	accounts domain.AccountService
	cookies  *cookie.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts domain.AccountService, cookies *cookie.Config) *AuthHandler {
	return &AuthHandler{accounts: accounts, cookies: cookies}
}

// Signup handles POST /api/auth/signup. Public signup always creates a
// regular user.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	const op = "api.auth.signup"

	var req SignupRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	account, err := h.accounts.Register(r.Context(), domain.SignupParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.RoleUser,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("account registered", "user_id", account.ID, "username", account.Username)
	handler.JSON(w, http.StatusOK, handler.MessageResponse{Message: "User registered successfully!"})
}

// Signin handles POST /api/auth/signin
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	const op = "api.auth.signin"

	var req SigninRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	account, session, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.cookies.SetSession(w, session.Token, session.ExpiresAt)

	resp := newUserInfo(account.Principal())
	resp.Token = session.Token
	handler.JSON(w, http.StatusOK, resp)
}

// Signout handles POST /api/auth/signout
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.accounts.Logout(r.Context(), token); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}

	h.cookies.ClearSession(w)
	handler.JSON(w, http.StatusOK, handler.MessageResponse{Message: "You have been signed out!"})
}

// User handles GET /api/auth/user
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.ErrorResponse(w, r, domain.WithOp(domain.ErrAuthenticationNeed, "api.auth.user"))
		return
	}
	handler.JSON(w, http.StatusOK, newUserInfo(user))
}

// Username handles GET /api/auth/username. Anonymous callers get an empty
// body.
func (h *AuthHandler) Username(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		w.Write([]byte(user.Username))
	}
}
