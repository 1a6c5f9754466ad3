package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/domain"
)

// accountService implements domain.AccountService.
type accountService struct {
	accounts   domain.AccountStore
	sessions   domain.SessionStore
	hasher     *auth.Hasher
	sessionTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

var _ domain.AccountService = (*accountService)(nil)

// NewAccountService creates the identity service. Sessions expire after ttl.
func NewAccountService(accounts domain.AccountStore, sessions domain.SessionStore, hasher *auth.Hasher, ttl time.Duration, logger *slog.Logger) domain.AccountService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &accountService{
		accounts:   accounts,
		sessions:   sessions,
		hasher:     hasher,
		sessionTTL: ttl,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *accountService) Register(ctx context.Context, params domain.SignupParams) (*domain.Account, error) {
	const op = "account.register"

	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	if params.Role == "" {
		params.Role = domain.RoleUser
	}

	if _, err := s.accounts.GetAccountByUsername(ctx, params.Username); err == nil {
		return nil, domain.WithOp(domain.ErrUsernameTaken, op)
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.Internal(err, op, "failed to check username")
	}
	if _, err := s.accounts.GetAccountByEmail(ctx, params.Email); err == nil {
		return nil, domain.WithOp(domain.ErrEmailTaken, op)
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.Internal(err, op, "failed to check email")
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, domain.NewValidationError(op, "password", err.Error())
		}
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	account := &domain.Account{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         params.Role,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if code := domain.ErrorCode(err); code == domain.ECONFLICT {
			return nil, domain.WithOp(err, op)
		}
		return nil, domain.Internal(err, op, "failed to create account")
	}

	s.logger.Info("account registered", "user_id", account.ID, "role", account.Role)
	return account, nil
}

func (s *accountService) Authenticate(ctx context.Context, username, password string) (*domain.Account, *domain.Session, error) {
	const op = "account.authenticate"

	account, err := s.accounts.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, nil, domain.WithOp(domain.ErrBadCredentials, op)
		}
		return nil, nil, domain.Internal(err, op, "failed to load account")
	}

	if err := s.hasher.Verify(password, account.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, nil, domain.WithOp(domain.ErrBadCredentials, op)
		}
		return nil, nil, domain.Internal(err, op, "failed to verify password")
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, nil, domain.Internal(err, op, "failed to create session")
	}
	now := s.now()
	session := &domain.Session{
		Token:     token,
		UserID:    account.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, nil, domain.Internal(err, op, "failed to create session")
	}

	return account, session, nil
}

func (s *accountService) ResolveSession(ctx context.Context, token string) (*domain.User, error) {
	const op = "account.resolve_session"

	if token == "" {
		return nil, domain.WithOp(domain.ErrSessionNotFound, op)
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.WithOp(domain.ErrSessionNotFound, op)
		}
		return nil, domain.Internal(err, op, "failed to load session")
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, domain.WithOp(domain.ErrSessionNotFound, op)
	}

	account, err := s.accounts.GetAccountByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.WithOp(domain.ErrSessionNotFound, op)
		}
		return nil, domain.Internal(err, op, "failed to load account")
	}

	return account.Principal(), nil
}

func (s *accountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return domain.Internal(err, "account.logout", "failed to delete session")
	}
	return nil
}

func (s *accountService) EnsureAdmin(ctx context.Context, params domain.SignupParams) error {
	const op = "account.ensure_admin"

	if params.Username == "" || params.Password == "" {
		s.logger.Info("admin bootstrap skipped: no credentials configured")
		return nil
	}

	_, err := s.accounts.GetAccountByUsername(ctx, params.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Internal(err, op, "failed to look up admin")
	}

	params.Role = domain.RoleAdmin
	if _, err := s.Register(ctx, params); err != nil {
		return err
	}
	s.logger.Info("admin account created", "username", params.Username)
	return nil
}
