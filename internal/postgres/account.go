package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, username, email, password_hash, role, created_at, updated_at`

// AccountStore is the PostgreSQL domain.AccountStore and domain.SessionStore.
type AccountStore struct {
	pool *pgxpool.Pool
}

var (
	_ domain.AccountStore = (*AccountStore)(nil)
	_ domain.SessionStore = (*AccountStore)(nil)
)

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

func (s *AccountStore) CreateAccount(ctx context.Context, a *domain.Account) error {
	const op = "account.create"

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		a.ID, a.Username, a.Email, a.PasswordHash, string(a.Role),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		switch uniqueViolation(err) {
		case "accounts_username_key":
			return domain.WithOp(domain.ErrUsernameTaken, op)
		case "accounts_email_key":
			return domain.WithOp(domain.ErrEmailTaken, op)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *AccountStore) GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *AccountStore) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(username) = lower($1)`, username)
}

func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
}

func (s *AccountStore) getAccount(ctx context.Context, sql string, arg any) (*domain.Account, error) {
	var (
		a    domain.Account
		role string
	)
	err := s.pool.QueryRow(ctx, sql, arg).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	a.Role = domain.Role(role)
	return &a, nil
}

func (s *AccountStore) CreateSession(ctx context.Context, session *domain.Session) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (token, account_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		session.Token, session.UserID, session.ExpiresAt,
	).Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *AccountStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var sess domain.Session
	err := s.pool.QueryRow(ctx, `
		SELECT token, account_id, expires_at, created_at FROM sessions WHERE token = $1`, token,
	).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *AccountStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *AccountStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
