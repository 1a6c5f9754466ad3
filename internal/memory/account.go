package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/google/uuid"
)

// AccountStore is an in-memory domain.AccountStore and domain.SessionStore.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
	sessions map[string]domain.Session
	now      func() time.Time
}

var (
	_ domain.AccountStore = (*AccountStore)(nil)
	_ domain.SessionStore = (*AccountStore)(nil)
)

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[uuid.UUID]domain.Account),
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

func (s *AccountStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Username, account.Username) {
			return domain.WithOp(domain.ErrUsernameTaken, "account.create")
		}
		if strings.EqualFold(a.Email, account.Email) {
			return domain.WithOp(domain.ErrEmailTaken, "account.create")
		}
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := s.now()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = *account
	return nil
}

func (s *AccountStore) GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (s *AccountStore) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.find(func(a domain.Account) bool { return strings.EqualFold(a.Username, username) })
}

func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.find(func(a domain.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (s *AccountStore) find(match func(domain.Account) bool) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if match(a) {
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *AccountStore) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	s.sessions[session.Token] = *session
	return nil
}

func (s *AccountStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *AccountStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

func (s *AccountStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}
