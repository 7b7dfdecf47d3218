package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quaykit/identity-service/internal/domain"
)

type resetEntry struct {
	accountID string
	expiresAt time.Time
}

type ResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]resetEntry

	now func() time.Time
}

func NewResetTokenStore() *ResetTokenStore {
	return &ResetTokenStore{
		tokens: make(map[string]resetEntry),
		now:    time.Now,
	}
}

func (s *ResetTokenStore) Save(ctx context.Context, token string, accountID string, ttl time.Duration) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if accountID == "" {
		return domain.ErrMissingField("account_id")
	}
	if ttl <= 0 {
		return domain.ErrMissingField("ttl")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = resetEntry{accountID: accountID, expiresAt: s.now().Add(ttl)}
	return nil
}

// Consume removes the token under the lock, so only one of two concurrent
// redemptions can win.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrMissingField("token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return "", domain.ErrResetTokenInvalid()
	}
	delete(s.tokens, token)

	if s.now().After(entry.expiresAt) {
		return "", domain.ErrResetTokenInvalid()
	}
	return entry.accountID, nil
}

func (s *ResetTokenStore) Peek(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrMissingField("token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return "", domain.ErrResetTokenInvalid()
	}
	if s.now().After(entry.expiresAt) {
		delete(s.tokens, token)
		return "", domain.ErrResetTokenInvalid()
	}
	return entry.accountID, nil
}
