package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/quaykit/identity-service/internal/domain"
)

type AccountRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string // normalized email -> accountID
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	email = normalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return r.byID[id], nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Email = normalizeEmail(a.Email)
	if a.ID == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}
	if a.Email == "" {
		return domain.Account{}, domain.ErrMissingField("email")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[a.Email]; exists {
		return domain.Account{}, domain.ErrEmailAlreadyExists()
	}

	r.byID[a.ID] = a
	r.byEmail[a.Email] = a.ID
	return a, nil
}

func (r *AccountRepo) UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[accountID]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	a.PasswordHash = newHash
	r.byID[accountID] = a
	return nil
}
