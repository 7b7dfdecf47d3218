package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quaykit/identity-service/internal/domain"
)

// Register creates an account and signs it in with a non-persistent session.
// A duplicate email fails with email_already_exists and leaves the existing
// account untouched.
func (s *Service) Register(ctx context.Context, email, password, name string) (RegisterResult, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" {
		return RegisterResult{}, domain.ErrMissingField("email")
	}
	if name == "" {
		return RegisterResult{}, domain.ErrMissingField("name")
	}
	if password == "" {
		return RegisterResult{}, domain.ErrMissingField("password")
	}
	if !strings.Contains(email, "@") {
		return RegisterResult{}, domain.ErrInvalidField("email", "invalid format")
	}
	if err := s.checkPasswordPolicy(password); err != nil {
		return RegisterResult{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return RegisterResult{}, domain.ErrHashFailed(err)
	}

	created, err := s.accounts.Create(ctx, domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return RegisterResult{}, err
	}

	sess, err := s.establishSession(ctx, created.ID, false)
	if err != nil {
		return RegisterResult{}, err
	}

	s.audit("register", map[string]string{"account_id": created.ID})

	return RegisterResult{Account: created, Session: sess}, nil
}
