package auth

import (
	"context"

	"github.com/quaykit/identity-service/internal/domain"
)

// Login authenticates an account and establishes a session.
//
// An unknown email is reported as invalid_credentials, indistinguishable from
// a wrong password, so the endpoint cannot be used to enumerate accounts.
// Every attempt against a known account is recorded with the lockout policy;
// a locked account answers account_locked even when the password is correct,
// and a correct password during lockout does not reset the counter.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (LoginResult, error) {
	email = normalizeEmail(email)

	if email == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		// Hide not-found behind invalid credentials. No account, no counter.
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	verified := s.hasher.Compare(a.PasswordHash, password) == nil

	decision, err := s.lockout.CheckAndRecord(ctx, a.ID, verified)
	if err != nil {
		return LoginResult{}, err
	}
	if !decision.Allowed {
		s.audit("login_locked_out", map[string]string{"account_id": a.ID})
		return LoginResult{}, domain.ErrAccountLocked(decision.Until)
	}
	if !verified {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	sess, err := s.establishSession(ctx, a.ID, rememberMe)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit("login", map[string]string{"account_id": a.ID})

	return LoginResult{Account: a, Session: sess}, nil
}
