package auth

import (
	"context"

	"github.com/quaykit/identity-service/internal/domain"
	"github.com/quaykit/identity-service/internal/logger"
)

// PasswordResetRequest issues a one-time reset token and publishes a recovery
// event for the mail service.
//
// The operation is non-enumerating: an unknown email returns nil with no token
// issued and no event published. Publishing is best-effort; a broker failure
// is logged and swallowed, and the already-stored token stays valid.
func (s *Service) PasswordResetRequest(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil
	}

	token, err := newOpaqueToken(32)
	if err != nil {
		return domain.ErrRandomFailed(err)
	}

	if err := s.reset.Save(ctx, token, a.ID, s.resetTokenTTL); err != nil {
		return err
	}

	s.audit("password_reset_requested", map[string]string{"account_id": a.ID})

	url := s.resetBaseURL + token
	if err := s.pub.PublishPasswordReset(ctx, PasswordResetEvent{
		AccountID: a.ID,
		Email:     a.Email,
		URL:       url,
	}); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).
			Str("account_id", a.ID).
			Msg("password reset event not delivered; token remains valid")
	}

	return nil
}

// PasswordResetValidate checks whether a reset token is still redeemable
// without consuming it, for the reset form to probe before showing itself.
func (s *Service) PasswordResetValidate(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	_, err := s.reset.Peek(ctx, token)
	return err
}

// PasswordResetConfirm redeems the token (single use) and replaces the
// account's credential. Existing sessions are revoked afterwards when the
// service is configured to do so.
func (s *Service) PasswordResetConfirm(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if newPassword == "" {
		return domain.ErrMissingField("new_password")
	}
	if err := s.checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	accountID, err := s.reset.Consume(ctx, token)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrHashFailed(err)
	}

	if err := s.accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return err
	}

	s.audit("password_reset_completed", map[string]string{"account_id": accountID})

	if s.revokeOnReset {
		// best-effort: the credential is already replaced, surviving sessions
		// only outlive it until their TTL
		if err := s.sessions.RevokeAll(ctx, accountID); err != nil {
			logger.WithCtx(ctx).Warn().Err(err).
				Str("account_id", accountID).
				Msg("session revocation after password reset failed")
		}
	}
	return nil
}
