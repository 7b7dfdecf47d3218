package auth

import "context"

// Logout revokes the session behind the handle. It is idempotent: a missing,
// tampered or already-revoked handle is a no-op.
func (s *Service) Logout(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}

	claims, err := s.signer.VerifySession(handle)
	if err != nil {
		return nil
	}

	return s.sessions.Revoke(ctx, claims.SessionID)
}
