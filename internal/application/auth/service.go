package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/quaykit/identity-service/internal/domain"
)

type Service struct {
	accounts AccountRepo
	hasher   PasswordHasher
	signer   SessionSigner
	sessions SessionStore
	reset    ResetTokenStore
	lockout  LockoutPolicy
	pub      EventPublisher

	sessionTTL           time.Duration
	persistentSessionTTL time.Duration
	minPasswordLength    int
	resetTokenTTL        time.Duration
	resetBaseURL         string // e.g. https://frontend/reset-password?token=
	revokeOnReset        bool

	audit func(action string, fields map[string]string)
}

type Config struct {
	SessionTTL            time.Duration
	PersistentSessionTTL  time.Duration
	MinPasswordLength     int
	ResetTokenTTL         time.Duration
	ResetBaseURL          string
	RevokeSessionsOnReset bool
}

func NewService(
	accounts AccountRepo,
	hasher PasswordHasher,
	signer SessionSigner,
	sessions SessionStore,
	reset ResetTokenStore,
	lockout LockoutPolicy,
	pub EventPublisher,
	cfg Config,
) *Service {
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	persistentTTL := cfg.PersistentSessionTTL
	if persistentTTL <= 0 {
		persistentTTL = 14 * 24 * time.Hour
	}
	minLen := cfg.MinPasswordLength
	if minLen <= 0 {
		minLen = 6
	}
	resetTTL := cfg.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		signer:   signer,
		sessions: sessions,
		reset:    reset,
		lockout:  lockout,
		pub:      pub,

		sessionTTL:           sessionTTL,
		persistentSessionTTL: persistentTTL,
		minPasswordLength:    minLen,
		resetTokenTTL:        resetTTL,
		resetBaseURL:         cfg.ResetBaseURL,
		revokeOnReset:        cfg.RevokeSessionsOnReset,

		audit: func(string, map[string]string) {},
	}
}

// Session is the handle handed to callers: a signed credential to present on
// subsequent requests plus the lifetime the transport should give its cookie.
type Session struct {
	Handle     string
	Persistent bool
	ExpiresIn  time.Duration
}

type RegisterResult struct {
	Account domain.Account
	Session Session
}

type LoginResult struct {
	Account domain.Account
	Session Session
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// establishSession creates a server-side session record and signs a handle
// bound to it. Persistent sessions live longer; the TTL is shared between the
// record and the signature so both expire together.
func (s *Service) establishSession(ctx context.Context, accountID string, persistent bool) (Session, error) {
	ttl := s.sessionTTL
	if persistent {
		ttl = s.persistentSessionTTL
	}

	sid, err := s.sessions.Create(ctx, accountID, ttl)
	if err != nil {
		return Session{}, err
	}

	handle, err := s.signer.SignSession(accountID, sid, ttl)
	if err != nil {
		return Session{}, domain.ErrSessionSignFailed(err)
	}

	return Session{Handle: handle, Persistent: persistent, ExpiresIn: ttl}, nil
}

// ValidateSession resolves a handle back to an account id. Tampering,
// expiry and revocation all collapse into session_invalid.
func (s *Service) ValidateSession(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", domain.ErrSessionMissing()
	}

	claims, err := s.signer.VerifySession(handle)
	if err != nil {
		return "", domain.ErrSessionInvalid()
	}

	accountID, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return "", domain.ErrSessionInvalid()
	}
	if accountID != claims.AccountID {
		return "", domain.ErrSessionInvalid()
	}

	return accountID, nil
}

// GetAccount loads the account behind an authenticated session.
func (s *Service) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return domain.Account{}, domain.ErrSessionInvalid()
	}
	return s.accounts.GetByID(ctx, accountID)
}

func (s *Service) checkPasswordPolicy(password string) error {
	if len(password) < s.minPasswordLength {
		return domain.ErrWeakPassword("too short")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newOpaqueToken returns a URL-safe opaque token.
func newOpaqueToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
