package auth

import (
	"context"
	"time"

	"github.com/quaykit/identity-service/internal/domain"
)

/*
AccountRepo
-----------
Persistence port for accounts. Only describes WHAT the identity service
needs, not HOW it is stored. Email lookups are case-insensitive; the
implementations normalize before touching storage.
*/
type AccountRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
	UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt. Hash must salt freshly on every call; Compare must be
constant-time with respect to the mismatch position.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
SessionSigner
-------------
Signs and verifies the session handle handed to callers. The handle binds
an account id to a server-side session id; tampering or expiry fails
verification.
*/
type SessionClaims struct {
	AccountID string
	SessionID string
	Exp       time.Time
}

type SessionSigner interface {
	SignSession(accountID, sessionID string, ttl time.Duration) (string, error)
	VerifySession(handle string) (SessionClaims, error)
}

/*
SessionStore
------------
Server-side session records. A session is live until revoked or expired;
Revoke is idempotent.
*/
type SessionStore interface {
	Create(ctx context.Context, accountID string, ttl time.Duration) (sessionID string, err error)
	Get(ctx context.Context, sessionID string) (accountID string, err error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAll(ctx context.Context, accountID string) error
}

/*
ResetTokenStore
---------------
Opaque single-use password-reset tokens. Consume must be atomic with the
lookup so two concurrent redemptions of one token cannot both succeed.
Multiple live tokens per account are allowed; consuming one leaves the
others valid.
*/
type ResetTokenStore interface {
	Save(ctx context.Context, token string, accountID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (accountID string, err error)
	Peek(ctx context.Context, token string) (accountID string, err error)
}

/*
LockoutPolicy
-------------
Per-account failed-attempt tracking. CheckAndRecord is atomic per account:
concurrent attempts serialize so the counter increments exactly once per
attempt and the threshold-crossing transition is observed by at most one
of them.
*/
type LockoutDecision struct {
	Allowed  bool
	Until    time.Time // lockout deadline when !Allowed
	Attempts int       // failed attempts recorded so far
}

type LockoutPolicy interface {
	CheckAndRecord(ctx context.Context, accountID string, success bool) (LockoutDecision, error)
}

/*
EventPublisher
--------------
Publishes recovery events to the broker; a mail service consumes them and
delivers the message. The identity service never sends email directly, and
delivery failures never fail the flow that issued the token.
*/
type PasswordResetEvent struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	URL       string `json:"url"`
}

type EventPublisher interface {
	PublishPasswordReset(ctx context.Context, evt PasswordResetEvent) error
}
