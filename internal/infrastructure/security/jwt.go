package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quaykit/identity-service/internal/application/auth"
	"github.com/quaykit/identity-service/internal/domain"
)

// SessionSigner signs session handles as HS256 JWTs. The token binds the
// account id to a server-side session id; verification alone does not make a
// session live, revocation is checked against the session store.
type SessionSigner struct {
	secret []byte
	issuer string
}

func NewSessionSigner(secret string, issuer string) *SessionSigner {
	return &SessionSigner{
		secret: []byte(secret),
		issuer: issuer,
	}
}

type sessionClaims struct {
	AccountID string `json:"aid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *SessionSigner) SignSession(accountID, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		AccountID: accountID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", domain.ErrSessionSignFailed(err)
	}
	return signed, nil
}

func (s *SessionSigner) VerifySession(handle string) (auth.SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(handle, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrSessionInvalid()
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		// expiry and tampering collapse into one caller-visible failure
		return auth.SessionClaims{}, domain.ErrSessionInvalid()
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return auth.SessionClaims{}, domain.ErrSessionInvalid()
	}
	if claims.AccountID == "" || claims.SessionID == "" {
		return auth.SessionClaims{}, domain.ErrSessionInvalid()
	}

	exp := time.Time{}
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return auth.SessionClaims{
		AccountID: claims.AccountID,
		SessionID: claims.SessionID,
		Exp:       exp,
	}, nil
}
