package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/quaykit/identity-service/internal/domain"
	"github.com/quaykit/identity-service/internal/infrastructure/security"
)

// SessionValidator is the minimal surface the middleware needs to resolve a
// session handle into an account id.
type SessionValidator interface {
	ValidateSession(ctx context.Context, handle string) (string, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Session authenticates a request from the session cookie, falling back to
// Authorization: Bearer <handle> for non-browser clients, and injects the
// account id into the request context.
func Session(validator SessionValidator, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handle := sessionHandle(r)
			if handle == "" {
				writeErr(w, r, domain.ErrSessionMissing())
				return
			}

			accountID, err := validator.ValidateSession(r.Context(), handle)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			ctx := WithAccount(r.Context(), accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionHandle(r *http.Request) string {
	if handle, err := security.ReadSessionCookie(r); err == nil && handle != "" {
		return handle
	}

	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
