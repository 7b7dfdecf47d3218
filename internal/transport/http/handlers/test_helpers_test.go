package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quaykit/identity-service/internal/application/auth"
	"github.com/quaykit/identity-service/internal/infrastructure/memory"
	"github.com/quaykit/identity-service/internal/infrastructure/security"
	"github.com/quaykit/identity-service/internal/transport/http/middleware"
)

// capturePublisher records events instead of hitting a broker.
type capturePublisher struct {
	mu     sync.Mutex
	err    error
	events []auth.PasswordResetEvent
}

func (p *capturePublisher) PublishPasswordReset(ctx context.Context, evt auth.PasswordResetEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

// newHandlerForTest wires a service on in-process infrastructure so handler
// tests run the real decode/validate/respond path.
func newHandlerForTest(t *testing.T) (*AuthHandler, *capturePublisher) {
	t.Helper()

	pub := &capturePublisher{}

	svc := auth.NewService(
		memory.NewAccountRepo(),
		security.NewBcryptHasher(bcrypt.MinCost),
		security.NewSessionSigner("test-secret", "identity-service"),
		memory.NewSessionStore(),
		memory.NewResetTokenStore(),
		memory.NewLockoutPolicy(5, 15*time.Minute),
		pub,
		auth.Config{
			SessionTTL:            24 * time.Hour,
			PersistentSessionTTL:  14 * 24 * time.Hour,
			MinPasswordLength:     6,
			ResetTokenTTL:         30 * time.Minute,
			ResetBaseURL:          "https://fe/reset?token=",
			RevokeSessionsOnReset: true,
		},
	)

	return NewAuthHandler(svc, false), pub
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadJSON decodes JSON from r into out, accepting a {"data": ...} wrapper.
func mustReadJSON(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		if err := json.Unmarshal(wrapped.Data, out); err == nil {
			return
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode json failed; body=%s err=%v", string(raw), err)
	}
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// withAccountCtx injects an authenticated account id the way the session
// middleware does.
func withAccountCtx(req *http.Request, accountID string) *http.Request {
	return req.WithContext(middleware.WithAccount(req.Context(), accountID))
}

// errorCodeFrom extracts error.code from an error response body.
func errorCodeFrom(t *testing.T, r io.Reader) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, string(raw))
	}
	return body.Error.Code
}
