package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quaykit/identity-service/internal/domain"
)

func TestLogin_FifthFailureLocksAccount(t *testing.T) {
	t.Parallel()

	svc, accounts, _, _, _, _, _, _, _ := newSvcForTest(t)
	accounts.add(domain.Account{ID: "u1", Email: "a@x.com", PasswordHash: "hash:Secret123"})

	for i := 0; i < 4; i++ {
		_, err := svc.Login(context.Background(), "a@x.com", "wrong", false)
		requireDomainCode(t, err, "invalid_credentials")
	}

	_, err := svc.Login(context.Background(), "a@x.com", "wrong", false)
	requireDomainCode(t, err, "account_locked")
}

func TestLogin_LockedAccount_CorrectPasswordStillLocked(t *testing.T) {
	t.Parallel()

	svc, accounts, _, _, _, _, _, _, _ := newSvcForTest(t)
	accounts.add(domain.Account{ID: "u1", Email: "a@x.com", PasswordHash: "hash:Secret123"})

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "a@x.com", "wrong", false)
	}

	_, err := svc.Login(context.Background(), "a@x.com", "Secret123", false)
	requireDomainCode(t, err, "account_locked")
}

func TestLogin_LockedError_CarriesLockedUntilMeta(t *testing.T) {
	t.Parallel()

	svc, accounts, _, _, _, _, _, _, _ := newSvcForTest(t)
	accounts.add(domain.Account{ID: "u1", Email: "a@x.com", PasswordHash: "hash:Secret123"})

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "a@x.com", "wrong", false)
	}

	_, err := svc.Login(context.Background(), "a@x.com", "wrong", false)
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected domain error, got %v", err)
	}
	raw, ok := de.Meta["locked_until"]
	if !ok {
		t.Fatalf("expected locked_until meta, got %+v", de.Meta)
	}
	until, perr := time.Parse(time.RFC3339, raw)
	if perr != nil {
		t.Fatalf("locked_until not RFC3339: %q", raw)
	}
	if !until.After(time.Now()) {
		t.Fatalf("locked_until should be in the future, got %v", until)
	}
}

func TestLogin_LockExpires_AttemptsAllowedAgain(t *testing.T) {
	t.Parallel()

	svc, accounts, _, _, _, _, lockout, _, _ := newSvcForTest(t)
	accounts.add(domain.Account{ID: "u1", Email: "a@x.com", PasswordHash: "hash:Secret123"})

	base := time.Now()
	lockout.now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "a@x.com", "wrong", false)
	}
	_, err := svc.Login(context.Background(), "a@x.com", "Secret123", false)
	requireDomainCode(t, err, "account_locked")

	// Past the lockout window the account opens again.
	lockout.now = func() time.Time { return base.Add(16 * time.Minute) }

	res, err := svc.Login(context.Background(), "a@x.com", "Secret123", false)
	if err != nil {
		t.Fatalf("expected nil after lock expiry, got %v", err)
	}
	if res.Session.Handle == "" {
		t.Fatalf("expected session handle")
	}
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	t.Parallel()

	svc, accounts, _, _, _, _, _, _, _ := newSvcForTest(t)
	accounts.add(domain.Account{ID: "u1", Email: "a@x.com", PasswordHash: "hash:Secret123"})

	for i := 0; i < 4; i++ {
		_, _ = svc.Login(context.Background(), "a@x.com", "wrong", false)
	}
	if _, err := svc.Login(context.Background(), "a@x.com", "Secret123", false); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	// Counter was reset; four more failures stay below the threshold.
	for i := 0; i < 4; i++ {
		_, err := svc.Login(context.Background(), "a@x.com", "wrong", false)
		requireDomainCode(t, err, "invalid_credentials")
	}
}

func TestLogin_LockoutPolicyError_Propagates(t *testing.T) {
	t.Parallel()

	svc, accounts, _, _, _, _, lockout, _, _ := newSvcForTest(t)
	accounts.add(domain.Account{ID: "u1", Email: "a@x.com", PasswordHash: "hash:Secret123"})
	lockout.checkErr = domain.ErrRedisUnavailable(errors.New("down"))

	_, err := svc.Login(context.Background(), "a@x.com", "Secret123", false)
	requireDomainCode(t, err, "redis_unavailable")
}

func TestLogin_LockoutAudited(t *testing.T) {
	t.Parallel()

	svc, accounts, _, _, _, _, _, _, audits := newSvcForTest(t)
	accounts.add(domain.Account{ID: "u1", Email: "a@x.com", PasswordHash: "hash:Secret123"})

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "a@x.com", "wrong", false)
	}

	e := requireAuditAction(t, audits, "login_locked_out")
	requireAuditField(t, e, "account_id", "u1")
}
