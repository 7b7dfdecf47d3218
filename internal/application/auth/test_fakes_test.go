package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quaykit/identity-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeAccountRepo struct {
	mu sync.Mutex

	byID    map[string]domain.Account
	byEmail map[string]domain.Account

	// injected errors (if set, method returns error)
	getByIDErr    error
	getByEmailErr error
	createErr     error
	updatePwdErr  error

	// record calls
	updatedPwd []struct{ id, hash string }
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		byID:    map[string]domain.Account{},
		byEmail: map[string]domain.Account{},
	}
}

func (f *fakeAccountRepo) add(a domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a
	f.byEmail[a.Email] = a
}

func (f *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.Account{}, f.getByEmailErr
	}
	a, ok := f.byEmail[email]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return a, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.Account{}, f.getByIDErr
	}
	a, ok := f.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return a, nil
}

func (f *fakeAccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.Account{}, f.createErr
	}
	if _, ok := f.byEmail[a.Email]; ok {
		return domain.Account{}, domain.ErrEmailAlreadyExists()
	}
	f.byID[a.ID] = a
	f.byEmail[a.Email] = a
	return a, nil
}

func (f *fakeAccountRepo) UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	a, ok := f.byID[accountID]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	a.PasswordHash = newHash
	f.byID[accountID] = a
	f.byEmail[a.Email] = a
	f.updatedPwd = append(f.updatedPwd, struct{ id, hash string }{accountID, newHash})
	return nil
}

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
}

func (f *fakeHasher) Hash(pw string) (string, error) {
	if f.hashFn != nil {
		return f.hashFn(pw)
	}
	return "hash:" + pw, nil
}

func (f *fakeHasher) Compare(hash, pw string) error {
	if f.compareFn != nil {
		return f.compareFn(hash, pw)
	}
	if hash != "hash:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

type fakeSigner struct {
	signErr   error
	verifyErr error

	mu     sync.Mutex
	issued map[string]SessionClaims // handle -> claims
	n      int
}

func (f *fakeSigner) SignSession(accountID, sessionID string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.signErr != nil {
		return "", f.signErr
	}
	if f.issued == nil {
		f.issued = map[string]SessionClaims{}
	}
	f.n++
	handle := fmt.Sprintf("handle-%d", f.n)
	f.issued[handle] = SessionClaims{
		AccountID: accountID,
		SessionID: sessionID,
		Exp:       time.Now().Add(ttl),
	}
	return handle, nil
}

func (f *fakeSigner) VerifySession(handle string) (SessionClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.verifyErr != nil {
		return SessionClaims{}, f.verifyErr
	}
	c, ok := f.issued[handle]
	if !ok {
		return SessionClaims{}, domain.ErrSessionInvalid()
	}
	return c, nil
}

type fakeSessions struct {
	mu sync.Mutex

	byID      map[string]string   // sessionID -> accountID
	byAccount map[string][]string // accountID -> sessionIDs

	createErr    error
	getErr       error
	revokeErr    error
	revokeAllErr error

	revokedAll []string
	n          int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		byID:      map[string]string{},
		byAccount: map[string][]string{},
	}
}

func (f *fakeSessions) Create(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}
	f.n++
	sid := fmt.Sprintf("sid-%d", f.n)
	f.byID[sid] = accountID
	f.byAccount[accountID] = append(f.byAccount[accountID], sid)
	return sid, nil
}

func (f *fakeSessions) Get(ctx context.Context, sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return "", f.getErr
	}
	aid, ok := f.byID[sessionID]
	if !ok {
		return "", domain.ErrSessionInvalid()
	}
	return aid, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.revokeErr != nil {
		return f.revokeErr
	}
	delete(f.byID, sessionID)
	return nil
}

func (f *fakeSessions) RevokeAll(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.revokeAllErr != nil {
		return f.revokeAllErr
	}
	for _, sid := range f.byAccount[accountID] {
		delete(f.byID, sid)
	}
	delete(f.byAccount, accountID)
	f.revokedAll = append(f.revokedAll, accountID)
	return nil
}

type fakeReset struct {
	mu sync.Mutex

	tokens map[string]string // token -> accountID

	saveErr    error
	consumeErr error
	peekErr    error
}

func newFakeReset() *fakeReset {
	return &fakeReset{tokens: map[string]string{}}
}

func (f *fakeReset) Save(ctx context.Context, token, accountID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	f.tokens[token] = accountID
	return nil
}

func (f *fakeReset) Consume(ctx context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.consumeErr != nil {
		return "", f.consumeErr
	}
	aid, ok := f.tokens[token]
	if !ok {
		return "", domain.ErrResetTokenInvalid()
	}
	delete(f.tokens, token)
	return aid, nil
}

func (f *fakeReset) Peek(ctx context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.peekErr != nil {
		return "", f.peekErr
	}
	aid, ok := f.tokens[token]
	if !ok {
		return "", domain.ErrResetTokenInvalid()
	}
	return aid, nil
}

// fakeLockout counts failures the way the real policies do, with a
// controllable clock.
type fakeLockout struct {
	mu sync.Mutex

	threshold int
	duration  time.Duration
	now       func() time.Time

	checkErr error

	failures map[string]int
	locked   map[string]time.Time

	calls []struct {
		accountID string
		success   bool
	}
}

func newFakeLockout(threshold int, duration time.Duration) *fakeLockout {
	return &fakeLockout{
		threshold: threshold,
		duration:  duration,
		now:       time.Now,
		failures:  map[string]int{},
		locked:    map[string]time.Time{},
	}
}

func (f *fakeLockout) CheckAndRecord(ctx context.Context, accountID string, success bool) (LockoutDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.checkErr != nil {
		return LockoutDecision{}, f.checkErr
	}
	f.calls = append(f.calls, struct {
		accountID string
		success   bool
	}{accountID, success})

	now := f.now()
	if until, ok := f.locked[accountID]; ok {
		if now.Before(until) {
			return LockoutDecision{Allowed: false, Until: until}, nil
		}
		delete(f.locked, accountID)
		f.failures[accountID] = 0
	}

	if success {
		f.failures[accountID] = 0
		return LockoutDecision{Allowed: true}, nil
	}

	f.failures[accountID]++
	if f.failures[accountID] >= f.threshold {
		until := now.Add(f.duration)
		f.locked[accountID] = until
		f.failures[accountID] = 0
		return LockoutDecision{Allowed: false, Until: until, Attempts: f.threshold}, nil
	}
	return LockoutDecision{Allowed: true, Attempts: f.failures[accountID]}, nil
}

type fakePublisher struct {
	mu sync.Mutex

	publishErr error
	events     []PasswordResetEvent
}

func (f *fakePublisher) PublishPasswordReset(ctx context.Context, evt PasswordResetEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publishErr != nil {
		return f.publishErr
	}
	f.events = append(f.events, evt)
	return nil
}

/*
Service under test
*/

func newSvcForTest(t *testing.T) (*Service, *fakeAccountRepo, *fakeHasher, *fakeSigner, *fakeSessions, *fakeReset, *fakeLockout, *fakePublisher, *[]auditEntry) {
	t.Helper()

	accounts := newFakeAccountRepo()
	hasher := &fakeHasher{}
	signer := &fakeSigner{}
	sessions := newFakeSessions()
	reset := newFakeReset()
	lockout := newFakeLockout(5, 15*time.Minute)
	pub := &fakePublisher{}

	audits := &[]auditEntry{}
	cfg := Config{
		SessionTTL:            24 * time.Hour,
		PersistentSessionTTL:  14 * 24 * time.Hour,
		MinPasswordLength:     6,
		ResetTokenTTL:         30 * time.Minute,
		ResetBaseURL:          "https://fe/reset?token=",
		RevokeSessionsOnReset: true,
	}

	svc := NewService(accounts, hasher, signer, sessions, reset, lockout, pub, cfg).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*audits = append(*audits, auditEntry{action: action, fields: cp})
		})

	if svc == nil {
		t.Fatalf("svc is nil")
	}

	return svc, accounts, hasher, signer, sessions, reset, lockout, pub, audits
}

/*
Small assertions
*/

func domainCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domainCode(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func lastAudit(audits *[]auditEntry) (auditEntry, bool) {
	if audits == nil || len(*audits) == 0 {
		return auditEntry{}, false
	}
	return (*audits)[len(*audits)-1], true
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	e, ok := lastAudit(audits)
	if !ok {
		t.Fatalf("expected audit entry, got none")
	}
	if e.action != wantAction {
		t.Fatalf("expected audit action %q, got %q", wantAction, e.action)
	}
	return e
}

func requireAuditField(t *testing.T, e auditEntry, k, want string) {
	t.Helper()
	got := strings.TrimSpace(e.fields[k])
	if got != want {
		t.Fatalf("expected audit field %q=%q, got %q (all=%v)", k, want, got, e.fields)
	}
}
