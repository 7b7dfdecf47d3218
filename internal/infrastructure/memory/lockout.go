package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quaykit/identity-service/internal/application/auth"
	"github.com/quaykit/identity-service/internal/domain"
)

type lockoutEntry struct {
	failures    int
	lockedUntil time.Time // zero = not locked
}

// LockoutPolicy is the in-memory CheckAndRecord implementation. All state
// changes happen under one mutex, so concurrent attempts against the same
// account serialize and the threshold transition fires exactly once.
type LockoutPolicy struct {
	mu       sync.Mutex
	accounts map[string]*lockoutEntry

	threshold int
	duration  time.Duration

	now func() time.Time
}

func NewLockoutPolicy(threshold int, duration time.Duration) *LockoutPolicy {
	if threshold <= 0 {
		threshold = 5
	}
	if duration <= 0 {
		duration = 15 * time.Minute
	}
	return &LockoutPolicy{
		accounts:  make(map[string]*lockoutEntry),
		threshold: threshold,
		duration:  duration,
		now:       time.Now,
	}
}

func (p *LockoutPolicy) CheckAndRecord(ctx context.Context, accountID string, success bool) (auth.LockoutDecision, error) {
	if accountID == "" {
		return auth.LockoutDecision{}, domain.ErrMissingField("account_id")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()

	e := p.accounts[accountID]
	if e == nil {
		e = &lockoutEntry{}
		p.accounts[accountID] = e
	}

	// an active lock answers for the attempt, even a correct-password one
	if !e.lockedUntil.IsZero() {
		if now.Before(e.lockedUntil) {
			return auth.LockoutDecision{Allowed: false, Until: e.lockedUntil}, nil
		}
		// lock expired; lazy reset
		e.lockedUntil = time.Time{}
		e.failures = 0
	}

	if success {
		e.failures = 0
		return auth.LockoutDecision{Allowed: true}, nil
	}

	e.failures++
	if e.failures >= p.threshold {
		e.lockedUntil = now.Add(p.duration)
		attempts := e.failures
		e.failures = 0
		return auth.LockoutDecision{Allowed: false, Until: e.lockedUntil, Attempts: attempts}, nil
	}

	return auth.LockoutDecision{Allowed: true, Attempts: e.failures}, nil
}
