package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quaykit/identity-service/internal/domain"
)

type sessionEntry struct {
	accountID string
	expiresAt time.Time
}

type SessionStore struct {
	mu sync.Mutex
	// sessionID -> entry
	sessions map[string]sessionEntry
	// accountID -> set(sessionID)
	accountSessions map[string]map[string]struct{}

	now func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:        make(map[string]sessionEntry),
		accountSessions: make(map[string]map[string]struct{}),
		now:             time.Now,
	}
}

func (s *SessionStore) Create(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	if accountID == "" {
		return "", domain.ErrMissingField("account_id")
	}

	sid, err := newOpaqueToken(32)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sid] = sessionEntry{
		accountID: accountID,
		expiresAt: s.now().Add(ttl),
	}
	if s.accountSessions[accountID] == nil {
		s.accountSessions[accountID] = make(map[string]struct{})
	}
	s.accountSessions[accountID][sid] = struct{}{}

	return sid, nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return "", domain.ErrSessionInvalid()
	}

	// lazy expiry
	if s.now().After(entry.expiresAt) {
		s.removeLocked(sessionID, entry.accountID)
		return "", domain.ErrSessionInvalid()
	}

	return entry.accountID, nil
}

func (s *SessionStore) Revoke(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil // idempotent
	}
	s.removeLocked(sessionID, entry.accountID)
	return nil
}

func (s *SessionStore) RevokeAll(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sid := range s.accountSessions[accountID] {
		delete(s.sessions, sid)
	}
	delete(s.accountSessions, accountID)
	return nil
}

func (s *SessionStore) removeLocked(sessionID, accountID string) {
	delete(s.sessions, sessionID)
	if set := s.accountSessions[accountID]; set != nil {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(s.accountSessions, accountID)
		}
	}
}
