package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quaykit/identity-service/internal/domain"
)

// SessionStore keeps server-side session records in Redis:
// - sess:<sid>  -> accountID with TTL (the session lifetime)
// - sessidx:<accountID> -> set of live sids (for RevokeAll)
// The sid itself is opaque and random; the signed handle presented by
// callers wraps it.
type SessionStore struct {
	rdb *goredis.Client

	sessPrefix string
	idxPrefix  string
	idBytes    int
}

func NewSessionStore(c *Client) *SessionStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &SessionStore{
		rdb:        rdb,
		sessPrefix: "sess:",
		idxPrefix:  "sessidx:",
		idBytes:    32, // 256-bit
	}
}

func (s *SessionStore) Create(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", domain.ErrMissingField("account_id")
	}
	if ttl <= 0 {
		return "", domain.ErrMissingField("ttl")
	}
	if s.rdb == nil {
		return "", errors.New("redis session store not configured")
	}

	sid, err := s.newSessionID()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessPrefix+sid, accountID, ttl)
	pipe.SAdd(ctx, s.idxPrefix+accountID, sid)
	// keep the index from outliving every session it could refer to
	pipe.Expire(ctx, s.idxPrefix+accountID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", domain.ErrRedisUnavailable(err)
	}

	return sid, nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", domain.ErrSessionInvalid()
	}
	if s.rdb == nil {
		return "", errors.New("redis session store not configured")
	}

	accountID, err := s.rdb.Get(ctx, s.sessPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrSessionInvalid()
		}
		return "", domain.ErrRedisUnavailable(err)
	}
	if accountID == "" {
		return "", domain.ErrSessionInvalid()
	}
	return accountID, nil
}

func (s *SessionStore) Revoke(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		// idempotent
		return nil
	}
	if s.rdb == nil {
		return errors.New("redis session store not configured")
	}

	accountID, err := s.rdb.Get(ctx, s.sessPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return domain.ErrRedisUnavailable(err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.sessPrefix+sessionID)
	pipe.SRem(ctx, s.idxPrefix+accountID, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) RevokeAll(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.ErrMissingField("account_id")
	}
	if s.rdb == nil {
		return errors.New("redis session store not configured")
	}

	sids, err := s.rdb.SMembers(ctx, s.idxPrefix+accountID).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return domain.ErrRedisUnavailable(err)
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range sids {
		pipe.Del(ctx, s.sessPrefix+sid)
	}
	pipe.Del(ctx, s.idxPrefix+accountID)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) newSessionID() (string, error) {
	b := make([]byte, s.idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// URL-safe, no padding
	return base64.RawURLEncoding.EncodeToString(b), nil
}
