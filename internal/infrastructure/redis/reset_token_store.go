package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quaykit/identity-service/internal/domain"
)

// ResetTokenStore keeps password-reset tokens as reset:<token> -> accountID
// with a TTL. Expiry is enforced by Redis itself; Consume deletes atomically
// with the lookup so a token redeems at most once even under concurrent
// requests. Several live tokens may point at the same account.
type ResetTokenStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewResetTokenStore(c *Client) *ResetTokenStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &ResetTokenStore{
		rdb:    rdb,
		prefix: "reset:",
	}
}

func (s *ResetTokenStore) Save(ctx context.Context, token string, accountID string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	accountID = strings.TrimSpace(accountID)
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if accountID == "" {
		return domain.ErrMissingField("account_id")
	}
	if ttl <= 0 {
		return domain.ErrMissingField("ttl")
	}
	if s.rdb == nil {
		return errors.New("redis reset-token store not configured")
	}

	// overwrite is fine; token values are 256-bit random
	return s.rdb.Set(ctx, s.prefix+token, accountID, ttl).Err()
}

func (s *ResetTokenStore) Consume(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingField("token")
	}
	if s.rdb == nil {
		return "", errors.New("redis reset-token store not configured")
	}

	// Atomic GET + DEL: the mark-consumed race is settled inside Redis.
	const lua = `
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
return v
`
	res, err := s.rdb.Eval(ctx, lua, []string{s.prefix + token}).Result()
	if err != nil {
		// a nil script reply surfaces as redis.Nil: unknown, expired or
		// already consumed
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrResetTokenInvalid()
		}
		return "", fmt.Errorf("reset token consume: %w", err)
	}

	accountID, ok := res.(string)
	if !ok || strings.TrimSpace(accountID) == "" {
		return "", domain.ErrResetTokenInvalid()
	}
	return accountID, nil
}

func (s *ResetTokenStore) Peek(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingField("token")
	}
	if s.rdb == nil {
		return "", errors.New("redis reset-token store not configured")
	}

	accountID, err := s.rdb.Get(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrResetTokenInvalid()
		}
		return "", fmt.Errorf("reset token peek: %w", err)
	}
	if strings.TrimSpace(accountID) == "" {
		return "", domain.ErrResetTokenInvalid()
	}
	return accountID, nil
}
