package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quaykit/identity-service/internal/application/auth"
	"github.com/quaykit/identity-service/internal/domain"
)

// LockoutPolicy tracks failed login attempts per account in Redis:
// - loginfail:<id> -> counter, expiring after the counter window
// - lockout:<id>   -> flag with TTL equal to the remaining lockout
// The whole check-and-record step runs as one Lua script, so concurrent
// attempts against the same account serialize inside Redis: the counter
// moves exactly once per attempt and only the attempt that crosses the
// threshold sets the lock.
type LockoutPolicy struct {
	rdb *goredis.Client

	failPrefix string
	lockPrefix string

	threshold int
	duration  time.Duration
}

func NewLockoutPolicy(c *Client, threshold int, duration time.Duration) *LockoutPolicy {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	if threshold <= 0 {
		threshold = 5
	}
	if duration <= 0 {
		duration = 15 * time.Minute
	}
	return &LockoutPolicy{
		rdb:        rdb,
		failPrefix: "loginfail:",
		lockPrefix: "lockout:",
		threshold:  threshold,
		duration:   duration,
	}
}

// Returns {allowed(0/1), retry_ms, attempts}. Success clears the counter but
// never clears an active lock; a lock expires only by TTL.
const lockoutScript = `
local lockttl = redis.call("PTTL", KEYS[2])
if lockttl > 0 then
  return {0, lockttl, 0}
end
if ARGV[1] == "1" then
  redis.call("DEL", KEYS[1])
  return {1, 0, 0}
end
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
if c >= tonumber(ARGV[2]) then
  redis.call("SET", KEYS[2], "1", "PX", ARGV[3])
  redis.call("DEL", KEYS[1])
  return {0, tonumber(ARGV[3]), c}
end
return {1, 0, c}
`

func (p *LockoutPolicy) CheckAndRecord(ctx context.Context, accountID string, success bool) (auth.LockoutDecision, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return auth.LockoutDecision{}, domain.ErrMissingField("account_id")
	}
	if p.rdb == nil {
		return auth.LockoutDecision{}, errors.New("redis lockout policy not configured")
	}

	successArg := "0"
	if success {
		successArg = "1"
	}

	res, err := p.rdb.Eval(ctx, lockoutScript,
		[]string{p.failPrefix + accountID, p.lockPrefix + accountID},
		successArg, p.threshold, p.duration.Milliseconds(),
	).Result()
	if err != nil {
		return auth.LockoutDecision{}, domain.ErrRedisUnavailable(err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return auth.LockoutDecision{}, fmt.Errorf("lockout eval: unexpected result type")
	}

	allowed := arr[0].(int64) == 1
	retry := time.Duration(arr[1].(int64)) * time.Millisecond
	attempts := int(arr[2].(int64))

	d := auth.LockoutDecision{Allowed: allowed, Attempts: attempts}
	if !allowed {
		d.Until = time.Now().Add(retry)
	}
	return d, nil
}
