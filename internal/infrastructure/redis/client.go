package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// Client wraps the go-redis connection shared by the session, reset-token and
// lockout stores. Those stores receive it at construction and reach the raw
// connection through the package-internal field.
type Client struct {
	rdb *goredis.Client
}

func New(addr, password string, db int) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:        addr,
			Password:    password,
			DB:          db,
			DialTimeout: 2 * time.Second,
			ReadTimeout: time.Second,
		}),
	}
}

// Ping reports whether the backend answers within pingTimeout. Bootstrap uses
// it to decide between redis-backed and in-process stores; the readiness
// endpoint uses it to report degradation.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
