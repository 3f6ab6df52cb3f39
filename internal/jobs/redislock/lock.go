// Package redislock provides a RunLock shared by every worker that talks to
// the same Redis server.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/customer-etl/internal/jobs"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key holding the current run owner.
const DefaultKey = "customer-etl:run-lock"

// releaseScript deletes the key only while it still belongs to the caller.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Lock is a RunLock backed by SET NX with an expiry.
type Lock struct {
	rdb *goredis.Client
	key string
	ttl time.Duration
}

// New wraps an existing client.
func New(rdb *goredis.Client, key string, ttl time.Duration) *Lock {
	if key == "" {
		key = DefaultKey
	}
	return &Lock{rdb: rdb, key: key, ttl: ttl}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*Lock, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return New(rdb, DefaultKey, ttl), nil
}

// TryAcquire implements the RunLock interface.
func (l *Lock) TryAcquire(ctx context.Context, owner string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("TryAcquire: %w", err)
	}
	return ok, nil
}

// Release implements the RunLock interface.
func (l *Lock) Release(ctx context.Context, owner string) error {
	if err := l.rdb.Eval(ctx, releaseScript, []string{l.key}, owner).Err(); err != nil {
		return fmt.Errorf("Release: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (l *Lock) Close() error {
	return l.rdb.Close()
}

// Ensure Lock implements RunLock interface.
var _ jobs.RunLock = (*Lock)(nil)
