// Package redislock implements a single-owner Redis lock with a token,
// released atomically by a Lua compare-and-delete.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another owner holds the key
var ErrNotAcquired = errors.New("redislock: lock is held by another owner")

// Deletes the key only if it still carries our token, so an expired and
// re-acquired lock is never released by its previous owner.
const luaRelease = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseScript = redis.NewScript(luaRelease)

// Locker acquires locks. A nil client yields locks that always succeed.
type Locker struct {
	redis *redis.Client
}

func New(client *redis.Client) *Locker {
	return &Locker{redis: client}
}

// Lock is a held lock
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Obtain sets key for ttl if nobody holds it. It does not wait.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if l == nil || l.redis == nil {
		return &Lock{key: key}, nil
	}
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redislock: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lock{client: l.redis, key: key, token: token}, nil
}

// Release frees the lock if it is still ours. Releasing an expired lock is
// not an error.
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil || lk.client == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redislock: release %s: %w", lk.key, err)
	}
	return nil
}

// Key returns the locked key
func (lk *Lock) Key() string { return lk.key }
