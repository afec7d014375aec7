package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// RedisLocker is a KeyLocker backed by redislock, for deployments with
// more than one instance.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker creates a distributed key locker on the given client
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
	}
}

// Obtain implements KeyLocker
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl, wait time.Duration) (Lock, error) {
	opt := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), int(wait/(50*time.Millisecond))),
	}

	held, err := l.client.Obtain(ctx, "lock:"+key, ttl, opt)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, shared.ErrBusy.WithDetails("key", key)
	}
	if err != nil {
		return nil, err
	}
	return &redisLock{held: held}, nil
}

type redisLock struct {
	held *redislock.Lock
}

// Release implements Lock
func (r *redisLock) Release(ctx context.Context) error {
	err := r.held.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return shared.NewDomainError("LOCK_ALREADY_RELEASED", "Lock was already released")
	}
	return err
}

var _ KeyLocker = (*RedisLocker)(nil)
