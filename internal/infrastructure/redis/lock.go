package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// Only the owner token may release the lock.
	releaseLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	extendLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// SweepLock is a best-effort lease used so that only one worker instance
// runs a retry sweep at a time. It is not a correctness guarantee: the
// retry path itself is idempotent, the lease only avoids wasted duplicate
// status checks across instances.
type SweepLock struct {
	client   *redis.Client
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

// NewSweepLock creates a lease keyed by name with a unique owner token.
func NewSweepLock(client *redis.Client, name string, ttl time.Duration) *SweepLock {
	return &SweepLock{
		client: client,
		key:    fmt.Sprintf("lock:%s", name),
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire attempts to take the lease. A false return with nil error means
// another instance holds it; the caller should skip this cycle.
func (l *SweepLock) Acquire(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.acquired = success
	return success, nil
}

// Extend renews the lease TTL for sweeps that outlive the initial window.
func (l *SweepLock) Extend(ctx context.Context, additionalTTL time.Duration) error {
	if !l.acquired {
		return errors.New("lock not acquired")
	}

	result, err := extendLockScript.Run(
		ctx,
		l.client,
		[]string{l.key},
		l.value,
		additionalTTL.Milliseconds(),
	).Result()
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}

	val, ok := result.(int64)
	if !ok || val == 0 {
		return errors.New("lock not held or expired")
	}

	return nil
}

// Release gives up the lease. Releasing an unheld lease is a no-op.
func (l *SweepLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	result, err := releaseLockScript.Run(
		ctx,
		l.client,
		[]string{l.key},
		l.value,
	).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	val, ok := result.(int64)
	if !ok || val == 0 {
		return errors.New("lock not held or already released")
	}

	l.acquired = false
	return nil
}
