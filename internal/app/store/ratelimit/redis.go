// internal/app/store/ratelimit/redis.go
package ratelimit

import (
	"context"
	"time"

	"github.com/dalemusser/playtweet/internal/app/system/normalize"
	"github.com/redis/go-redis/v9"
)

// RedisStore is the Redis-backed login limiter, for deployments that run
// several instances. Failures are counted with INCR on a key that expires
// with the window; reaching the limit sets a separate lock key that expires
// with the lockout. Like Store it fails open on Redis errors.
type RedisStore struct {
	rdb    *redis.Client
	policy Policy
	prefix string
}

// NewRedis creates a RedisStore. Keys are namespaced under prefix.
func NewRedis(rdb *redis.Client, prefix string, policy Policy) *RedisStore {
	if prefix == "" {
		prefix = "rl:login"
	}
	return &RedisStore{rdb: rdb, policy: policy, prefix: prefix}
}

func (s *RedisStore) countKey(id string) string { return s.prefix + ":count:" + id }
func (s *RedisStore) lockKey(id string) string  { return s.prefix + ":lock:" + id }

// CheckAllowed has the same contract as Store.CheckAllowed.
func (s *RedisStore) CheckAllowed(ctx context.Context, loginID string) (allowed bool, remaining int, lockedUntil *time.Time) {
	id := normalize.LoginIdentifier(loginID)

	ttl, err := s.rdb.PTTL(ctx, s.lockKey(id)).Result()
	if err != nil {
		return true, s.policy.MaxAttempts, nil
	}
	if ttl > 0 {
		until := time.Now().Add(ttl)
		return false, -1, &until
	}

	count, err := s.rdb.Get(ctx, s.countKey(id)).Int()
	if err != nil {
		// redis.Nil: no failures in the current window.
		return true, s.policy.MaxAttempts, nil
	}
	remaining = s.policy.MaxAttempts - count
	if remaining <= 0 {
		return true, s.policy.MaxAttempts, nil
	}
	return true, remaining, nil
}

// RecordFailure has the same contract as Store.RecordFailure.
func (s *RedisStore) RecordFailure(ctx context.Context, loginID string) (lockedOut bool, lockedUntil *time.Time) {
	id := normalize.LoginIdentifier(loginID)
	key := s.countKey(id)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, nil
	}
	count := incr.Val()

	// A counter without an expiry is either new or lost its PEXPIRE; it must
	// never outlive the window.
	if ttl.Val() < 0 {
		if err := s.rdb.PExpire(ctx, key, s.policy.Window).Err(); err != nil {
			s.rdb.Del(ctx, key)
			return false, nil
		}
	}
	if count < int64(s.policy.MaxAttempts) {
		return false, nil
	}

	until := time.Now().Add(s.policy.Lockout)
	pipe = s.rdb.TxPipeline()
	pipe.Set(ctx, s.lockKey(id), "1", s.policy.Lockout)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, nil
	}
	return true, &until
}

// ClearOnSuccess removes both the failure counter and any lock.
func (s *RedisStore) ClearOnSuccess(ctx context.Context, loginID string) error {
	id := normalize.LoginIdentifier(loginID)
	return s.rdb.Del(ctx, s.countKey(id), s.lockKey(id)).Err()
}
