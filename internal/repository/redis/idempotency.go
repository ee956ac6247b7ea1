package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// A key holds either the in-progress marker or "RES:" plus the stored result.
const (
	idemPending = "LOCK"
	idemResult  = "RES:"
)

// KEYS[1] = key, ARGV[1] = pending marker. Deletes the key only while it is
// still pending.
const luaReleasePending = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// IdempotencyStore backs at-most-once operations: order creation under an
// Idempotency-Key and the confirmation email per order.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	release *redis.Script
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		rdb:     rdb,
		ttl:     ttl,
		release: redis.NewScript(luaReleasePending),
	}
}

func (s *IdempotencyStore) value(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// AcquireLock marks key as in progress unless it is already taken.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemPending, lockTTL).Result()
}

// SaveResult replaces the in-progress marker with the finished result.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key, payload string) error {
	return s.rdb.Set(ctx, key, idemResult+payload, s.ttl).Err()
}

func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.value(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}

	payload, found := strings.CutPrefix(v, idemResult)
	return payload, found, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	v, _, err := s.value(ctx, key)
	return v == idemPending, err
}

// Release gives up an in-progress key so the operation can be retried. A
// saved result is kept.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.release.Run(ctx, s.rdb, []string{key}, idemPending).Err()
}
