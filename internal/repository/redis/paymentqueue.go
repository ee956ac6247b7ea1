package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] = queue, ARGV[1] = now_ms, ARGV[2] = lease_ms, ARGV[3] = limit.
// Claimed members are pushed to now + lease so a second poller skips them
// until the lease runs out.
const luaClaim = `
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[3]))
local until_ms = tonumber(ARGV[1]) + tonumber(ARGV[2])
for _, id in ipairs(ids) do
  redis.call('ZADD', KEYS[1], until_ms, id)
end
return ids
`

// PaymentQueue is a Redis sorted set of orders awaiting a payment status
// check, scored by the time of their next check.
type PaymentQueue struct {
	rdb   *redis.Client
	key   string
	claim *redis.Script
}

func NewPaymentQueue(rdb *redis.Client) *PaymentQueue {
	return &PaymentQueue{
		rdb:   rdb,
		key:   KeyPaymentQueue(),
		claim: redis.NewScript(luaClaim),
	}
}

func (q *PaymentQueue) Schedule(ctx context.Context, orderID string, at time.Time) error {
	const op = "redis.PaymentQueue.Schedule"

	err := q.rdb.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: orderID,
	}).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Claim returns up to limit orders due at now and leases them.
func (q *PaymentQueue) Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]string, error) {
	const op = "redis.PaymentQueue.Claim"

	ids, err := q.claim.Run(
		ctx,
		q.rdb,
		[]string{q.key},
		strconv.FormatInt(now.UnixMilli(), 10),
		lease.Milliseconds(),
		limit,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

func (q *PaymentQueue) Remove(ctx context.Context, orderID string) error {
	const op = "redis.PaymentQueue.Remove"

	if err := q.rdb.ZRem(ctx, q.key, orderID).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (q *PaymentQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, q.key).Result()
}
