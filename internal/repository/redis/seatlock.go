package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/redis/go-redis/v9"
)

var ErrSeatsLocked = errors.New("seats locked by another session")

// SeatsLockedError lists the seats another session holds.
type SeatsLockedError struct {
	Seats []domain.SeatRef
}

func (e *SeatsLockedError) Error() string {
	return fmt.Sprintf("%d seat(s) locked by another session", len(e.Seats))
}

func (e *SeatsLockedError) Unwrap() error {
	return ErrSeatsLocked
}

// KEYS = lock keys, ARGV[1] = owner, ARGV[2] = ttl_ms.
// Returns the 1-based indexes of keys held by someone else; nothing is
// written unless that list is empty.
const luaAcquire = `
local conflicts = {}
for i, key in ipairs(KEYS) do
  local cur = redis.call('GET', key)
  if cur and cur ~= ARGV[1] then
    table.insert(conflicts, i)
  end
end
if #conflicts > 0 then
  return conflicts
end
for _, key in ipairs(KEYS) do
  redis.call('SET', key, ARGV[1], 'PX', ARGV[2])
end
return {}
`

// KEYS = lock keys, ARGV[1] = owner, ARGV[2] = ttl_ms.
const luaExtend = `
local n = 0
for _, key in ipairs(KEYS) do
  if redis.call('GET', key) == ARGV[1] then
    redis.call('PEXPIRE', key, ARGV[2])
    n = n + 1
  end
end
return n
`

// KEYS = lock keys, ARGV[1] = owner.
const luaRelease = `
local n = 0
for _, key in ipairs(KEYS) do
  if redis.call('GET', key) == ARGV[1] then
    redis.call('DEL', key)
    n = n + 1
  end
end
return n
`

// SeatLocker holds seats for a browser session with a TTL. A lock is a plain
// key whose value is the owning session id.
type SeatLocker struct {
	rdb     *redis.Client
	acquire *redis.Script
	extend  *redis.Script
	release *redis.Script
}

func NewSeatLocker(rdb *redis.Client) *SeatLocker {
	return &SeatLocker{
		rdb:     rdb,
		acquire: redis.NewScript(luaAcquire),
		extend:  redis.NewScript(luaExtend),
		release: redis.NewScript(luaRelease),
	}
}

func lockKeys(date string, seats []domain.SeatRef) []string {
	keys := make([]string, len(seats))
	for i, s := range seats {
		keys[i] = KeySeatLock(date, s)
	}
	return keys
}

// Acquire locks every seat for owner or none of them. Seats the owner already
// holds are refreshed. Returns *SeatsLockedError when another session holds
// any of the seats.
func (l *SeatLocker) Acquire(
	ctx context.Context,
	date string,
	seats []domain.SeatRef,
	owner string,
	ttl time.Duration,
) error {
	const op = "redis.SeatLocker.Acquire"

	if len(seats) == 0 {
		return nil
	}

	res, err := l.acquire.Run(ctx, l.rdb, lockKeys(date, seats), owner, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	idx, ok := res.([]any)
	if !ok {
		return fmt.Errorf("%s: bad script result: %v", op, res)
	}

	if len(idx) == 0 {
		return nil
	}

	locked := &SeatsLockedError{}
	for _, v := range idx {
		n, _ := v.(int64)
		i := int(n) - 1
		if i >= 0 && i < len(seats) {
			locked.Seats = append(locked.Seats, seats[i])
		}
	}

	return fmt.Errorf("%s: %w", op, locked)
}

// Extend resets the TTL of the seats owner holds and returns how many it
// still held.
func (l *SeatLocker) Extend(
	ctx context.Context,
	date string,
	seats []domain.SeatRef,
	owner string,
	ttl time.Duration,
) (int, error) {
	const op = "redis.SeatLocker.Extend"

	if len(seats) == 0 {
		return 0, nil
	}

	n, err := l.extend.Run(ctx, l.rdb, lockKeys(date, seats), owner, ttl.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// Release drops the seats owner holds.
func (l *SeatLocker) Release(ctx context.Context, date string, seats []domain.SeatRef, owner string) (int, error) {
	const op = "redis.SeatLocker.Release"

	if len(seats) == 0 {
		return 0, nil
	}

	n, err := l.release.Run(ctx, l.rdb, lockKeys(date, seats), owner).Int()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// ForceRelease drops the locks whoever holds them.
func (l *SeatLocker) ForceRelease(ctx context.Context, date string, seats []domain.SeatRef) error {
	const op = "redis.SeatLocker.ForceRelease"

	if len(seats) == 0 {
		return nil
	}

	if err := l.rdb.Del(ctx, lockKeys(date, seats)...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Owners returns the session holding each seat, "" when free.
func (l *SeatLocker) Owners(ctx context.Context, date string, seats []domain.SeatRef) ([]string, error) {
	const op = "redis.SeatLocker.Owners"

	if len(seats) == 0 {
		return nil, nil
	}

	vals, err := l.rdb.MGet(ctx, lockKeys(date, seats)...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]string, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}

	return out, nil
}
