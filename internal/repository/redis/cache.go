package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores read models (seat maps, performance lists) as JSON.
type Cache struct {
	rdb   *redis.Client
	loads singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// read decodes key into dst. A missing or undecodable entry is a miss; the
// latter is dropped so the next read reloads it.
func (c *Cache) read(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}

	if err := json.Unmarshal(b, dst); err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}

	return true, nil
}

func (c *Cache) write(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// GetOrSetJSON returns the cached value for key, loading and storing it on a
// miss. Concurrent misses on one key share a single load. When Redis cannot
// be read the value is loaded directly.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var cached T
	if ok, err := c.read(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	v, err, _ := c.loads.Do(key, func() (any, error) {
		var again T
		if ok, err := c.read(ctx, key, &again); err == nil && ok {
			return again, nil
		}

		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}

		// a failed write only costs a reload.
		_ = c.write(ctx, key, fresh, ttl)

		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache %s: unexpected %T", key, v)
	}

	return out, nil
}

// InvalidateSeats drops the cached seat map of a performance together with
// the performance list that carries its counts.
func (c *Cache) InvalidateSeats(ctx context.Context, date string) error {
	return c.rdb.Del(ctx, KeySeatMap(date), KeyPerformances()).Err()
}
