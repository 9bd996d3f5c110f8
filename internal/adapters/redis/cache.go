package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"peakstay_mcp/internal/adapters/observability"
)

// Cache is the durable key-value tier of the search cache. Entries carry a
// Redis TTL, so this tier needs no explicit eviction; concurrent writers to
// the same key are last-write-wins, which is fine for idempotent search
// results.
type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("redis", "error")
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

func (r *Cache) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}
