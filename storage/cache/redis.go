package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/24vibes/vibes/core"
)

const keyPrefix = "vibes:"

// RedisCache is a core.Cache storing JSON values in Redis. Every key is namespaced with "vibes:".
type RedisCache struct {
	rdb *redis.Client
}

var _ core.Cache = (*RedisCache)(nil)

func NewRedisCache(opts *redis.Options) *RedisCache {
	return &RedisCache{rdb: redis.NewClient(opts)}
}

// Open connects to the configured Redis server and pings it.
func Open(ctx context.Context, conf core.RedisConfig) (*RedisCache, error) {
	c := NewRedisCache(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return c, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, errors.Wrapf(err, "getting %s", key)
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrapf(err, "decoding %s", key)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return errors.Wrapf(c.rdb.Set(ctx, keyPrefix+key, data, ttl).Err(), "setting %s", key)
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, keyPrefix+key).Result()
	return n, errors.Wrapf(err, "incrementing %s", key)
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, keyPrefix+k)
	}
	return errors.Wrap(c.rdb.Del(ctx, prefixed...).Err(), "deleting keys")
}
