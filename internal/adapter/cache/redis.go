package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/pkg/logger"
)

const (
	redisKeyPrefix = "exchange:rate:"
	redisScanCount = 100
)

// RedisCache stores pair rates in Redis and lets the server expire them.
type RedisCache struct {
	client   *redis.Client
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewRedisCache connects lazily to the Redis instance described by a URL such
// as redis://:password@localhost:6379/0.
func NewRedisCache(addr string, cacheTTL time.Duration, log *logger.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}

	return NewRedisCacheWithClient(redis.NewClient(opts), cacheTTL, log), nil
}

func NewRedisCacheWithClient(client *redis.Client, cacheTTL time.Duration, log *logger.Logger) *RedisCache {
	if cacheTTL <= 0 {
		cacheTTL = DefaultTTL
	}

	return &RedisCache{
		client:   client,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

func redisKey(pair model.CurrencyPair) string {
	return redisKeyPrefix + pairKey(pair)
}

func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Get(ctx context.Context, pair model.CurrencyPair) (float64, bool) {
	key := redisKey(pair)

	rate, err := rc.client.Get(ctx, key).Float64()
	if err != nil {
		if err != redis.Nil {
			rc.log.Error("Failed to read rate from redis", "key", key, "error", err)
		}
		return 0, false
	}

	rc.log.Debug("Cache hit", "key", key)
	return rate, true
}

func (rc *RedisCache) Put(ctx context.Context, pair model.CurrencyPair, rate float64) error {
	if err := rc.client.Set(ctx, redisKey(pair), rate, rc.cacheTTL).Err(); err != nil {
		return errors.Wrap(err, "writing rate to redis")
	}
	return nil
}

// Flush deletes every rate key owned by this service, leaving other keys alone.
func (rc *RedisCache) Flush(ctx context.Context) error {
	var keys []string

	iter := rc.client.Scan(ctx, 0, redisKeyPrefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scanning redis keys")
	}

	if len(keys) == 0 {
		return nil
	}

	if err := rc.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "deleting redis keys")
	}

	rc.log.Info("Flushed cache", "count", len(keys))
	return nil
}

// ClearExpired is a no-op: Redis expires keys on its own.
func (rc *RedisCache) ClearExpired(ctx context.Context) error {
	return nil
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
