package cache

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/pkg/logger"
)

const (
	memcacheKeyPrefix = "exchange_rate:"

	// memcached reads larger expirations as absolute unix timestamps.
	memcacheMaxRelativeTTL = 30 * 24 * time.Hour
)

// MemcacheCache stores pair rates in memcached. Memcached cannot enumerate
// keys, so the keys written by this process are tracked for Flush.
type MemcacheCache struct {
	client   *memcache.Client
	cacheTTL time.Duration
	log      *logger.Logger

	mutex   sync.Mutex
	written map[string]struct{}
}

func NewMemcacheCache(hosts []string, cacheTTL time.Duration, log *logger.Logger) *MemcacheCache {
	if cacheTTL <= 0 {
		cacheTTL = DefaultTTL
	}

	if cacheTTL > memcacheMaxRelativeTTL {
		log.Warn("Cache ttl exceeds memcached limit, clamping", "ttl", cacheTTL, "max", memcacheMaxRelativeTTL)
		cacheTTL = memcacheMaxRelativeTTL
	}

	log.Info("memcached hosts", "hosts", hosts)

	return &MemcacheCache{
		client:   memcache.New(hosts...),
		cacheTTL: cacheTTL,
		log:      log,
		written:  make(map[string]struct{}),
	}
}

// memcacheKey escapes the pair key since memcached rejects spaces and control characters.
func memcacheKey(pair model.CurrencyPair) string {
	return memcacheKeyPrefix + url.QueryEscape(pairKey(pair))
}

func (mc *MemcacheCache) Ping(ctx context.Context) error {
	return mc.client.Ping()
}

func (mc *MemcacheCache) Get(ctx context.Context, pair model.CurrencyPair) (float64, bool) {
	key := memcacheKey(pair)

	item, err := mc.client.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			mc.log.Error("Failed to read rate from memcached", "key", key, "error", err)
		}
		return 0, false
	}

	rate, err := strconv.ParseFloat(string(item.Value), 64)
	if err != nil {
		mc.log.Error("Corrupt rate in memcached", "key", key, "error", err)
		return 0, false
	}

	return rate, true
}

func (mc *MemcacheCache) Put(ctx context.Context, pair model.CurrencyPair, rate float64) error {
	key := memcacheKey(pair)

	err := mc.client.Set(&memcache.Item{
		Key:        key,
		Value:      []byte(strconv.FormatFloat(rate, 'g', -1, 64)),
		Expiration: int32(mc.cacheTTL / time.Second),
	})
	if err != nil {
		return errors.Wrap(err, "writing rate to memcached")
	}

	mc.mutex.Lock()
	mc.written[key] = struct{}{}
	mc.mutex.Unlock()

	return nil
}

func memcacheExpiration(ttl time.Duration) int32 {
	if ttl > memcacheMaxRelativeTTL {
		ttl = memcacheMaxRelativeTTL
	}
	return int32(ttl / time.Second)
}

func (mc *MemcacheCache) Flush(ctx context.Context) error {
	mc.mutex.Lock()
	keys := make([]string, 0, len(mc.written))
	for key := range mc.written {
		keys = append(keys, key)
	}
	mc.written = make(map[string]struct{})
	mc.mutex.Unlock()

	for _, key := range keys {
		err := mc.client.Delete(key)
		if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			return errors.Wrap(err, "deleting rate from memcached")
		}
	}

	mc.log.Info("Flushed cache", "count", len(keys))
	return nil
}

// ClearExpired is a no-op: memcached expires items on its own.
func (mc *MemcacheCache) ClearExpired(ctx context.Context) error {
	return nil
}
