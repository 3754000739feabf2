package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/pkg/logger"
)

const DefaultTTL = time.Hour

type entry struct {
	rate       float64
	insertedAt time.Time
}

type MemoryCache struct {
	cacheMap map[model.CurrencyPair]entry
	mutex    sync.RWMutex
	cacheTTL time.Duration
	now      func() time.Time
	log      *logger.Logger
}

type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now as the source of insertion and expiry times.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

func NewMemoryCache(cacheTTL time.Duration, log *logger.Logger, opts ...MemoryOption) *MemoryCache {
	if cacheTTL <= 0 {
		cacheTTL = DefaultTTL
	}

	c := &MemoryCache{
		cacheMap: make(map[model.CurrencyPair]entry),
		cacheTTL: cacheTTL,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// pairKey encodes a pair for backends keyed by string. The length prefix keeps
// codes containing the separator from colliding, e.g. (A_B, C) and (A, B_C).
func pairKey(pair model.CurrencyPair) string {
	base := string(pair.BaseCurrency)
	return strconv.Itoa(len(base)) + ":" + base + "_" + string(pair.TargetCurrency)
}

func (c *MemoryCache) expired(e entry, now time.Time) bool {
	return now.Sub(e.insertedAt) >= c.cacheTTL
}

func (c *MemoryCache) Get(ctx context.Context, pair model.CurrencyPair) (float64, bool) {
	now := c.now()

	c.mutex.RLock()
	e, found := c.cacheMap[pair]
	c.mutex.RUnlock()

	if !found {
		c.log.Debug("Cache miss", "pair", pair.String())
		return 0, false
	}

	if c.expired(e, now) {
		c.mutex.Lock()
		// a concurrent Put may have refreshed the entry in between
		if current, ok := c.cacheMap[pair]; ok && c.expired(current, now) {
			delete(c.cacheMap, pair)
		}
		c.mutex.Unlock()

		c.log.Debug("Cache entry expired", "pair", pair.String())
		return 0, false
	}

	c.log.Debug("Cache hit", "pair", pair.String())
	return e.rate, true
}

func (c *MemoryCache) Put(ctx context.Context, pair model.CurrencyPair, rate float64) error {
	c.mutex.Lock()
	c.cacheMap[pair] = entry{rate: rate, insertedAt: c.now()}
	c.mutex.Unlock()

	c.log.Debug("Cache set", "pair", pair.String())
	return nil
}

func (c *MemoryCache) Flush(ctx context.Context) error {
	c.mutex.Lock()
	count := len(c.cacheMap)
	c.cacheMap = make(map[model.CurrencyPair]entry)
	c.mutex.Unlock()

	c.log.Info("Flushed cache", "count", count)
	return nil
}

func (c *MemoryCache) ClearExpired(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	expiredKeys := make([]model.CurrencyPair, 0)

	for pair, e := range c.cacheMap {
		if c.expired(e, now) {
			expiredKeys = append(expiredKeys, pair)
		}
	}

	for _, pair := range expiredKeys {
		delete(c.cacheMap, pair)
		c.log.Debug("Removed expired cache entry", "pair", pair.String())
	}

	c.log.Info("Cleared expired cache entries", "count", len(expiredKeys))
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cacheMap)
}
