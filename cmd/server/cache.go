package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"exchange-rate-facade/internal/adapter/cache"
	"exchange-rate-facade/internal/config"
	"exchange-rate-facade/internal/domain/ports"
	"exchange-rate-facade/pkg/logger"
)

const cacheConnectBackoff = 500 * time.Millisecond

type pinger interface {
	Ping(ctx context.Context) error
}

// newRateCache builds the configured cache backend. Remote backends must
// answer a ping before the server starts.
func newRateCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (ports.RateCache, func(), error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		rc, err := cache.NewRedisCache(cfg.RedisURL, cfg.TTL, log)
		if err != nil {
			return nil, nil, err
		}
		if err := waitForCache(ctx, rc, cfg.ConnectAttempts, log); err != nil {
			rc.Close()
			return nil, nil, err
		}
		return rc, func() { rc.Close() }, nil

	case config.CacheBackendMemcached:
		mc := cache.NewMemcacheCache(cfg.MemcachedHosts, cfg.TTL, log)
		if err := waitForCache(ctx, mc, cfg.ConnectAttempts, log); err != nil {
			return nil, nil, err
		}
		return mc, func() {}, nil

	default:
		return cache.NewMemoryCache(cfg.TTL, log), func() {}, nil
	}
}

func waitForCache(ctx context.Context, p pinger, attempts uint64, log *logger.Logger) error {
	backoff := retry.WithMaxRetries(attempts, retry.NewExponential(cacheConnectBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			log.Warn("Cache backend not reachable yet", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache backend unreachable: %w", err)
	}

	log.Info("Cache backend reachable")
	return nil
}
