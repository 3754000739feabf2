package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/internal/domain/ports"
	"exchange-rate-facade/internal/metrics"
	"exchange-rate-facade/pkg/logger"
	"exchange-rate-facade/pkg/utils"
)

// ExchangeService resolves pair rates from overrides, the cache and the
// upstream provider, in that order.
type ExchangeService struct {
	provider  ports.RateProvider
	cache     ports.RateCache
	overrides ports.OverrideStore
	publisher ports.OverridePublisher
	metrics   *metrics.Metrics
	now       func() time.Time
	log       *logger.Logger
}

var _ ports.ExchangeService = (*ExchangeService)(nil)

type Option func(*ExchangeService)

func WithPublisher(publisher ports.OverridePublisher) Option {
	return func(s *ExchangeService) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ExchangeService) {
		s.metrics = m
	}
}

func NewExchangeService(
	provider ports.RateProvider,
	cache ports.RateCache,
	overrides ports.OverrideStore,
	log *logger.Logger,
	opts ...Option,
) *ExchangeService {
	s := &ExchangeService{
		provider:  provider,
		cache:     cache,
		overrides: overrides,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *ExchangeService) ResolvePair(ctx context.Context, from, to model.Currency) (float64, error) {
	if from == to {
		return 1.0, nil
	}

	pair := model.NewPair(from, to)

	if rate, found := s.overrides.Get(from, to); found {
		s.log.Debug("Exchange rate served from override", "pair", pair.String())
		s.countOverrideHit()
		return rate, nil
	}

	if rate, found := s.cache.Get(ctx, pair); found {
		s.log.Debug("Exchange rate found in cache", "pair", pair.String())
		s.countCacheLookup("hit")
		return rate, nil
	}
	s.countCacheLookup("miss")

	s.log.Info("Fetching exchange rate from provider", "pair", pair.String())
	table, err := s.fetchRateTable(ctx)
	if err != nil {
		s.log.Error("Failed to fetch exchange rate", "error", err, "pair", pair.String())
		return 0, err
	}

	rate, err := deriveRate(table, pair)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Put(ctx, pair, rate); err != nil {
		s.log.Error("Failed to cache exchange rate", "error", err, "pair", pair.String())
	}

	return rate, nil
}

// ResolveAll always fetches a fresh table. Values are relative to the
// provider's base currency; each override replaces the value of its
// destination currency whatever its source currency is.
func (s *ExchangeService) ResolveAll(ctx context.Context) (map[model.Currency]float64, error) {
	table, err := s.fetchRateTable(ctx)
	if err != nil {
		s.log.Error("Failed to fetch exchange rates", "error", err)
		return nil, err
	}

	merged := table.Copy()
	for _, o := range s.overrides.All() {
		merged[o.To] = o.Rate
	}

	return merged, nil
}

// RegisterOverride stores the override without touching any cached rate for the pair.
func (s *ExchangeService) RegisterOverride(ctx context.Context, from, to model.Currency, rate float64) error {
	if err := s.overrides.Set(from, to, rate); err != nil {
		return err
	}

	s.log.Info("Registered exchange rate override", "from", from, "to", to, "rate", rate)

	if s.publisher != nil {
		event := model.OverrideRegistered{From: from, To: to, Rate: rate, RegisteredAt: s.now().UTC()}
		if err := s.publisher.PublishOverride(ctx, event); err != nil {
			s.log.Warn("Failed to publish override event", "error", err, "from", from, "to", to)
		}
	}

	return nil
}

func (s *ExchangeService) FlushCache(ctx context.Context) error {
	if err := s.cache.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}

func (s *ExchangeService) fetchRateTable(ctx context.Context) (model.RateTable, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "fetchRateTable")
	defer span.Finish()

	table, err := s.provider.FetchRateTable(ctx)
	if err != nil {
		ext.Error.Set(span, true)
		span.LogKV("error", err.Error())
		s.countProviderFetch("error")

		// keep the failure typed even for providers that return plain errors
		if !errors.Is(err, model.ErrUpstreamUnavailable) && !errors.Is(err, model.ErrUpstreamMalformed) {
			err = fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	span.SetTag("rates", len(table))
	s.countProviderFetch("success")
	return table, nil
}

func deriveRate(table model.RateTable, pair model.CurrencyPair) (float64, error) {
	fromRate, fromOK := table[pair.BaseCurrency]
	toRate, toOK := table[pair.TargetCurrency]

	if !fromOK {
		return 0, fmt.Errorf("%w: %s", model.ErrRateUnavailable, pair.BaseCurrency)
	}
	if !toOK {
		return 0, fmt.Errorf("%w: %s", model.ErrRateUnavailable, pair.TargetCurrency)
	}

	rate := toRate / fromRate
	if !utils.IsValidRate(rate) {
		return 0, fmt.Errorf("%w: derived rate %v for %s", model.ErrRateUnavailable, rate, pair.String())
	}

	return rate, nil
}

func (s *ExchangeService) countCacheLookup(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
	}
}

func (s *ExchangeService) countOverrideHit() {
	if s.metrics != nil {
		s.metrics.OverrideHitsTotal.Inc()
	}
}

func (s *ExchangeService) countProviderFetch(outcome string) {
	if s.metrics != nil {
		s.metrics.ProviderFetchesTotal.WithLabelValues(outcome).Inc()
	}
}
