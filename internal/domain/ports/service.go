package ports

import (
	"context"

	"exchange-rate-facade/internal/domain/model"
)

type ExchangeService interface {
	ResolvePair(ctx context.Context, from, to model.Currency) (float64, error)
	ResolveAll(ctx context.Context) (map[model.Currency]float64, error)
	RegisterOverride(ctx context.Context, from, to model.Currency, rate float64) error
	FlushCache(ctx context.Context) error
}
