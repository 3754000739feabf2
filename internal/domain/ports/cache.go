package ports

import (
	"context"

	"exchange-rate-facade/internal/domain/model"
)

// RateCache memoizes derived pair rates for a fixed TTL.
type RateCache interface {
	Get(ctx context.Context, pair model.CurrencyPair) (float64, bool)
	Put(ctx context.Context, pair model.CurrencyPair, rate float64) error
	Flush(ctx context.Context) error
	ClearExpired(ctx context.Context) error
}
