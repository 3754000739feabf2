package ports

import (
	"context"

	"exchange-rate-facade/internal/domain/model"
)

// RateProvider fetches the full rate table for the provider's canonical base currency.
type RateProvider interface {
	FetchRateTable(ctx context.Context) (model.RateTable, error)
}
