package ports

import (
	"context"

	"exchange-rate-facade/internal/domain/model"
)

type OverrideStore interface {
	Set(from, to model.Currency, rate float64) error
	Get(from, to model.Currency) (float64, bool)
	All() []model.Override
}

// OverridePublisher announces registered overrides to other systems.
type OverridePublisher interface {
	PublishOverride(ctx context.Context, event model.OverrideRegistered) error
	Close() error
}
