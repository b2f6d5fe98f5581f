package service

import (
	"context"

	"graindesk/internal/models"
	"graindesk/internal/repository"
)

// PriceSource resolves the latest quote of a reference instrument. Satisfied
// by the plain repository wrapper below and by the Redis read-through cache.
type PriceSource interface {
	Get(ctx context.Context, reference string) (*models.ReferencePrice, error)
}

// RepoPrices is the cache-less PriceSource.
type RepoPrices struct {
	Repo repository.Repository
}

func (p RepoPrices) Get(ctx context.Context, reference string) (*models.ReferencePrice, error) {
	return p.Repo.GetReferencePrice(ctx, reference)
}
