// Package cache is a Redis read-through layer over reference prices. The
// engine reads the latest quote on every PRU and P&L computation; the cache
// keeps that hot path off the database. Writes go to the primary store first
// and then refresh the cache entry.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"graindesk/internal/models"
	"graindesk/internal/repository"
)

type PriceCache struct {
	repo repository.Repository
	rdb  *redis.Client
	ttl  time.Duration
}

func NewPriceCache(repo repository.Repository, rdb *redis.Client, ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PriceCache{repo: repo, rdb: rdb, ttl: ttl}
}

func priceKey(reference string) string {
	return "graindesk:price:" + reference
}

// Get returns the latest quote for a reference, Redis first, store second.
// Cache failures degrade to the store silently.
func (c *PriceCache) Get(ctx context.Context, reference string) (*models.ReferencePrice, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, priceKey(reference)).Bytes()
		if err == nil {
			var item models.ReferencePrice
			if json.Unmarshal(raw, &item) == nil {
				return &item, nil
			}
		}
	}
	item, err := c.repo.GetReferencePrice(ctx, reference)
	if err != nil || item == nil {
		return item, err
	}
	c.set(ctx, item)
	return item, nil
}

// Put writes through: primary store, then cache.
func (c *PriceCache) Put(ctx context.Context, item *models.ReferencePrice) error {
	if err := c.repo.UpsertReferencePrice(ctx, item); err != nil {
		return err
	}
	c.set(ctx, item)
	return nil
}

func (c *PriceCache) set(ctx context.Context, item *models.ReferencePrice) {
	if c.rdb == nil || item == nil {
		return
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, priceKey(item.Reference), raw, c.ttl)
}
