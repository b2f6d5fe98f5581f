package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"graindesk/internal/client/feed"
	"graindesk/internal/metrics"
	"graindesk/internal/models"
	"graindesk/internal/notify"
	"graindesk/internal/repository"
)

const priceSyncScope = "price_feed"

// PriceWriter is where synced quotes land. The plain repository satisfies it;
// so does the Redis write-through cache.
type PriceWriter interface {
	Put(ctx context.Context, item *models.ReferencePrice) error
}

// RepoPriceWriter adapts the repository to PriceWriter for deployments that
// run without Redis.
type RepoPriceWriter struct {
	Repo repository.Repository
}

func (w RepoPriceWriter) Put(ctx context.Context, item *models.ReferencePrice) error {
	return w.Repo.UpsertReferencePrice(ctx, item)
}

// PriceSyncService pulls the full quote list from the upstream feed on a
// schedule and upserts the latest price per reference. Each run records its
// outcome in sync_state so operators can see when the feed last delivered.
type PriceSyncService struct {
	Repo   repository.Repository
	Feed   *feed.Client
	Writer PriceWriter
	Hub    *notify.Hub
	Logger *zap.Logger
	Source string
}

type priceSyncStats struct {
	Fetched  int    `json:"fetched"`
	Upserted int    `json:"upserted"`
	Skipped  int    `json:"skipped"`
	Took     string `json:"took"`
}

// SyncOnce performs one pull. A quote older than the stored one is skipped;
// the feed can replay history after an outage without clobbering newer data.
func (s *PriceSyncService) SyncOnce(ctx context.Context) error {
	start := time.Now()
	now := start.UTC()

	quotes, err := s.Feed.Quotes(ctx, nil)
	if err != nil {
		s.saveState(ctx, now, nil, err)
		if s.Logger != nil {
			s.Logger.Error("price sync pull failed", zap.Error(err))
		}
		return err
	}

	stats := priceSyncStats{Fetched: len(quotes)}
	for _, q := range quotes {
		if q.Reference == "" || !q.Price.IsPositive() {
			stats.Skipped++
			continue
		}
		existing, err := s.Repo.GetReferencePrice(ctx, q.Reference)
		if err != nil {
			return err
		}
		if existing != nil && !q.QuotedAt.After(existing.QuotedAt) {
			stats.Skipped++
			continue
		}
		item := &models.ReferencePrice{
			Reference: q.Reference,
			Price:     q.Price,
			Source:    s.Source,
			QuotedAt:  q.QuotedAt,
		}
		if err := s.Writer.Put(ctx, item); err != nil {
			return err
		}
		stats.Upserted++
		metrics.PriceUpdatesTotal.WithLabelValues("feed").Inc()
		if s.Hub != nil {
			s.Hub.Publish(ctx, notify.Event{
				Topic: notify.TopicPrice,
				Kind:  "quote_updated",
				Details: map[string]any{
					"reference": q.Reference,
					"price":     q.Price.String(),
				},
			})
		}
	}

	stats.Took = time.Since(start).Round(time.Millisecond).String()
	s.saveState(ctx, now, &stats, nil)
	if s.Logger != nil {
		s.Logger.Info("price sync done",
			zap.Int("fetched", stats.Fetched),
			zap.Int("upserted", stats.Upserted),
			zap.Int("skipped", stats.Skipped),
			zap.Duration("took", time.Since(start)),
		)
	}
	return nil
}

func (s *PriceSyncService) saveState(ctx context.Context, at time.Time, stats *priceSyncStats, runErr error) {
	state, err := s.Repo.GetSyncState(ctx, priceSyncScope)
	if err != nil {
		return
	}
	if state == nil {
		state = &models.SyncState{Scope: priceSyncScope}
	}
	state.LastAttemptAt = &at
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	} else {
		state.LastError = nil
		state.LastSuccessAt = &at
		if stats != nil {
			if raw, err := json.Marshal(stats); err == nil {
				state.StatsJSON = datatypes.JSON(raw)
			}
		}
	}
	if err := s.Repo.SaveSyncState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("saving price sync state failed", zap.Error(err))
	}
}
